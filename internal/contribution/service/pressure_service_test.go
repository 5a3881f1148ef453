package service

import (
	"context"
	"testing"
	"time"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
	"github.com/itss-pm/contribution-engine/internal/contribution/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tasksFor(userID int64, n int) []domain.ActiveTask {
	out := make([]domain.ActiveTask, n)
	for i := range out {
		out[i] = domain.ActiveTask{TaskID: userID*100 + int64(i), AssigneeID: userID, Difficulty: 1}
	}
	return out
}

func newPressureEnv(t *testing.T, model scoring.PressureModel) (*testEnv, *fakeHistory, *PressureService) {
	t.Helper()
	env := newTestEnv(t)
	env.signals.tasks = append(append(tasksFor(userA, 12), tasksFor(userB, 15)...), tasksFor(userC, 3)...)

	history := &fakeHistory{}
	svc := NewPressureService(env.store, env.signals, history, env.publisher, model)
	svc.now = func() time.Time { return fixedNow }
	return env, history, svc
}

func TestPressureService_GroupPressure(t *testing.T) {
	ctx := context.Background()

	t.Run("classifies against the project threshold", func(t *testing.T) {
		_, _, svc := newPressureEnv(t, scoring.NewPressureModel(0.8, false))

		scores, err := svc.GroupPressure(ctx, testProject, testGroup)
		require.NoError(t, err)
		require.Len(t, scores, 3)

		byUser := map[int64]domain.PressureScore{}
		for _, s := range scores {
			byUser[s.UserID] = s
		}
		assert.Equal(t, domain.PressureAtRisk, byUser[userA].Status)
		assert.InDelta(t, 80, byUser[userA].ThresholdPercentage, 1e-9)
		assert.Equal(t, domain.PressureOverloaded, byUser[userB].Status)
		assert.Equal(t, 15, byUser[userB].TaskCount)
		assert.Equal(t, domain.PressureSafe, byUser[userC].Status)
		assert.Equal(t, testGroup, byUser[userC].GroupID)
		assert.Equal(t, "carol", byUser[userC].Username)
	})

	t.Run("uses a configured at-risk ratio", func(t *testing.T) {
		_, _, svc := newPressureEnv(t, scoring.NewPressureModel(0.9, false))

		scores, err := svc.GroupPressure(ctx, testProject, testGroup)
		require.NoError(t, err)
		for _, s := range scores {
			if s.UserID == userA {
				assert.Equal(t, domain.PressureSafe, s.Status, "80% is below a 90% cutoff")
			}
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		_, _, svc := newPressureEnv(t, scoring.NewPressureModel(0.8, false))
		_, err := svc.GroupPressure(ctx, testProject, 99)
		assert.ErrorIs(t, err, domain.ErrGroupNotFound)
	})

	t.Run("unknown project", func(t *testing.T) {
		_, _, svc := newPressureEnv(t, scoring.NewPressureModel(0.8, false))
		_, err := svc.GroupPressure(ctx, 404, testGroup)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("upstream failure", func(t *testing.T) {
		env, _, svc := newPressureEnv(t, scoring.NewPressureModel(0.8, false))
		env.signals.err = errUpstream
		_, err := svc.GroupPressure(ctx, testProject, testGroup)
		assert.ErrorIs(t, err, domain.ErrSignalsUnavailable)
	})
}

func TestPressureService_SnapshotAll(t *testing.T) {
	ctx := context.Background()
	env, history, svc := newPressureEnv(t, scoring.NewPressureModel(0.8, false))

	// A finalized project is not snapshotted.
	env.store.addProject(9, domain.DefaultWeights())
	env.signals.members[9] = []domain.Member{{UserID: 50, GroupID: 90}}
	_, err := env.svc.Finalize(ctx, 9, "instructor-1")
	require.NoError(t, err)

	n, err := svc.SnapshotAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, history.snapshots, 3)
	for _, s := range history.snapshots {
		assert.Equal(t, testProject, s.ProjectID)
		assert.Equal(t, fixedNow, s.RecordedAt)
	}

	alerts := env.publisher.ofType(domain.EventMemberOverloaded)
	require.Len(t, alerts, 1)
	assert.Equal(t, userB, alerts[0].UserID)

	recent, err := svc.History(ctx, testProject, userB, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.PressureOverloaded, recent[0].Status)
}

func TestPressureService_SnapshotAll_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	env, history, svc := newPressureEnv(t, scoring.NewPressureModel(0.8, false))
	history.err = errUpstream

	env.store.addProject(8, domain.DefaultWeights())

	n, err := svc.SnapshotAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, 0, n)
}
