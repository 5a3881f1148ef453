package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
	"github.com/itss-pm/contribution-engine/internal/contribution/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

/* ---------------- In-memory fakes that satisfy ScoreStore, SignalSource, Publisher & HistoryStore ---------------- */

type fakeScoreStore struct {
	mu        sync.Mutex
	projects  map[int64]*domain.ProjectConfig
	scores    map[string]*domain.ContributionScore
	saveCalls int
	saveErr   error
}

func newFakeScoreStore() *fakeScoreStore {
	return &fakeScoreStore{
		projects: map[int64]*domain.ProjectConfig{},
		scores:   map[string]*domain.ContributionScore{},
	}
}

func (s *fakeScoreStore) addProject(id int64, w domain.WeightConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[id] = &domain.ProjectConfig{ProjectID: id, Name: fmt.Sprintf("project-%d", id), Weights: w, Status: domain.StatusDraft}
}

func (s *fakeScoreStore) GetProjectConfig(_ context.Context, projectID int64) (*domain.ProjectConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeScoreStore) UpdateWeights(_ context.Context, projectID int64, w domain.WeightConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.Weights = w
	return nil
}

func (s *fakeScoreStore) ListByProject(_ context.Context, projectID int64) ([]domain.ContributionScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.ContributionScore{}
	for _, sc := range s.scores {
		if sc.ProjectID == projectID {
			out = append(out, *sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *fakeScoreStore) GetByID(_ context.Context, id string) (*domain.ContributionScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scores[id]
	if !ok {
		return nil, domain.ErrScoreNotFound
	}
	cp := *sc
	return &cp, nil
}

func (s *fakeScoreStore) SaveCalculated(_ context.Context, projectID int64, scores []domain.ContributionScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	p, ok := s.projects[projectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	if p.Status.IsFinal() {
		return domain.ErrProjectLocked
	}

	for _, in := range scores {
		var existing *domain.ContributionScore
		for _, sc := range s.scores {
			if sc.ProjectID == projectID && sc.UserID == in.UserID {
				existing = sc
				break
			}
		}
		if existing == nil {
			cp := in
			cp.ID = uuid.NewString()
			cp.ProjectID = projectID
			cp.Adjustment = nil
			cp.IsFinal = false
			s.scores[cp.ID] = &cp
			continue
		}
		if existing.IsFinal {
			continue
		}
		existing.TaskCompletionScore = in.TaskCompletionScore
		existing.PeerReviewScore = in.PeerReviewScore
		existing.CodeContributionScore = in.CodeContributionScore
		existing.LateTaskCount = in.LateTaskCount
		existing.TotalAdditions = in.TotalAdditions
		existing.TotalDeletions = in.TotalDeletions
		existing.CalculatedScore = in.CalculatedScore
		existing.UpdatedAt = in.UpdatedAt
	}
	return nil
}

func (s *fakeScoreStore) SetAdjustment(_ context.Context, id string, adj *domain.Adjustment, now time.Time) (*domain.ContributionScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scores[id]
	if !ok {
		return nil, domain.ErrScoreNotFound
	}
	if s.projects[sc.ProjectID].Status.IsFinal() {
		return nil, domain.ErrProjectLocked
	}
	if adj != nil {
		a := *adj
		sc.Adjustment = &a
	} else {
		sc.Adjustment = nil
	}
	sc.UpdatedAt = now
	cp := *sc
	return &cp, nil
}

func (s *fakeScoreStore) Finalize(_ context.Context, projectID int64, snapshot domain.WeightConfig, by string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return false, domain.ErrProjectNotFound
	}
	if p.Status.IsFinal() {
		return true, nil
	}
	for _, sc := range s.scores {
		if sc.ProjectID == projectID {
			sc.IsFinal = true
		}
	}
	frozen := snapshot
	p.Status = domain.StatusFinalized
	p.FrozenWeights = &frozen
	p.FinalizedAt = &now
	p.FinalizedBy = by
	return false, nil
}

func (s *fakeScoreStore) ListDraftProjects(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, p := range s.projects {
		if !p.Status.IsFinal() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeSignals struct {
	mu      sync.Mutex
	members map[int64][]domain.Member
	raw     map[int64]domain.RawSignals
	tasks   []domain.ActiveTask
	err     error
}

func newFakeSignals() *fakeSignals {
	return &fakeSignals{
		members: map[int64][]domain.Member{},
		raw:     map[int64]domain.RawSignals{},
	}
}

func (f *fakeSignals) setRaw(signals ...domain.RawSignals) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range signals {
		f.raw[s.UserID] = s
	}
}

func (f *fakeSignals) Members(_ context.Context, projectID int64) ([]domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Member(nil), f.members[projectID]...), nil
}

func (f *fakeSignals) GroupMembers(_ context.Context, projectID, groupID int64) ([]domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Member
	for _, m := range f.members[projectID] {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrGroupNotFound
	}
	return out, nil
}

func (f *fakeSignals) Groups(_ context.Context, projectID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[int64]bool{}
	var ids []int64
	for _, m := range f.members[projectID] {
		if m.GroupID != 0 && !seen[m.GroupID] {
			seen[m.GroupID] = true
			ids = append(ids, m.GroupID)
		}
	}
	return ids, nil
}

func (f *fakeSignals) RawSignals(_ context.Context, _ int64, userIDs []int64, _ time.Time) ([]domain.RawSignals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.RawSignals, len(userIDs))
	for i, id := range userIDs {
		out[i] = f.raw[id]
		out[i].UserID = id
	}
	return out, nil
}

func (f *fakeSignals) ActiveTasks(_ context.Context, _ int64, userIDs []int64) ([]domain.ActiveTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	want := map[int64]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	var out []domain.ActiveTask
	for _, t := range f.tasks {
		if want[t.AssigneeID] {
			out = append(out, t)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeHistory struct {
	mu        sync.Mutex
	snapshots []domain.PressureSnapshot
	err       error
}

func (h *fakeHistory) InsertBatch(_ context.Context, snapshots []domain.PressureSnapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.snapshots = append(h.snapshots, snapshots...)
	return nil
}

func (h *fakeHistory) ListByUser(_ context.Context, projectID, userID int64, limit int) ([]domain.PressureSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.PressureSnapshot
	for i := len(h.snapshots) - 1; i >= 0 && len(out) < limit; i-- {
		s := h.snapshots[i]
		if s.ProjectID == projectID && s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

/* ---------------- fixtures ---------------- */

const (
	testProject int64 = 7
	testGroup   int64 = 2
	userA       int64 = 1
	userB       int64 = 2
	userC       int64 = 3
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLocker(t *testing.T, wait time.Duration) *repository.ProjectLocker {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return repository.NewProjectLocker(client, 5*time.Second, wait)
}

type testEnv struct {
	store     *fakeScoreStore
	signals   *fakeSignals
	publisher *recordingPublisher
	locker    *repository.ProjectLocker
	svc       *ContributionService
}

// newTestEnv seeds a three student group: A carries the project, B does
// nothing, C sits in the middle.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeScoreStore()
	store.addProject(testProject, domain.DefaultWeights())

	signals := newFakeSignals()
	signals.members[testProject] = []domain.Member{
		{UserID: userA, Username: "alice", FullName: "Alice A", GroupID: testGroup, GroupName: "Team A"},
		{UserID: userB, Username: "bob", FullName: "Bob B", GroupID: testGroup, GroupName: "Team A"},
		{UserID: userC, Username: "carol", FullName: "Carol C", GroupID: testGroup, GroupName: "Team A"},
	}
	signals.setRaw(
		domain.RawSignals{UserID: userA, TaskCompletionRaw: 10, PeerReviewRaw: 5, Additions: 100},
		domain.RawSignals{UserID: userB, TaskCompletionRaw: 0, PeerReviewRaw: 1, Additions: 0},
		domain.RawSignals{UserID: userC, TaskCompletionRaw: 5, PeerReviewRaw: 3, Additions: 50},
	)

	publisher := &recordingPublisher{}
	locker := newTestLocker(t, 200*time.Millisecond)
	svc := NewContributionService(store, signals, locker, publisher)
	svc.now = func() time.Time { return fixedNow }

	return &testEnv{store: store, signals: signals, publisher: publisher, locker: locker, svc: svc}
}

func scoreOf(t *testing.T, scores []domain.ContributionScore, userID int64) domain.ContributionScore {
	t.Helper()
	for _, s := range scores {
		if s.UserID == userID {
			return s
		}
	}
	require.FailNow(t, "score not found", "user %d", userID)
	return domain.ContributionScore{}
}

var errUpstream = errors.New("upstream timeout")
