package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPublisher_Publish(t *testing.T) {
	_, client := setupRedis(t)
	pub := NewEventPublisher(client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	t.Run("project events go to the project channel", func(t *testing.T) {
		sub := client.Subscribe(ctx, EventChannel(7))
		defer sub.Close()
		_, err := sub.Receive(ctx)
		require.NoError(t, err)

		err = pub.Publish(ctx, domain.Event{
			Type:      domain.EventScoreAdjusted,
			ProjectID: 7,
			ScoreID:   "s-1",
			Actor:     "instructor-1",
			At:        time.Now().UTC(),
		})
		require.NoError(t, err)

		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		assert.Equal(t, "contrib:events:7", msg.Channel)

		var got domain.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, domain.EventScoreAdjusted, got.Type)
		assert.Equal(t, "s-1", got.ScoreID)
		assert.Equal(t, "instructor-1", got.Actor)
	})

	t.Run("overload alerts go to the alert channel", func(t *testing.T) {
		sub := client.Subscribe(ctx, PressureAlertChannel())
		defer sub.Close()
		_, err := sub.Receive(ctx)
		require.NoError(t, err)

		err = pub.Publish(ctx, domain.Event{Type: domain.EventMemberOverloaded, ProjectID: 7, UserID: 3})
		require.NoError(t, err)

		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		assert.Equal(t, "pressure:alerts", msg.Channel)
		assert.Contains(t, msg.Payload, `"user_id":3`)
	})
}
