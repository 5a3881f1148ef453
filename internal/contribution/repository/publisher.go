package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
	"github.com/redis/go-redis/v9"
)

const (
	eventChannelPrefix   = "contrib:events:" // Pub/Sub channel per project: contrib:events:{project_id}
	pressureAlertChannel = "pressure:alerts" // Overload alerts consumed by the notification service
)

// EventPublisher pushes assessment events to Redis Pub/Sub.
type EventPublisher struct {
	client *redis.Client
}

// NewEventPublisher creates a new EventPublisher
func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// EventChannel returns the channel events of a project are published on.
func EventChannel(projectID int64) string {
	return eventChannelPrefix + strconv.FormatInt(projectID, 10)
}

// PressureAlertChannel returns the channel overload alerts are published on.
func PressureAlertChannel() string {
	return pressureAlertChannel
}

// Publish sends the event on its project's channel; overload alerts go to the
// shared alert channel.
func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := EventChannel(event.ProjectID)
	if event.Type == domain.EventMemberOverloaded {
		channel = pressureAlertChannel
	}

	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}
