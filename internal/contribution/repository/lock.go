package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix       = "contrib:lock:" // Per-project mutex: contrib:lock:{project_id}
	defaultLockTTL      = 30 * time.Second
	defaultLockWait     = 10 * time.Second
	defaultLockInterval = 50 * time.Millisecond
)

// releaseScript deletes the lock only while it still holds the caller's token,
// so an expired holder never unlocks a newer one.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// ProjectLocker serializes recalculation and finalization of the same project
// across every API instance.
type ProjectLocker struct {
	client   *redis.Client
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
}

// NewProjectLocker creates a ProjectLocker. Zero durations use the defaults.
func NewProjectLocker(client *redis.Client, ttl, wait time.Duration) *ProjectLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &ProjectLocker{client: client, ttl: ttl, wait: wait, interval: defaultLockInterval}
}

// Lock blocks until the project's lock is held or the wait elapses, returning
// domain.ErrProjectBusy in the latter case. The returned func releases it.
func (l *ProjectLocker) Lock(ctx context.Context, projectID int64) (func(), error) {
	key := lockKeyPrefix + strconv.FormatInt(projectID, 10)
	token := uuid.New().String()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire project lock: %w", err)
		}
		if ok {
			return func() {
				// Released with a fresh context so a cancelled request still unlocks.
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
					log.Printf("Warning: failed to release %s, it expires in %s: %v", key, l.ttl, err)
				}
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, domain.ErrProjectBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.interval):
		}
	}
}
