package cronjob

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSnapshotSpec runs the pressure snapshot nightly at 02:00.
const DefaultSnapshotSpec = "0 0 2 * * *"

// Snapshotter records the pressure of every draft project.
type Snapshotter interface {
	SnapshotAll(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	spec    string
	job     Snapshotter
	timeout time.Duration
}

// NewScheduler creates a scheduler using a six-field (with seconds) cron spec.
func NewScheduler(spec string, job Snapshotter) *Scheduler {
	if spec == "" {
		spec = DefaultSnapshotSpec
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		spec:    spec,
		job:     job,
		timeout: 10 * time.Minute,
	}
}

// Start registers the snapshot job and starts the cron loop in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	log.Printf("Cron scheduler started (pressure snapshot at %q)", s.spec)
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs a single snapshot pass.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.job.SnapshotAll(ctx)
	if err != nil {
		log.Printf("Pressure snapshot finished with errors after %s (%d recorded): %v", time.Since(start), n, err)
		return
	}
	log.Printf("Pressure snapshot completed: %d recorded in %s", n, time.Since(start))
}
