package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itss-pm/contribution-engine/config"
	"github.com/itss-pm/contribution-engine/internal/bootstrap"
	cronjob "github.com/itss-pm/contribution-engine/internal/contribution/cron"
	"github.com/itss-pm/contribution-engine/internal/storage/postgres"
)

func main() {
	once := flag.Bool("once", false, "record one pressure snapshot and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	sqlDB, err := postgres.NewConnection(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer sqlDB.Close()

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
		DSN:      postgres.DSN(&cfg.Database),
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		log.Fatalf("pgxpool: %v", err)
	}
	defer pool.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	services := bootstrap.NewServices(cfg.Scoring, sqlDB, pool, rdb)
	scheduler := cronjob.NewScheduler(cfg.Scheduler.SnapshotCron, services.Pressure)

	if *once {
		scheduler.RunOnce()
		return
	}

	if err := scheduler.Start(); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	log.Printf("[info] pressure snapshot worker running, schedule=%q", cfg.Scheduler.SnapshotCron)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[info] stopping worker")
	scheduler.Stop()
}
