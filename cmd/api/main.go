package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itss-pm/contribution-engine/config"
	"github.com/itss-pm/contribution-engine/internal/auth"
	authmw "github.com/itss-pm/contribution-engine/internal/auth/middleware"
	"github.com/itss-pm/contribution-engine/internal/bootstrap"
	cronjob "github.com/itss-pm/contribution-engine/internal/contribution/cron"
	contribhttp "github.com/itss-pm/contribution-engine/internal/contribution/http"
	"github.com/itss-pm/contribution-engine/internal/storage/postgres"
)

const serviceName = "contribution-engine"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	sqlDB, err := postgres.NewConnection(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer sqlDB.Close()

	if err := postgres.Migrate(ctx, sqlDB); err != nil {
		log.Fatalf("migrate: %v", err)
	}

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

	var verifier authmw.TokenVerifier
	if cfg.Firebase.Enabled() {
		client, err := auth.InitializeFirebase(ctx, cfg.Firebase)
		if err != nil {
			log.Fatalf("firebase: %v", err)
		}
		verifier = client
	} else {
		log.Printf("[warn] FIREBASE_CREDENTIALS_PATH not set, trusting X-User-Id / X-User-Role headers")
	}

	services := bootstrap.NewServices(cfg.Scoring, sqlDB, pool, rdb)

	if cfg.Scheduler.Enabled {
		scheduler := cronjob.NewScheduler(cfg.Scheduler.SnapshotCron, services.Pressure)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:     serviceName,
		Version:         cfg.App.Version,
		CORSOrigins:     cfg.Server.CORSOrigins,
		DB:              pool,
		Redis:           rdb,
		Verifier:        verifier,
		WritesPerMinute: cfg.RateLimit.WritesPerMinute,
		WriteBurst:      cfg.RateLimit.Burst,
		Contributions:   contribhttp.New(services.Contributions, services.Pressure, services.Reports),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		log.Printf("[info] %s %s listening on :%s", serviceName, cfg.App.Version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[info] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[error] shutdown: %v", err)
	}
}
