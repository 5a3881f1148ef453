package bootstrap

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/itss-pm/contribution-engine/config"
	"github.com/itss-pm/contribution-engine/internal/contribution/repository"
	"github.com/itss-pm/contribution-engine/internal/contribution/scoring"
	"github.com/itss-pm/contribution-engine/internal/contribution/service"
)

// Services holds the wired application services shared by the API and the worker.
type Services struct {
	Contributions *service.ContributionService
	Pressure      *service.PressureService
	Reports       *service.ReportService
}

// NewServices wires repositories, the Redis locker and publisher into services.
func NewServices(cfg config.ScoringConfig, db *sql.DB, pool *pgxpool.Pool, rdb *redis.Client) *Services {
	scores := repository.NewScoreRepository(db)
	signals := repository.NewSignalRepository(pool, cfg.CommitLineCap)
	history := repository.NewPressureHistoryRepository(db)
	locker := repository.NewProjectLocker(rdb, cfg.LockTTL, cfg.LockWait)
	publisher := repository.NewEventPublisher(rdb)

	contributions := service.NewContributionService(scores, signals, locker, publisher)
	return &Services{
		Contributions: contributions,
		Pressure:      service.NewPressureService(scores, signals, history, publisher, scoring.NewPressureModel(cfg.AtRiskRatio, cfg.PressureWeighted)),
		Reports:       service.NewReportService(contributions),
	}
}
