package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/itss-pm/contribution-engine/internal/api/http"
	"github.com/itss-pm/contribution-engine/internal/api/http/middleware"
	"github.com/itss-pm/contribution-engine/internal/auth"
	authmw "github.com/itss-pm/contribution-engine/internal/auth/middleware"
	contribhttp "github.com/itss-pm/contribution-engine/internal/contribution/http"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	CORSOrigins []string
	DB          *pgxpool.Pool
	Redis       *redis.Client

	// Verifier checks bearer tokens. When nil, the caller identity is taken
	// from X-User-Id / X-User-Role headers (development only).
	Verifier authmw.TokenVerifier

	WritesPerMinute int
	WriteBurst      int

	Contributions *contribhttp.Handler
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(corsConfig(dep.CORSOrigins)))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	if dep.Verifier != nil {
		api.Use(authmw.FirebaseAuthMiddleware(dep.Verifier))
	} else {
		api.Use(auth.OptionalUser())
	}

	limiter := middleware.NewIPRateLimiter(dep.WritesPerMinute, dep.WriteBurst)
	if dep.Contributions != nil {
		dep.Contributions.Register(api, auth.RequireAssessor(), limiter.Middleware())
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "X-User-Id", "X-User-Role"},
		ExposeHeaders: []string{"X-Request-Id", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
