package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SCORING_AT_RISK_RATIO", "")
	t.Setenv("SCORING_LOCK_WAIT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 0.8, cfg.Scoring.AtRiskRatio)
	assert.Equal(t, 1000, cfg.Scoring.CommitLineCap)
	assert.Equal(t, 10*time.Second, cfg.Scoring.LockWait)
	assert.False(t, cfg.Scoring.PressureWeighted)
	assert.Equal(t, "0 0 2 * * *", cfg.Scheduler.SnapshotCron)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SCORING_AT_RISK_RATIO", "0.7")
	t.Setenv("SCORING_PRESSURE_WEIGHTED", "true")
	t.Setenv("SCORING_LOCK_TTL", "45s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("COMMIT_LINE_CAP", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.Scoring.AtRiskRatio)
	assert.True(t, cfg.Scoring.PressureWeighted)
	assert.Equal(t, 45*time.Second, cfg.Scoring.LockTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 1000, cfg.Scoring.CommitLineCap, "invalid values fall back to the default")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080"},
			Database:  DatabaseConfig{Host: "localhost"},
			Redis:     RedisConfig{Addr: "localhost:6379"},
			Scoring:   ScoringConfig{AtRiskRatio: 0.8},
			RateLimit: RateLimitConfig{WritesPerMinute: 30, Burst: 10},
		}
	}

	require.NoError(t, valid().Validate())

	c := valid()
	c.Scoring.AtRiskRatio = 1
	assert.Error(t, c.Validate())

	c = valid()
	c.Database.Host = ""
	assert.Error(t, c.Validate())

	c = valid()
	c.Database.Host = ""
	c.Database.DSN = "postgres://localhost/db"
	assert.NoError(t, c.Validate())

	c = valid()
	c.RateLimit.Burst = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.App.Environment = "production"
	assert.EqualError(t, c.Validate(), "FIREBASE_CREDENTIALS_PATH is required when APP_ENV=production")

	c.Firebase.CredentialsPath = "/etc/firebase.json"
	assert.NoError(t, c.Validate())
}
