package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_TTL", "")
	t.Setenv("PRIMARY_THRESHOLD", "")
	t.Setenv("DB_DRIVER", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 6*time.Hour, cfg.AlertThrottle)
	assert.Equal(t, 8000, cfg.PrimaryThreshold)
	assert.Equal(t, 5, cfg.PrimaryCallCost)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "Asia/Jakarta", cfg.Timezone)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SESSION_TTL", "90s")
	t.Setenv("PRIMARY_THRESHOLD", "100")
	t.Setenv("DB_DRIVER", "postgres")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.SessionTTL)
	assert.Equal(t, 100, cfg.PrimaryThreshold)
	assert.Equal(t, "postgres", cfg.DBDriver)
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("USAGE_RETENTION_DAYS", "lots")
	assert.Equal(t, 30, getEnvInt("USAGE_RETENTION_DAYS", 30))
}
