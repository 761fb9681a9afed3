package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "RESERVATION_HOLD", "CART_COOKIE_SPLIT", "REDIS_ADDR", "OTEL_ENABLED"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "pgx", cfg.DbDriver)
	assert.Equal(t, 15*time.Minute, cfg.ReservationHold)
	assert.Equal(t, "|", cfg.CartCookieSplit)
	assert.Empty(t, cfg.RedisAddr)
	assert.False(t, cfg.OtelEnabled)
	assert.Equal(t, cfg.PgDsn, cfg.DSN())
	assert.Equal(t, 5*time.Second, cfg.OutboxInterval())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("RESERVATION_HOLD", "90s")
	t.Setenv("SWEEP_BATCH_SIZE", "7")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := Load()
	assert.Equal(t, "/tmp/x.db", cfg.DSN())
	assert.Equal(t, 90*time.Second, cfg.ReservationHold)
	assert.Equal(t, 7, cfg.SweepBatchSize)
	assert.True(t, cfg.OtelEnabled)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RESERVATION_HOLD", "soon")
	t.Setenv("SWEEP_BATCH_SIZE", "many")
	t.Setenv("OTEL_ENABLED", "perhaps")

	cfg := Load()
	assert.Equal(t, 15*time.Minute, cfg.ReservationHold)
	assert.Equal(t, 200, cfg.SweepBatchSize)
	assert.False(t, cfg.OtelEnabled)
}
