// internal/config/config_test.go

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 3, cfg.SlotCount)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, 100, cfg.RoomCount)
	assert.Equal(t, 0.5, cfg.Rates[types.SpeedLow])
	assert.Equal(t, 1.0, cfg.Rates[types.SpeedMedium])
	assert.Equal(t, 2.0, cfg.Rates[types.SpeedHigh])
	assert.Equal(t, 300.0, cfg.NightlyRate)
	assert.Equal(t, types.SpeedMedium, cfg.DefaultSpeed)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SLOT_COUNT", "5")
	t.Setenv("TICK_INTERVAL_MS", "100")
	t.Setenv("RATE_HIGH", "3.5")
	t.Setenv("DEFAULT_SPEED", "high")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 5, cfg.SlotCount)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 3.5, cfg.Rates[types.SpeedHigh])
	assert.Equal(t, types.SpeedHigh, cfg.DefaultSpeed)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("非法槽数", func(t *testing.T) {
		t.Setenv("SLOT_COUNT", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("非法费率", func(t *testing.T) {
		t.Setenv("RATE_LOW", "-1")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("非法默认风速", func(t *testing.T) {
		t.Setenv("DEFAULT_SPEED", "turbo")
		_, err := Load()
		assert.Error(t, err)
	})
}
