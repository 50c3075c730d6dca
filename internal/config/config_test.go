package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/central-university-dev/go-reminders/internal/config"
)

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	// Arrange
	t.Setenv("STORAGE_TYPE", "MEMORY")
	t.Setenv("GRACE_WINDOW", "2m")
	t.Setenv("WEEKLY_OFFSET_DAYS", "14")
	t.Setenv("SNAPSHOT_PATH", "/tmp/reminders.json")
	t.Setenv("SNAPSHOT_INTERVAL", "10s")

	// Act
	cfg := config.LoadConfig()

	// Assert
	assert.Equal(t, config.MemoryStorage, cfg.StorageType)
	assert.Equal(t, "/tmp/reminders.json", cfg.SnapshotPath)
	assert.Equal(t, 10*time.Second, cfg.SnapshotInterval)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.SnoozeOffset)

	settings := cfg.SchedulerSettings()
	assert.Equal(t, 2*time.Minute, settings.GraceWindow)
	assert.Equal(t, 14, settings.WeeklyOffsetDays)
	assert.Equal(t, 1, settings.DailyOffsetDays)
	assert.Equal(t, 720*time.Hour, settings.RetentionWindow)
}
