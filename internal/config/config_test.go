package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 18, cfg.Reminder.DefaultHour)
	assert.Equal(t, 0, cfg.Reminder.DefaultMinute)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiration())
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	assert.Empty(t, cfg.AWS.SQSTaskQueueURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("REMINDER_DEFAULT_HOUR", "7")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 7, cfg.Reminder.DefaultHour)
	assert.Contains(t, cfg.DSN(), "host=db.internal")
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load("")
	assert.Error(t, err)
}

// chdir switches the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
