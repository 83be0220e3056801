package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/config"
	"github.com/warp/shift-engine/roster"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Jobs.Enabled)
	assert.Equal(t, time.Minute, cfg.Jobs.CheckInterval)
	assert.Equal(t, "Friday", cfg.Jobs.WeeklySummary.Weekday)
	assert.Contains(t, cfg.Departments, roster.TraineeDepartment)
}

func TestDefault_MatchesLoadWithoutFile(t *testing.T) {
	def := config.Default()
	require.NoError(t, def.Validate())

	loaded, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, loaded.Jobs, def.Jobs)
	assert.Equal(t, loaded.Departments, def.Departments)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9090
db:
  path: /tmp/shifts.db
jobs:
  timezone: UTC
  daily_digest:
    time: "07:15"
departments:
  - Soporte
  - Finanzas
`)
	t.Setenv("SHIFTS_SERVER_PORT", "9191")
	t.Setenv("SHIFTS_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port, "env wins over file")
	assert.Equal(t, "/tmp/shifts.db", cfg.DB.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "07:15", cfg.Jobs.DailyDigest.Time)
	assert.Equal(t, "15:00", cfg.Jobs.VacationNotice.Time, "defaults fill the gaps")
	assert.Equal(t, []string{"Soporte", "Finanzas"}, cfg.Departments)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Server: config.ServerConfig{Port: 8080},
			DB:     config.DBConfig{Path: "x.db"},
			Jobs: config.JobsConfig{
				Enabled:          true,
				Timezone:         "UTC",
				CheckInterval:    time.Minute,
				DailyDigest:      config.ScheduleConfig{Time: "06:30"},
				VacationNotice:   config.ScheduleConfig{Time: "15:00"},
				WeeklySummary:    config.ScheduleConfig{Time: "14:00", Weekday: "friday"},
				WeeklyCompliance: config.ScheduleConfig{Time: "14:30", Weekday: "Friday"},
			},
		}
	}
	base := valid()
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"port", func(c *config.Config) { c.Server.Port = 0 }},
		{"db path", func(c *config.Config) { c.DB.Path = "" }},
		{"timezone", func(c *config.Config) { c.Jobs.Timezone = "Mars/Olympus" }},
		{"interval", func(c *config.Config) { c.Jobs.CheckInterval = 0 }},
		{"time", func(c *config.Config) { c.Jobs.DailyDigest.Time = "25:00" }},
		{"weekday", func(c *config.Config) { c.Jobs.WeeklySummary.Weekday = "Funday" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestScheduleConfig_Parse(t *testing.T) {
	at, day, err := config.ScheduleConfig{Time: "14:30", Weekday: "FRIDAY"}.Parse()
	require.NoError(t, err)
	assert.Equal(t, "14:30", at.String())
	require.NotNil(t, day)
	assert.Equal(t, time.Friday, *day)

	_, day, err = config.ScheduleConfig{Time: "06:00"}.Parse()
	require.NoError(t, err)
	assert.Nil(t, day)
}
