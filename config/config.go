// Package config loads service configuration.
//
// Precedence: SHIFTS_* environment variables > config file > defaults.
// Nested keys map to env names with "_" (jobs.timezone -> SHIFTS_JOBS_TIMEZONE).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
)

type Config struct {
	Server      ServerConfig `mapstructure:"server"`
	DB          DBConfig     `mapstructure:"db"`
	Log         LogConfig    `mapstructure:"log"`
	Jobs        JobsConfig   `mapstructure:"jobs"`
	Departments []string     `mapstructure:"departments"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// JobsConfig controls the notification scheduler.
type JobsConfig struct {
	Enabled          bool           `mapstructure:"enabled"`
	Timezone         string         `mapstructure:"timezone"`
	CheckInterval    time.Duration  `mapstructure:"check_interval"`
	DailyDigest      ScheduleConfig `mapstructure:"daily_digest"`
	VacationNotice   ScheduleConfig `mapstructure:"vacation_notice"`
	WeeklySummary    ScheduleConfig `mapstructure:"weekly_summary"`
	WeeklyCompliance ScheduleConfig `mapstructure:"weekly_compliance"`
}

// ScheduleConfig is a local time of day, optionally limited to one weekday.
type ScheduleConfig struct {
	Time    string `mapstructure:"time"`    // HH:MM
	Weekday string `mapstructure:"weekday"` // empty means every day
}

// Load reads configuration from path (or ./config.yaml, ./config/config.yaml
// when empty) layered over defaults and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SHIFTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration, ignoring files and environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("db.path", "./data/shifts.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.timezone", "America/Costa_Rica")
	v.SetDefault("jobs.check_interval", "1m")
	v.SetDefault("jobs.daily_digest.time", "06:30")
	v.SetDefault("jobs.vacation_notice.time", "15:00")
	v.SetDefault("jobs.weekly_summary.time", "14:00")
	v.SetDefault("jobs.weekly_summary.weekday", "Friday")
	v.SetDefault("jobs.weekly_compliance.time", "14:30")
	v.SetDefault("jobs.weekly_compliance.weekday", "Friday")

	v.SetDefault("departments", []string{
		"Soporte",
		"Operaciones",
		"Infraestructura",
		"Finanzas",
		roster.TraineeDepartment,
	})
}

// Validate checks the values the service can't start without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.DB.Path == "" {
		return errors.New("config: db.path must not be empty")
	}
	if _, err := c.Jobs.Location(); err != nil {
		return fmt.Errorf("config: jobs.timezone: %w", err)
	}
	if c.Jobs.Enabled && c.Jobs.CheckInterval <= 0 {
		return errors.New("config: jobs.check_interval must be positive")
	}
	for name, s := range c.Jobs.Schedules() {
		if _, _, err := s.Parse(); err != nil {
			return fmt.Errorf("config: jobs.%s: %w", name, err)
		}
	}
	return nil
}

// Location loads the scheduler's time zone.
func (j JobsConfig) Location() (*time.Location, error) {
	if j.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(j.Timezone)
}

// Schedules maps job names to their schedule.
func (j JobsConfig) Schedules() map[string]ScheduleConfig {
	return map[string]ScheduleConfig{
		"daily_digest":      j.DailyDigest,
		"vacation_notice":   j.VacationNotice,
		"weekly_summary":    j.WeeklySummary,
		"weekly_compliance": j.WeeklyCompliance,
	}
}

// Parse returns the time of day and, for weekly schedules, the weekday.
func (s ScheduleConfig) Parse() (shift.Clock, *time.Weekday, error) {
	at, err := shift.ParseClock(s.Time)
	if err != nil {
		return 0, nil, fmt.Errorf("time %q: %w", s.Time, err)
	}
	if s.Weekday == "" {
		return at, nil, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s.Weekday) {
			return at, &d, nil
		}
	}
	return 0, nil, fmt.Errorf("unknown weekday %q", s.Weekday)
}
