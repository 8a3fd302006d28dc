// Package config loads server configuration from a YAML file, the
// environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Jobs     JobsConfig     `yaml:"jobs"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"KNJIGARNA_ADDR"             env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"KNJIGARNA_READ_TIMEOUT"     env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"KNJIGARNA_WRITE_TIMEOUT"    env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"KNJIGARNA_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"KNJIGARNA_DB" env-default:"knjigarna.sqlite3"`
}

// AuthConfig holds token settings. An empty secret means one is generated
// and kept in the database.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"KNJIGARNA_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl"  env:"KNJIGARNA_TOKEN_TTL"  env-default:"24h"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"KNJIGARNA_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"KNJIGARNA_LOG_FORMAT" env-default:"text"`
	Path   string `yaml:"path"   env:"KNJIGARNA_LOG_PATH"`
}

// JobsConfig holds background job settings. Schedules use standard
// five-field cron syntax or descriptors such as @hourly.
type JobsConfig struct {
	Disabled         bool   `yaml:"disabled"          env:"KNJIGARNA_JOBS_DISABLED"`
	RestockSchedule  string `yaml:"restock_schedule"  env:"KNJIGARNA_RESTOCK_SCHEDULE" env-default:"0 7 * * *"`
	PurgeSchedule    string `yaml:"purge_schedule"    env:"KNJIGARNA_PURGE_SCHEDULE"   env-default:"@hourly"`
	RestockThreshold int    `yaml:"restock_threshold" env:"KNJIGARNA_RESTOCK_THRESHOLD" env-default:"10"`
}

// Load reads configuration. A .env file in the working directory is loaded
// into the environment first. Priority: ENV > YAML > defaults. An empty
// path loads from the environment and defaults only.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks values the struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	if !c.Jobs.Disabled {
		if c.Jobs.RestockThreshold <= 0 {
			errs = append(errs, errors.New("jobs.restock_threshold must be positive"))
		}
		if _, err := cron.ParseStandard(c.Jobs.RestockSchedule); err != nil {
			errs = append(errs, fmt.Errorf("jobs.restock_schedule: %w", err))
		}
		if _, err := cron.ParseStandard(c.Jobs.PurgeSchedule); err != nil {
			errs = append(errs, fmt.Errorf("jobs.purge_schedule: %w", err))
		}
	}

	return errors.Join(errs...)
}
