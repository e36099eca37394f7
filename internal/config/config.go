package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xenon007/tasktracker/internal/util"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config is the process configuration handed to every component constructor.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Auth     Auth     `yaml:"auth"`
	Log      Log      `yaml:"log"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Database selects the relational backend. For sqlite3 the DSN is a file path.
type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Auth struct {
	SigningKey string        `yaml:"signing_key"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration usable for local development once a
// signing key is supplied.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			AllowedOrigins:  []string{"http://localhost:5173"},
			ShutdownTimeout: 5 * time.Second,
		},
		Database: Database{
			Driver: DriverSQLite,
			DSN:    "data/tasktracker.db",
		},
		Auth: Auth{
			Issuer:     "tasktracker",
			Audience:   "tasktracker-clients",
			TokenTTL:   3 * time.Hour,
			BcryptCost: 10,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path on top of Default and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Server.Addr = util.EnvOrDefault("TASKTRACKER_ADDR", cfg.Server.Addr)
	if origins := util.EnvOrDefault("TASKTRACKER_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.Server.AllowedOrigins = util.SplitList(origins)
	}
	cfg.Database.Driver = util.EnvOrDefault("TASKTRACKER_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = util.EnvOrDefault("TASKTRACKER_DB_DSN", cfg.Database.DSN)
	cfg.Auth.SigningKey = util.EnvOrDefault("TASKTRACKER_JWT_KEY", cfg.Auth.SigningKey)
	cfg.Auth.Issuer = util.EnvOrDefault("TASKTRACKER_JWT_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.Audience = util.EnvOrDefault("TASKTRACKER_JWT_AUDIENCE", cfg.Auth.Audience)
	cfg.Log.Level = util.EnvOrDefault("TASKTRACKER_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = util.EnvOrDefault("TASKTRACKER_LOG_FORMAT", cfg.Log.Format)

	ttl, err := util.EnvDuration("TASKTRACKER_TOKEN_TTL", cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	cfg.Auth.TokenTTL = ttl
	return nil
}

// MaxTokenTTL bounds identity token lifetime.
const MaxTokenTTL = 24 * time.Hour

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if len(c.Auth.SigningKey) < 32 {
		return fmt.Errorf("auth signing key must be at least 32 bytes")
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.TokenTTL > MaxTokenTTL {
		return fmt.Errorf("auth token ttl %s must be positive and at most %s", c.Auth.TokenTTL, MaxTokenTTL)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost %d out of range", c.Auth.BcryptCost)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr must not be empty")
	}
	return nil
}

// ValidateDatabase checks only the database section.
func (c Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database dsn must not be empty")
	}
	return nil
}
