// Package daemon manages the learnquest server lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/learnquest/learnquest/internal/infra/keyring"
)

// Environment overrides.
const (
	EnvHome        = "LEARNQUEST_HOME"
	EnvPostgresDSN = "LEARNQUEST_POSTGRES_DSN"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Coach backends.
const (
	CoachLocal  = "local"
	CoachScript = "script"
	CoachOllama = "ollama"
)

// Config holds all daemon configuration.
type Config struct {
	User      UserConfig      `toml:"user"`
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Coach     CoachConfig     `toml:"coach"`
	Plan      PlanConfig      `toml:"plan"`
	App       AppConfig       `toml:"app"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// UserConfig names the learner used when a request carries no identity.
type UserConfig struct {
	DefaultID   string `toml:"default_id"`
	DefaultName string `toml:"default_name"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	CORSOrigins    []string `toml:"cors_origins"`
	RequestTimeout string   `toml:"request_timeout"`
}

// StorageConfig selects the database.
type StorageConfig struct {
	Driver      string `toml:"driver"`
	Dir         string `toml:"dir"`
	PostgresDSN string `toml:"postgres_dsn"`
	UseKeyring  bool   `toml:"use_keyring"`
}

// CoachConfig selects and bounds the study coach.
type CoachConfig struct {
	Backend           string `toml:"backend"`
	Interpreter       string `toml:"interpreter"`
	Script            string `toml:"script"`
	AnalyzeTimeout    string `toml:"analyze_timeout"`
	SuggestionTimeout string `toml:"suggestion_timeout"`
	OllamaEndpoint    string `toml:"ollama_endpoint"`
	OllamaModel       string `toml:"ollama_model"`
	OllamaRetries     int    `toml:"ollama_retries"`
}

// PlanConfig controls the learning plan.
type PlanConfig struct {
	SeedDefault   bool    `toml:"seed_default"`
	WeakThreshold float64 `toml:"weak_threshold"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Timezone string `toml:"timezone"` // IANA name; "" or "Local" uses the host zone
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxFiles   int    `toml:"max_files"`
	MaxAgeDays int    `toml:"max_age_days"`
	Stderr     bool   `toml:"stderr"`
}

// TelemetryConfig controls the metrics endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := learnquestHome()
	return Config{
		User: UserConfig{
			DefaultID:   "user_default",
			DefaultName: "learner",
		},
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           3000,
			CORSOrigins:    []string{"*"},
			RequestTimeout: "60s",
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Dir:    homeDir,
		},
		Coach: CoachConfig{
			Backend:           CoachLocal,
			Interpreter:       "python3",
			Script:            filepath.Join(homeDir, "coach", "coach.py"),
			AnalyzeTimeout:    "30s",
			SuggestionTimeout: "20s",
			OllamaEndpoint:    "http://localhost:11434",
			OllamaModel:       "llama3.2",
		},
		Plan: PlanConfig{
			SeedDefault:   true,
			WeakThreshold: 0.3,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       filepath.Join(homeDir, "logs", "learnquest.log"),
			MaxSizeMB:  10,
			MaxFiles:   3,
			MaxAgeDays: 28,
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from ~/.learnquest/config.toml, falling back to
// defaults.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom reads config from path. A missing file yields defaults.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.learnquest/config.toml.
func SaveConfig(cfg Config) error {
	return SaveConfigTo(ConfigPath(), cfg)
}

// SaveConfigTo writes the config to path.
func SaveConfigTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// Validate rejects settings the daemon cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.User.DefaultID) == "" {
		errs = append(errs, errors.New("user.default_id is required"))
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port %d out of range", c.API.Port))
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q must be %q or %q", c.Storage.Driver, DriverSQLite, DriverPostgres))
	}
	switch c.Coach.Backend {
	case CoachLocal, CoachScript, CoachOllama:
	default:
		errs = append(errs, fmt.Errorf("coach.backend %q must be one of local, script, ollama", c.Coach.Backend))
	}
	if c.Plan.WeakThreshold < 0 || c.Plan.WeakThreshold > 1 {
		errs = append(errs, fmt.Errorf("plan.weak_threshold %v must be within [0, 1]", c.Plan.WeakThreshold))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location returns the time zone that defines a calendar day.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.App.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("app.timezone: %w", err)
	}
	return loc, nil
}

// ResolveDSN picks the PostgreSQL connection string: environment first, then
// the config file, then the OS keyring when enabled.
func (c Config) ResolveDSN() (string, error) {
	if dsn := os.Getenv(EnvPostgresDSN); dsn != "" {
		return dsn, nil
	}
	if c.Storage.PostgresDSN != "" {
		return c.Storage.PostgresDSN, nil
	}
	if c.Storage.UseKeyring {
		dsn, err := keyring.GetDSN()
		if err != nil {
			return "", fmt.Errorf("read DSN from keyring: %w", err)
		}
		return dsn, nil
	}
	return "", fmt.Errorf("no PostgreSQL DSN: set %s, storage.postgres_dsn or storage.use_keyring", EnvPostgresDSN)
}

// ConfigPath is the location of config.toml.
func ConfigPath() string {
	return filepath.Join(learnquestHome(), "config.toml")
}

// learnquestHome returns the learnquest data directory.
func learnquestHome() string {
	if env := os.Getenv(EnvHome); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".learnquest")
}

// Home is exported for use by other packages.
func Home() string {
	return learnquestHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
