package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"familyhub/internal/model"
)

// DefaultEventColor is used for remote events whose calendar carries no
// color attribute, and for local events without a known person.
const DefaultEventColor = "#9b87f5"

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
//
// The Home Assistant URL and token are not part of this file; they are
// written through the hub's key-value store at StatePath.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used to decide calendar days
	// (e.g. "America/Chicago").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday starts the week view range.
	// Supported values:
	//   - "sunday" (default)
	//   - "monday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for the background re-sync of the current week. Use "off" to disable.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// StatePath is the key-value file holding the connection settings.
	StatePath string `yaml:"state_path" json:"state_path"`

	// SeedICS optionally points at a local .ics file whose events are
	// loaded as local events at startup.
	SeedICS string `yaml:"seed_ics" json:"seed_ics"`

	// SeedHorizonDays bounds recurrence expansion of the seed calendar,
	// both backwards and forwards from today.
	SeedHorizonDays int `yaml:"seed_horizon_days" json:"seed_horizon_days"`

	// DefaultColor is the color for events without a better source.
	DefaultColor string `yaml:"default_color" json:"default_color"`

	// RequestTimeoutSeconds bounds each request to Home Assistant.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" json:"request_timeout_seconds"`

	// Family is the list of household members.
	Family []model.FamilyMember `yaml:"family" json:"family"`

	// MetricsEnabled exposes Prometheus metrics on /metrics.
	MetricsEnabled bool `yaml:"metrics_enabled" json:"metrics_enabled"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultFamily returns the members a fresh install starts with.
func DefaultFamily() []model.FamilyMember {
	return []model.FamilyMember{
		{ID: "1", Name: "Grayson", Role: "Child", Color: "#9b87f5"},
		{ID: "2", Name: "Mom", Role: "Parent", Color: "#D3E4FD"},
		{ID: "3", Name: "Dad", Role: "Parent", Color: "#FFDEE2"},
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:                "127.0.0.1:8080",
		Timezone:              "Local",
		WeekStart:             "sunday",
		RefreshCron:           "*/15 * * * *",
		LogLevel:              "info",
		StatePath:             "/var/lib/familyhub/state.yaml",
		SeedHorizonDays:       90,
		DefaultColor:          DefaultEventColor,
		RequestTimeoutSeconds: 15,
		Family:                DefaultFamily(),
		BasicAuth:             nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	switch strings.ToLower(c.WeekStart) {
	case "sunday", "monday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		// Unknown value; fall back to sunday to avoid surprising layouts.
		c.WeekStart = "sunday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.StatePath == "" {
		c.StatePath = "/var/lib/familyhub/state.yaml"
	}
	if c.SeedHorizonDays <= 0 {
		c.SeedHorizonDays = 90
	}
	if c.DefaultColor == "" {
		c.DefaultColor = DefaultEventColor
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 15
	}
	if c.Family == nil {
		c.Family = DefaultFamily()
	}
}

// RefreshEnabled reports whether the background re-sync should be scheduled.
func (c *Config) RefreshEnabled() bool {
	return !strings.EqualFold(strings.TrimSpace(c.RefreshCron), "off")
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, ".familyhub-config-*.tmp")
}

// WriteFileAtomic writes data next to path in a temp file, fsyncs it, sets
// 0600 and renames it over path. The parent directory is created with 0700.
func WriteFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
