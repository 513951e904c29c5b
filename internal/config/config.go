// Package config loads and validates application configuration through viper:
// built-in defaults, then an optional config file, then environment variables
// (key "database.url" is read from DATABASE_URL), then command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // reminder.timezone must resolve on hosts without a zoneinfo database

	"github.com/spf13/viper"
)

const (
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultCORSOrigins   = "http://localhost:5173"
	defaultCachePath     = "travel-journal.db"
	defaultReminderHour  = 9
	defaultTimezone      = "Local"
	defaultProbeInterval = 15 * time.Second
	defaultMaxBodyBytes  = 1 << 20
)

// Config holds all configuration values for the server and its commands.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string

	// DatabaseURL is the Postgres connection string of the remote backend. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level.
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// From the environment it is a comma-separated list.
	CORSOrigins []string

	// CachePath is the SQLite file holding the offline cache, the diary and
	// pending reminders.
	CachePath string

	// ReminderHour is the local hour of day at which arrival reminders fire.
	ReminderHour int

	// ReminderLocation is the time zone ReminderHour is interpreted in.
	ReminderLocation *time.Location

	// ProbeInterval is how often backend reachability is checked.
	ProbeInterval time.Duration

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", defaultPort)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("cors.origins", defaultCORSOrigins)
	v.SetDefault("cache.path", defaultCachePath)
	v.SetDefault("reminder.hour", defaultReminderHour)
	v.SetDefault("reminder.timezone", defaultTimezone)
	v.SetDefault("network.probe_interval", defaultProbeInterval)
	v.SetDefault("http.max_body_bytes", defaultMaxBodyBytes)
}

// Load reads configuration from v and returns a Config.
// Returns an error listing any required keys that are not set, or the first
// invalid value.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:          v.GetString("port"),
		DatabaseURL:   strings.TrimSpace(v.GetString("database.url")),
		LogLevel:      v.GetString("log.level"),
		CORSOrigins:   stringList(v, "cors.origins"),
		CachePath:     v.GetString("cache.path"),
		ReminderHour:  v.GetInt("reminder.hour"),
		ProbeInterval: v.GetDuration("network.probe_interval"),
		MaxBodyBytes:  v.GetInt64("http.max_body_bytes"),
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "database.url (DATABASE_URL)")
	}
	if strings.TrimSpace(cfg.CachePath) == "" {
		missing = append(missing, "cache.path (CACHE_PATH)")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required configuration not set: %s", strings.Join(missing, ", "))
	}

	loc, err := location(v.GetString("reminder.timezone"))
	if err != nil {
		return Config{}, err
	}
	cfg.ReminderLocation = loc

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		return fmt.Errorf("reminder.hour must be between 0 and 23, got %d", c.ReminderHour)
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("network.probe_interval must be positive, got %s", c.ProbeInterval)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

func location(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("reminder.timezone: %w", err)
	}
	return loc, nil
}

// stringList accepts either a list (config file) or a comma-separated string
// (environment, flags).
func stringList(v *viper.Viper, key string) []string {
	if s, ok := v.Get(key).(string); ok {
		return splitCSV(s)
	}
	var out []string
	for _, s := range v.GetStringSlice(key) {
		out = append(out, splitCSV(s)...)
	}
	return out
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
