package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Request  RequestConfig  `yaml:"request"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Location LocationConfig `yaml:"location"`
	Geofence GeofenceConfig `yaml:"geofence"`
	Playback PlaybackConfig `yaml:"playback"`
	Sentry   SentryConfig   `yaml:"sentry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server LogSettings `yaml:"server"`
	Events LogSettings `yaml:"events"`
	Trace  bool        `yaml:"trace"` // per-region evaluation detail at DEBUG
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// RequestConfig holds HTTP request settings for the catalog client.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// CatalogConfig selects where regions come from.
type CatalogConfig struct {
	Source   string   `yaml:"source"`    // "http", "file"
	URL      string   `yaml:"url"`       // content store base URL
	PageSize int      `yaml:"page_size"` // items per page
	Path     string   `yaml:"path"`      // YAML or GeoJSON file for source "file"
	Refresh  Duration `yaml:"refresh"`   // re-fetch / file poll interval, 0 disables
}

// LocationConfig holds settings for the position source and filter.
type LocationConfig struct {
	Provider     string         `yaml:"provider"` // "push", "mock"
	HighAccuracy bool           `yaml:"high_accuracy"`
	AccuracyMax  Distance       `yaml:"accuracy_max"`
	MaximumAge   Duration       `yaml:"maximum_age"`
	Timeout      Duration       `yaml:"timeout"`
	Mock         MockWalkConfig `yaml:"mock"`
}

// MockWalkConfig holds settings for the simulated walker.
type MockWalkConfig struct {
	Waypoints []Waypoint `yaml:"waypoints"`
	Speed     float64    `yaml:"speed_mps"`
	Interval  Duration   `yaml:"interval"`
	Jitter    Distance   `yaml:"jitter"`
	Accuracy  Distance   `yaml:"accuracy"`
	BadFixPct float64    `yaml:"bad_fix_pct"` // share of samples reported with poor accuracy
	Loop      bool       `yaml:"loop"`
}

// Waypoint is a lat/lon pair in the mock walk route.
type Waypoint struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// GeofenceConfig holds the transition state machine settings.
type GeofenceConfig struct {
	RadiusDefault Distance       `yaml:"radius_default"`
	Cooldown      Duration       `yaml:"cooldown"`
	Approach      ApproachConfig `yaml:"approach"`
	HistorySize   int            `yaml:"history_size"` // events kept for the API
}

// ApproachConfig holds settings for the optional "approaching" events.
type ApproachConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Distance   Distance `yaml:"distance"`
	Hysteresis Distance `yaml:"hysteresis"`
}

// PlaybackConfig holds settings for narration cue dispatch.
type PlaybackConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Language string `yaml:"language"`
	QueueMax int    `yaml:"queue_max"`
}

// SentryConfig holds error reporting settings.
type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/tourguide.db",
		},
		Server: ServerConfig{
			Address: "localhost:1920",
		},
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(30 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(60 * time.Second),
			},
		},
		Catalog: CatalogConfig{
			Source:   "http",
			URL:      "http://localhost:1337",
			PageSize: 100,
			Path:     "./data/regions.yaml",
			Refresh:  Duration(10 * time.Minute),
		},
		Location: LocationConfig{
			Provider:     "push",
			HighAccuracy: true,
			AccuracyMax:  Distance(2000),
			MaximumAge:   Duration(3 * time.Second),
			Timeout:      Duration(10 * time.Second),
			Mock: MockWalkConfig{
				Waypoints: []Waypoint{
					{Lat: 47.4979, Lon: 19.0402},
					{Lat: 47.5020, Lon: 19.0340},
					{Lat: 47.5076, Lon: 19.0359},
				},
				Speed:     1.4,
				Interval:  Duration(1 * time.Second),
				Jitter:    Distance(8),
				Accuracy:  Distance(12),
				BadFixPct: 0.05,
				Loop:      true,
			},
		},
		Geofence: GeofenceConfig{
			RadiusDefault: Distance(150),
			Cooldown:      Duration(15 * time.Second),
			Approach: ApproachConfig{
				Enabled:    true,
				Distance:   Distance(300),
				Hysteresis: Distance(50),
			},
			HistorySize: 100,
		},
		Playback: PlaybackConfig{
			Enabled:  true,
			Language: "hu-HU",
			QueueMax: 5,
		},
		Sentry: SentryConfig{
			Environment: "development",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// Env fallbacks are applied in memory only.
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if url := os.Getenv("TOURGUIDE_CATALOG_URL"); url != "" {
		cfg.Catalog.URL = url
	}
	if cfg.Sentry.DSN == "" {
		if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
			cfg.Sentry.DSN = dsn
		}
	}
}

// Validate checks value ranges that would otherwise silently break the geofence.
func (c *Config) Validate() error {
	var errs []error
	if !isValidLocale(c.Playback.Language) {
		errs = append(errs, fmt.Errorf("invalid playback language '%s': must be 'xx-YY' (e.g. 'hu-HU', 'en-US')", c.Playback.Language))
	}
	if c.Geofence.RadiusDefault <= 0 {
		errs = append(errs, fmt.Errorf("geofence.radius_default must be positive, got %v", float64(c.Geofence.RadiusDefault)))
	}
	if c.Geofence.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("geofence.cooldown must not be negative"))
	}
	if c.Geofence.Approach.Distance < 0 || c.Geofence.Approach.Hysteresis < 0 {
		errs = append(errs, fmt.Errorf("geofence.approach distances must not be negative"))
	}
	if c.Location.AccuracyMax < 0 {
		errs = append(errs, fmt.Errorf("location.accuracy_max must not be negative"))
	}
	switch c.Catalog.Source {
	case "http", "file":
	default:
		errs = append(errs, fmt.Errorf("unknown catalog.source '%s'", c.Catalog.Source))
	}
	switch c.Location.Provider {
	case "push", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown location.provider '%s'", c.Location.Provider))
	}
	return errors.Join(errs...)
}

func isValidLocale(s string) bool {
	matched, _ := regexp.MatchString(`^[a-z]{2}-[A-Z]{2}$`, s)
	return matched
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Tour Guide Configuration
# ------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles), ft (feet)

`)
	data = append(header, data...)

	// Inject comments for enum fields.
	reSource := regexp.MustCompile(`(?m)^(\s+)source:`)
	data = reSource.ReplaceAll(data, []byte("${1}# Options: http, file\n${1}source:"))

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: push (HTTP/websocket), mock (simulated walk)\n${1}provider:"))

	reAccuracy := regexp.MustCompile(`(?m)^(\s+)accuracy_max:`)
	data = reAccuracy.ReplaceAll(data, []byte("${1}# Samples reporting worse accuracy are dropped, 0 disables\n${1}accuracy_max:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
