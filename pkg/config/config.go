package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const configFilePerm = 0o644

// ErrInvalidConfig is returned when a loaded config fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level daemon configuration.
type Config struct {
	mu sync.Mutex `yaml:"-"`

	// APIBase is prefixed to every backend endpoint path. Empty means the
	// endpoint paths are absolute URLs already.
	APIBase     string `yaml:"api_base"      validate:"omitempty,url"`
	KiwixBase   string `yaml:"kiwix_base"`
	UseMockData bool   `yaml:"use_mock_data"`

	Endpoints EndpointsConfig `yaml:"endpoints"`
	Polling   PollingConfig   `yaml:"polling"`
	Request   RequestConfig   `yaml:"request"`
	Retry     RetryConfig     `yaml:"retry"`
	Cache     CacheConfig     `yaml:"cache"`
	Queue     QueueConfig     `yaml:"queue"`
	Ally      AllyConfig      `yaml:"ally"`
	Features  FeaturesConfig  `yaml:"features"`
	Web       WebConfig       `yaml:"web"`
	State     StateConfig     `yaml:"state"`
	Admin     AdminConfig     `yaml:"admin"`
	Log       LogConfig       `yaml:"log"`
}

// EndpointsConfig holds backend paths relative to APIBase. An empty path
// marks the endpoint as not configured.
type EndpointsConfig struct {
	Health         string `yaml:"health"          json:"health"`
	Metrics        string `yaml:"metrics"         json:"metrics"`
	Sensors        string `yaml:"sensors"         json:"sensors"`
	Backup         string `yaml:"backup"          json:"backup"`
	Keys           string `yaml:"keys"            json:"keys"`
	KeySync        string `yaml:"keysync"         json:"keysync"`
	DM             string `yaml:"dm"              json:"dm"`
	GPS            string `yaml:"gps"             json:"gps"`
	CommunityPosts string `yaml:"community_posts" json:"community_posts"`
	HotspotStatus  string `yaml:"hotspot_status"  json:"hotspot_status"`
	HotspotToggle  string `yaml:"hotspot_toggle"  json:"hotspot_toggle"`
}

// PollingConfig defines refresh intervals per resource.
type PollingConfig struct {
	HealthCheck time.Duration `yaml:"health_check" validate:"gt=0"`
	Metrics     time.Duration `yaml:"metrics"      validate:"gt=0"`
	Sensors     time.Duration `yaml:"sensors"      validate:"gt=0"`
	Community   time.Duration `yaml:"community"    validate:"gt=0"`
}

// RequestConfig defines per-request defaults of the client core.
type RequestConfig struct {
	Timeout   time.Duration `yaml:"timeout"    validate:"gt=0"`
	CacheTime time.Duration `yaml:"cache_time" validate:"gte=0"`
}

// RetryConfig defines the exponential backoff policy.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"   validate:"gte=1"`
	BaseDelay     time.Duration `yaml:"base_delay"     validate:"gt=0"`
	BackoffFactor float64       `yaml:"backoff_factor" validate:"gte=1"`
	MaxDelay      time.Duration `yaml:"max_delay"      validate:"gtefield=BaseDelay"`
}

// CacheConfig bounds the response cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" validate:"gte=1"`
}

// QueueConfig defines the offline message queue retry timer.
type QueueConfig struct {
	RetryInterval time.Duration `yaml:"retry_interval" validate:"gt=0"`
}

// AllyConfig defines the node-communication API.
type AllyConfig struct {
	APIBase string `yaml:"api_base" validate:"omitempty,url"`
	APIKey  string `yaml:"api_key"`
}

// FeaturesConfig holds feature flags.
type FeaturesConfig struct {
	EnableDiagnostics   bool `yaml:"enable_diagnostics"`
	EnableHealthPolling bool `yaml:"enable_health_polling"`
	EnableOfflineMode   bool `yaml:"enable_offline_mode"`
	EnableMockData      bool `yaml:"enable_mock_data"`
}

// WebConfig defines the dashboard server.
type WebConfig struct {
	Addr   string `yaml:"addr"    validate:"required"`
	WebDir string `yaml:"web_dir"`
}

// StateConfig defines the local state database.
type StateConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// AdminConfig defines the PIN-gated admin unlock.
type AdminConfig struct {
	UnlockTimeout time.Duration `yaml:"unlock_timeout" validate:"gt=0"`
	DefaultPIN    string        `yaml:"default_pin"    validate:"required,min=4,numeric"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		APIBase:   "http://127.0.0.1:8093",
		KiwixBase: "http://127.0.0.1:8090",
		Endpoints: EndpointsConfig{
			Health:         "/api/cgi-bin/health.py",
			Metrics:        "/api/cgi-bin/metrics.py",
			Sensors:        "/api/cgi-bin/sensors.py",
			Backup:         "/api/cgi-bin/backup.py",
			Keys:           "/api/cgi-bin/keys.py",
			KeySync:        "/api/cgi-bin/keysync.py",
			DM:             "/api/cgi-bin/dm.py",
			GPS:            "",
			CommunityPosts: "/api/community/posts",
			HotspotStatus:  "/api/hotspot/status",
			HotspotToggle:  "/api/hotspot/toggle",
		},
		Polling: PollingConfig{
			HealthCheck: 12 * time.Second,
			Metrics:     3 * time.Second,
			Sensors:     5 * time.Second,
			Community:   30 * time.Second,
		},
		Request: RequestConfig{
			Timeout:   5 * time.Second,
			CacheTime: 5 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:   3,
			BaseDelay:     time.Second,
			BackoffFactor: 2,
			MaxDelay:      30 * time.Second,
		},
		Cache: CacheConfig{
			MaxEntries: 256,
		},
		Queue: QueueConfig{
			RetryInterval: 15 * time.Second,
		},
		Ally: AllyConfig{
			APIBase: "http://127.0.0.1:8093",
		},
		Features: FeaturesConfig{
			EnableDiagnostics:   true,
			EnableHealthPolling: true,
			EnableOfflineMode:   true,
		},
		Web: WebConfig{
			Addr:   ":8094",
			WebDir: "web",
		},
		State: StateConfig{
			Path: "omega.db",
		},
		Admin: AdminConfig{
			UnlockTimeout: 15 * time.Minute,
			DefaultPIN:    "1234",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file. If the file doesn't exist, defaults are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to a YAML file.
func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, configFilePerm)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// MockMode reports whether façades should serve mock data instead of
// calling the backend.
func (c *Config) MockMode() bool {
	return c.UseMockData || c.Features.EnableMockData
}

// AllyBase returns the Ally API base, falling back to APIBase.
func (c *Config) AllyBase() string {
	if c.Ally.APIBase != "" {
		return c.Ally.APIBase
	}
	return c.APIBase
}

// Lock acquires the config mutex for multi-step mutations.
func (c *Config) Lock() { c.mu.Lock() }

// Unlock releases the config mutex.
func (c *Config) Unlock() { c.mu.Unlock() }
