package config

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests loading, validating and watching the config file.
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	path    string
}

func (s *ConfigTestSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	s.path = filepath.Join(s.tempDir, "omega.yaml")
}

func (s *ConfigTestSuite) write(body string) {
	s.Require().NoError(os.WriteFile(s.path, []byte(body), 0o600))
}

func (s *ConfigTestSuite) TestDefaultsAreValid() {
	cfg := Defaults()
	s.NoError(cfg.Validate())
	s.Equal(3, cfg.Retry.MaxAttempts)
	s.Equal(time.Second, cfg.Retry.BaseDelay)
	s.Equal(30*time.Second, cfg.Retry.MaxDelay)
	s.Equal(5*time.Second, cfg.Request.Timeout)
	s.Equal(5*time.Second, cfg.Request.CacheTime)
}

func (s *ConfigTestSuite) TestLoadMissingFileUsesDefaults() {
	cfg, err := Load(filepath.Join(s.tempDir, "absent.yaml"))
	s.Require().NoError(err)
	s.Equal(Defaults().APIBase, cfg.APIBase)
}

func (s *ConfigTestSuite) TestLoadOverridesDefaults() {
	s.write(`
api_base: http://talon.local:8093
use_mock_data: true
retry:
  max_attempts: 5
  base_delay: 500ms
  backoff_factor: 3
  max_delay: 10s
polling:
  metrics: 1s
`)
	cfg, err := Load(s.path)
	s.Require().NoError(err)

	s.Equal("http://talon.local:8093", cfg.APIBase)
	s.True(cfg.MockMode())
	s.Equal(5, cfg.Retry.MaxAttempts)
	s.Equal(500*time.Millisecond, cfg.Retry.BaseDelay)
	s.InDelta(3.0, cfg.Retry.BackoffFactor, 0.0001)
	s.Equal(time.Second, cfg.Polling.Metrics)
	// untouched sections keep their defaults
	s.Equal(12*time.Second, cfg.Polling.HealthCheck)
}

func (s *ConfigTestSuite) TestLoadRejectsInvalid() {
	s.write(`
retry:
  max_attempts: 0
`)
	_, err := Load(s.path)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrInvalidConfig))
}

func (s *ConfigTestSuite) TestLoadRejectsMaxDelayBelowBase() {
	s.write(`
retry:
  base_delay: 5s
  max_delay: 1s
`)
	_, err := Load(s.path)
	s.ErrorIs(err, ErrInvalidConfig)
}

func (s *ConfigTestSuite) TestLoadRejectsShortPIN() {
	s.write(`
admin:
  default_pin: "12"
`)
	_, err := Load(s.path)
	s.ErrorIs(err, ErrInvalidConfig)
}

func (s *ConfigTestSuite) TestLoadMalformedYAML() {
	s.write("api_base: [unterminated")
	_, err := Load(s.path)
	s.Error(err)
}

func (s *ConfigTestSuite) TestSaveRoundTrip() {
	cfg := Defaults()
	cfg.APIBase = "http://10.0.0.5:8093"
	cfg.Queue.RetryInterval = 42 * time.Second
	s.Require().NoError(cfg.Save(s.path))

	loaded, err := Load(s.path)
	s.Require().NoError(err)
	s.Equal("http://10.0.0.5:8093", loaded.APIBase)
	s.Equal(42*time.Second, loaded.Queue.RetryInterval)
}

func (s *ConfigTestSuite) TestAllyBaseFallsBackToAPIBase() {
	cfg := Defaults()
	cfg.Ally.APIBase = ""
	s.Equal(cfg.APIBase, cfg.AllyBase())
	cfg.Ally.APIBase = "http://ally:9000"
	s.Equal("http://ally:9000", cfg.AllyBase())
}

func (s *ConfigTestSuite) TestEndpointTable() {
	table := Defaults().EndpointTable()

	health := table[EndpointHealth]
	s.Equal("/api/cgi-bin/health.py", health.Path)
	s.Equal(http.MethodGet, health.Method)
	s.False(health.Cacheable)

	trigger := table[EndpointBackupTrigger]
	s.Equal(http.MethodPost, trigger.Method)
	s.Equal(table[EndpointBackup].Path, trigger.Path)

	s.True(table[EndpointKeys].Cacheable)
	s.False(table[EndpointGPS].Configured())
}

func (s *ConfigTestSuite) TestWatcherReloadsOnWrite() {
	s.write("api_base: http://first:1\n")

	changed := make(chan *Config, 1)
	watcher, err := NewWatcher(s.path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	s.Require().NoError(err)
	watcher.Start()
	defer watcher.Stop()

	s.write("api_base: http://second:2\n")

	select {
	case cfg := <-changed:
		s.Equal("http://second:2", cfg.APIBase)
	case <-time.After(5 * time.Second):
		s.Fail("config reload not observed")
	}
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
