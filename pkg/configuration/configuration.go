package configuration

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAttributeTimeout is the fetch budget used when the
// configuration does not set one.
const DefaultAttributeTimeout = 3 * time.Second

// Config holds the runtime configuration for protocol handlers.
type Config struct {
	// DriverSettingsManagement enables mirroring driver settings to
	// the peer. When disabled, setting senders report empty data and
	// incoming setting updates are ignored.
	DriverSettingsManagement bool `yaml:"driverSettingsManagement"`

	// AttributeTimeout bounds synchronous remote attribute fetches.
	AttributeTimeout time.Duration `yaml:"attributeTimeout"`

	// TraceLog is the path protocol trace events are appended to.
	// Empty disables tracing.
	TraceLog string `yaml:"traceLog,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		DriverSettingsManagement: true,
		AttributeTimeout:         DefaultAttributeTimeout,
	}
}

// Store manages a configuration file and its in-memory snapshot.
type Store struct {
	mu      sync.RWMutex
	path    string
	current Config
}

// NewStore creates a store for the given file path. The snapshot
// starts at Default until Load is called.
func NewStore(path string) *Store {
	return &Store{path: path, current: Default()}
}

// Load reads the configuration file into the snapshot. A missing file
// leaves the defaults in place and is not an error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.current = Default()
		return nil
	}
	if err != nil {
		return err
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return err
	}
	if config.AttributeTimeout <= 0 {
		config.AttributeTimeout = DefaultAttributeTimeout
	}
	s.current = config
	return nil
}

// Save writes the current snapshot to the configuration file.
func (s *Store) Save() error {
	s.mu.RLock()
	config := s.current
	s.mu.RUnlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Current returns the configuration snapshot.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies fn to the snapshot under the store lock. It does not
// write the file; call Save afterwards to persist.
func (s *Store) Update(fn func(*Config)) {
	s.mu.Lock()
	fn(&s.current)
	s.mu.Unlock()
}

// DriverSettingsManagement reports whether driver settings mirroring
// is enabled.
func (s *Store) DriverSettingsManagement() bool {
	return s.Current().DriverSettingsManagement
}

// AttributeTimeout returns the configured fetch budget.
func (s *Store) AttributeTimeout() time.Duration {
	return s.Current().AttributeTimeout
}
