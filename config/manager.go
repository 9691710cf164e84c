package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// AppDirName is the directory under the user config dir holding config.json.
const AppDirName = "CortexAdvisor"

// Manager owns the JSON config file. Updates are validated before they are
// written, and Watch picks up edits made to the file by hand.
type Manager struct {
	path     string
	debounce time.Duration
	initial  *Config

	mu       sync.RWMutex
	cfg      Config
	logger   zerolog.Logger
	onChange func(Config)
	watching bool
}

type ManagerOption func(*Manager)

// WithConfigDir keeps config.json in dir.
func WithConfigDir(dir string) ManagerOption {
	return func(m *Manager) {
		if dir != "" {
			m.path = filepath.Join(dir, "config.json")
		}
	}
}

func WithConfigPath(path string) ManagerOption {
	return func(m *Manager) {
		if path != "" {
			m.path = path
		}
	}
}

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.debounce = d
		}
	}
}

// WithInitialConfig is written when no config file exists yet.
func WithInitialConfig(cfg *Config) ManagerOption {
	return func(m *Manager) {
		m.initial = cfg
	}
}

// NewManager loads the config file, creating it with defaults on first run.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		debounce: 300 * time.Millisecond,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.path == "" {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		m.path = path
	}

	cfg, err := m.loadOrCreate()
	if err != nil {
		return nil, err
	}
	m.cfg = cfg
	m.initial = nil
	return m, nil
}

// DefaultPath is where the config file lives unless a path is given.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, AppDirName, "config.json"), nil
}

// SetLogger replaces the logger used by the watcher. Call it before Watch.
func (m *Manager) SetLogger(logger zerolog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger.With().Str("component", "config").Logger()
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

// UpdateFromJSON applies a JSON patch: keys absent from jsonStr keep their
// current values.
func (m *Manager) UpdateFromJSON(jsonStr string) error {
	cfg := m.Get()
	cfg.KnownSymbols = append([]string(nil), cfg.KnownSymbols...)
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return fmt.Errorf("parse config json: %w", err)
	}
	return m.Update(cfg)
}

// Update validates cfg, persists it and notifies the watcher callback.
func (m *Manager) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if reflect.DeepEqual(m.Get(), cfg) {
		return nil
	}
	if err := writeConfig(m.path, cfg); err != nil {
		return err
	}
	m.set(cfg)
	return nil
}

// Watch calls onChange with every new valid config until ctx is done. An
// edit that fails to parse or validate is logged and the previous config
// stays in effect. Calling Watch again only replaces the callback.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	m.mu.Lock()
	m.onChange = onChange
	started := m.watching
	m.watching = true
	m.mu.Unlock()
	if started {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.stopWatching()
		return fmt.Errorf("create config watcher: %w", err)
	}
	// Editors and writeConfig replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		_ = watcher.Close()
		m.stopWatching()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go m.watch(ctx, watcher)
	return nil
}

func (m *Manager) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer m.stopWatching()
	defer watcher.Close()

	target := filepath.Clean(m.path)
	settle := time.NewTimer(m.debounce)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			settle.Reset(m.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.log().Warn().Err(err).Msg("config watcher error")
		case <-settle.C:
			m.reload()
		}
	}
}

func (m *Manager) reload() {
	cfg, err := readConfig(m.path)
	if err != nil {
		m.log().Error().Err(err).Str("path", m.path).Msg("config reload failed, keeping previous")
		return
	}
	if reflect.DeepEqual(m.Get(), cfg) {
		return
	}
	m.log().Info().Str("path", m.path).Msg("config reloaded")
	m.set(cfg)
}

func (m *Manager) set(cfg Config) {
	m.mu.Lock()
	m.cfg = cfg
	onChange := m.onChange
	m.mu.Unlock()

	if onChange != nil {
		onChange(cfg)
	}
}

func (m *Manager) stopWatching() {
	m.mu.Lock()
	m.watching = false
	m.mu.Unlock()
}

func (m *Manager) log() *zerolog.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	logger := m.logger
	return &logger
}

func (m *Manager) loadOrCreate() (Config, error) {
	cfg, err := readConfig(m.path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if m.initial != nil {
		cfg = *m.initial
	} else {
		cfg = *DefaultConfigWithRoot(filepath.Dir(m.path))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if err := writeConfig(m.path, cfg); err != nil {
		return Config{}, fmt.Errorf("write initial config: %w", err)
	}
	return cfg, nil
}

// readConfig loads path over the defaults and validates the result.
func readConfig(path string) (Config, error) {
	var cfg Config
	if err := loadConfigFromFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// writeConfig replaces path atomically.
func writeConfig(path string, cfg Config) (err error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush config: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
