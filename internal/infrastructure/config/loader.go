package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/dexter/assets"
	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/pkg/filesystem"
	"github.com/doeshing/dexter/internal/ports"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "DEXTER_CONFIG"

// FileStore loads and saves YAML configuration at ~/.dexter/config.yaml.
type FileStore struct {
	overridePath string
	mu           sync.Mutex
}

// NewFileStore builds a new store. An empty path selects the default location.
func NewFileStore(path string) *FileStore {
	return &FileStore{overridePath: path}
}

// Path is the resolved config file location.
func (s *FileStore) Path() string {
	if s.overridePath != "" {
		return filesystem.ExpandPath(s.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.DexterDir(), "config.yaml")
}

// Load implements ports.ConfigProvider. A missing file yields the embedded
// defaults without touching disk; Save creates it.
func (s *FileStore) Load(context.Context) (domain.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		return DefaultConfig()
	}

	cfg, err := parse(data)
	if err != nil {
		return domain.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save implements ports.ConfigStore. The file is replaced atomically.
func (s *FileStore) Save(_ context.Context, cfg domain.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = domain.ConfigFormatVersion
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := filesystem.WriteFileAtomic(s.Path(), raw, domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// parse decodes over a seeded config so keys where zero is meaningful keep
// their default only when absent.
func parse(data []byte) (domain.Config, error) {
	cfg := domain.Config{
		Preferences: domain.Preferences{
			RouterMinConfidence: domain.DefaultRouterMinConfidence,
			MaxClarifyRounds:    domain.DefaultMaxClarifyRounds,
		},
		Context: domain.ContextSettings{MaxDepth: domain.DefaultContextMaxDepth},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}
	return hydrateDefaults(cfg), nil
}

// DefaultConfig parses the embedded default configuration.
func DefaultConfig() (domain.Config, error) {
	cfg, err := parse(assets.DefaultConfigYAML)
	if err != nil {
		return domain.Config{}, fmt.Errorf("parse embedded config: %w", err)
	}
	return cfg, nil
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = domain.ConfigFormatVersion
	}
	if cfg.Preferences.RequestTimeoutSeconds <= 0 {
		cfg.Preferences.RequestTimeoutSeconds = int(domain.DefaultRequestTimeout.Seconds())
	}
	if cfg.Preferences.MaxOutputBytes <= 0 {
		cfg.Preferences.MaxOutputBytes = domain.DefaultMaxOutputBytes
	}
	if cfg.Preferences.MaxTokens <= 0 {
		cfg.Preferences.MaxTokens = domain.DefaultMaxTokens
	}
	if cfg.Context.MaxFiles <= 0 {
		cfg.Context.MaxFiles = domain.DefaultContextMaxFiles
	}
	if cfg.Safety.RulesFile == "" {
		cfg.Safety.RulesFile = filepath.Join(filesystem.DexterDir(), "safety.yaml")
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(filesystem.DexterDir(), "history", "history.db")
	}
	for i := range cfg.Providers {
		if cfg.Providers[i].Kind == "" {
			if preset, ok := domain.LookupPreset(cfg.Providers[i].Preset); ok {
				cfg.Providers[i].Kind = preset.Kind
			}
		}
	}
	return cfg
}

var _ ports.ConfigStore = (*FileStore)(nil)
