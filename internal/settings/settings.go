package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Well-known setting keys.
const (
	KeyAsanaToken             = "ASANA_TOKEN"
	KeySheetID                = "SHEET_ID"
	KeyDataSheetID            = "DATA_SHEET_ID"
	KeyProjectColor           = "PROJECT_COLOR"
	KeyProjectName            = "PROJECT_NAME"
	KeyProjectInitialized     = "PROJECT_INITIALIZED"
	KeyIsMasterTemplate       = "IS_MASTER_TEMPLATE"
	KeyMasterTemplateActualID = "MASTER_TEMPLATE_ACTUAL_ID"
)

// Store is a small flat key-value settings store persisted to a YAML file.
// Environment variables of the same name take precedence on read, so a
// deployment can pin values without touching the file. A missing file reads
// as an empty store.
type Store struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

func NewStore(path string) (*Store, error) {
	s := &Store{
		path:   path,
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("No settings file found, starting empty")
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}

	log.Debug().Str("path", path).Int("keys", len(s.values)).Msg("Loaded settings")
	return s, nil
}

// Get returns the value for key, with the environment overriding the file.
// Missing keys return "".
func (s *Store) Get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// GetWithDefault returns the value for key or defaultValue when unset.
func (s *Store) GetWithDefault(key, defaultValue string) string {
	if v := s.Get(key); v != "" {
		return v
	}
	return defaultValue
}

// Set stores key=value and persists the whole file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.save()
}

// Delete removes key and persists the whole file.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return s.save()
}

// Keys returns the stored keys in sorted order. Environment-only overrides
// are not listed.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) save() error {
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	log.Debug().Str("path", s.path).Msg("Saved settings")
	return nil
}
