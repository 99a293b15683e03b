package host

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// SettingsFile is the name of the harness settings file inside the user data
// directory.
const SettingsFile = "UnitTesting.json"

// Settings is a persisted key/value store.
type Settings interface {
	// Get returns the value stored under key, or def when the key is unset.
	Get(key string, def interface{}) interface{}
	// Set stores value under key in memory.
	Set(key string, value interface{})
	// Save persists the current values.
	Save() error
}

// FileSettings stores settings as a JSON object on disk.
type FileSettings struct {
	path   string
	mu     sync.RWMutex
	values map[string]interface{}
}

// SettingsPath returns the settings file path inside userDataDir.
func SettingsPath(userDataDir string) string {
	return filepath.Join(userDataDir, SettingsFile)
}

// LoadSettings loads settings from path.
// Returns empty settings if the file doesn't exist or can't be parsed.
func LoadSettings(path string) *FileSettings {
	s := &FileSettings{path: path, values: map[string]interface{}{}}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}

	var values map[string]interface{}
	if err := json.Unmarshal(data, &values); err != nil || values == nil {
		return s
	}
	s.values = values
	return s
}

// Path returns the backing file path.
func (s *FileSettings) Path() string {
	return s.path
}

func (s *FileSettings) Get(key string, def interface{}) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

func (s *FileSettings) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Keys returns the stored keys in sorted order.
func (s *FileSettings) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save writes the settings atomically, creating the parent directory if
// needed.
func (s *FileSettings) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.values, "", "    ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// GetString returns the string stored under key. Missing keys and values of
// other types yield def.
func GetString(s Settings, key, def string) string {
	if v, ok := s.Get(key, def).(string); ok {
		return v
	}
	return def
}
