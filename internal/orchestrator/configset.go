package orchestrator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/droidpilot/droidpilot/internal/automation"
)

// ConfigSet is the shared, reloadable set of automation configurations.
//
// Reload swaps the whole set atomically and only on a fully successful
// load, so a malformed file on disk never evicts the running set.
// Workers resolve configurations at run start; a reload therefore takes
// effect on the next run, never mid-run.
type ConfigSet struct {
	dir         string
	defaultName string

	mu      sync.RWMutex
	configs map[string]*automation.Configuration
}

// NewConfigSet creates a set backed by a directory of YAML files.
// Call Reload to perform the initial load.
func NewConfigSet(dir, defaultName string) *ConfigSet {
	return &ConfigSet{
		dir:         dir,
		defaultName: defaultName,
		configs:     make(map[string]*automation.Configuration),
	}
}

// Reload loads the directory and swaps the active set on success.
func (s *ConfigSet) Reload() error {
	configs, err := automation.LoadDir(s.dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.configs = configs
	s.mu.Unlock()
	return nil
}

// Get resolves a configuration by name. An empty name resolves the
// configured default.
func (s *ConfigSet) Get(name string) (*automation.Configuration, error) {
	if name == "" {
		name = s.defaultName
	}
	if name == "" {
		return nil, fmt.Errorf("%w: no name given and no default configured", automation.ErrConfigNotFound)
	}

	s.mu.RLock()
	cfg, ok := s.configs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", automation.ErrConfigNotFound, name)
	}
	return cfg, nil
}

// Names returns the loaded configuration names, sorted.
func (s *ConfigSet) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.configs))
	for name := range s.configs {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}
