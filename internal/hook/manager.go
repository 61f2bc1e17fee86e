package hook

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrHookNotFound is returned when a requested hook does not exist.
var ErrHookNotFound = errors.New("hook not found")

// Manager discovers hooks in a directory.
type Manager struct {
	dir   string
	hooks map[string]*Hook
	mu    sync.RWMutex
}

// NewManager creates a Manager for dir.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:   dir,
		hooks: make(map[string]*Hook),
	}
}

// Discover scans each subdirectory of the hooks directory for a manifest.
// Directories without a readable, valid manifest are skipped. A missing
// hooks directory yields no hooks.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = make(map[string]*Hook)

	info, err := os.Stat(m.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		hookPath := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(hookPath, ManifestFile))
		if err != nil {
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			continue
		}

		m.hooks[manifest.Name] = &Hook{
			Manifest:   manifest,
			Path:       hookPath,
			Executable: filepath.Join(hookPath, manifest.Executable),
		}
	}

	return nil
}

// Get returns a hook by name or ErrHookNotFound.
func (m *Manager) Get(name string) (*Hook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hook, ok := m.hooks[name]
	if !ok {
		return nil, ErrHookNotFound
	}
	return hook, nil
}

// List returns all discovered hooks sorted by name.
func (m *Manager) List() []*Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hooks := make([]*Hook, 0, len(m.hooks))
	for _, hook := range m.hooks {
		hooks = append(hooks, hook)
	}
	sort.Slice(hooks, func(i, j int) bool {
		return hooks[i].Manifest.Name < hooks[j].Manifest.Name
	})
	return hooks
}

// Subscribers returns the hooks subscribed to event, sorted by name.
func (m *Manager) Subscribers(event string) []*Hook {
	var out []*Hook
	for _, hook := range m.List() {
		if hook.Subscribes(event) {
			out = append(out, hook)
		}
	}
	return out
}

// Dir returns the hooks directory.
func (m *Manager) Dir() string {
	return m.dir
}
