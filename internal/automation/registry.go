package automation

import (
	"sort"
	"sync"
)

// Registry maps step action names to handlers. Steps resolve against
// the configuration's named action lists first, then against the
// registry; registering a handler under a name used by an action list
// is therefore shadowed for that configuration.
//
// All methods are safe for concurrent use, though registration
// normally happens once at startup.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates a registry pre-populated with the builtin
// handlers (perform_actions, restart_app, wait_main_screen).
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]HandlerFunc)}
	registerBuiltins(r)
	return r
}

// Register adds or replaces a handler under the given name.
func (r *Registry) Register(name string, fn HandlerFunc) {
	r.mu.Lock()
	r.handlers[name] = fn
	r.mu.Unlock()
}

// Resolve looks up a handler by name.
func (r *Registry) Resolve(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	fn, ok := r.handlers[name]
	r.mu.RUnlock()
	return fn, ok
}

// Names returns all registered handler names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
