package extractor

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/webhoard/webhoard/internal/config"
)

// Registry maps method names to extractor implementations,
// preserving registration order.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Extractor)}
}

// Register adds an extractor. Registering a duplicate name is an error.
func (r *Registry) Register(e Extractor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("extractor %q already registered", name)
	}
	r.byName[name] = e
	r.order = append(r.order, name)
	return nil
}

// Get resolves an extractor by name.
func (r *Registry) Get(name string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	return e, ok
}

// Names returns all registered method names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Default builds the registry of built-in methods from the archiver
// config. Subprocess methods are registered only when a binary is
// configured.
func Default(cfg config.ArchiverConfig) *Registry {
	client := &http.Client{Timeout: cfg.MethodTimeout}

	registry := NewRegistry()
	builtins := []Extractor{
		NewTitle(client, cfg.UserAgent),
		NewFavicon(client, cfg.UserAgent),
		NewHeaders(client, cfg.UserAgent),
		NewDOM(client, cfg.UserAgent),
	}
	if cfg.WgetBinary != "" {
		builtins = append(builtins, NewWget(cfg.WgetBinary, cfg.UserAgent))
	}
	if cfg.MediaBinary != "" {
		builtins = append(builtins, NewMedia(cfg.MediaBinary))
	}

	for _, e := range builtins {
		// Names are unique by construction.
		_ = registry.Register(e)
	}
	return registry
}
