package secret

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Factory settings understood by the default providers.
const (
	// CfgLookup holds a LookupFunc for the env provider and for ${VAR}
	// expansion.
	CfgLookup = "lookup"

	// CfgFileRoot holds the directory the file provider is confined to.
	CfgFileRoot = "file_root"
)

// ProviderFactory creates a Provider from settings.
type ProviderFactory func(cfg map[string]any) (Provider, error)

// Registry maps provider names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// Register adds a provider factory under name.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return errors.New("secret: invalid provider registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("secret: provider %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates the provider registered under name.
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("secret: provider %q is not registered", name)
	}
	return factory(cfg)
}

// List returns the registered provider names in order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// NewResolver creates a resolver with one provider per name. cfg is passed
// to every factory; a CfgLookup entry also drives ${VAR} expansion.
func (r *Registry) NewResolver(strict bool, names []string, cfg map[string]any) (*Resolver, error) {
	res := NewResolver(strict)
	if lookup, ok := cfg[CfgLookup].(LookupFunc); ok {
		res.SetLookup(lookup)
	}
	for _, name := range names {
		p, err := r.Create(name, cfg)
		if err != nil {
			return nil, errors.Join(err, res.Close())
		}
		res.Register(p)
	}
	return res, nil
}

// DefaultRegistry holds the "env" and "file" providers.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	_ = r.Register("env", func(cfg map[string]any) (Provider, error) {
		lookup, _ := cfg[CfgLookup].(LookupFunc)
		return NewEnvProvider(lookup), nil
	})
	_ = r.Register("file", func(cfg map[string]any) (Provider, error) {
		root, _ := cfg[CfgFileRoot].(string)
		return NewFileProvider(root), nil
	})
	return r
}()
