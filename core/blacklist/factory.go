package blacklist

import "github.com/kilianp07/roadside/core/factory"

var registry = factory.NewRegistry[Store]()

func init() {
	registry.MustRegister("memory", func(map[string]any) (Store, error) { return NewMemory(), nil })
}

// Register adds a store backend factory identified by name.
func Register(name string, f factory.Factory[Store]) error {
	return registry.Register(name, f)
}

// New creates a Store from configuration. An empty type selects memory.
func New(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return registry.Create(cfg)
}

// Types lists the registered backend names.
func Types() []string { return registry.Types() }
