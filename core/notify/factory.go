package notify

import "github.com/kilianp07/roadside/core/factory"

var registry = factory.NewRegistry[Notifier]()

func init() {
	registry.MustRegister("nop", func(map[string]any) (Notifier, error) { return Nop{}, nil })
}

// Register adds a notifier factory identified by name.
func Register(name string, f factory.Factory[Notifier]) error {
	return registry.Register(name, f)
}

// New builds the configured notifiers. No configuration yields Nop.
func New(cfgs []factory.ModuleConfig) (Notifier, error) {
	switch len(cfgs) {
	case 0:
		return Nop{}, nil
	case 1:
		return registry.Create(cfgs[0])
	}
	out := make(Multi, 0, len(cfgs))
	for _, c := range cfgs {
		n, err := registry.Create(c)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Types lists the registered backend names.
func Types() []string { return registry.Types() }
