package directory

import (
	"github.com/kilianp07/roadside/core/factory"
	"github.com/kilianp07/roadside/core/model"
)

var registry = factory.NewRegistry[Directory]()

func init() {
	registry.MustRegister("static", func(conf map[string]any) (Directory, error) {
		var c struct {
			Technicians []model.Technician `json:"technicians"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return Static(c.Technicians), nil
	})
}

// Register adds a directory backend factory identified by name.
func Register(name string, f factory.Factory[Directory]) error {
	return registry.Register(name, f)
}

// New creates a Directory from configuration.
func New(cfg factory.ModuleConfig) (Directory, error) {
	return registry.Create(cfg)
}

// Types lists the registered backend names.
func Types() []string { return registry.Types() }
