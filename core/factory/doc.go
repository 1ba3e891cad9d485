// Package factory instantiates pluggable backends from configuration.
//
// A backend is described by a ModuleConfig: a type name plus a map of raw
// settings. Each backend package registers a Factory under its type name;
// the factory decodes the settings with Decode and returns the concrete
// implementation.
//
//	stores := factory.NewRegistry[blacklist.Store]()
//	_ = stores.Register("sqlite", func(conf map[string]any) (blacklist.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewSQLiteStore(c.Path)
//	})
//	s, err := stores.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": "bl.db"}})
package factory
