// Package module provides a small generic registry used to build pluggable
// components from configuration. A component is described by a type string
// and a map of raw settings; builders decode the settings into typed structs
// and return the concrete implementation.
//
// Registry stores, audit stores, metrics sinks and wallet logic are all
// selected this way:
//
//	stores := module.NewRegistry[registry.Store]()
//	stores.Register("sqlite", func(conf map[string]any) (registry.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := module.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return sqlite.Open(c.Path)
//	})
//	s, err := stores.Create(module.Config{Type: "sqlite", Conf: map[string]any{"path": "wallets.db"}})
package module
