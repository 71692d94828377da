// Package plugins links every built-in module into the binary and lists
// what each configurable family offers.
package plugins

import (
	"github.com/kilianp07/walletfactory/core/audit"
	"github.com/kilianp07/walletfactory/core/logic"
	coremetrics "github.com/kilianp07/walletfactory/core/metrics"
	"github.com/kilianp07/walletfactory/core/registry"

	// Register the sqlite registry backend and the prometheus and influx sinks.
	_ "github.com/kilianp07/walletfactory/infra/metrics"
	_ "github.com/kilianp07/walletfactory/infra/store"
)

// Family names one configurable component family.
type Family struct {
	Name    string   `json:"name" yaml:"name"`
	Key     string   `json:"key" yaml:"key"`
	Modules []string `json:"modules" yaml:"modules"`
}

// Families returns every module family with its registered names, sorted.
func Families() []Family {
	return []Family{
		{Name: "shared logic", Key: "factory.logic", Modules: logic.Catalog.Names()},
		{Name: "registry store", Key: "registry.type", Modules: registry.Backends.Names()},
		{Name: "audit store", Key: "audit.type", Modules: audit.Stores.Names()},
		{Name: "metrics sink", Key: "metrics.sinks[].type", Modules: coremetrics.Sinks.Names()},
	}
}
