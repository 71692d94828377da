package metrics

import "github.com/kilianp07/walletfactory/core/module"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []module.Config `json:"sinks"`
	// PrometheusPort is the listen address of the /metrics endpoint. Empty disables it.
	PrometheusPort string `json:"prometheus_port"`
}
