package metrics

import (
	coremetrics "github.com/kilianp07/walletfactory/core/metrics"
	"github.com/kilianp07/walletfactory/core/module"
)

// init registers the built-in metrics sinks.
func init() {
	coremetrics.Sinks.MustRegister("prometheus", func(map[string]any) (coremetrics.Sink, error) {
		// The listen address lives in metrics.Config.PrometheusPort.
		return NewPromSink()
	})

	coremetrics.Sinks.MustRegister("influx", func(conf map[string]any) (coremetrics.Sink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := module.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}
