package metrics

import "github.com/kilianp07/walletfactory/core/module"

// Sinks holds the metrics sink builders selectable from configuration.
var Sinks = module.NewRegistry[Sink]("metrics sink")

func init() {
	Sinks.MustRegister("nop", func(map[string]any) (Sink, error) { return NopSink{}, nil })
}

// NewSink creates a Sink from the provided configurations.
func NewSink(cfgs []module.Config) (Sink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return Sinks.Create(cfgs[0])
	}
	sinks := make([]Sink, len(cfgs))
	for i, c := range cfgs {
		s, err := Sinks.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
