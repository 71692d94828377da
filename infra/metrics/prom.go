package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/walletfactory/core/events"
	coremetrics "github.com/kilianp07/walletfactory/core/metrics"
)

// PromSink records factory activity in Prometheus metrics.
type PromSink struct {
	created         prometheus.Counter
	implementations prometheus.Counter
	version         prometheus.Gauge
	rejections      *prometheus.CounterVec
	latency         prometheus.Histogram
	registered      prometheus.Gauge
	reg             prometheus.Registerer
}

// NewPromSink registers factory metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		reg: reg,
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walletfactory_wallets_created_total",
			Help: "Total number of wallets created",
		}),
		implementations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walletfactory_implementations_deployed_total",
			Help: "Total number of implementation versions deployed after start",
		}),
		version: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "walletfactory_implementation_version",
			Help: "Version of the implementation new wallets delegate to",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletfactory_operations_rejected_total",
			Help: "Mutating operations that failed, by operation and reason",
		}, []string{"operation", "reason"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "walletfactory_create_wallet_seconds",
			Help:    "Time spent deploying and registering a wallet",
			Buckets: prometheus.DefBuckets,
		}),
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "walletfactory_registered_wallets",
			Help: "Number of wallets in the registry",
		}),
	}
	var err error
	if s.created, err = register(reg, s.created); err != nil {
		return nil, err
	}
	if s.implementations, err = register(reg, s.implementations); err != nil {
		return nil, err
	}
	if s.version, err = register(reg, s.version); err != nil {
		return nil, err
	}
	if s.rejections, err = register(reg, s.rejections); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, s.latency); err != nil {
		return nil, err
	}
	if s.registered, err = register(reg, s.registered); err != nil {
		return nil, err
	}
	return s, nil
}

// register reuses an identical collector when one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *PromSink) RecordWalletCreated(ev events.WalletCreated) error {
	s.created.Inc()
	s.latency.Observe(ev.Duration.Seconds())
	s.registered.Set(float64(ev.Registered))
	return nil
}

func (s *PromSink) RecordImplementationDeployed(ev events.ImplementationDeployed) error {
	s.implementations.Inc()
	s.version.Set(float64(ev.Implementation.Version))
	return nil
}

func (s *PromSink) RecordRejection(ev events.OperationRejected) error {
	s.rejections.WithLabelValues(ev.Op, ev.Reason).Inc()
	return nil
}

// RecordRegistrySize sets the registered wallets gauge.
func (s *PromSink) RecordRegistrySize(n int) error {
	s.registered.Set(float64(n))
	return nil
}

// ObserveDropped exports total as a counter of events the event bus could
// not deliver to a full subscriber.
func (s *PromSink) ObserveDropped(total func() uint64) error {
	_, err := register(s.reg, prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "walletfactory_events_dropped_total",
		Help: "Events the bus dropped because a best-effort subscriber was full",
	}, func() float64 { return float64(total()) }))
	return err
}

var (
	_ coremetrics.Sink         = (*PromSink)(nil)
	_ coremetrics.DropRecorder = (*PromSink)(nil)
)
