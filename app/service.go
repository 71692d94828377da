package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	auditapi "github.com/kilianp07/walletfactory/api/audit"
	"github.com/kilianp07/walletfactory/api/wallets"
	_ "github.com/kilianp07/walletfactory/app/plugins"
	"github.com/kilianp07/walletfactory/config"
	"github.com/kilianp07/walletfactory/core/audit"
	"github.com/kilianp07/walletfactory/core/deployer"
	"github.com/kilianp07/walletfactory/core/events"
	"github.com/kilianp07/walletfactory/core/gate"
	"github.com/kilianp07/walletfactory/core/logic"
	coremetrics "github.com/kilianp07/walletfactory/core/metrics"
	"github.com/kilianp07/walletfactory/core/module"
	"github.com/kilianp07/walletfactory/core/monitoring"
	"github.com/kilianp07/walletfactory/core/registry"
	"github.com/kilianp07/walletfactory/core/wallet"
	"github.com/kilianp07/walletfactory/infra/logger"
	"github.com/kilianp07/walletfactory/infra/metrics"
	inframon "github.com/kilianp07/walletfactory/infra/monitoring"
	"github.com/kilianp07/walletfactory/infra/mqtt"
	"github.com/kilianp07/walletfactory/internal/eventbus"
)

// Service wires the factory to its stores, collectors and HTTP API.
type Service struct {
	Factory *wallet.Factory

	cfg      *config.Config
	store    registry.Store
	audit    audit.Store
	sink     coremetrics.Sink
	bus      *eventbus.TypedBus[events.Event]
	notifier *mqtt.Notifier
	log      logger.Logger
}

// New creates a Service from the configuration. The factory is restored
// from the configured registry store before New returns.
func New(ctx context.Context, cfg *config.Config) (svc *Service, err error) {
	logger.SetLevel(cfg.Logging.Level)
	logg := logger.New("service")

	factoryAddr, err := cfg.Factory.FactoryAddress()
	if err != nil {
		return nil, err
	}
	mon, err := inframon.NewSentryMonitor(cfg.Sentry, factoryAddr)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	monitoring.Init(mon)

	s := &Service{cfg: cfg, log: logg, bus: eventbus.New[events.Event]()}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if s.store, err = registry.Backends.Create(cfg.Registry); err != nil {
		return nil, fmt.Errorf("registry store: %w", err)
	}
	if s.audit, err = audit.Stores.Create(cfg.Audit); err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}
	if s.sink, err = coremetrics.NewSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	controller, err := cfg.Factory.ControllerAddress()
	if err != nil {
		return nil, err
	}
	g, err := gate.NewControllerGate(controller)
	if err != nil {
		return nil, err
	}
	l, err := logic.Catalog.Create(module.Config{Type: cfg.Factory.Logic})
	if err != nil {
		return nil, fmt.Errorf("shared logic: %w", err)
	}
	s.Factory, err = wallet.New(ctx, wallet.Options{
		Address: factoryAddr,
		Gate:    g,
		Logic:   l,
		Store:   s.store,
		Space:   deployer.NewMemorySpace(cfg.Factory.MaxInstances),
		Audit:   audit.NewRecorder(s.audit),
		Bus:     s.bus,
		Logger:  logger.New("factory"),
	})
	if err != nil {
		return nil, fmt.Errorf("factory: %w", err)
	}
	if r, ok := s.sink.(coremetrics.DropRecorder); ok {
		if err := r.ObserveDropped(s.bus.Dropped); err != nil {
			return nil, fmt.Errorf("dropped events metric: %w", err)
		}
	}
	if r, ok := s.sink.(coremetrics.RegistrySizeRecorder); ok {
		_ = r.RecordRegistrySize(s.Factory.Registered())
	}
	if cfg.MQTT.Broker != "" {
		if s.notifier, err = mqtt.NewNotifier(cfg.MQTT); err != nil {
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
	}
	impl := s.Factory.Implementation()
	logg.Infow("factory ready", map[string]any{
		"factory":        factoryAddr.String(),
		"controller":     controller.String(),
		"implementation": impl.Address.String(),
		"version":        impl.Version,
		"wallets":        s.Factory.Registered(),
	})
	return s, nil
}

// Start subscribes the metrics and MQTT consumers to the event bus. Audit
// records are written by the factory itself.
func (s *Service) Start(ctx context.Context) {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.notifier != nil {
		s.notifier.Start(ctx, s.bus)
	}
}

// Handler serves the wallet and audit APIs plus a health check.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/audit", auditapi.NewHandler(s.audit, s.cfg.HTTP.AuditToken))
	mux.Handle("/api/", wallets.NewHandler(s.Factory))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Run starts the collectors and servers and blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.Start(ctx)
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, port); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	srv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.notifier != nil {
		s.notifier.Disconnect()
	}
	var errs []error
	if s.audit != nil {
		errs = append(errs, s.audit.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	monitoring.Flush(2 * time.Second)
	return errors.Join(errs...)
}
