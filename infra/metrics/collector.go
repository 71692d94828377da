package metrics

import (
	"context"

	"github.com/kilianp07/walletfactory/core/events"
	coremetrics "github.com/kilianp07/walletfactory/core/metrics"
	"github.com/kilianp07/walletfactory/infra/logger"
	"github.com/kilianp07/walletfactory/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.Event], sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	log := logger.New("metrics-collector")
	eventbus.Consume(ctx, bus, func(ev events.Event) {
		if err := record(sink, ev); err != nil {
			log.Warnf("record %s: %v", ev.Operation(), err)
		}
	})
}

func record(sink coremetrics.Sink, ev events.Event) error {
	switch e := ev.(type) {
	case events.WalletCreated:
		return sink.RecordWalletCreated(e)
	case events.ImplementationDeployed:
		if r, ok := sink.(coremetrics.ImplementationRecorder); ok {
			return r.RecordImplementationDeployed(e)
		}
	case events.OperationRejected:
		if r, ok := sink.(coremetrics.RejectionRecorder); ok {
			return r.RecordRejection(e)
		}
	}
	return nil
}
