package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/walletfactory/core/events"
	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/internal/eventbus"
)

func TestPromSink_RecordWalletCreated(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	for i := 1; i <= 2; i++ {
		if err := sink.RecordWalletCreated(events.WalletCreated{Registered: i, Duration: 20 * time.Millisecond}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if got := testutil.ToFloat64(sink.created); got != 2 {
		t.Errorf("created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sink.registered); got != 2 {
		t.Errorf("registered = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(sink.latency); n != 1 {
		t.Errorf("latency collectors = %d", n)
	}
}

func TestPromSink_RecordRejection(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordRejection(events.OperationRejected{Op: events.OpCreateWallet, Reason: events.ReasonUnauthorized, Err: errors.New("x")})
	_ = sink.RecordRejection(events.OperationRejected{Op: events.OpCreateWallet, Reason: events.ReasonUnauthorized})

	expected := `
# HELP walletfactory_operations_rejected_total Mutating operations that failed, by operation and reason
# TYPE walletfactory_operations_rejected_total counter
walletfactory_operations_rejected_total{operation="create_wallet",reason="unauthorized"} 2
`
	if err := testutil.CollectAndCompare(sink.rejections, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestPromSink_ImplementationVersion(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordImplementationDeployed(events.ImplementationDeployed{Implementation: model.Implementation{Version: 3}})
	if got := testutil.ToFloat64(sink.version); got != 3 {
		t.Errorf("version = %v, want 3", got)
	}
	if got := testutil.ToFloat64(sink.implementations); got != 1 {
		t.Errorf("implementations = %v, want 1", got)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	_ = first.RecordRegistrySize(4)
	if got := testutil.ToFloat64(second.registered); got != 4 {
		t.Errorf("collectors not shared: %v", got)
	}
}

func TestPromSink_ObserveDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	bus := eventbus.NewWithBuffer[int](1)
	defer bus.Close()
	_ = bus.Subscribe()
	if err := sink.ObserveDropped(bus.Dropped); err != nil {
		t.Fatalf("observe dropped: %v", err)
	}
	for i := 0; i < 3; i++ {
		bus.Publish(i)
	}
	expected := `
# HELP walletfactory_events_dropped_total Events the bus dropped because a best-effort subscriber was full
# TYPE walletfactory_events_dropped_total counter
walletfactory_events_dropped_total 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "walletfactory_events_dropped_total"); err != nil {
		t.Fatal(err)
	}
}
