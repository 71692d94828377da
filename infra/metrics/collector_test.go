package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/walletfactory/core/events"
	"github.com/kilianp07/walletfactory/internal/eventbus"
)

type countingSink struct {
	mu         sync.Mutex
	created    int
	rejections int
	done       chan struct{}
}

func (s *countingSink) RecordWalletCreated(events.WalletCreated) error {
	s.mu.Lock()
	s.created++
	s.mu.Unlock()
	return nil
}

func (s *countingSink) RecordRejection(events.OperationRejected) error {
	s.mu.Lock()
	s.rejections++
	s.mu.Unlock()
	close(s.done)
	return nil
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New[events.Event]()
	defer bus.Close()
	sink := &countingSink{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartEventCollector(ctx, bus, sink)
	// Subscribe happens synchronously, so publishing now is safe.
	bus.Publish(events.WalletCreated{})
	bus.Publish(events.ImplementationDeployed{})
	bus.Publish(events.OperationRejected{Op: events.OpCreateWallet})

	select {
	case <-sink.done:
	case <-time.After(time.Second):
		t.Fatal("rejection not recorded")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.created != 1 || sink.rejections != 1 {
		t.Fatalf("created=%d rejections=%d", sink.created, sink.rejections)
	}
}
