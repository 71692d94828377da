package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/walletfactory/core/events"
	coremetrics "github.com/kilianp07/walletfactory/core/metrics"
	"github.com/kilianp07/walletfactory/core/model"
)

type capture struct {
	mu     sync.Mutex
	bodies []string
}

func (c *capture) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, strings.TrimSpace(string(data)))
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordWalletCreated(t *testing.T) {
	var c capture
	srv := c.server(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	ev := events.WalletCreated{
		User:           model.UserID{1},
		Wallet:         model.Address{2},
		Owner:          model.Address{3},
		Implementation: model.Address{4},
		Registered:     7,
		Duration:       1500 * time.Microsecond,
		Time:           now,
	}
	if err := sink.RecordWalletCreated(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("wallet_created").
		AddTag("implementation", ev.Implementation.String()).
		AddTag("component", "walletfactory").
		AddField("user", ev.User.String()).
		AddField("wallet", ev.Wallet.String()).
		AddField("owner", ev.Owner.String()).
		AddField("duration_ms", 1.5).
		AddField("registered", 7).
		SetTime(now)
	if len(c.bodies) != 1 || c.bodies[0] != line(p) {
		t.Errorf("unexpected bodies: %#v", c.bodies)
	}
}

func TestInfluxSink_RecordRejection(t *testing.T) {
	var c capture
	srv := c.server(t)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	ev := events.OperationRejected{
		Op:     events.OpCreateWallet,
		Caller: model.Address{9},
		Reason: events.ReasonUnauthorized,
		Err:    model.ErrUnauthorized,
		Time:   now,
	}
	if err := sink.RecordRejection(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("operation_rejected").
		AddTag("operation", "create_wallet").
		AddTag("reason", "unauthorized").
		AddTag("component", "walletfactory").
		AddField("caller", ev.Caller.String()).
		AddField("error", "unauthorized").
		SetTime(now)
	if len(c.bodies) != 1 || c.bodies[0] != line(p) {
		t.Errorf("unexpected bodies: %#v", c.bodies)
	}
}

func TestInfluxSink_RecordImplementationDeployed(t *testing.T) {
	var c capture
	srv := c.server(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	impl := model.Implementation{Address: model.Address{5}, Logic: "owned-wallet", Version: 2, DeployedAt: now}
	if err := sink.RecordImplementationDeployed(events.ImplementationDeployed{Implementation: impl, Time: now}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("implementation_deployed").
		AddTag("logic", "owned-wallet").
		AddTag("component", "walletfactory").
		AddField("address", impl.Address.String()).
		AddField("version", uint64(2)).
		SetTime(now)
	if len(c.bodies) != 1 || c.bodies[0] != line(p) {
		t.Errorf("unexpected bodies: %#v", c.bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink on failing health check, got %T", sink)
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
