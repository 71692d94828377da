package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/walletfactory/core/events"
	coremetrics "github.com/kilianp07/walletfactory/core/metrics"
	"github.com/kilianp07/walletfactory/infra/logger"
)

const component = "walletfactory"

// InfluxSink writes factory events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordWalletCreated writes one wallet_created point.
func (s *InfluxSink) RecordWalletCreated(ev events.WalletCreated) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("wallet_created").
		AddTag("implementation", ev.Implementation.String()).
		AddTag("component", component).
		AddField("user", ev.User.String()).
		AddField("wallet", ev.Wallet.String()).
		AddField("owner", ev.Owner.String()).
		AddField("duration_ms", float64(ev.Duration.Microseconds())/1000).
		AddField("registered", ev.Registered).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordImplementationDeployed writes one implementation_deployed point.
func (s *InfluxSink) RecordImplementationDeployed(ev events.ImplementationDeployed) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("implementation_deployed").
		AddTag("logic", ev.Implementation.Logic).
		AddTag("component", component).
		AddField("address", ev.Implementation.Address.String()).
		AddField("version", ev.Implementation.Version).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRejection writes one operation_rejected point.
func (s *InfluxSink) RecordRejection(ev events.OperationRejected) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errStr := ""
	if ev.Err != nil {
		errStr = ev.Err.Error()
	}
	p := write.NewPointWithMeasurement("operation_rejected").
		AddTag("operation", ev.Op).
		AddTag("reason", ev.Reason).
		AddTag("component", component).
		AddField("caller", ev.Caller.String()).
		AddField("error", errStr).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}
