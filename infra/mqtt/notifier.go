package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/walletfactory/core/events"
	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/monitoring"
	"github.com/kilianp07/walletfactory/infra/logger"
	"github.com/kilianp07/walletfactory/internal/eventbus"
)

// DefaultTopicPrefix is used when Config.TopicPrefix is empty.
const DefaultTopicPrefix = "walletfactory"

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Notifier publishes factory events to an MQTT broker.
//
// Topics are <prefix>/<operation> for completed operations and
// <prefix>/rejected/<operation> for failures.
type Notifier struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewNotifier connects to the broker described by cfg.
func NewNotifier(cfg Config) (*Notifier, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_notifier")
	n := &Notifier{
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}
	if n.prefix == "" {
		n.prefix = DefaultTopicPrefix
	}
	if n.maxRetries <= 0 {
		n.maxRetries = 3
	}
	if n.backoff <= 0 {
		n.backoff = 100 * time.Millisecond
	}
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected") }
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	n.cli = c
	return n, nil
}

// Message is the JSON payload published for every event.
type Message struct {
	Operation      string    `json:"operation"`
	Outcome        string    `json:"outcome"`
	Caller         string    `json:"caller,omitempty"`
	User           string    `json:"user,omitempty"`
	Wallet         string    `json:"wallet,omitempty"`
	Owner          string    `json:"owner,omitempty"`
	Implementation string    `json:"implementation,omitempty"`
	Version        *uint64   `json:"version,omitempty"`
	Error          string    `json:"error,omitempty"`
	Time           time.Time `json:"time"`
}

// Topic returns the topic ev is published on.
func (n *Notifier) Topic(ev events.Event) string {
	if _, ok := ev.(events.OperationRejected); ok {
		return n.prefix + "/rejected/" + ev.Operation()
	}
	return n.prefix + "/" + ev.Operation()
}

// NewMessage converts ev into its wire payload.
func NewMessage(ev events.Event) Message {
	m := Message{Operation: ev.Operation(), Outcome: "ok", Time: ev.When().UTC()}
	switch e := ev.(type) {
	case events.WalletCreated:
		m.Caller = e.Caller.String()
		m.User = e.User.String()
		m.Wallet = e.Wallet.String()
		m.Owner = e.Owner.String()
		m.Implementation = e.Implementation.String()
	case events.ImplementationDeployed:
		v := e.Implementation.Version
		m.Caller = e.Caller.String()
		m.Implementation = e.Implementation.Address.String()
		m.Version = &v
	case events.OperationRejected:
		m.Outcome = e.Reason
		m.Caller = e.Caller.String()
		if e.User != (model.UserID{}) {
			m.User = e.User.String()
		}
		if !e.Wallet.IsZero() {
			m.Wallet = e.Wallet.String()
		}
		if e.Err != nil {
			m.Error = e.Err.Error()
		}
	}
	return m
}

// Publish sends ev, retrying with exponential backoff.
func (n *Notifier) Publish(ev events.Event) error {
	payload, err := json.Marshal(NewMessage(ev))
	if err != nil {
		return err
	}
	topic := n.Topic(ev)
	var publishErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		token := n.cli.Publish(topic, n.qos, n.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			n.log.Debugf("published %s", topic)
			return nil
		}
		n.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < n.maxRetries {
			time.Sleep(n.backoff * time.Duration(1<<attempt))
		}
	}
	err = fmt.Errorf("publish %s: %w", topic, publishErr)
	monitoring.CaptureException(err, map[string]string{monitoring.TagComponent: "mqtt", "topic": topic})
	return err
}

// Start forwards every event on bus until ctx is canceled or the bus closes.
func (n *Notifier) Start(ctx context.Context, bus eventbus.EventBus[events.Event]) {
	eventbus.Consume(ctx, bus, func(ev events.Event) { _ = n.Publish(ev) })
}

// Disconnect gracefully closes the MQTT connection.
func (n *Notifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
