package mqtt

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/fish-feeder/internal/logic"
)

// DefaultClientID is the MQTT client identifier.
const DefaultClientID = "fish-feeder"

const publishTimeout = 5 * time.Second

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the broker is unreachable are held and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	outbox *outbox
	logger *slog.Logger
}

// NewRealPublisher creates a publisher for the given broker. Connection
// happens in the background; it does not wait for the broker to answer.
func NewRealPublisher(broker, clientID string, logger *slog.Logger) (*RealPublisher, error) {
	if broker == "" {
		return nil, fmt.Errorf("no broker configured")
	}
	if clientID == "" {
		clientID = DefaultClientID
	}

	p := &RealPublisher{
		outbox: newOutbox(DefaultOutboxSize, logger),
		logger: logger,
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	var everConnected atomic.Bool
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", "error", err)
		}).
		SetOnConnectHandler(func(c paho.Client) {
			// Handlers run on their own goroutine; waiting on tokens is fine.
			if everConnected.Swap(true) {
				if err := p.publishNow(message{topic: TopicSystem, payload: reconnectedPayload(), qos: 1}); err != nil {
					logger.Warn("mqtt reconnect notice failed", "error", err)
				}
			}
			if n := p.outbox.flush(p.publishNow); n > 0 {
				logger.Info("mqtt replayed buffered messages", "count", n)
			}
			logger.Info("mqtt connected", "broker", broker)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p, nil
}

func reconnectedPayload() []byte {
	payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
	return payload
}

// Publish sends a feeder event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: feed events should not be lost on a flaky link
	return p.send(message{topic: Topic, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(message{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(m message) error {
	if !p.client.IsConnectionOpen() {
		p.outbox.hold(m)
		return nil
	}
	if err := p.publishNow(m); err != nil {
		p.outbox.hold(m)
		return err
	}
	return nil
}

func (p *RealPublisher) publishNow(m message) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	return p.outbox.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if n := p.outbox.len(); n > 0 {
		p.logger.Warn("mqtt closing with unsent messages", "count", n)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

var (
	_ Publisher        = (*RealPublisher)(nil)
	_ ConnectionStatus = (*RealPublisher)(nil)
)
