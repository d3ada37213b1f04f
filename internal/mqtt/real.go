package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	clientID       = "dc01d"
	bufferCapacity = 256
	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an MQTT broker. Messages published while the
// connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool
	everUp    bool
}

// NewRealPublisher starts connecting to broker in the background.
// The broker publishes a retained SHUTDOWN will if the daemon vanishes.
func NewRealPublisher(broker string) *RealPublisher {
	p := &RealPublisher{buf: newRingBuffer(bufferCapacity)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) { p.onLost(err) })

	if will, err := lastWill(time.Now()); err != nil {
		log.Printf("mqtt: failed to format last will: %v", err)
	} else {
		opts.SetBinaryWill(TopicSystem, will, 1, true)
	}

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	p.connected = true
	pending := p.buf.drain()
	reconnect := p.everUp
	p.everUp = true
	p.mu.Unlock()

	log.Printf("mqtt: connected, replaying %d buffered messages", len(pending))
	for _, m := range pending {
		p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	if !reconnect {
		return
	}
	payload, err := reconnectedNotice(time.Now())
	if err != nil {
		log.Printf("mqtt: failed to format reconnect notice: %v", err)
		return
	}
	p.client.Publish(TopicSystem, 1, false, payload)
}

// lastWill is the retained payload the broker publishes for an unclean exit.
func lastWill(now time.Time) ([]byte, error) {
	return FormatSystemPayload(SystemEvent{
		Timestamp: now,
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
}

func reconnectedNotice(now time.Time) ([]byte, error) {
	return FormatSystemPayload(SystemEvent{Timestamp: now, Event: "RECONNECTED"})
}

func (p *RealPublisher) onLost(err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	log.Printf("mqtt: connection lost: %v", err)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Buffered returns the number of messages waiting for the broker.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Publish sends an interlock event (QoS 0, not retained).
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.publish(message{topic: TopicEvents, payload: payload})
}

// PublishSystem sends a system lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(message{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(m message) error {
	p.mu.Lock()
	if !p.connected {
		p.buf.push(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		p.mu.Lock()
		p.buf.push(m)
		p.mu.Unlock()
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
