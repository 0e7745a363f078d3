package mqttbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-edge/protocol"
)

// ProtocolName is the registry key the builtin driver registers under.
const ProtocolName = "mqtt_bus"

// Bus is the slice of the MQTT client the driver needs. Satisfied by
// *mqtt.Client; tests substitute an in-memory bus.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Driver bridges MQTT topics into the point model. A point's address is a
// raw broker topic: reads return the last value observed on the topic,
// writes publish the value to it (retained, so the topic doubles as the
// state store).
type Driver struct {
	bus Bus
	qos byte

	mu     sync.Mutex
	topics map[string]*topicState
	closed bool
}

// topicState caches the last value seen on one subscribed topic.
type topicState struct {
	mu    sync.Mutex
	value protocol.Value
	seen  bool

	// ready closes when the first value arrives so waiting reads wake up.
	ready chan struct{}
}

// New creates the builtin MQTT bus driver over a connected client.
func New(bus Bus, qos byte) *Driver {
	return &Driver{
		bus:    bus,
		qos:    qos,
		topics: make(map[string]*topicState),
	}
}

// Factory returns a protocol.Factory for registration as a system plugin.
func Factory(bus Bus, qos byte) protocol.Factory {
	return func() (protocol.Driver, error) {
		if bus == nil {
			return nil, fmt.Errorf("%w: mqtt bus not connected", protocol.ErrConnection)
		}
		return New(bus, qos), nil
	}
}

// ReadPoint returns the last value observed on the point's topic. The
// first read of a topic subscribes and then waits for a value until the
// context expires.
func (d *Driver) ReadPoint(ctx context.Context, req protocol.ReadRequest) (protocol.Value, error) {
	ts, err := d.ensureSubscribed(req.Address)
	if err != nil {
		return protocol.Null(), err
	}

	ts.mu.Lock()
	if ts.seen {
		v := ts.value
		ts.mu.Unlock()
		return checkType(v, req.DataType)
	}
	ready := ts.ready
	ts.mu.Unlock()

	select {
	case <-ready:
		ts.mu.Lock()
		v := ts.value
		ts.mu.Unlock()
		return checkType(v, req.DataType)
	case <-ctx.Done():
		return protocol.Null(), fmt.Errorf("%w: no value on topic %q", protocol.ErrTimeout, req.Address)
	}
}

// WritePoint publishes the value to the point's topic, retained. The
// committed value is the value as published; the bus has no clamping.
func (d *Driver) WritePoint(_ context.Context, req protocol.WriteRequest) (protocol.Value, error) {
	payload, err := req.Value.MarshalJSON()
	if err != nil {
		return protocol.Null(), fmt.Errorf("%w: encoding value: %w", protocol.ErrUnsupported, err)
	}

	if err := d.bus.Publish(req.Address, payload, d.qos, true); err != nil {
		return protocol.Null(), fmt.Errorf("%w: %w", protocol.ErrConnection, err)
	}

	// Reflect the write locally so an immediate read does not wait for
	// the broker echo.
	d.store(req.Address, req.Value)
	return req.Value, nil
}

// Close unsubscribes from every tracked topic.
func (d *Driver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	topics := make([]string, 0, len(d.topics))
	for topic := range d.topics {
		topics = append(topics, topic)
	}
	d.topics = make(map[string]*topicState)
	d.mu.Unlock()

	var firstErr error
	for _, topic := range topics {
		if err := d.bus.Unsubscribe(topic); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ensureSubscribed returns the topic state, subscribing on first use.
func (d *Driver) ensureSubscribed(topic string) (*topicState, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: driver closed", protocol.ErrConnection)
	}
	if ts, ok := d.topics[topic]; ok {
		d.mu.Unlock()
		return ts, nil
	}
	ts := &topicState{ready: make(chan struct{})}
	d.topics[topic] = ts
	d.mu.Unlock()

	err := d.bus.Subscribe(topic, d.qos, func(msgTopic string, payload []byte) error {
		d.store(msgTopic, decodePayload(payload))
		return nil
	})
	if err != nil {
		d.mu.Lock()
		delete(d.topics, topic)
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: subscribing %q: %w", protocol.ErrConnection, topic, err)
	}
	return ts, nil
}

// store records a value for a topic and wakes any waiting reads.
func (d *Driver) store(topic string, v protocol.Value) {
	d.mu.Lock()
	ts, ok := d.topics[topic]
	d.mu.Unlock()
	if !ok {
		return
	}

	ts.mu.Lock()
	ts.value = v
	if !ts.seen {
		ts.seen = true
		close(ts.ready)
	}
	ts.mu.Unlock()
}

// decodePayload parses a topic payload as a JSON scalar, falling back to a
// plain string for bare payloads like `ON`.
func decodePayload(payload []byte) protocol.Value {
	var v protocol.Value
	if err := v.UnmarshalJSON(payload); err != nil {
		return protocol.String(string(payload))
	}
	return v
}

// checkType enforces the point's declared data type on values read off the
// bus; topics are uncontrolled input.
func checkType(v protocol.Value, dt protocol.DataType) (protocol.Value, error) {
	if !v.Matches(dt) {
		return protocol.Null(), fmt.Errorf("%w: topic value %#v for %s point",
			protocol.ErrTypeMismatch, v, dt)
	}
	return v, nil
}
