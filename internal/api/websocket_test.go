package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-edge/protocol"
)

func newTestHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func TestHubBroadcastsPointValues(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	client := &wsClient{id: "c1", send: make(chan []byte, 1)}
	hub.register <- client

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hub.PublishValue(7, protocol.Float(21.5), at)

	select {
	case msg := <-client.send:
		var ev pointValueEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("decoding event: %v", err)
		}
		if ev.Type != "point_value" {
			t.Errorf("type = %q, want point_value", ev.Type)
		}
		if ev.PointID != 7 {
			t.Errorf("point_id = %d, want 7", ev.PointID)
		}
		if f, ok := ev.Value.AsFloat(); !ok || f != 21.5 {
			t.Errorf("value = %#v, want 21.5", ev.Value)
		}
		if !ev.Timestamp.Equal(at) {
			t.Errorf("timestamp = %v, want %v", ev.Timestamp, at)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	// Unbuffered send channel with no reader: the first broadcast cannot be
	// queued, so the hub must disconnect the client instead of blocking.
	client := &wsClient{id: "slow", send: make(chan []byte)}
	hub.register <- client

	hub.PublishValue(1, protocol.Bool(true), time.Now())

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("expected closed send channel, got a message")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	client := &wsClient{id: "c1", send: make(chan []byte, 1)}
	hub.register <- client
	hub.unregister <- client

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("expected closed send channel, got a message")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}
