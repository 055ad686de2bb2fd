package messaging

import (
	"context"
	"sync"
	"testing"

	"rmfconsole/config"
)

func TestDecodeEnvelope_BuildComplete(t *testing.T) {
	data := []byte(`{
		"msg_type": "build_complete",
		"msg_id": "abc-123",
		"source": "console-1",
		"timestamp": "2026-02-17T12:00:00Z",
		"payload": {"package": "rmf_maps", "code": 2}
	}`)

	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.MsgID != "abc-123" {
		t.Errorf("msg_id = %q, want %q", env.MsgID, "abc-123")
	}
	if env.Source != "console-1" {
		t.Errorf("source = %q, want %q", env.Source, "console-1")
	}
	p, ok := env.Payload.(BuildComplete)
	if !ok {
		t.Fatalf("payload type = %T, want BuildComplete", env.Payload)
	}
	if p.Package != "rmf_maps" || p.Code != 2 {
		t.Errorf("payload = %+v", p)
	}
}

func TestDecodeEnvelope_UnknownType(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`{"msg_type":"mystery","payload":{}}`)); err == nil {
		t.Fatal("expected error for unknown msg_type")
	}
}

func TestNewEnvelope_RoundTrip(t *testing.T) {
	env := NewEnvelope(TypeTaskDispatched, "console", TaskDispatched{Category: "patrol", Destination: "pantry"})
	if env.MsgID == "" {
		t.Fatal("MsgID should be assigned")
	}
	data, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Payload.(TaskDispatched).Destination != "pantry" {
		t.Errorf("payload = %+v", got.Payload)
	}
}

type recordingSender struct {
	mu     sync.Mutex
	topics []string
	msgs   [][]byte
}

func (r *recordingSender) Publish(_ context.Context, topic string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.msgs = append(r.msgs, payload)
	return nil
}

func TestPublisher_DrainsOnStop(t *testing.T) {
	rec := &recordingSender{}
	p := NewPublisher(rec, "rmfconsole.ops", "console")
	p.Start()

	p.Publish(TypeProcessStarted, ProcessEvent{Target: "ros", PID: 42})
	p.Publish(TypeProcessExited, ProcessEvent{Target: "ros", Code: 1})
	p.Stop()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(rec.msgs))
	}
	if rec.topics[0] != "rmfconsole.ops" {
		t.Errorf("topic = %q", rec.topics[0])
	}
	env, err := DecodeEnvelope(rec.msgs[1])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.MsgType != TypeProcessExited || env.Source != "console" {
		t.Errorf("env = %+v", env)
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient(&config.MessagingConfig{Backend: "nats"})
	if c.IsConnected() {
		t.Error("client should not report connected before Connect")
	}
	if err := c.Publish(context.Background(), "t", []byte("x")); err == nil {
		t.Error("expected error publishing before Connect")
	}

	bad := NewClient(&config.MessagingConfig{Backend: "carrier-pigeon"})
	if err := bad.Connect(); err == nil {
		t.Error("expected error for unknown backend")
	}
}
