package correlation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/antrag-worker/internal/domain"
	"github.com/shaiso/antrag-worker/internal/engine"
)

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "published"}, []string{"name", "result"})
}

func TestPublish(t *testing.T) {
	mem := engine.NewMemory()
	counter := newCounter()
	p := NewPublisher(Config{Client: mem, Published: counter})

	err := p.Publish(context.Background(), "Message_0mrwobu", "42", map[string]any{"rejectionSent": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := mem.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].CorrelationKey != "42" {
		t.Errorf("expected key 42, got %s", msgs[0].CorrelationKey)
	}
	if msgs[0].TimeToLive != 0 {
		t.Errorf("expected ttl 0, got %v", msgs[0].TimeToLive)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("Message_0mrwobu", "ok")); got != 1 {
		t.Errorf("expected ok counter 1, got %v", got)
	}
}

func TestPublish_ConfiguredTTL(t *testing.T) {
	mem := engine.NewMemory()
	p := NewPublisher(Config{Client: mem, TTL: time.Hour})

	if err := p.Publish(context.Background(), "Message_X", "1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mem.Messages()[0].TimeToLive != time.Hour {
		t.Errorf("expected ttl 1h, got %v", mem.Messages()[0].TimeToLive)
	}
}

func TestPublish_NegativeTTLClamped(t *testing.T) {
	p := NewPublisher(Config{Client: engine.NewMemory(), TTL: -time.Second})
	if p.TTL() != 0 {
		t.Errorf("expected ttl 0, got %v", p.TTL())
	}
}

func TestPublish_EngineErrorIsTransient(t *testing.T) {
	mem := engine.NewMemory()
	mem.SetPublishError(engine.ErrUnavailable)
	counter := newCounter()
	p := NewPublisher(Config{Client: mem, Published: counter})

	err := p.Publish(context.Background(), "Message_X", "1", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.KindOf(err) != domain.FaultTransient {
		t.Errorf("expected TRANSIENT, got %s", domain.KindOf(err))
	}
	if !errors.Is(err, engine.ErrUnavailable) {
		t.Errorf("expected wrapped ErrUnavailable, got %v", err)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("Message_X", "error")); got != 1 {
		t.Errorf("expected error counter 1, got %v", got)
	}
}

func TestPublish_EmptyName(t *testing.T) {
	mem := engine.NewMemory()
	p := NewPublisher(Config{Client: mem})

	err := p.Publish(context.Background(), " ", "1", nil)
	if !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if domain.KindOf(err) != domain.FaultConfig {
		t.Errorf("expected CONFIG, got %s", domain.KindOf(err))
	}
	if len(mem.Messages()) != 0 {
		t.Error("nothing should be published")
	}
}

func TestCorrelationKey(t *testing.T) {
	if got := CorrelationKey(domain.CustomerID("12345")); got != "12345" {
		t.Errorf("expected 12345, got %s", got)
	}
	if CorrelationKey("7") != CorrelationKey("7") {
		t.Error("key must be deterministic")
	}
}
