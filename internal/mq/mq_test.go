package mq

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/antrag-worker/internal/domain"
)

type sent struct {
	exchange Exchange
	key      RoutingKey
	msg      amqp.Publishing
}

func recordingPublisher(out *[]sent, err error) *Publisher {
	return newPublisher(func(ctx context.Context, exchange Exchange, key RoutingKey, msg amqp.Publishing) error {
		*out = append(*out, sent{exchange, key, msg})
		return err
	}, nil)
}

func TestRoutingKeyFor(t *testing.T) {
	tests := map[domain.OutcomeKind]RoutingKey{
		domain.OutcomeComplete: RoutingKeyCompleted,
		domain.OutcomeFail:     RoutingKeyFailed,
		domain.OutcomeError:    RoutingKeyError,
	}
	for kind, want := range tests {
		if got := RoutingKeyFor(kind); got != want {
			t.Errorf("%s: expected %s, got %s", kind, want, got)
		}
	}
}

func TestPublisher_Record(t *testing.T) {
	var published []sent
	p := recordingPublisher(&published, nil)

	job := &domain.Job{Key: 7, Type: "optimalenStartErmitteln", ProcessInstanceKey: 6, Worker: "w1"}
	out := domain.Complete(map[string]any{"bestStart": "2024-01-15T11:00:00+01:00"})

	if err := p.Record(context.Background(), job, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(published))
	}
	s := published[0]
	if s.exchange != ExchangeJobs || s.key != RoutingKeyCompleted {
		t.Errorf("unexpected route %s/%s", s.exchange, s.key)
	}
	if s.msg.DeliveryMode != amqp.Persistent || s.msg.ContentType != "application/json" {
		t.Errorf("unexpected publishing properties: %+v", s.msg)
	}

	var msg Message
	if err := json.Unmarshal(s.msg.Body, &msg); err != nil {
		t.Fatalf("body should be a Message: %v", err)
	}
	if msg.Type != MessageTypeJobOutcome || msg.ID != s.msg.MessageId {
		t.Errorf("unexpected envelope: %+v", msg)
	}

	ev, err := ParsePayload[OutcomeEvent](&msg)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if ev.JobKey != 7 || ev.Outcome != domain.OutcomeComplete || ev.Worker != "w1" {
		t.Errorf("unexpected event: %+v", ev)
	}
	// Значения переменных в событие не попадают
	if len(ev.Variables) != 1 || ev.Variables[0] != "bestStart" {
		t.Errorf("expected variable names only, got %v", ev.Variables)
	}
}

func TestPublisher_RecordError(t *testing.T) {
	var published []sent
	p := recordingPublisher(&published, ErrNoChannel)

	err := p.Record(context.Background(), &domain.Job{Key: 1}, domain.Fail(0, "boom"))
	if !errors.Is(err, ErrNoChannel) {
		t.Errorf("expected ErrNoChannel, got %v", err)
	}
	if published[0].key != RoutingKeyFailed {
		t.Errorf("expected failed routing key, got %s", published[0].key)
	}
}

func TestNewOutcomeEvent_Fail(t *testing.T) {
	job := &domain.Job{Key: 1, Type: "sendRejection", Retries: 3}
	out := domain.OutcomeFromError(job, domain.Transient(errors.New("gateway unavailable")))

	ev := NewOutcomeEvent(job, out)
	if ev.Outcome != domain.OutcomeFail || ev.Retries != 2 || ev.Fault != domain.FaultTransient {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.ErrorMessage != "gateway unavailable" {
		t.Errorf("unexpected error message: %s", ev.ErrorMessage)
	}
}

// --- Consumer ---

type fakeAck struct {
	acks, nacks, rejects int
	requeue              []bool
}

func (f *fakeAck) Ack(tag uint64, multiple bool) error {
	f.acks++
	return nil
}

func (f *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	f.nacks++
	f.requeue = append(f.requeue, requeue)
	return nil
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error {
	f.rejects++
	return nil
}

func validBody(t *testing.T) []byte {
	t.Helper()
	var published []sent
	p := recordingPublisher(&published, nil)
	if err := p.Record(context.Background(), &domain.Job{Key: 1}, domain.Complete(nil)); err != nil {
		t.Fatalf("record: %v", err)
	}
	return published[0].msg.Body
}

func TestConsumer_HandleDelivery(t *testing.T) {
	var got []int64
	c := NewConsumer(nil, nil, ConsumerConfig{
		Queue: QueueJobOutcomes,
		Handler: func(ctx context.Context, msg *Message) error {
			ev, err := ParsePayload[OutcomeEvent](msg)
			if err != nil {
				return err
			}
			got = append(got, ev.JobKey)
			return nil
		},
	})

	ack := &fakeAck{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: validBody(t)})

	if ack.acks != 1 {
		t.Errorf("expected ack, got %+v", ack)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("unexpected handled events: %v", got)
	}
}

func TestConsumer_MalformedIsRejected(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{
		Handler: func(ctx context.Context, msg *Message) error { return nil },
	})

	ack := &fakeAck{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{not json")})

	if ack.rejects != 1 || ack.acks != 0 {
		t.Errorf("expected reject, got %+v", ack)
	}
}

func TestConsumer_HandlerErrorRequeuesOnce(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{
		Handler: func(ctx context.Context, msg *Message) error { return errors.New("busy") },
	})

	ack := &fakeAck{}
	body := validBody(t)
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body})
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body, Redelivered: true})

	if ack.nacks != 2 {
		t.Fatalf("expected 2 nacks, got %+v", ack)
	}
	if !ack.requeue[0] || ack.requeue[1] {
		t.Errorf("expected requeue only on first delivery, got %v", ack.requeue)
	}
}

func TestNewOutcomeEvent_VariableNames(t *testing.T) {
	ev := NewOutcomeEvent(&domain.Job{}, domain.Complete(map[string]any{"b": 1, "a": 2}))
	sort.Strings(ev.Variables)
	if len(ev.Variables) != 2 || ev.Variables[0] != "a" {
		t.Errorf("unexpected variable names: %v", ev.Variables)
	}
}

func TestConnection_IsConnectedWithoutDial(t *testing.T) {
	c := &Connection{url: "amqp://localhost", name: "test"}
	if c.IsConnected() {
		t.Error("connection without dial reported connected")
	}

	c.closed = true
	if c.IsConnected() {
		t.Error("closed connection reported connected")
	}
}
