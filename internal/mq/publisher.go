package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/antrag-worker/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// MessageTypeJobOutcome — результат job принят движком.
const MessageTypeJobOutcome MessageType = "job.outcome"

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload json.RawMessage `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// OutcomeEvent — событие о результате job.
type OutcomeEvent struct {
	JobKey             int64              `json:"job_key"`
	TaskType           string             `json:"task_type"`
	ProcessInstanceKey int64              `json:"process_instance_key"`
	BpmnProcessID      string             `json:"bpmn_process_id,omitempty"`
	Worker             string             `json:"worker,omitempty"`
	Outcome            domain.OutcomeKind `json:"outcome"`
	Fault              domain.FaultKind   `json:"fault,omitempty"`
	Retries            int                `json:"retries"`
	ErrorCode          string             `json:"error_code,omitempty"`
	ErrorMessage       string             `json:"error_message,omitempty"`
	Variables          []string           `json:"variables,omitempty"`
}

// NewOutcomeEvent строит событие из job и outcome.
// Значения выходных переменных в событие не попадают, только имена.
func NewOutcomeEvent(job *domain.Job, out domain.Outcome) OutcomeEvent {
	ev := OutcomeEvent{
		JobKey:             job.Key,
		TaskType:           job.Type,
		ProcessInstanceKey: job.ProcessInstanceKey,
		BpmnProcessID:      job.BpmnProcessID,
		Worker:             job.Worker,
		Outcome:            out.Kind,
		Fault:              out.Fault,
		Retries:            out.Retries,
		ErrorCode:          out.ErrorCode,
		ErrorMessage:       out.ErrorMessage,
	}
	for name := range out.Variables {
		ev.Variables = append(ev.Variables, name)
	}
	return ev
}

// sendFunc отправляет готовую публикацию.
type sendFunc func(ctx context.Context, exchange Exchange, key RoutingKey, msg amqp.Publishing) error

// Publisher публикует события в RabbitMQ.
type Publisher struct {
	send   sendFunc
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher создаёт Publisher поверх соединения.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return newPublisher(func(ctx context.Context, exchange Exchange, key RoutingKey, msg amqp.Publishing) error {
		return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
			return ch.PublishWithContext(ctx, string(exchange), string(key), false, false, msg)
		})
	}, logger)
}

func newPublisher(send sendFunc, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{send: send, logger: logger, now: time.Now}
}

// Publish публикует payload в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, key RoutingKey, msgType MessageType, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	msg := Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: p.now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.send(ctx, exchange, key, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         string(msgType),
		Timestamp:    msg.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, key, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", key,
		"message_id", msg.ID,
		"type", msgType,
	)
	return nil
}

// Record реализует worker.OutcomeSink.
func (p *Publisher) Record(ctx context.Context, job *domain.Job, out domain.Outcome) error {
	return p.Publish(ctx, ExchangeJobs, RoutingKeyFor(out.Kind), MessageTypeJobOutcome, NewOutcomeEvent(job, out))
}
