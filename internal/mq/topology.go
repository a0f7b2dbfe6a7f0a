package mq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/antrag-worker/internal/domain"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

// ExchangeJobs — обменник событий job'ов.
const ExchangeJobs Exchange = "antrag.jobs"

// QueueJobOutcomes — очередь событий о результатах job'ов.
const QueueJobOutcomes Queue = "jobs.outcomes"

// Routing keys.
const (
	RoutingKeyCompleted RoutingKey = "completed"
	RoutingKeyFailed    RoutingKey = "failed"
	RoutingKeyError     RoutingKey = "error"
)

// outcomeRetention — сколько событие живёт в очереди без потребителя.
const outcomeRetention = 7 * 24 * time.Hour

// RoutingKeyFor возвращает routing key для вида outcome.
func RoutingKeyFor(kind domain.OutcomeKind) RoutingKey {
	switch kind {
	case domain.OutcomeComplete:
		return RoutingKeyCompleted
	case domain.OutcomeError:
		return RoutingKeyError
	default:
		return RoutingKeyFailed
	}
}

// SetupTopology объявляет exchange, очередь и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeJobs), // name
			"direct",             // type
			true,                 // durable
			false,                // auto-deleted
			false,                // internal
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeJobs, err)
		}

		_, err = ch.QueueDeclare(
			string(QueueJobOutcomes), // name
			true,                     // durable
			false,                    // delete when unused
			false,                    // exclusive
			false,                    // no-wait
			amqp.Table{"x-message-ttl": outcomeRetention.Milliseconds()},
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueJobOutcomes, err)
		}

		for _, key := range []RoutingKey{RoutingKeyCompleted, RoutingKeyFailed, RoutingKeyError} {
			if err := ch.QueueBind(string(QueueJobOutcomes), string(key), string(ExchangeJobs), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s/%s: %w", QueueJobOutcomes, ExchangeJobs, key, err)
			}
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  antrag RabbitMQ topology:

    antrag.jobs (direct)
    └── jobs.outcomes [routing: completed, failed, error]
            Consumer: antrag-cli events tail
`
}
