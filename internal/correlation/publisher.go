package correlation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/antrag-worker/internal/domain"
	"github.com/shaiso/antrag-worker/internal/engine"
)

// ErrEmptyName — имя сообщения не задано.
var ErrEmptyName = errors.New("message name is required")

// Config — конфигурация Publisher.
type Config struct {
	// Client — соединение с движком.
	Client engine.Client

	// TTL — время буферизации сообщения движком (0 — не буферизуется).
	TTL time.Duration

	// Published — счётчик публикаций по {name, result} (опционально).
	Published *prometheus.CounterVec

	// Logger
	Logger *slog.Logger
}

// Publisher публикует correlated messages.
type Publisher struct {
	client    engine.Client
	ttl       time.Duration
	published *prometheus.CounterVec
	logger    *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(cfg Config) *Publisher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		client:    cfg.Client,
		ttl:       max(cfg.TTL, 0),
		published: cfg.Published,
		logger:    logger,
	}
}

// TTL возвращает настроенное время буферизации.
func (p *Publisher) TTL() time.Duration {
	return p.ttl
}

// Publish публикует сообщение name с ключом correlationKey.
//
// Ошибка движка возвращается как TRANSIENT: job, внутри которого
// публикуется сообщение, не должен завершаться успешно.
func (p *Publisher) Publish(ctx context.Context, name, correlationKey string, vars map[string]any) error {
	return p.PublishMessage(ctx, domain.CorrelationMessage{
		Name:           name,
		CorrelationKey: correlationKey,
		TimeToLive:     p.ttl,
		Variables:      vars,
	})
}

// PublishMessage публикует подготовленное сообщение как есть
// (TTL берётся из msg, а не из конфигурации).
func (p *Publisher) PublishMessage(ctx context.Context, msg domain.CorrelationMessage) error {
	if strings.TrimSpace(msg.Name) == "" {
		return domain.ConfigFault(ErrEmptyName)
	}

	if err := p.client.PublishMessage(ctx, msg); err != nil {
		p.count(msg.Name, "error")
		p.logger.Warn("publish message failed",
			"message", msg.Name,
			"correlation_key", msg.CorrelationKey,
			"error", err,
		)
		return domain.Transient(fmt.Errorf("publish %s (key %q): %w", msg.Name, msg.CorrelationKey, err))
	}

	p.count(msg.Name, "ok")
	p.logger.Info("message published",
		"message", msg.Name,
		"correlation_key", msg.CorrelationKey,
		"ttl", msg.TimeToLive,
	)
	return nil
}

func (p *Publisher) count(name, result string) {
	if p.published != nil {
		p.published.WithLabelValues(name, result).Inc()
	}
}

// CorrelationKey строит correlation key из идентификатора клиента.
// Ключ — строковое представление идентификатора без изменений.
func CorrelationKey(customerID domain.CustomerID) string {
	return string(customerID)
}
