package api

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/antrag-worker/internal/repo"
	"github.com/shaiso/antrag-worker/internal/scheduler"
	"github.com/shaiso/antrag-worker/internal/worker"
)

// Health сообщает, принимает ли worker job'ы. Реализуется worker.Worker.
type Health interface {
	IsStopped() bool
}

// ProbeStatus — последний результат проверки сервиса прогнозов.
// Реализуется scheduler.Probe.
type ProbeStatus interface {
	Last() scheduler.ProbeResult
}

// Broker — состояние соединения с RabbitMQ. Реализуется mq.Connection.
type Broker interface {
	IsConnected() bool
}

// Journal — чтение журнала outcome'ов. Реализуется repo.JournalRepo.
type Journal interface {
	ListRecent(ctx context.Context, filter repo.ListFilter) ([]repo.JournalEntry, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	registry *worker.Registry
	health   Health
	probe    ProbeStatus
	broker   Broker
	journal  Journal
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Registry *worker.Registry
	Health   Health

	// Probe — nil, если проверка по расписанию выключена.
	Probe ProbeStatus

	// Broker — nil, если RabbitMQ не настроен.
	Broker Broker

	// Journal — nil, если Postgres не настроен.
	Journal Journal

	// Gatherer — источник /metrics (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Handler{
		registry: cfg.Registry,
		health:   cfg.Health,
		probe:    cfg.Probe,
		broker:   cfg.Broker,
		journal:  cfg.Journal,
		gatherer: gatherer,
		logger:   logger,
	}
}
