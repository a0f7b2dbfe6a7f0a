package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/antrag-worker/internal/config"
	"github.com/shaiso/antrag-worker/internal/correlation"
	"github.com/shaiso/antrag-worker/internal/engine"
	"github.com/shaiso/antrag-worker/internal/forecast"
	"github.com/shaiso/antrag-worker/internal/mq"
	"github.com/shaiso/antrag-worker/internal/repo"
)

// Ошибки CLI.
var (
	// ErrNotConfigured — для команды не задана нужная переменная окружения.
	ErrNotConfigured = errors.New("not configured")
)

// Env — ленивые зависимости команд.
type Env struct {
	cfg    *config.Config
	dryRun bool
	logger *slog.Logger

	engine engine.Client
	mem    *engine.Memory
	mqConn *mq.Connection
	pool   *pgxpool.Pool
}

// NewEnv создаёт Env. cfg читается через config.Read.
func NewEnv(cfg *config.Config, dryRun bool, logger *slog.Logger) *Env {
	if logger == nil {
		logger = slog.Default()
	}
	return &Env{cfg: cfg, dryRun: dryRun, logger: logger}
}

// Config возвращает конфигурацию.
func (e *Env) Config() *config.Config {
	return e.cfg
}

// DryRun возвращает true, если движок подменён engine.Memory.
func (e *Env) DryRun() bool {
	return e.dryRun
}

// Engine возвращает соединение с движком.
func (e *Env) Engine() (engine.Client, error) {
	if e.engine != nil {
		return e.engine, nil
	}

	if e.dryRun {
		e.mem = engine.NewMemory()
		e.engine = e.mem
		return e.engine, nil
	}

	if e.cfg.ZeebeAddress == "" {
		return nil, fmt.Errorf("%w: ZEEBE_ADDRESS is not set (use --dry-run to skip the engine)", ErrNotConfigured)
	}

	z, err := engine.NewZeebe(e.cfg.ZeebeConfig(), e.logger)
	if err != nil {
		return nil, err
	}
	e.engine = z
	return e.engine, nil
}

// Memory возвращает движок в памяти (только с --dry-run).
func (e *Env) Memory() *engine.Memory {
	return e.mem
}

// Publisher возвращает publisher correlated messages с заданным TTL.
func (e *Env) Publisher(ttl time.Duration) (*correlation.Publisher, error) {
	client, err := e.Engine()
	if err != nil {
		return nil, err
	}
	return correlation.NewPublisher(correlation.Config{
		Client: client,
		TTL:    ttl,
		Logger: e.logger,
	}), nil
}

// Resolver возвращает Resolver сервиса прогнозов.
func (e *Env) Resolver() (*forecast.Resolver, error) {
	if e.cfg.ForecastURL == "" {
		return nil, fmt.Errorf("%w: FORECAST_URL is not set", ErrNotConfigured)
	}

	client := forecast.NewClient(forecast.ClientConfig{
		BaseURL: e.cfg.ForecastURL,
		APIKey:  e.cfg.ForecastAPIKey,
		RPS:     e.cfg.ForecastRPS,
		Logger:  e.logger,
	})

	return forecast.NewResolver(forecast.ResolverConfig{
		Source:   client,
		Region:   e.cfg.ForecastRegion,
		Timezone: e.cfg.Timezone,
		Logger:   e.logger,
	})
}

// Broker возвращает соединение с RabbitMQ.
func (e *Env) Broker() (*mq.Connection, error) {
	if e.mqConn != nil {
		return e.mqConn, nil
	}
	if e.cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("%w: RABBITMQ_URL is not set", ErrNotConfigured)
	}

	conn, err := mq.NewConnection(e.cfg.RabbitMQURL, "antrag-cli", e.logger)
	if err != nil {
		return nil, err
	}
	e.mqConn = conn
	return conn, nil
}

// Journal возвращает журнал outcome'ов.
func (e *Env) Journal(ctx context.Context) (*repo.JournalRepo, error) {
	if e.pool == nil {
		if e.cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("%w: DB_URL is not set", ErrNotConfigured)
		}
		pool, err := repo.NewPool(ctx, e.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		e.pool = pool
	}
	return repo.NewJournalRepo(e.pool), nil
}

// Close закрывает всё, что было открыто.
func (e *Env) Close() {
	if e.engine != nil {
		e.engine.Close()
	}
	if e.mqConn != nil {
		e.mqConn.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
}
