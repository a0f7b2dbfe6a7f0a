// Antrag Worker — обслуживает job'ы процесса обработки заявок в Zeebe.
//
// Worker:
//   - Получает job'ы из Zeebe по каждому task type
//   - Публикует correlated messages (отказ, напоминание)
//   - Вычисляет оптимальное время старта по прогнозу выбросов
//   - Сообщает результат движку (complete / fail / error)
//   - Дублирует outcome'ы в RabbitMQ и Postgres, если они настроены
//
// Worker'ы масштабируются горизонтально: распределением job'ов
// занимается движок.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/antrag-worker/internal/api"
	"github.com/shaiso/antrag-worker/internal/config"
	"github.com/shaiso/antrag-worker/internal/correlation"
	"github.com/shaiso/antrag-worker/internal/engine"
	"github.com/shaiso/antrag-worker/internal/forecast"
	"github.com/shaiso/antrag-worker/internal/handlers"
	"github.com/shaiso/antrag-worker/internal/mq"
	"github.com/shaiso/antrag-worker/internal/repo"
	"github.com/shaiso/antrag-worker/internal/scheduler"
	"github.com/shaiso/antrag-worker/internal/telemetry"
	"github.com/shaiso/antrag-worker/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := flag.String("env-file", "", "path to .env file (default: .env if present)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		// логгер ещё не настроен
		os.Stderr.WriteString("antrag-worker: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger("antrag-worker")
	logger.Info("starting antrag-worker")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(reg)

	// Zeebe
	client, err := engine.NewZeebe(cfg.ZeebeConfig(), logger)
	if err != nil {
		logger.Error("failed to connect to zeebe", "error", err)
		os.Exit(1)
	}
	defer client.Close()
	logger.Info("zeebe client created", "address", cfg.ZeebeAddress)

	var sinks []worker.OutcomeSink
	var journal api.Journal
	var broker api.Broker

	// RabbitMQ
	if cfg.RabbitMQURL != "" {
		mqConn, err := mq.NewConnection(cfg.RabbitMQURL, cfg.WorkerName, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, outcome events disabled", "error", err)
		} else {
			defer mqConn.Close()
			logger.Info("RabbitMQ connected")

			// Создаём топологию
			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}

			sinks = append(sinks, mq.NewPublisher(mqConn, logger))
			broker = mqConn
		}
	}

	// Postgres
	if cfg.DatabaseURL != "" {
		pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("database not available, outcome journal disabled", "error", err)
		} else {
			defer pool.Close()
			logger.Info("database connected")

			if err := repo.EnsureSchema(ctx, pool); err != nil {
				logger.Warn("failed to ensure schema", "error", err)
			}

			journalRepo := repo.NewJournalRepo(pool)
			sinks = append(sinks, journalRepo)
			journal = journalRepo
		}
	}

	// Сервис прогнозов
	forecastClient := forecast.NewClient(forecast.ClientConfig{
		BaseURL:  cfg.ForecastURL,
		APIKey:   cfg.ForecastAPIKey,
		RPS:      cfg.ForecastRPS,
		Requests: metrics.ForecastRequests,
		Logger:   logger,
	})
	resolver, err := forecast.NewResolver(forecast.ResolverConfig{
		Source:   forecastClient,
		Region:   cfg.ForecastRegion,
		Timezone: cfg.Timezone,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to create forecast resolver", "error", err)
		os.Exit(1)
	}

	publisher := correlation.NewPublisher(correlation.Config{
		Client:    client,
		TTL:       cfg.MessageTTL,
		Published: metrics.MessagesPublished,
		Logger:    logger,
	})

	// Регистрируем handler'ы
	registry := worker.NewRegistry()
	deps := handlers.Deps{Publisher: publisher, Resolver: resolver}
	if err := handlers.Register(registry, deps, cfg.Concurrency); err != nil {
		logger.Error("failed to register handlers", "error", err)
		os.Exit(1)
	}

	// Создаём worker
	w := worker.New(worker.Config{
		Client:        client,
		Registry:      registry,
		Name:          cfg.WorkerName,
		PollInterval:  cfg.PollInterval,
		LockTimeout:   cfg.LockTimeout,
		Concurrency:   cfg.Concurrency,
		ReportTimeout: cfg.ReportTimeout,
		Sinks:         sinks,
		Metrics:       metrics,
		Logger:        logger,
	})

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Проверка API-ключа по расписанию
	var probeStatus api.ProbeStatus
	if cfg.ProbeSchedule != "" {
		probe, err := scheduler.NewProbe(scheduler.ProbeConfig{
			Resolver: resolver,
			Schedule: cfg.ProbeSchedule,
			Window:   cfg.ProbeWindow,
			Gauge:    metrics.ForecastProbeOK,
			Logger:   logger,
		})
		if err != nil {
			logger.Error("failed to create forecast probe", "error", err)
			os.Exit(1)
		}
		probeStatus = probe
		g.Go(func() error { return probe.Run(gctx) })
	}

	// HTTP: /healthz, /metrics, /api/v1/*
	mux := http.NewServeMux()
	api.NewHandler(api.Config{
		Registry: registry,
		Health:   w,
		Probe:    probeStatus,
		Broker:   broker,
		Journal:  journal,
		Gatherer: reg,
		Logger:   logger,
	}).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Ожидаем сигнал завершения или падение одного из компонентов
	if err := g.Wait(); err != nil {
		logger.Error("component failed", "error", err)
	}

	// Останавливаем worker: дожидаемся job'ов в работе
	w.Stop()
	logger.Info("antrag-worker stopped")
}
