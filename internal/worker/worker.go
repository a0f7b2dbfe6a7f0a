package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/shaiso/antrag-worker/internal/domain"
	"github.com/shaiso/antrag-worker/internal/engine"
	"github.com/shaiso/antrag-worker/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval = 100 * time.Millisecond
	defaultConcurrency  = 32
	defaultLockTimeout  = 5 * time.Minute
	defaultWorkerName   = "antrag-worker"
)

// Worker получает job'ы из движка и выполняет их handler'ами.
//
// Для каждого task type из Registry запускается отдельный поток.
// Потоки не разделяют изменяемого состояния: общие только Client
// и неизменяемая конфигурация.
type Worker struct {
	client   engine.Client
	registry *Registry
	reporter *Reporter
	metrics  *telemetry.Metrics

	// Configuration
	name         string
	pollInterval time.Duration
	lockTimeout  time.Duration
	concurrency  int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	started    bool
	stopped    bool
	mu         sync.Mutex
}

// Config — конфигурация Worker.
type Config struct {
	// Client — соединение с движком.
	Client engine.Client

	// Registry — зарегистрированные handler'ы.
	Registry *Registry

	// Name — имя worker'а, видимое в движке (default: antrag-worker).
	Name string

	// PollInterval — пауза после пустой активации или ошибки (default: 100ms).
	PollInterval time.Duration

	// LockTimeout — блокировка выданных job'ов (default: 5m).
	LockTimeout time.Duration

	// Concurrency — лимит для регистраций без своего значения (default: 32).
	Concurrency int

	// ReportTimeout — таймаут отправки outcome (default: 10s).
	ReportTimeout time.Duration

	// Sinks — получатели outcome'ов.
	Sinks []OutcomeSink

	// Metrics — опционально.
	Metrics *telemetry.Metrics

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	name := cfg.Name
	if name == "" {
		name = defaultWorkerName
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	return &Worker{
		client:   cfg.Client,
		registry: registry,
		reporter: NewReporter(ReporterConfig{
			Client:  cfg.Client,
			Timeout: cfg.ReportTimeout,
			Sinks:   cfg.Sinks,
			Metrics: cfg.Metrics,
			Logger:  logger,
		}),
		metrics:      cfg.Metrics,
		name:         name,
		pollInterval: pollInterval,
		lockTimeout:  lockTimeout,
		concurrency:  concurrency,
		logger:       logger,
	}
}

// Start запускает по одному потоку на каждый task type и возвращается.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	regs := w.registry.All()
	if len(regs) == 0 {
		return ErrNoRegistrations
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel
	w.started = true

	w.logger.Info("starting worker",
		"name", w.name,
		"task_types", len(regs),
		"poll_interval", w.pollInterval,
		"lock_timeout", w.lockTimeout,
	)

	for _, reg := range regs {
		if reg.Concurrency <= 0 {
			reg.Concurrency = w.concurrency
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runStream(ctx, reg)
		}()
	}

	w.logger.Info("worker started")
	return nil
}

// Stop прекращает активацию и ждёт завершения job'ов в обработке.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped || !w.started {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	// Ждём завершения потоков (и job'ов внутри них)
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// runStream — цикл активации job'ов одного task type.
func (w *Worker) runStream(ctx context.Context, reg Registration) {
	logger := telemetry.WithTaskType(w.logger, reg.TaskType)
	logger.Info("job stream started", "concurrency", reg.Concurrency)

	sem := semaphore.NewWeighted(int64(reg.Concurrency))
	var inFlight sync.WaitGroup
	defer inFlight.Wait()

	for {
		// Ждём хотя бы один свободный слот
		if err := sem.Acquire(ctx, 1); err != nil {
			logger.Info("job stream stopped")
			return
		}

		// Забираем все остальные свободные слоты
		slots := 1
		for slots < reg.Concurrency && sem.TryAcquire(1) {
			slots++
		}

		jobs, err := w.client.ActivateJobs(ctx, engine.ActivateRequest{
			TaskType:       reg.TaskType,
			MaxJobs:        slots,
			LockTimeout:    w.lockTimeout,
			WorkerName:     w.name,
			FetchVariables: reg.FetchVariables,
		})
		if err != nil {
			sem.Release(int64(slots))
			if ctx.Err() != nil {
				logger.Info("job stream stopped")
				return
			}
			logger.Error("failed to activate jobs", "error", err)
			if w.metrics != nil {
				w.metrics.ActivationErrors.WithLabelValues(reg.TaskType).Inc()
			}
			if !sleep(ctx, w.pollInterval) {
				return
			}
			continue
		}

		if len(jobs) > slots {
			// Движок не должен выдавать больше MaxJobs; лишние вернутся после истечения блокировки
			logger.Warn("engine returned more jobs than requested", "requested", slots, "got", len(jobs))
			jobs = jobs[:slots]
		}

		if unused := slots - len(jobs); unused > 0 {
			sem.Release(int64(unused))
		}

		if w.metrics != nil && len(jobs) > 0 {
			w.metrics.JobsActivated.WithLabelValues(reg.TaskType).Add(float64(len(jobs)))
		}

		for i := range jobs {
			job := jobs[i]
			inFlight.Add(1)
			go func() {
				defer inFlight.Done()
				defer sem.Release(1)
				w.process(ctx, reg, &job)
			}()
		}

		if len(jobs) == 0 {
			if !sleep(ctx, w.pollInterval) {
				return
			}
		}
	}
}

// process выполняет один job и отправляет его outcome.
func (w *Worker) process(ctx context.Context, reg Registration, job *domain.Job) {
	start := time.Now()

	if w.metrics != nil {
		gauge := w.metrics.JobsInFlight.WithLabelValues(reg.TaskType)
		gauge.Inc()
		defer gauge.Dec()
	}

	logger := telemetry.WithJob(w.logger, job)
	logger.Debug("job started", "retries", job.Retries, "deadline", job.Deadline)

	// Остановка worker'а не прерывает handler: job дорабатывается
	// в пределах своей блокировки.
	jobCtx := context.WithoutCancel(ctx)
	if !job.Deadline.IsZero() {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithDeadline(jobCtx, job.Deadline)
		defer cancel()
	}
	jobCtx = telemetry.WithLogger(jobCtx, logger)

	var out domain.Outcome
	if err := checkRequired(job, reg.Required); err != nil {
		out = domain.OutcomeFromError(job, err)
	} else {
		out = w.safeHandle(jobCtx, reg, job)
	}

	if w.metrics != nil {
		w.metrics.HandlerDuration.WithLabelValues(reg.TaskType).Observe(time.Since(start).Seconds())
	}

	if job.LockExpired(time.Now()) {
		logger.Warn("job lock expired before the outcome was reported", "deadline", job.Deadline)
	}

	// Ошибка уже залогирована Reporter'ом; движок выдаст job повторно
	_ = w.reporter.Report(ctx, job, out)
}

// sleep ждёт d или отмены ctx. false — ctx отменён.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
