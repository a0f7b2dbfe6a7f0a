package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/shaiso/antrag-worker/internal/domain"
	"github.com/shaiso/antrag-worker/internal/engine"
	"github.com/shaiso/antrag-worker/internal/telemetry"
)

const defaultReportTimeout = 10 * time.Second

// OutcomeSink получает каждый outcome, принятый движком.
// Реализации: mq.Publisher (события), repo.JournalRepo (журнал).
type OutcomeSink interface {
	Record(ctx context.Context, job *domain.Job, outcome domain.Outcome) error
}

// ReporterConfig — конфигурация Reporter.
type ReporterConfig struct {
	Client engine.Client

	// Timeout — таймаут отправки outcome (default: 10s).
	Timeout time.Duration

	// Sinks — получатели outcome'ов (опционально).
	Sinks []OutcomeSink

	// Metrics — опционально.
	Metrics *telemetry.Metrics

	Logger *slog.Logger
}

// Reporter отправляет outcome job'а в движок.
type Reporter struct {
	client  engine.Client
	timeout time.Duration
	sinks   []OutcomeSink
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewReporter создаёт Reporter.
func NewReporter(cfg ReporterConfig) *Reporter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultReportTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reporter{
		client:  cfg.Client,
		timeout: timeout,
		sinks:   cfg.Sinks,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// Report отправляет outcome в движок, затем уведомляет sink'и.
//
// Отправка не зависит от отмены ctx: job, обработанный во время
// остановки worker'а, всё равно получает свой outcome.
func (r *Reporter) Report(ctx context.Context, job *domain.Job, out domain.Outcome) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	logger := telemetry.WithJob(r.logger, job)

	var err error
	switch out.Kind {
	case domain.OutcomeComplete:
		err = r.client.CompleteJob(ctx, job.Key, out.Variables)
	case domain.OutcomeFail:
		err = r.client.FailJob(ctx, job.Key, out.Retries, out.ErrorMessage)
	case domain.OutcomeError:
		err = r.client.ThrowError(ctx, job.Key, out.ErrorCode, out.ErrorMessage)
	default:
		err = fmt.Errorf("unknown outcome kind %q", out.Kind)
	}

	if err != nil {
		if r.metrics != nil {
			r.metrics.OutcomeReportErr.WithLabelValues(job.Type, string(out.Kind)).Inc()
		}
		if errors.Is(err, engine.ErrJobNotFound) {
			// Блокировка истекла или job уже завершён другим экземпляром
			logger.Warn("job no longer held, outcome dropped", "outcome", out.Kind, "error", err)
		} else {
			logger.Error("failed to report outcome", "outcome", out.Kind, "error", err)
		}
		return fmt.Errorf("report %s for job %d: %w", out.Kind, job.Key, err)
	}

	if r.metrics != nil {
		r.metrics.JobOutcomes.WithLabelValues(job.Type, string(out.Kind), string(out.Fault)).Inc()
	}

	switch out.Kind {
	case domain.OutcomeComplete:
		logger.Info("job completed")
	case domain.OutcomeFail:
		logger.Warn("job failed",
			"retries", out.Retries,
			"fault", out.Fault,
			"error", out.ErrorMessage,
		)
	case domain.OutcomeError:
		logger.Warn("business error thrown",
			"error_code", out.ErrorCode,
			"error", out.ErrorMessage,
		)
	}

	for _, sink := range r.sinks {
		if err := sink.Record(ctx, job, out); err != nil {
			logger.Warn("outcome sink failed", "sink", fmt.Sprintf("%T", sink), "error", err)
		}
	}

	return nil
}

// safeHandle вызывает handler и переводит результат в Outcome.
// Паника handler'а становится транзиентным FAIL.
func (w *Worker) safeHandle(ctx context.Context, reg Registration, job *domain.Job) (out domain.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Error("handler panic recovered",
				"job_key", job.Key,
				"task_type", job.Type,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			if w.metrics != nil {
				w.metrics.HandlerPanics.WithLabelValues(job.Type).Inc()
			}
			out = domain.OutcomeFromError(job, domain.Transient(fmt.Errorf("%w: %v", ErrHandlerPanic, rec)))
		}
	}()

	vars, err := reg.Handler.Handle(ctx, job)
	if err != nil {
		return domain.OutcomeFromError(job, err)
	}
	return domain.Complete(vars)
}

// checkRequired проверяет обязательные переменные job.
func checkRequired(job *domain.Job, required []string) error {
	if len(required) == 0 {
		return nil
	}

	names, err := domain.VariableNames(job)
	if err != nil {
		return err
	}

	var missing []string
	for _, name := range required {
		if !names[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return domain.DataShapef("%w: %v (payload: %s)", ErrMissingVariables, missing, domain.Truncate(string(job.Variables), 200))
	}
	return nil
}
