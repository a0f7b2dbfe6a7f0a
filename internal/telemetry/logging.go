package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shaiso/antrag-worker/internal/domain"
)

// ParseLevel разбирает уровень логирования без учёта регистра:
// debug, info, warn, error. Пустое или неизвестное значение — INFO.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LogLevel возвращает уровень из LOG_LEVEL.
func LogLevel() slog.Level {
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// NewLogger создаёт логгер. format "text" — человекочитаемый вывод,
// любое другое значение — JSON.
func NewLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// SetupLogger инициализирует глобальный логгер процесса.
//
// Формат вывода определяется переменной LOG_FORMAT:
//   - "json" (по умолчанию) — JSON формат для production
//   - "text" — человекочитаемый формат для разработки
func SetupLogger(service string) *slog.Logger {
	logger := NewLogger(os.Stdout, os.Getenv("LOG_FORMAT"), LogLevel()).With("service", service)
	slog.SetDefault(logger)
	return logger
}

type ctxKey struct{}

// WithLogger добавляет логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext извлекает логгер из контекста.
// Если логгер не найден, возвращает глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithTaskType возвращает логгер с добавленным task_type.
func WithTaskType(logger *slog.Logger, taskType string) *slog.Logger {
	return logger.With("task_type", taskType)
}

// WithJob возвращает логгер с атрибутами job: ключ, тип, process instance.
func WithJob(logger *slog.Logger, job *domain.Job) *slog.Logger {
	attrs := []any{"job_key", job.Key, "task_type", job.Type}
	if job.ProcessInstanceKey != 0 {
		attrs = append(attrs, "process_instance_key", job.ProcessInstanceKey)
	}
	if job.BpmnProcessID != "" {
		attrs = append(attrs, "bpmn_process_id", job.BpmnProcessID)
	}
	return logger.With(attrs...)
}
