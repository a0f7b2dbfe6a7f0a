package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/antrag-worker/internal/domain"
)

// Client — соединение с движком оркестрации.
//
// Все методы потокобезопасны: один Client разделяется всеми потоками
// job'ов всех task type.
type Client interface {
	// ActivateJobs запрашивает до req.MaxJobs свободных job'ов типа req.TaskType.
	// Пустой результат без ошибки означает, что работы сейчас нет.
	ActivateJobs(ctx context.Context, req ActivateRequest) ([]domain.Job, error)

	// CompleteJob завершает job. vars может быть nil.
	CompleteJob(ctx context.Context, key int64, vars map[string]any) error

	// FailJob сообщает о сбое. retries — оставшийся бюджет повторов.
	FailJob(ctx context.Context, key int64, retries int, message string) error

	// ThrowError сообщает о бизнес-ошибке.
	ThrowError(ctx context.Context, key int64, code, message string) error

	// PublishMessage публикует correlated message.
	PublishMessage(ctx context.Context, msg domain.CorrelationMessage) error

	// Close закрывает соединение.
	Close() error
}

// ActivateRequest — запрос на выдачу job'ов.
type ActivateRequest struct {
	// TaskType — тип задачи.
	TaskType string

	// MaxJobs — максимум job'ов в ответе.
	MaxJobs int

	// LockTimeout — на сколько движок блокирует выданные job'ы.
	LockTimeout time.Duration

	// WorkerName — имя worker'а (видно в Operate).
	WorkerName string

	// FetchVariables — какие переменные вернуть. Пусто — все.
	FetchVariables []string
}

// Validate проверяет запрос.
func (r ActivateRequest) Validate() error {
	if r.TaskType == "" {
		return fmt.Errorf("%w: task type is required", ErrInvalidRequest)
	}
	if r.MaxJobs <= 0 {
		return fmt.Errorf("%w: max jobs must be positive", ErrInvalidRequest)
	}
	return nil
}
