package handlers

import (
	"context"
	"fmt"

	"github.com/shaiso/antrag-worker/internal/correlation"
	"github.com/shaiso/antrag-worker/internal/domain"
	"github.com/shaiso/antrag-worker/internal/telemetry"
	"github.com/shaiso/antrag-worker/internal/worker"
)

// Task types.
const (
	TaskSendRejection     = "sendRejection"
	TaskSendReminder      = "AntragUnvollstaendigNachrichtVersenden"
	TaskSendCancellation  = "AbsageNachrichtVersenden"
	TaskCreateContract    = "vertragErstellen"
	TaskSendAcceptance    = "ZusageNachrichtVersenden"
	TaskConfirmWithdrawal = "stornierungsbestätigung"
	TaskOptimalStart      = "optimalenStartErmitteln"
)

// Имена сообщений.
const (
	MessageRejection = "Message_0mrwobu"
	MessageReminder  = "Message_AntragOnline"
)

// MessagePublisher публикует correlated message. Реализуется correlation.Publisher.
type MessagePublisher interface {
	Publish(ctx context.Context, name, correlationKey string, vars map[string]any) error
}

// StartResolver вычисляет оптимальное время старта. Реализуется forecast.Resolver.
type StartResolver interface {
	Resolve(ctx context.Context, windowSize int) (domain.OptimalStart, error)
}

// Deps — зависимости handler'ов.
type Deps struct {
	Publisher MessagePublisher
	Resolver  StartResolver
}

// Kind — вид элемента модели процесса, который обслуживает task type.
type Kind string

const (
	KindSendTask    Kind = "send task"
	KindThrowEvent  Kind = "intermediate throw event"
	KindEndEvent    Kind = "message end event"
	KindServiceTask Kind = "service task"
)

// Binding — описание одного task type.
type Binding struct {
	TaskType    string
	Kind        Kind
	Description string

	// Required — обязательные переменные.
	Required []string

	// Message — публикуемое сообщение (пусто, если handler ничего не публикует).
	Message string

	build func(Deps) worker.Handler
}

// Catalog возвращает все task type'ы в порядке регистрации.
func Catalog() []Binding {
	return []Binding{
		{
			TaskType:    TaskSendRejection,
			Kind:        KindSendTask,
			Description: "notify the applicant process about the rejection",
			Required:    []string{"customerID"},
			Message:     MessageRejection,
			build: func(d Deps) worker.Handler {
				return publishAndComplete(d.Publisher, MessageRejection, "rejectionSent")
			},
		},
		{
			TaskType:    TaskSendReminder,
			Kind:        KindThrowEvent,
			Description: "remind the applicant that the application is incomplete",
			Required:    []string{"customerID"},
			Message:     MessageReminder,
			build: func(d Deps) worker.Handler {
				return publishAndComplete(d.Publisher, MessageReminder, "reminderSent")
			},
		},
		{
			TaskType:    TaskSendCancellation,
			Kind:        KindEndEvent,
			Description: "cancellation notice (no side effect)",
			build:       func(Deps) worker.Handler { return noop() },
		},
		{
			TaskType:    TaskCreateContract,
			Kind:        KindServiceTask,
			Description: "contract creation (no side effect)",
			build:       func(Deps) worker.Handler { return noop() },
		},
		{
			TaskType:    TaskSendAcceptance,
			Kind:        KindEndEvent,
			Description: "acceptance notice (no side effect)",
			build:       func(Deps) worker.Handler { return noop() },
		},
		{
			TaskType:    TaskConfirmWithdrawal,
			Kind:        KindEndEvent,
			Description: "withdrawal confirmation (no side effect)",
			build:       func(Deps) worker.Handler { return noop() },
		},
		{
			TaskType:    TaskOptimalStart,
			Kind:        KindServiceTask,
			Description: "carbon-aware best start time for the requested window",
			Required:    []string{"windowSize"},
			build: func(d Deps) worker.Handler {
				return optimalStart(d.Resolver)
			},
		},
	}
}

// Register регистрирует все task type'ы каталога.
// concurrency — лимит одновременных job'ов на каждый task type (0 — по умолчанию worker'а).
func Register(reg *worker.Registry, deps Deps, concurrency int) error {
	if deps.Publisher == nil {
		return fmt.Errorf("%w: message publisher is required", worker.ErrInvalidRegistration)
	}
	if deps.Resolver == nil {
		return fmt.Errorf("%w: start resolver is required", worker.ErrInvalidRegistration)
	}

	for _, b := range Catalog() {
		err := reg.Register(worker.Registration{
			TaskType:    b.TaskType,
			Concurrency: concurrency,
			Handler:     b.build(deps),
			Required:    b.Required,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// publishAndComplete публикует сообщение name с ключом customerID
// и завершает job без переменных.
func publishAndComplete(pub MessagePublisher, name, flag string) worker.Handler {
	return worker.HandlerFunc(func(ctx context.Context, job *domain.Job) (map[string]any, error) {
		vars, err := domain.DecodeVariables[domain.CustomerVariables](job)
		if err != nil {
			return nil, err
		}

		key := correlation.CorrelationKey(vars.CustomerID)
		if err := pub.Publish(ctx, name, key, map[string]any{flag: true}); err != nil {
			return nil, err
		}

		telemetry.FromContext(ctx).Debug("notification sent", "message", name, "customer_id", key)
		return nil, nil
	})
}

// noop завершает job без переменных.
func noop() worker.Handler {
	return worker.HandlerFunc(func(ctx context.Context, job *domain.Job) (map[string]any, error) {
		return nil, nil
	})
}

// optimalStart вычисляет bestStart для windowSize из переменных job.
func optimalStart(resolver StartResolver) worker.Handler {
	return worker.HandlerFunc(func(ctx context.Context, job *domain.Job) (map[string]any, error) {
		vars, err := domain.DecodeVariables[domain.WindowVariables](job)
		if err != nil {
			return nil, err
		}

		result, err := resolver.Resolve(ctx, vars.Minutes())
		if err != nil {
			return nil, err
		}

		return map[string]any{"bestStart": result.BestStart}, nil
	})
}
