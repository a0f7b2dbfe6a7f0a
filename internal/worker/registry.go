package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/antrag-worker/internal/domain"
)

// Handler обрабатывает один job.
//
// Возвращённые переменные уходят в COMPLETE (nil — без переменных).
// Ошибка переводится в FAIL или ERROR по классу (см. domain.OutcomeFromError).
type Handler interface {
	Handle(ctx context.Context, job *domain.Job) (map[string]any, error)
}

// HandlerFunc — адаптер функции к Handler.
type HandlerFunc func(ctx context.Context, job *domain.Job) (map[string]any, error)

// Handle реализует Handler.
func (f HandlerFunc) Handle(ctx context.Context, job *domain.Job) (map[string]any, error) {
	return f(ctx, job)
}

// Registration — привязка handler'а к task type.
type Registration struct {
	// TaskType — тип задачи в модели процесса.
	TaskType string

	// Concurrency — сколько job'ов этого типа обрабатывается одновременно.
	// 0 — значение по умолчанию worker'а.
	Concurrency int

	// Handler — обработчик.
	Handler Handler

	// FetchVariables — какие переменные запрашивать у движка. Пусто — все.
	FetchVariables []string

	// Required — переменные, без которых handler не вызывается (DATA_SHAPE).
	Required []string
}

// Registry — реестр handler'ов по task type.
type Registry struct {
	mu            sync.RWMutex
	registrations map[string]Registration
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{registrations: make(map[string]Registration)}
}

// Register добавляет handler для task type.
// Task type регистрируется не более одного раза.
func (r *Registry) Register(reg Registration) error {
	if reg.TaskType == "" {
		return fmt.Errorf("%w: task type is required", ErrInvalidRegistration)
	}
	if reg.Handler == nil {
		return fmt.Errorf("%w: handler is required for %s", ErrInvalidRegistration, reg.TaskType)
	}
	if reg.Concurrency < 0 {
		return fmt.Errorf("%w: negative concurrency for %s", ErrInvalidRegistration, reg.TaskType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registrations[reg.TaskType]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTaskType, reg.TaskType)
	}
	r.registrations[reg.TaskType] = reg
	return nil
}

// Get возвращает регистрацию для task type.
func (r *Registry) Get(taskType string) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.registrations[taskType]
	if !ok {
		return Registration{}, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}
	return reg, nil
}

// All возвращает все регистрации, отсортированные по task type.
func (r *Registry) All() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := make([]Registration, 0, len(r.registrations))
	for _, reg := range r.registrations {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].TaskType < regs[j].TaskType
	})
	return regs
}

// Len возвращает число зарегистрированных task type.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.registrations)
}
