package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shaiso/antrag-worker/internal/domain"
)

const defaultLockTimeout = 5 * time.Minute

// JobState — состояние job в Memory.
type JobState string

const (
	JobStateAvailable JobState = "AVAILABLE"
	JobStateActivated JobState = "ACTIVATED"
	JobStateCompleted JobState = "COMPLETED"
	JobStateIncident  JobState = "INCIDENT"
	JobStateErrored   JobState = "ERROR_THROWN"
)

// RecordedOutcome — outcome, полученный Memory.
type RecordedOutcome struct {
	JobKey   int64
	TaskType string
	Outcome  domain.Outcome
}

type memJob struct {
	job         domain.Job
	vars        map[string]any
	state       JobState
	lockedUntil time.Time
	activations int
}

// Memory — движок в памяти.
//
// Соблюдает семантику, важную для worker'а:
//   - job выдаётся только если он свободен или его блокировка истекла
//   - FAIL с retries > 0 возвращает job в очередь, с 0 — incident
//   - outcome для незаблокированного или завершённого job → ErrJobNotFound
//
// Используется в тестах и в CLI с флагом --dry-run.
type Memory struct {
	mu sync.Mutex

	now     func() time.Time
	nextKey int64
	jobs    map[int64]*memJob
	order   []int64

	outcomes []RecordedOutcome
	messages []domain.CorrelationMessage

	activateErr error
	publishErr  error
	outcomeErr  error
	closed      bool
}

// NewMemory создаёт пустой движок в памяти.
func NewMemory() *Memory {
	return &Memory{
		now:     time.Now,
		nextKey: 2251799813685248,
		jobs:    make(map[int64]*memJob),
	}
}

// SetClock подменяет источник времени.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetActivateError заставляет ActivateJobs возвращать err (nil — сброс).
func (m *Memory) SetActivateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activateErr = err
}

// SetPublishError заставляет PublishMessage возвращать err (nil — сброс).
func (m *Memory) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishErr = err
}

// SetOutcomeError заставляет Complete/Fail/ThrowError возвращать err.
func (m *Memory) SetOutcomeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomeErr = err
}

// CreateJob добавляет job заданного типа и возвращает его ключ.
func (m *Memory) CreateJob(taskType string, vars map[string]any, retries int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextKey++
	key := m.nextKey

	if vars == nil {
		vars = map[string]any{}
	}

	m.jobs[key] = &memJob{
		job: domain.Job{
			Key:                key,
			Type:               taskType,
			Retries:            retries,
			ProcessInstanceKey: key - 1,
			BpmnProcessID:      "antrag",
		},
		vars:  vars,
		state: JobStateAvailable,
	}
	m.order = append(m.order, key)
	return key
}

// ActivateJobs реализует Client.
func (m *Memory) ActivateJobs(ctx context.Context, req ActivateRequest) ([]domain.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.activateErr != nil {
		return nil, m.activateErr
	}

	lock := req.LockTimeout
	if lock <= 0 {
		lock = defaultLockTimeout
	}

	now := m.now()
	var jobs []domain.Job

	for _, key := range m.order {
		if len(jobs) >= req.MaxJobs {
			break
		}

		mj := m.jobs[key]
		if mj.job.Type != req.TaskType {
			continue
		}

		redeliverable := mj.state == JobStateActivated && !now.Before(mj.lockedUntil)
		if mj.state != JobStateAvailable && !redeliverable {
			continue
		}

		mj.state = JobStateActivated
		mj.lockedUntil = now.Add(lock)
		mj.activations++
		mj.job.Deadline = mj.lockedUntil
		mj.job.Worker = req.WorkerName

		job := mj.job
		vars, err := json.Marshal(filterVariables(mj.vars, req.FetchVariables))
		if err != nil {
			return nil, fmt.Errorf("marshal variables of job %d: %w", key, err)
		}
		job.Variables = vars
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func filterVariables(vars map[string]any, names []string) map[string]any {
	if len(names) == 0 {
		return vars
	}
	out := make(map[string]any, len(names))
	for _, name := range names {
		if v, ok := vars[name]; ok {
			out[name] = v
		}
	}
	return out
}

// CompleteJob реализует Client.
func (m *Memory) CompleteJob(_ context.Context, key int64, vars map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mj, err := m.activatedJob(key)
	if err != nil {
		return err
	}

	mj.state = JobStateCompleted
	for k, v := range vars {
		mj.vars[k] = v
	}
	m.record(mj, domain.Complete(vars))
	return nil
}

// FailJob реализует Client.
func (m *Memory) FailJob(_ context.Context, key int64, retries int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mj, err := m.activatedJob(key)
	if err != nil {
		return err
	}

	mj.job.Retries = retries
	if retries > 0 {
		mj.state = JobStateAvailable
	} else {
		mj.state = JobStateIncident
	}
	m.record(mj, domain.Fail(retries, message))
	return nil
}

// ThrowError реализует Client.
func (m *Memory) ThrowError(_ context.Context, key int64, code, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mj, err := m.activatedJob(key)
	if err != nil {
		return err
	}

	mj.state = JobStateErrored
	m.record(mj, domain.RaiseError(code, message))
	return nil
}

// PublishMessage реализует Client.
func (m *Memory) PublishMessage(ctx context.Context, msg domain.CorrelationMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.publishErr != nil {
		return m.publishErr
	}
	if msg.Name == "" {
		return fmt.Errorf("%w: message name is required", ErrInvalidRequest)
	}

	m.messages = append(m.messages, msg)
	return nil
}

// Close реализует Client.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// ExpireLocks сдвигает блокировки всех активных job'ов в прошлое —
// следующая активация выдаст их повторно.
func (m *Memory) ExpireLocks() {
	m.mu.Lock()
	defer m.mu.Unlock()

	past := m.now().Add(-time.Second)
	for _, mj := range m.jobs {
		if mj.state == JobStateActivated {
			mj.lockedUntil = past
		}
	}
}

// Outcomes возвращает копию полученных outcome'ов.
func (m *Memory) Outcomes() []RecordedOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedOutcome(nil), m.outcomes...)
}

// Messages возвращает копию опубликованных сообщений.
func (m *Memory) Messages() []domain.CorrelationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CorrelationMessage(nil), m.messages...)
}

// State возвращает состояние job.
func (m *Memory) State(key int64) JobState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mj, ok := m.jobs[key]; ok {
		return mj.state
	}
	return ""
}

// Activations возвращает, сколько раз job был выдан.
func (m *Memory) Activations(key int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mj, ok := m.jobs[key]; ok {
		return mj.activations
	}
	return 0
}

func (m *Memory) activatedJob(key int64) (*memJob, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if m.outcomeErr != nil {
		return nil, m.outcomeErr
	}

	mj, ok := m.jobs[key]
	if !ok || mj.state != JobStateActivated {
		return nil, fmt.Errorf("%w: %d", ErrJobNotFound, key)
	}
	return mj, nil
}

func (m *Memory) record(mj *memJob, out domain.Outcome) {
	m.outcomes = append(m.outcomes, RecordedOutcome{
		JobKey:   mj.job.Key,
		TaskType: mj.job.Type,
		Outcome:  out,
	})
}
