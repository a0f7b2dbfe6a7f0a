package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shaiso/antrag-worker/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// dbtx — общее подмножество pgxpool.Pool и pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// JournalEntry — запись журнала outcome'ов.
type JournalEntry struct {
	ID                 uuid.UUID          `json:"id"`
	JobKey             int64              `json:"job_key"`
	TaskType           string             `json:"task_type"`
	ProcessInstanceKey int64              `json:"process_instance_key"`
	Worker             string             `json:"worker"`
	Outcome            domain.OutcomeKind `json:"outcome"`
	Fault              domain.FaultKind   `json:"fault,omitempty"`
	Retries            int                `json:"retries"`
	ErrorCode          string             `json:"error_code,omitempty"`
	ErrorMessage       string             `json:"error_message,omitempty"`
	Variables          []string           `json:"variables"`
	RecordedAt         time.Time          `json:"recorded_at"`
}

// NewJournalEntry строит запись из job и outcome.
// Сохраняются только имена выходных переменных.
func NewJournalEntry(job *domain.Job, out domain.Outcome, now time.Time) JournalEntry {
	vars := make([]string, 0, len(out.Variables))
	for name := range out.Variables {
		vars = append(vars, name)
	}
	sort.Strings(vars)

	return JournalEntry{
		ID:                 uuid.New(),
		JobKey:             job.Key,
		TaskType:           job.Type,
		ProcessInstanceKey: job.ProcessInstanceKey,
		Worker:             job.Worker,
		Outcome:            out.Kind,
		Fault:              out.Fault,
		Retries:            out.Retries,
		ErrorCode:          out.ErrorCode,
		ErrorMessage:       out.ErrorMessage,
		Variables:          vars,
		RecordedAt:         now.UTC(),
	}
}

// ListFilter — параметры выборки журнала.
type ListFilter struct {
	// TaskType — только этот task type (пусто — все).
	TaskType string

	// Limit — максимум записей (default: 50, max: 1000).
	Limit int
}

func (f ListFilter) normalize() (ListFilter, error) {
	if f.Limit < 0 {
		return f, fmt.Errorf("%w: negative limit %d", ErrInvalidFilter, f.Limit)
	}
	if f.Limit == 0 {
		f.Limit = defaultListLimit
	}
	f.Limit = min(f.Limit, maxListLimit)
	return f, nil
}

// JournalRepo — журнал outcome'ов, принятых движком.
//
// Только добавление и чтение для оператора: worker журнал не читает
// и решений по нему не принимает.
type JournalRepo struct {
	db  dbtx
	now func() time.Time
}

// NewJournalRepo создаёт JournalRepo. db — *pgxpool.Pool или pgx.Tx.
func NewJournalRepo(db dbtx) *JournalRepo {
	return &JournalRepo{db: db, now: time.Now}
}

// Record реализует worker.OutcomeSink.
func (r *JournalRepo) Record(ctx context.Context, job *domain.Job, out domain.Outcome) error {
	return r.Insert(ctx, NewJournalEntry(job, out, r.now()))
}

// Insert добавляет запись.
func (r *JournalRepo) Insert(ctx context.Context, e JournalEntry) error {
	varsJSON, err := json.Marshal(e.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}

	query := `
		INSERT INTO job_outcomes (id, job_key, task_type, process_instance_key, worker,
		                          outcome, fault, retries, error_code, error_message,
		                          variables, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.Exec(ctx, query,
		e.ID,
		e.JobKey,
		e.TaskType,
		e.ProcessInstanceKey,
		e.Worker,
		string(e.Outcome),
		string(e.Fault),
		e.Retries,
		e.ErrorCode,
		e.ErrorMessage,
		varsJSON,
		e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job outcome: %w", err)
	}
	return nil
}

// ListRecent возвращает последние записи, новые первыми.
func (r *JournalRepo) ListRecent(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	filter, err := filter.normalize()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, job_key, task_type, process_instance_key, worker, outcome, fault,
		       retries, error_code, error_message, variables, recorded_at
		FROM job_outcomes
		WHERE ($1 = '' OR task_type = $1)
		ORDER BY recorded_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, filter.TaskType, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("list job outcomes: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var (
			e        JournalEntry
			outcome  string
			fault    string
			varsJSON []byte
		)
		err := rows.Scan(
			&e.ID,
			&e.JobKey,
			&e.TaskType,
			&e.ProcessInstanceKey,
			&e.Worker,
			&outcome,
			&fault,
			&e.Retries,
			&e.ErrorCode,
			&e.ErrorMessage,
			&varsJSON,
			&e.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan job outcome: %w", err)
		}
		e.Outcome = domain.OutcomeKind(outcome)
		e.Fault = domain.FaultKind(fault)
		if err := json.Unmarshal(varsJSON, &e.Variables); err != nil {
			return nil, fmt.Errorf("unmarshal variables: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
