package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shaiso/antrag-worker/internal/domain"
)

type fakeDB struct {
	sql      string
	args     []any
	execErr  error
	queryErr error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.sql = sql
	f.args = args
	return nil, f.queryErr
}

func TestNewJournalEntry(t *testing.T) {
	job := &domain.Job{Key: 10, Type: "optimalenStartErmitteln", ProcessInstanceKey: 9, Worker: "w1"}
	out := domain.Complete(map[string]any{"bestStart": "x", "alpha": 1})
	now := time.Date(2024, 1, 15, 11, 0, 0, 0, time.FixedZone("CET", 3600))

	e := NewJournalEntry(job, out, now)

	if e.JobKey != 10 || e.TaskType != job.Type || e.Worker != "w1" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Outcome != domain.OutcomeComplete {
		t.Errorf("expected COMPLETE, got %s", e.Outcome)
	}
	if len(e.Variables) != 2 || e.Variables[0] != "alpha" || e.Variables[1] != "bestStart" {
		t.Errorf("expected sorted variable names, got %v", e.Variables)
	}
	if e.RecordedAt.Location() != time.UTC || !e.RecordedAt.Equal(now) {
		t.Errorf("expected UTC timestamp, got %v", e.RecordedAt)
	}
}

func TestJournalRepo_Record(t *testing.T) {
	db := &fakeDB{}
	r := NewJournalRepo(db)

	job := &domain.Job{Key: 10, Type: "sendRejection", Retries: 3}
	out := domain.OutcomeFromError(job, domain.Transient(errors.New("unavailable")))

	if err := r.Record(context.Background(), job, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(db.sql, "INSERT INTO job_outcomes") {
		t.Errorf("unexpected sql: %s", db.sql)
	}
	if len(db.args) != 12 {
		t.Fatalf("expected 12 args, got %d", len(db.args))
	}
	if db.args[5] != "FAIL" || db.args[6] != "TRANSIENT" || db.args[7] != 2 {
		t.Errorf("unexpected outcome args: %v", db.args[5:8])
	}

	var vars []string
	if err := json.Unmarshal(db.args[10].([]byte), &vars); err != nil || len(vars) != 0 {
		t.Errorf("expected empty JSON array, got %s", db.args[10])
	}
}

func TestJournalRepo_InsertError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection refused")}
	r := NewJournalRepo(db)

	err := r.Record(context.Background(), &domain.Job{Key: 1}, domain.Complete(nil))
	if err == nil || !strings.Contains(err.Error(), "insert job outcome") {
		t.Errorf("expected wrapped insert error, got %v", err)
	}
}

func TestJournalRepo_ListRecentFilter(t *testing.T) {
	db := &fakeDB{queryErr: errors.New("stop")}
	r := NewJournalRepo(db)

	r.ListRecent(context.Background(), ListFilter{TaskType: "sendRejection"})
	if db.args[0] != "sendRejection" || db.args[1] != defaultListLimit {
		t.Errorf("unexpected args: %v", db.args)
	}

	r.ListRecent(context.Background(), ListFilter{Limit: 5000})
	if db.args[1] != maxListLimit {
		t.Errorf("expected limit capped at %d, got %v", maxListLimit, db.args[1])
	}

	if _, err := r.ListRecent(context.Background(), ListFilter{Limit: -1}); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestNewPool_NotConfigured(t *testing.T) {
	if _, err := NewPool(context.Background(), ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
