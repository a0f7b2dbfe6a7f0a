package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shaiso/antrag-worker/internal/correlation"
	"github.com/shaiso/antrag-worker/internal/domain"
	"github.com/shaiso/antrag-worker/internal/engine"
	"github.com/shaiso/antrag-worker/internal/forecast"
	"github.com/shaiso/antrag-worker/internal/worker"
)

type stubResolver struct {
	result domain.OptimalStart
	err    error
	calls  []int
}

func (s *stubResolver) Resolve(ctx context.Context, windowSize int) (domain.OptimalStart, error) {
	s.calls = append(s.calls, windowSize)
	return s.result, s.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

// run запускает worker со всеми handler'ами до терминального состояния job.
func run(t *testing.T, mem *engine.Memory, resolver StartResolver, key int64) {
	t.Helper()

	reg := worker.NewRegistry()
	deps := Deps{
		Publisher: correlation.NewPublisher(correlation.Config{Client: mem}),
		Resolver:  resolver,
	}
	if err := Register(reg, deps, 4); err != nil {
		t.Fatalf("register: %v", err)
	}

	w := worker.New(worker.Config{Client: mem, Registry: reg, PollInterval: 5 * time.Millisecond})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	waitFor(t, func() bool {
		switch mem.State(key) {
		case engine.JobStateCompleted, engine.JobStateIncident, engine.JobStateErrored:
			return true
		}
		return false
	})
}

func TestSendRejection(t *testing.T) {
	mem := engine.NewMemory()
	key := mem.CreateJob(TaskSendRejection, map[string]any{"customerID": 12345}, 3)

	run(t, mem, &stubResolver{}, key)

	msgs := mem.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly 1 message, got %d", len(msgs))
	}
	msg := msgs[0]
	if msg.Name != MessageRejection {
		t.Errorf("expected %s, got %s", MessageRejection, msg.Name)
	}
	if msg.CorrelationKey != "12345" {
		t.Errorf("expected key 12345, got %q", msg.CorrelationKey)
	}
	if msg.TimeToLive != 0 {
		t.Errorf("expected ttl 0, got %v", msg.TimeToLive)
	}
	if !reflect.DeepEqual(msg.Variables, map[string]any{"rejectionSent": true}) {
		t.Errorf("unexpected variables: %v", msg.Variables)
	}

	outcomes := mem.Outcomes()
	if len(outcomes) != 1 || outcomes[0].Outcome.Kind != domain.OutcomeComplete {
		t.Fatalf("expected one COMPLETE, got %+v", outcomes)
	}
	if len(outcomes[0].Outcome.Variables) != 0 {
		t.Errorf("expected no output variables, got %v", outcomes[0].Outcome.Variables)
	}
}

func TestSendRejection_StringCustomerID(t *testing.T) {
	mem := engine.NewMemory()
	key := mem.CreateJob(TaskSendRejection, map[string]any{"customerID": "C-7"}, 3)

	run(t, mem, &stubResolver{}, key)

	if got := mem.Messages()[0].CorrelationKey; got != "C-7" {
		t.Errorf("expected key C-7, got %q", got)
	}
}

func TestSendRejection_PublishFailure(t *testing.T) {
	mem := engine.NewMemory()
	mem.SetPublishError(engine.ErrUnavailable)
	key := mem.CreateJob(TaskSendRejection, map[string]any{"customerID": 1}, 1)

	run(t, mem, &stubResolver{}, key)

	for _, o := range mem.Outcomes() {
		if o.Outcome.Kind == domain.OutcomeComplete {
			t.Fatal("job must not complete when publish fails")
		}
	}
	out := mem.Outcomes()[0].Outcome
	if out.Kind != domain.OutcomeFail || out.Fault != domain.FaultTransient {
		t.Errorf("expected transient FAIL, got %+v", out)
	}
}

func TestSendRejection_MissingCustomerID(t *testing.T) {
	mem := engine.NewMemory()
	key := mem.CreateJob(TaskSendRejection, map[string]any{}, 3)

	run(t, mem, &stubResolver{}, key)

	if mem.State(key) != engine.JobStateIncident {
		t.Errorf("expected INCIDENT, got %s", mem.State(key))
	}
	if len(mem.Messages()) != 0 {
		t.Error("nothing should be published")
	}
}

func TestSendReminder(t *testing.T) {
	mem := engine.NewMemory()
	key := mem.CreateJob(TaskSendReminder, map[string]any{"customerID": 42}, 3)

	run(t, mem, &stubResolver{}, key)

	msgs := mem.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Name != MessageReminder || msgs[0].CorrelationKey != "42" {
		t.Errorf("unexpected message: %+v", msgs[0])
	}
	if !reflect.DeepEqual(msgs[0].Variables, map[string]any{"reminderSent": true}) {
		t.Errorf("unexpected variables: %v", msgs[0].Variables)
	}
	if mem.State(key) != engine.JobStateCompleted {
		t.Errorf("expected COMPLETED, got %s", mem.State(key))
	}
}

func TestNoopHandlers(t *testing.T) {
	for _, taskType := range []string{TaskSendCancellation, TaskCreateContract, TaskSendAcceptance, TaskConfirmWithdrawal} {
		mem := engine.NewMemory()
		key := mem.CreateJob(taskType, map[string]any{"customerID": 1}, 3)

		run(t, mem, &stubResolver{}, key)

		outcomes := mem.Outcomes()
		if len(outcomes) != 1 || outcomes[0].Outcome.Kind != domain.OutcomeComplete {
			t.Errorf("%s: expected one COMPLETE, got %+v", taskType, outcomes)
			continue
		}
		if len(outcomes[0].Outcome.Variables) != 0 {
			t.Errorf("%s: expected no variables", taskType)
		}
		if len(mem.Messages()) != 0 {
			t.Errorf("%s: nothing should be published", taskType)
		}
	}
}

func TestOptimalStart(t *testing.T) {
	mem := engine.NewMemory()
	key := mem.CreateJob(TaskOptimalStart, map[string]any{"windowSize": "30"}, 3)

	resolver := &stubResolver{result: domain.OptimalStart{BestStart: "2024-01-15T11:00:00+01:00"}}
	run(t, mem, resolver, key)

	out := mem.Outcomes()[0].Outcome
	if out.Kind != domain.OutcomeComplete {
		t.Fatalf("expected COMPLETE, got %+v", out)
	}
	if !reflect.DeepEqual(out.Variables, map[string]any{"bestStart": "2024-01-15T11:00:00+01:00"}) {
		t.Errorf("unexpected variables: %v", out.Variables)
	}
	if len(resolver.calls) != 1 || resolver.calls[0] != 30 {
		t.Errorf("expected resolve(30), got %v", resolver.calls)
	}
}

func TestOptimalStart_NonNumericWindow(t *testing.T) {
	mem := engine.NewMemory()
	key := mem.CreateJob(TaskOptimalStart, map[string]any{"windowSize": "abc"}, 3)

	resolver := &stubResolver{}
	run(t, mem, resolver, key)

	out := mem.Outcomes()[0].Outcome
	if out.Kind != domain.OutcomeFail || out.Retries != 0 || out.Fault != domain.FaultDataShape {
		t.Errorf("expected DATA_SHAPE FAIL with 0 retries, got %+v", out)
	}
	if len(resolver.calls) != 0 {
		t.Error("resolver must not be called with a non-numeric window")
	}
}

func TestOptimalStart_Forbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	resolver, err := forecast.NewResolver(forecast.ResolverConfig{
		Source: forecast.NewClient(forecast.ClientConfig{BaseURL: server.URL, APIKey: "wrong"}),
	})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	mem := engine.NewMemory()
	key := mem.CreateJob(TaskOptimalStart, map[string]any{"windowSize": 30}, 3)

	run(t, mem, resolver, key)

	out := mem.Outcomes()[0].Outcome
	if out.Kind != domain.OutcomeFail || out.Retries != 0 {
		t.Fatalf("expected FAIL with 0 retries, got %+v", out)
	}
	if !strings.Contains(out.ErrorMessage, "API key") {
		t.Errorf("expected API key message, got %q", out.ErrorMessage)
	}
	if out.Variables != nil {
		t.Errorf("no output variables expected, got %v", out.Variables)
	}
}

func TestOptimalStart_EmptyOptimalPoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"location":"germanywestcentral","optimalDataPoints":[]}]`))
	}))
	defer server.Close()

	resolver, err := forecast.NewResolver(forecast.ResolverConfig{
		Source: forecast.NewClient(forecast.ClientConfig{BaseURL: server.URL, APIKey: "key"}),
	})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	mem := engine.NewMemory()
	key := mem.CreateJob(TaskOptimalStart, map[string]any{"windowSize": 0}, 3)

	run(t, mem, resolver, key)

	out := mem.Outcomes()[0].Outcome
	if out.Kind != domain.OutcomeFail || out.Fault != domain.FaultDataShape {
		t.Errorf("expected DATA_SHAPE FAIL, got %+v", out)
	}
}

func TestRedeliveryRepeatsSameEffect(t *testing.T) {
	mem := engine.NewMemory()
	key := mem.CreateJob(TaskSendRejection, map[string]any{"customerID": 99}, 3)

	reg := worker.NewRegistry()
	deps := Deps{
		Publisher: correlation.NewPublisher(correlation.Config{Client: mem}),
		Resolver:  &stubResolver{},
	}
	if err := Register(reg, deps, 0); err != nil {
		t.Fatalf("register: %v", err)
	}
	binding, err := reg.Get(TaskSendRejection)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	req := engine.ActivateRequest{TaskType: TaskSendRejection, MaxJobs: 1}

	// Первая попытка: handler отработал, но outcome не дошёл до движка
	jobs, _ := mem.ActivateJobs(context.Background(), req)
	if _, err := binding.Handler.Handle(context.Background(), &jobs[0]); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Блокировка истекла, движок выдаёт job повторно
	mem.ExpireLocks()
	jobs, _ = mem.ActivateJobs(context.Background(), req)
	if len(jobs) != 1 || jobs[0].Key != key {
		t.Fatalf("expected redelivery of job %d", key)
	}
	vars, err := binding.Handler.Handle(context.Background(), &jobs[0])
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if err := mem.CompleteJob(context.Background(), key, vars); err != nil {
		t.Fatalf("complete: %v", err)
	}

	msgs := mem.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 publishes (at-least-once), got %d", len(msgs))
	}
	if !reflect.DeepEqual(msgs[0], msgs[1]) {
		t.Errorf("redelivery must publish the same message: %+v vs %+v", msgs[0], msgs[1])
	}
}

func TestRegister_DuplicateIsConfigError(t *testing.T) {
	reg := worker.NewRegistry()
	deps := Deps{Publisher: correlation.NewPublisher(correlation.Config{Client: engine.NewMemory()}), Resolver: &stubResolver{}}

	if err := Register(reg, deps, 0); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(reg, deps, 0); !errors.Is(err, worker.ErrDuplicateTaskType) {
		t.Errorf("expected ErrDuplicateTaskType, got %v", err)
	}
	if reg.Len() != len(Catalog()) {
		t.Errorf("expected %d registrations, got %d", len(Catalog()), reg.Len())
	}
}

func TestRegister_MissingDeps(t *testing.T) {
	if err := Register(worker.NewRegistry(), Deps{}, 0); !errors.Is(err, worker.ErrInvalidRegistration) {
		t.Errorf("expected ErrInvalidRegistration, got %v", err)
	}
}
