package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/shaiso/antrag-worker/internal/config"
	"github.com/shaiso/antrag-worker/internal/handlers"
)

// testIO — буферы вывода команды.
type testIO struct {
	stdout, stderr bytes.Buffer
	jsonMode       bool
}

func (io *testIO) output() *Output {
	return NewOutputTo(io.jsonMode, &io.stdout, &io.stderr)
}

// run выполняет команду и возвращает stdout и stderr.
func run(t *testing.T, build func(outputFn func() *Output) *cobra.Command, jsonMode bool, args ...string) (string, string, error) {
	t.Helper()
	io := &testIO{jsonMode: jsonMode}

	cmd := build(io.output)
	cmd.SetArgs(args)
	cmd.SetOut(&io.stderr)
	cmd.SetErr(&io.stderr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(context.Background())
	return io.stdout.String(), io.stderr.String(), err
}

// withEnv связывает фабрику команды с готовым Env.
func withEnv(factory func(func() *Env, func() *Output) *cobra.Command, env *Env) func(func() *Output) *cobra.Command {
	return func(outputFn func() *Output) *cobra.Command {
		return factory(func() *Env { return env }, outputFn)
	}
}

func TestWorkersCmd_Table(t *testing.T) {
	stdout, _, err := run(t, NewWorkersCmd, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(stdout, "TASK TYPE") {
		t.Errorf("expected table header, got:\n%s", stdout)
	}
	for _, b := range handlers.Catalog() {
		if !strings.Contains(stdout, b.TaskType) {
			t.Errorf("task type %s missing from output", b.TaskType)
		}
	}
	if !strings.Contains(stdout, handlers.MessageRejection) {
		t.Errorf("message name missing from output")
	}
}

func TestWorkersCmd_JSON(t *testing.T) {
	stdout, _, err := run(t, NewWorkersCmd, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var infos []workerInfo
	if err := json.Unmarshal([]byte(stdout), &infos); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(infos) != len(handlers.Catalog()) {
		t.Fatalf("expected %d entries, got %d", len(handlers.Catalog()), len(infos))
	}
	if infos[0].TaskType != handlers.TaskSendRejection {
		t.Errorf("expected catalog order, got %s first", infos[0].TaskType)
	}
}

func TestForecastBestStart(t *testing.T) {
	var gotWindow string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWindow = r.URL.Query().Get("windowSize")
		w.Write([]byte(`[{"optimalDataPoints":[{"timestamp":"2024-01-15T10:00:00Z","duration":30,"value":100}]}]`))
	}))
	defer server.Close()

	env := NewEnv(&config.Config{
		ForecastURL:    server.URL,
		ForecastAPIKey: "key",
		ForecastRPS:    100,
		Timezone:       "Europe/Berlin",
	}, true, nil)

	stdout, _, err := run(t, withEnv(NewForecastCmd, env), true, "best-start", "--window", "30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotWindow != "30" {
		t.Errorf("expected windowSize=30, got %q", gotWindow)
	}

	var result struct {
		BestStart string `json:"bestStart"`
	}
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.BestStart != "2024-01-15T11:00:00+01:00" {
		t.Errorf("unexpected bestStart: %s", result.BestStart)
	}
}

func TestForecastBestStart_NotConfigured(t *testing.T) {
	env := NewEnv(&config.Config{}, true, nil)

	_, _, err := run(t, withEnv(NewForecastCmd, env), false, "best-start")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestMessagePublish_DryRun(t *testing.T) {
	env := NewEnv(&config.Config{MessageTTL: time.Minute}, true, nil)
	defer env.Close()

	_, stderr, err := run(t, withEnv(NewMessageCmd, env), false,
		"publish", "Message_0mrwobu", "--key", "4711", "--var", "rejected=true", "--var", "reason=late")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr, "Dry run") {
		t.Errorf("expected dry run notice, got %q", stderr)
	}

	msgs := env.Memory().Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	msg := msgs[0]
	if msg.Name != "Message_0mrwobu" || msg.CorrelationKey != "4711" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.TimeToLive != time.Minute {
		t.Errorf("expected TTL from config, got %v", msg.TimeToLive)
	}
	if msg.Variables["rejected"] != true || msg.Variables["reason"] != "late" {
		t.Errorf("unexpected variables: %v", msg.Variables)
	}
}

func TestMessagePublish_TTLFlag(t *testing.T) {
	env := NewEnv(&config.Config{MessageTTL: time.Minute}, true, nil)

	_, _, err := run(t, withEnv(NewMessageCmd, env), false,
		"publish", "Message_AntragOnline", "--key", "1", "--ttl", "1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := env.Memory().Messages()[0].TimeToLive; got != time.Hour {
		t.Errorf("expected TTL 1h, got %v", got)
	}
}

func TestMessagePublish_NoEngine(t *testing.T) {
	env := NewEnv(&config.Config{}, false, nil)

	_, _, err := run(t, withEnv(NewMessageCmd, env), false, "publish", "Message_0mrwobu")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestJournalList_NotConfigured(t *testing.T) {
	env := NewEnv(&config.Config{}, false, nil)

	_, _, err := run(t, withEnv(NewJournalCmd, env), false, "list")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"a=true", "b=42", "c=1.5", "d=hello", "e=", "f=a=b", "g=True"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := map[string]any{
		"a": true,
		"b": float64(42),
		"c": 1.5,
		"d": "hello",
		"e": "",
		"f": "a=b",
		"g": "True",
	}
	for name, want := range expected {
		if vars[name] != want {
			t.Errorf("%s: expected %#v, got %#v", name, want, vars[name])
		}
	}
}

func TestParseVars_Invalid(t *testing.T) {
	for _, pair := range []string{"novalue", "=x"} {
		if _, err := parseVars([]string{pair}); !errors.Is(err, ErrInvalidVar) {
			t.Errorf("%q: expected ErrInvalidVar, got %v", pair, err)
		}
	}
}

func TestParseVars_NonFinite(t *testing.T) {
	for _, pair := range []string{"x=NaN", "x=Inf", "x=-inf", "x=infinity", "x=1e999"} {
		if _, err := parseVars([]string{pair}); !errors.Is(err, ErrInvalidVar) {
			t.Errorf("%q: expected ErrInvalidVar, got %v", pair, err)
		}
	}
}

func TestMessagePublish_NonFiniteVar(t *testing.T) {
	env := NewEnv(&config.Config{}, true, nil)

	_, _, err := run(t, withEnv(NewMessageCmd, env), false,
		"publish", "Message_0mrwobu", "--key", "1", "--var", "score=NaN")
	if !errors.Is(err, ErrInvalidVar) {
		t.Fatalf("expected ErrInvalidVar, got %v", err)
	}
	if env.Memory() != nil && len(env.Memory().Messages()) != 0 {
		t.Error("nothing must be published")
	}
}

func TestParseVars_Empty(t *testing.T) {
	vars, err := parseVars(nil)
	if err != nil || vars != nil {
		t.Errorf("expected nil map, got %v, %v", vars, err)
	}
}

func TestOutput_Record(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := NewOutputTo(false, &stdout, &stderr)

	out.Record([][2]string{{"Name", "Message_0mrwobu"}, {"TTL", "0s"}}, nil)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", stdout.String())
	}
	if !strings.HasPrefix(lines[0], "Name:") || !strings.HasSuffix(lines[0], "Message_0mrwobu") {
		t.Errorf("unexpected line: %q", lines[0])
	}
	if stderr.Len() != 0 {
		t.Errorf("expected nothing on stderr, got %q", stderr.String())
	}
}
