package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shaiso/antrag-worker/internal/domain"
	"github.com/shaiso/antrag-worker/internal/repo"
	"github.com/shaiso/antrag-worker/internal/telemetry"
)

// WorkerResponse — регистрация task type.
type WorkerResponse struct {
	TaskType       string   `json:"task_type"`
	Concurrency    int      `json:"concurrency"`
	FetchVariables []string `json:"fetch_variables,omitempty"`
	Required       []string `json:"required,omitempty"`
}

// ProbeResponse — результат последней проверки сервиса прогнозов.
type ProbeResponse struct {
	Checked   bool             `json:"checked"`
	At        *time.Time       `json:"at,omitempty"`
	OK        bool             `json:"ok"`
	BestStart string           `json:"best_start,omitempty"`
	Fault     domain.FaultKind `json:"fault,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// EventsResponse — состояние sink'а событий.
type EventsResponse struct {
	Connected bool `json:"connected"`
}

// Healthz отвечает 200, пока worker принимает job'ы.
// Разрыв с RabbitMQ не делает worker нездоровым: sink необязателен,
// но попадает в тело ответа.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.health != nil && h.health.IsStopped() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("stopping"))
		return
	}
	w.WriteHeader(http.StatusOK)
	if h.broker != nil && !h.broker.IsConnected() {
		w.Write([]byte("ok (events sink disconnected)"))
		return
	}
	w.Write([]byte("ok"))
}

// GetEvents возвращает состояние соединения с RabbitMQ.
// GET /api/v1/events
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		NotConfigured(w, "outcome events are disabled")
		return
	}
	if !h.broker.IsConnected() {
		Error(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "events broker disconnected, reconnecting")
		return
	}
	Success(w, EventsResponse{Connected: true})
}

// ListWorkers возвращает зарегистрированные task type'ы.
// GET /api/v1/workers
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		List(w, []WorkerResponse{}, 0)
		return
	}

	regs := h.registry.All()
	result := make([]WorkerResponse, len(regs))
	for i, reg := range regs {
		result[i] = WorkerResponse{
			TaskType:       reg.TaskType,
			Concurrency:    reg.Concurrency,
			FetchVariables: reg.FetchVariables,
			Required:       reg.Required,
		}
	}

	List(w, result, len(result))
}

// GetProbe возвращает результат последней проверки API-ключа.
// GET /api/v1/probe
func (h *Handler) GetProbe(w http.ResponseWriter, r *http.Request) {
	if h.probe == nil {
		NotConfigured(w, "forecast probe is disabled")
		return
	}

	last := h.probe.Last()
	resp := ProbeResponse{
		Checked:   !last.At.IsZero(),
		OK:        last.OK,
		BestStart: last.BestStart,
		Fault:     last.Fault,
		Error:     last.Error,
	}
	if resp.Checked {
		resp.At = &last.At
	}

	Success(w, resp)
}

// ListJournal возвращает последние outcome'ы.
// GET /api/v1/journal?task_type=...&limit=...
func (h *Handler) ListJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		NotConfigured(w, "outcome journal is disabled")
		return
	}

	filter := repo.ListFilter{TaskType: r.URL.Query().Get("task_type")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			BadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = limit
	}

	entries, err := h.journal.ListRecent(r.Context(), filter)
	if HandleRepoError(w, telemetry.FromContext(r.Context()), err) {
		return
	}

	List(w, entries, len(entries))
}
