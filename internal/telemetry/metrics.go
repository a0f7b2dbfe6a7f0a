package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "antrag"

// Metrics — Prometheus-метрики worker'а.
//
// Регистрируются в переданном Registerer, а не в глобальном реестре,
// чтобы тесты могли создавать изолированные экземпляры.
type Metrics struct {
	JobsActivated    *prometheus.CounterVec
	ActivationErrors *prometheus.CounterVec
	JobOutcomes      *prometheus.CounterVec
	OutcomeReportErr *prometheus.CounterVec
	HandlerDuration  *prometheus.HistogramVec
	HandlerPanics    *prometheus.CounterVec
	JobsInFlight     *prometheus.GaugeVec

	MessagesPublished *prometheus.CounterVec
	ForecastRequests  *prometheus.CounterVec
	ForecastProbeOK   prometheus.Gauge
}

// NewMetrics создаёт и регистрирует метрики.
// reg == nil — метрики создаются, но не регистрируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsActivated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_activated_total",
			Help:      "Jobs activated from the engine.",
		}, []string{"task_type"}),
		ActivationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_activation_errors_total",
			Help:      "Failed job activation requests.",
		}, []string{"task_type"}),
		JobOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_outcomes_total",
			Help:      "Job outcomes reported to the engine.",
		}, []string{"task_type", "outcome", "fault"}),
		OutcomeReportErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_outcome_report_errors_total",
			Help:      "Outcomes the engine did not accept.",
		}, []string{"task_type", "outcome"}),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_handler_duration_seconds",
			Help:      "Handler execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task_type"}),
		HandlerPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_handler_panics_total",
			Help:      "Recovered handler panics.",
		}, []string{"task_type"}),
		JobsInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Jobs currently being handled.",
		}, []string{"task_type"}),
		MessagesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Correlated messages published to the engine.",
		}, []string{"name", "result"}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_requests_total",
			Help:      "Requests to the carbon forecast service by status class.",
		}, []string{"status"}),
		ForecastProbeOK: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forecast_probe_ok",
			Help:      "1 if the last forecast API probe succeeded, 0 otherwise.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.JobsActivated,
			m.ActivationErrors,
			m.JobOutcomes,
			m.OutcomeReportErr,
			m.HandlerDuration,
			m.HandlerPanics,
			m.JobsInFlight,
			m.MessagesPublished,
			m.ForecastRequests,
			m.ForecastProbeOK,
		)
	}

	return m
}

// StatusClass сворачивает HTTP-код в класс для метки: "2xx", "4xx", ...
// 0 — сетевая ошибка, ответа нет.
func StatusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	if code == 403 || code == 401 || code == 429 {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code/100) + "xx"
}
