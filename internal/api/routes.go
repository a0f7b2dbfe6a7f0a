package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Служебные: без логирования, их опрашивают часто
	mux.Handle("GET /healthz", Recovery(h.logger)(http.HandlerFunc(h.Healthz)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	mux.Handle("GET /api/v1/workers", chain(http.HandlerFunc(h.ListWorkers)))
	mux.Handle("GET /api/v1/probe", chain(http.HandlerFunc(h.GetProbe)))
	mux.Handle("GET /api/v1/events", chain(http.HandlerFunc(h.GetEvents)))
	mux.Handle("GET /api/v1/journal", chain(http.HandlerFunc(h.ListJournal)))
}
