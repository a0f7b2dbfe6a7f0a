// Package api содержит служебный HTTP сервер worker'а.
//
// Структура:
//   - handler.go        — Handler с DI (registry, probe, журнал, logger)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — middleware (logging, recovery)
//   - response.go       — унифицированные JSON-ответы и обработка ошибок
//   - status_handler.go — обработчики /healthz и /api/v1/*
//
// Все endpoints только читают состояние: управление job'ами
// остаётся за движком.
package api
