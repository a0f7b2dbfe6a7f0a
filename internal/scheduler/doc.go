// Package scheduler периодически проверяет доступность сервиса прогнозов.
//
// Probe по cron-расписанию (robfig/cron) вызывает Resolver с тестовым окном.
// Результат виден как gauge antrag_forecast_probe_ok (1 — успех, 0 — ошибка).
// Ошибки класса CONFIG (неверный API-ключ) логируются на уровне error,
// чтобы проблема была заметна до первого упавшего job.
//
// Выражение расписания — 5 полей (минута, час, день, месяц, день недели)
// или дескриптор (@every 15m, @hourly).
package scheduler
