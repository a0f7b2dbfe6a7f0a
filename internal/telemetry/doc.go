// Package telemetry — логирование и метрики.
//
// Логгер строится на slog, формат и уровень задаются LOG_FORMAT и
// LOG_LEVEL. Логгер job'а передаётся в handler через context
// (WithLogger / FromContext) и уже содержит job_key и task_type.
//
// Метрики регистрируются в переданном prometheus.Registerer;
// worker отдаёт их на /metrics.
package telemetry
