// Package mq публикует события о результатах job'ов в RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchange, очереди, bindings
//   - publisher.go  — публикация OutcomeEvent (реализует worker.OutcomeSink)
//   - consumer.go   — потребление событий (antrag-cli events tail)
//
// Exchange antrag.jobs (direct), routing key по виду outcome:
//   - completed — job завершён
//   - failed    — FAIL (retries в событии; 0 означает incident)
//   - error     — бизнес-ошибка
//
// Публикация событий необязательна: worker работает и без RabbitMQ,
// ошибка публикации не меняет outcome job'а.
package mq
