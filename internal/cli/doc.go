// Package cli реализует операторскую утилиту antrag.
//
// # Обзор
//
// CLI использует те же пакеты, что и worker: engine, correlation,
// forecast, mq, repo. Конфигурация берётся из окружения
// (и .env файла через --env-file).
//
// # Ключевые компоненты
//
// ## Env
//
// Ленивая сборка зависимостей: соединение с движком, Resolver,
// RabbitMQ, Postgres создаются только той командой, которой они нужны.
// С флагом --dry-run вместо Zeebe используется engine.Memory.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: antrag journal list --json | jq .
//
// ## Commands
//
//   - workers: каталог task type'ов
//   - forecast best-start: однократный расчёт оптимального старта
//   - message publish: публикация correlated message
//   - events tail: события outcome'ов из RabbitMQ
//   - journal list: журнал outcome'ов из Postgres
//
// Каждая команда создаётся фабричной функцией (NewWorkersCmd и т.д.),
// принимающей envFn и outputFn — замыкания для ленивого создания
// Env и Output после парсинга PersistentFlags.
package cli
