// Package engine описывает соединение worker'а с движком оркестрации.
//
// Структура:
//   - engine.go — интерфейс Client и ActivateRequest
//   - zeebe.go  — реализация поверх Zeebe gRPC (Camunda 8)
//   - memory.go — движок в памяти для тестов и --dry-run
//
// Client передаётся явно в Dispatch, Completion и Correlation компоненты
// при их создании. Глобального клиента нет.
//
// Операции:
//   - ActivateJobs   — получить до MaxJobs job'ов заданного task type
//   - CompleteJob    — завершить job (с выходными переменными)
//   - FailJob        — сообщить о сбое с оставшимися retries
//   - ThrowError     — бизнес-ошибка с кодом для error boundary
//   - PublishMessage — опубликовать correlated message
package engine
