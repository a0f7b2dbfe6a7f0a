package domain

// OutcomeKind — вид терминального результата job.
//
// Жизненный цикл job с точки зрения worker'а:
//
//	ACTIVATED → COMPLETE
//	          ↘ FAIL  (движок может выдать job повторно, если retries > 0)
//	          ↘ ERROR (движок направляет процесс по error boundary)
type OutcomeKind string

const (
	// OutcomeComplete — job успешно выполнен.
	OutcomeComplete OutcomeKind = "COMPLETE"

	// OutcomeFail — транзиентная или конфигурационная ошибка.
	OutcomeFail OutcomeKind = "FAIL"

	// OutcomeError — бизнес-ошибка с кодом для error boundary.
	OutcomeError OutcomeKind = "ERROR"
)

// String возвращает строковое представление OutcomeKind.
func (k OutcomeKind) String() string {
	return string(k)
}

// FaultKind — класс ошибки при обработке job.
type FaultKind string

const (
	// FaultTransient — сеть, движок недоступен, ошибка публикации.
	// Повтор возможен.
	FaultTransient FaultKind = "TRANSIENT"

	// FaultConfig — неверный API-ключ и прочие ошибки конфигурации.
	// Повтор не поможет.
	FaultConfig FaultKind = "CONFIG"

	// FaultDataShape — некорректные переменные job или ответ forecast-сервиса.
	FaultDataShape FaultKind = "DATA_SHAPE"

	// FaultBusiness — бизнес-ошибка, для которой в модели есть error boundary.
	FaultBusiness FaultKind = "BUSINESS"
)

// Retryable возвращает true, если движку имеет смысл повторять job.
func (k FaultKind) Retryable() bool {
	return k == FaultTransient
}
