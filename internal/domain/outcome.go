package domain

import (
	"errors"
	"strings"
)

// Outcome — терминальный результат обработки job.
//
// Handler возвращает ровно один Outcome; отправкой в движок занимается
// worker. Поэтому handler физически не может завершить job дважды.
type Outcome struct {
	// Kind — вид результата.
	Kind OutcomeKind `json:"kind"`

	// Variables — выходные переменные (только для COMPLETE).
	Variables map[string]any `json:"variables,omitempty"`

	// Retries — оставшиеся повторы (только для FAIL).
	Retries int `json:"retries"`

	// ErrorCode — код бизнес-ошибки (только для ERROR).
	ErrorCode string `json:"error_code,omitempty"`

	// ErrorMessage — текст ошибки (FAIL и ERROR).
	ErrorMessage string `json:"error_message,omitempty"`

	// Fault — класс ошибки, из которой получен Outcome (для логов и метрик).
	Fault FaultKind `json:"fault,omitempty"`
}

// Complete создаёт успешный результат.
// vars может быть nil — тогда job завершается без выходных переменных.
func Complete(vars map[string]any) Outcome {
	return Outcome{Kind: OutcomeComplete, Variables: vars}
}

// Fail создаёт результат FAIL.
func Fail(retries int, message string) Outcome {
	return Outcome{
		Kind:         OutcomeFail,
		Retries:      max(retries, 0),
		ErrorMessage: validMessage(message),
	}
}

// RaiseError создаёт результат ERROR.
func RaiseError(code, message string) Outcome {
	return Outcome{
		Kind:         OutcomeError,
		ErrorCode:    validMessage(code),
		ErrorMessage: validMessage(message),
		Fault:        FaultBusiness,
	}
}

// OutcomeFromError переводит ошибку handler'а в Outcome.
//
//   - BUSINESS   → ERROR(code, message)
//   - TRANSIENT  → FAIL(job.Retries-1)
//   - CONFIG     → FAIL(0), повтор не исправит конфигурацию
//   - DATA_SHAPE → FAIL(0), повтор не исправит данные
func OutcomeFromError(job *Job, err error) Outcome {
	kind := KindOf(err)

	var be *BusinessError
	if errors.As(err, &be) {
		return RaiseError(be.Code, be.Message)
	}

	retries := 0
	if kind.Retryable() {
		retries = job.NextRetries()
	}

	out := Fail(retries, err.Error())
	out.Fault = kind
	return out
}

// validMessage заменяет невалидный UTF-8: движок отклоняет такие строки,
// и outcome не дошёл бы до него вовсе.
func validMessage(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// IsComplete возвращает true для COMPLETE.
func (o Outcome) IsComplete() bool {
	return o.Kind == OutcomeComplete
}
