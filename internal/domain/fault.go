package domain

import (
	"errors"
	"fmt"
)

// Fault — классифицированная ошибка.
//
// Классификация выполняется в месте вызова (publish, forecast HTTP,
// разбор переменных), а не по типу "пойманного" исключения.
type Fault struct {
	Kind FaultKind
	Err  error
}

// Error реализует интерфейс error.
func (f *Fault) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return f.Err.Error()
}

// Unwrap возвращает исходную ошибку.
func (f *Fault) Unwrap() error {
	return f.Err
}

// Transient помечает ошибку как транзиентную.
func Transient(err error) error {
	return wrapFault(FaultTransient, err)
}

// ConfigFault помечает ошибку как ошибку конфигурации.
func ConfigFault(err error) error {
	return wrapFault(FaultConfig, err)
}

// DataShape помечает ошибку как ошибку формы данных.
func DataShape(err error) error {
	return wrapFault(FaultDataShape, err)
}

// DataShapef — DataShape с форматированием.
func DataShapef(format string, args ...any) error {
	return DataShape(fmt.Errorf(format, args...))
}

func wrapFault(kind FaultKind, err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: kind, Err: err}
}

// BusinessError — бизнес-ошибка с кодом, по которому движок выбирает
// error boundary в модели процесса.
type BusinessError struct {
	Code    string
	Message string
}

// Error реализует интерфейс error.
func (e *BusinessError) Error() string {
	return fmt.Sprintf("business error %s: %s", e.Code, e.Message)
}

// NewBusinessError создаёт BusinessError.
func NewBusinessError(code, message string) error {
	return &BusinessError{Code: code, Message: message}
}

// KindOf определяет класс ошибки.
// Неклассифицированные ошибки считаются транзиентными.
func KindOf(err error) FaultKind {
	var be *BusinessError
	if errors.As(err, &be) {
		return FaultBusiness
	}

	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}

	return FaultTransient
}
