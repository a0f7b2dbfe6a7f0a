package worker

import "errors"

// Ошибки воркера.
var (
	// ErrDuplicateTaskType — task type уже зарегистрирован.
	ErrDuplicateTaskType = errors.New("task type already registered")

	// ErrInvalidRegistration — пустой task type или nil handler.
	ErrInvalidRegistration = errors.New("invalid registration")

	// ErrUnknownTaskType — для task type нет handler'а.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrMissingVariables — job пришёл без обязательных переменных.
	ErrMissingVariables = errors.New("missing required variables")

	// ErrHandlerPanic — handler запаниковал.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrAlreadyStarted — Start вызван повторно.
	ErrAlreadyStarted = errors.New("worker already started")

	// ErrNoRegistrations — нечего запускать.
	ErrNoRegistrations = errors.New("no task types registered")
)
