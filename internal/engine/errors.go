package engine

import "errors"

// Ошибки движка.
var (
	// ErrJobNotFound — job не найден: уже завершён или блокировка истекла
	// и job выдан другому worker'у.
	ErrJobNotFound = errors.New("job not found")

	// ErrUnavailable — движок недоступен.
	ErrUnavailable = errors.New("engine unavailable")

	// ErrClosed — клиент закрыт.
	ErrClosed = errors.New("engine client closed")

	// ErrInvalidRequest — некорректный запрос к движку.
	ErrInvalidRequest = errors.New("invalid engine request")
)
