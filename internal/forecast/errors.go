package forecast

import "errors"

// Ошибки сервиса прогнозов.
var (
	// ErrUnauthorized — API-ключ отсутствует или недействителен.
	ErrUnauthorized = errors.New("invalid or missing forecast API key")

	// ErrRequest — сервис отклонил запрос (4xx).
	ErrRequest = errors.New("forecast request rejected")

	// ErrUnavailable — сервис временно недоступен (429, 5xx, сеть).
	ErrUnavailable = errors.New("forecast service unavailable")

	// ErrMalformedResponse — ответ не соответствует ожидаемой форме.
	ErrMalformedResponse = errors.New("malformed forecast response")

	// ErrNoOptimalPoint — в ответе нет ни одной оптимальной точки.
	ErrNoOptimalPoint = errors.New("forecast contains no optimal data points")
)
