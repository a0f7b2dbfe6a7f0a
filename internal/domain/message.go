package domain

import "time"

// CorrelationMessage — именованное сообщение, которое движок сопоставляет
// с ожидающим process instance по CorrelationKey.
type CorrelationMessage struct {
	// Name — имя сообщения (определяет точку приёма в модели).
	Name string `json:"name"`

	// CorrelationKey — ключ сопоставления. Строится детерминированно
	// из доменных идентификаторов (например, customerID).
	CorrelationKey string `json:"correlation_key"`

	// TimeToLive — сколько движок буферизует сообщение, если получателя
	// ещё нет. 0 — сообщение не буферизуется.
	TimeToLive time.Duration `json:"ttl"`

	// MessageID — необязательный идентификатор для дедупликации на стороне
	// движка. По умолчанию пустой.
	MessageID string `json:"message_id,omitempty"`

	// Variables — переменные, которые попадут в process instance.
	Variables map[string]any `json:"variables,omitempty"`
}
