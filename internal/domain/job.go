package domain

import (
	"encoding/json"
	"time"
)

// Job — единица работы, выданная движком для конкретного task type.
//
// Job создаётся движком, когда process instance доходит до задачи
// соответствующего типа. Worker держит job до Deadline: если outcome
// не отправлен до этого момента, движок считает job брошенным и выдаёт
// его повторно (возможно, другому экземпляру worker'а).
type Job struct {
	// Key — уникальный ключ job в движке.
	Key int64 `json:"key"`

	// Type — task type, по которому выбирается handler.
	Type string `json:"type"`

	// Retries — оставшийся бюджет повторов.
	Retries int `json:"retries"`

	// Deadline — время истечения блокировки job.
	Deadline time.Time `json:"deadline"`

	// Variables — переменные процесса (JSON-объект).
	Variables json.RawMessage `json:"variables,omitempty"`

	// Контекст движка (для логов и журнала).
	ProcessInstanceKey int64  `json:"process_instance_key,omitempty"`
	BpmnProcessID      string `json:"bpmn_process_id,omitempty"`
	ElementID          string `json:"element_id,omitempty"`
	Worker             string `json:"worker,omitempty"`
}

// LockExpired возвращает true, если блокировка job уже истекла.
func (j *Job) LockExpired(now time.Time) bool {
	return !j.Deadline.IsZero() && !now.Before(j.Deadline)
}

// NextRetries возвращает бюджет повторов для транзиентного Fail.
// Значение никогда не опускается ниже нуля.
func (j *Job) NextRetries() int {
	return max(j.Retries-1, 0)
}
