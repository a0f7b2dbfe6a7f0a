package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Validator — схема переменных, проверяющая себя после декодирования.
type Validator interface {
	Validate() error
}

// DecodeVariables декодирует переменные job в типизированную схему T.
//
// Ошибки декодирования и валидации возвращаются как DATA_SHAPE
// и содержат сырой payload (обрезанный) для диагностики.
func DecodeVariables[T any](job *Job) (T, error) {
	var result T

	raw := bytes.TrimSpace(job.Variables)
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return result, DataShapef("decode variables of job %d: %v (payload: %s)", job.Key, err, Truncate(string(raw), 200))
	}

	if v, ok := any(&result).(Validator); ok {
		if err := v.Validate(); err != nil {
			return result, err
		}
	}

	return result, nil
}

// VariableNames возвращает имена переменных верхнего уровня.
// Используется для проверки обязательных переменных на границе dispatch.
func VariableNames(job *Job) (map[string]bool, error) {
	raw := bytes.TrimSpace(job.Variables)
	if len(raw) == 0 {
		return map[string]bool{}, nil
	}

	var vars map[string]json.RawMessage
	if err := json.Unmarshal(raw, &vars); err != nil {
		return nil, DataShapef("variables of job %d are not a JSON object: %v (payload: %s)", job.Key, err, Truncate(string(raw), 200))
	}

	names := make(map[string]bool, len(vars))
	for name, val := range vars {
		// null эквивалентен отсутствующей переменной
		if string(bytes.TrimSpace(val)) == "null" {
			continue
		}
		names[name] = true
	}
	return names, nil
}

// --- CustomerID ---

// CustomerID — идентификатор клиента, из которого строится correlation key.
//
// Движок может передать customerID числом или строкой. Число приводится
// к строке по правилам JavaScript Number → String, как в процессной
// модели: 12345 → "12345", 1.5 → "1.5", 1e21 → "1e+21", -0 → "0".
type CustomerID string

// UnmarshalJSON принимает JSON-строку или JSON-число.
func (c *CustomerID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = CustomerID(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("customerID: %w", err)
		}
		*c = CustomerID(formatNumber(f))
		return nil
	default:
		return fmt.Errorf("customerID must be a string or a number, got %s", Truncate(string(data), 50))
	}
}

// formatNumber форматирует число как JavaScript String(n): кратчайшее
// точное представление, экспонента при |n| >= 1e21 или |n| < 1e-6.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs < 1e21 && abs >= 1e-6 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	// Go пишет экспоненту минимум двумя цифрами: 1e-07 → 1e-7
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}

// String возвращает строковое представление.
func (c CustomerID) String() string {
	return string(c)
}

// CustomerVariables — входные переменные handler'ов, публикующих сообщения.
type CustomerVariables struct {
	CustomerID CustomerID `json:"customerID"`
}

// Validate реализует Validator.
func (v *CustomerVariables) Validate() error {
	if v.CustomerID == "" {
		return DataShapef("variable customerID is required")
	}
	return nil
}

// --- WindowSize ---

// WindowMinutes — длина окна прогноза в минутах.
//
// Принимается целое число или числовая строка. Ноль допустим и передаётся
// в forecast-сервис без изменений. NaN, Inf, дробные и отрицательные
// значения отклоняются.
type WindowMinutes int

// UnmarshalJSON принимает JSON-число или числовую строку.
func (w *WindowMinutes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	literal := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &literal); err != nil {
			return err
		}
		literal = strings.TrimSpace(literal)
	}

	n, err := ParseWindowMinutes(literal)
	if err != nil {
		return err
	}
	*w = WindowMinutes(n)
	return nil
}

// ParseWindowMinutes разбирает длину окна из строки.
func ParseWindowMinutes(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("windowSize is empty")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("windowSize %q is not numeric", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("windowSize %q is not a finite number", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("windowSize %q must not be negative", s)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("windowSize %q must be a whole number of minutes", s)
	}
	if f > math.MaxInt32 {
		return 0, fmt.Errorf("windowSize %q is too large", s)
	}
	return int(f), nil
}

// WindowVariables — входные переменные handler'а оптимального старта.
type WindowVariables struct {
	WindowSize *WindowMinutes `json:"windowSize"`
}

// Validate реализует Validator.
func (v *WindowVariables) Validate() error {
	if v.WindowSize == nil {
		return DataShapef("variable windowSize is required")
	}
	return nil
}

// Minutes возвращает длину окна.
func (v *WindowVariables) Minutes() int {
	if v.WindowSize == nil {
		return 0
	}
	return int(*v.WindowSize)
}

// Truncate обрезает строку до maxLen байт, не разрывая руны.
// Невалидные UTF-8 последовательности заменяются на U+FFFD.
func Truncate(s string, maxLen int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= maxLen {
		return s
	}
	cut := max(maxLen, 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
