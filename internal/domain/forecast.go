package domain

import "time"

// ForecastPoint — точка прогноза углеродной интенсивности.
type ForecastPoint struct {
	// Location — регион прогноза.
	Location string `json:"location"`

	// Timestamp — начало окна (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Duration — длина окна в минутах.
	Duration int `json:"duration"`

	// Value — оценка (чем меньше, тем лучше для запуска).
	Value float64 `json:"value"`
}

// OptimalStart — результат поиска оптимального времени старта.
type OptimalStart struct {
	// BestStart — время старта в целевой временной зоне,
	// RFC 3339 с числовым смещением (например, 2024-01-15T11:00:00+01:00).
	BestStart string `json:"bestStart"`

	// UTC — то же время в UTC.
	UTC time.Time `json:"utc"`

	// Value — оценка выбранной точки.
	Value float64 `json:"value"`

	// Location — регион прогноза.
	Location string `json:"location"`
}
