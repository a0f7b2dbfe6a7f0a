package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/antrag-worker/internal/domain"
)

const (
	// DefaultRegion — регион прогноза по умолчанию.
	DefaultRegion = "germanywestcentral"

	// DefaultTimezone — целевая временная зона по умолчанию.
	DefaultTimezone = "Europe/Berlin"
)

// Source — источник прогноза. Реализуется Client.
type Source interface {
	CurrentForecast(ctx context.Context, location string, windowSize int) ([]Forecast, error)
}

// ResolverConfig — конфигурация Resolver.
type ResolverConfig struct {
	Source Source

	// Region — фиксированный регион прогноза.
	Region string

	// Timezone — IANA-имя целевой зоны.
	Timezone string

	Logger *slog.Logger
}

// Resolver определяет оптимальное время старта.
type Resolver struct {
	source   Source
	region   string
	location *time.Location
	logger   *slog.Logger
}

// NewResolver создаёт Resolver. Неизвестная временная зона — ошибка конфигурации.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, domain.ConfigFault(fmt.Errorf("load timezone %q: %w", tz, err))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		source:   cfg.Source,
		region:   region,
		location: loc,
		logger:   logger,
	}, nil
}

// Region возвращает регион прогноза.
func (r *Resolver) Region() string {
	return r.region
}

// Resolve запрашивает прогноз с окном windowSize минут и возвращает
// начало первой оптимальной точки в целевой зоне.
func (r *Resolver) Resolve(ctx context.Context, windowSize int) (domain.OptimalStart, error) {
	forecasts, err := r.source.CurrentForecast(ctx, r.region, windowSize)
	if err != nil {
		return domain.OptimalStart{}, err
	}

	raw, err := firstOptimalPoint(forecasts)
	if err != nil {
		return domain.OptimalStart{}, err
	}

	point, err := toForecastPoint(raw, r.region)
	if err != nil {
		return domain.OptimalStart{}, err
	}

	result := domain.OptimalStart{
		BestStart: FormatInZone(point.Timestamp, r.location),
		UTC:       point.Timestamp,
		Value:     point.Value,
		Location:  point.Location,
	}

	r.logger.Debug("optimal start resolved",
		"window_size", windowSize,
		"utc", point.Timestamp,
		"best_start", result.BestStart,
		"value", point.Value,
	)

	return result, nil
}

// FormatInZone переводит момент времени в зону loc и форматирует
// как RFC 3339 с числовым смещением.
func FormatInZone(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.RFC3339)
}

func firstOptimalPoint(forecasts []Forecast) (DataPoint, error) {
	if len(forecasts) == 0 {
		return DataPoint{}, domain.DataShapef("%w: empty forecast array", ErrNoOptimalPoint)
	}
	points := forecasts[0].OptimalDataPoints
	if len(points) == 0 {
		return DataPoint{}, domain.DataShapef("%w: location %q", ErrNoOptimalPoint, forecasts[0].Location)
	}
	return points[0], nil
}

// toForecastPoint разбирает точку ответа. Пустой location — регион запроса.
func toForecastPoint(p DataPoint, region string) (domain.ForecastPoint, error) {
	ts, err := parseTimestamp(p.Timestamp)
	if err != nil {
		return domain.ForecastPoint{}, err
	}

	location := p.Location
	if location == "" {
		location = region
	}

	return domain.ForecastPoint{
		Location:  location,
		Timestamp: ts,
		Duration:  p.Duration,
		Value:     p.Value,
	}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, domain.DataShapef("%w: optimal point has no timestamp", ErrMalformedResponse)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, domain.DataShapef("%w: timestamp %q: %v", ErrMalformedResponse, raw, err)
	}
	return t.UTC(), nil
}
