package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/shaiso/antrag-worker/internal/domain"
	"github.com/shaiso/antrag-worker/internal/telemetry"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultRPS         = 5
	maxResponseBytes   = 10 << 20

	currentForecastPath = "/emissions/forecasts/current"
)

// DataPoint — точка прогноза в формате сервиса.
// Timestamp хранится строкой: разбор и классификация ошибок — в Resolver.
type DataPoint struct {
	Location  string  `json:"location"`
	Timestamp string  `json:"timestamp"`
	Duration  int     `json:"duration"`
	Value     float64 `json:"value"`
}

// Forecast — один элемент ответа /emissions/forecasts/current.
type Forecast struct {
	GeneratedAt       string      `json:"generatedAt"`
	Location          string      `json:"location"`
	DataStartAt       string      `json:"dataStartAt"`
	DataEndAt         string      `json:"dataEndAt"`
	WindowSize        int         `json:"windowSize"`
	OptimalDataPoints []DataPoint `json:"optimalDataPoints"`
	ForecastData      []DataPoint `json:"forecastData"`
}

// ClientConfig — конфигурация Client.
type ClientConfig struct {
	// BaseURL — адрес сервиса (без завершающего /).
	BaseURL string

	// APIKey — значение заголовка x-api-key.
	APIKey string

	// RPS — ограничение частоты запросов (default: 5, burst 1).
	RPS float64

	// Timeout — таймаут одного запроса (default: 30s).
	Timeout time.Duration

	// HTTPClient — опционально, для тестов.
	HTTPClient *http.Client

	// Requests — счётчик запросов по классу статуса (опционально).
	Requests *prometheus.CounterVec

	// Logger
	Logger *slog.Logger
}

// Client — HTTP-клиент сервиса прогнозов.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	requests *prometheus.CounterVec
	logger   *slog.Logger
}

// NewClient создаёт Client.
func NewClient(cfg ClientConfig) *Client {
	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		requests: cfg.Requests,
		logger:   logger,
	}
}

// CurrentForecast запрашивает текущий прогноз для location с окном windowSize минут.
// windowSize передаётся как есть, включая 0.
func (c *Client) CurrentForecast(ctx context.Context, location string, windowSize int) ([]Forecast, error) {
	if c.baseURL == "" {
		return nil, domain.ConfigFault(fmt.Errorf("%w: forecast URL is not configured", ErrRequest))
	}
	if c.apiKey == "" {
		return nil, domain.ConfigFault(ErrUnauthorized)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.Transient(fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err))
	}

	query := url.Values{}
	query.Set("location", location)
	query.Set("windowSize", strconv.Itoa(windowSize))
	endpoint := c.baseURL + currentForecastPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.ConfigFault(fmt.Errorf("%w: create request: %v", ErrRequest, err))
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.count(0)
		return nil, domain.Transient(fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	c.count(resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("%w: read response: %v", ErrUnavailable, err))
	}

	c.logger.Debug("forecast response",
		"location", location,
		"window_size", windowSize,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var forecasts []Forecast
	if err := json.Unmarshal(body, &forecasts); err != nil {
		return nil, domain.DataShapef("%w: %v (payload: %s)", ErrMalformedResponse, err, domain.Truncate(string(body), 200))
	}

	return forecasts, nil
}

// classifyStatus переводит HTTP-код в класс ошибки.
func classifyStatus(code int, body []byte) error {
	switch {
	case code < 400:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.ConfigFault(fmt.Errorf("%w (HTTP %d)", ErrUnauthorized, code))
	case code == http.StatusTooManyRequests || code >= 500:
		return domain.Transient(fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, code, domain.Truncate(string(body), 200)))
	default:
		return domain.ConfigFault(fmt.Errorf("%w: HTTP %d: %s", ErrRequest, code, domain.Truncate(string(body), 200)))
	}
}

func (c *Client) count(code int) {
	if c.requests == nil {
		return
	}
	c.requests.WithLabelValues(telemetry.StatusClass(code)).Inc()
}
