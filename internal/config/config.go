package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/shaiso/antrag-worker/internal/engine"
)

// Default values.
const (
	DefaultConcurrency    = 32
	DefaultLockTimeout    = 5 * time.Minute
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultReportTimeout  = 10 * time.Second
	DefaultForecastRegion = "germanywestcentral"
	DefaultTimezone       = "Europe/Berlin"
	DefaultForecastRPS    = 5
	DefaultPort           = "8082"
)

// ErrInvalidConfig — конфигурация не прошла проверку.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config — конфигурация процесса.
type Config struct {
	// Zeebe
	ZeebeAddress   string
	ClientID       string
	ClientSecret   string
	OAuthURL       string
	TokenAudience  string
	ZeebePlaintext bool

	// Worker
	WorkerName    string
	Concurrency   int
	LockTimeout   time.Duration
	PollInterval  time.Duration
	ReportTimeout time.Duration
	MessageTTL    time.Duration

	// Forecast
	ForecastURL    string
	ForecastAPIKey string
	ForecastRegion string
	Timezone       string
	ForecastRPS    float64

	// Проверка API-ключа по расписанию (пусто — выключена)
	ProbeSchedule string
	ProbeWindow   int

	// Outcome sinks (опционально)
	RabbitMQURL string
	DatabaseURL string

	// HTTP /healthz + /metrics
	Port string
}

// LoadEnvFile загружает переменные из .env файла.
// Отсутствующий файл по пути по умолчанию (".env") не ошибка.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load читает конфигурацию из окружения и проверяет её.
// Все ошибки возвращаются одной (errors.Join).
func Load() (*Config, error) {
	cfg, errs := read()
	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return cfg, nil
}

// Read читает конфигурацию без проверки обязательных значений.
// Используется CLI: каждой команде нужна только часть настроек.
// Ошибка — только если значение не разбирается (например, "5x" в POLL_INTERVAL).
func Read() (*Config, error) {
	cfg, errs := read()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return cfg, nil
}

func read() (*Config, []error) {
	var errs []error

	cfg := &Config{
		ZeebeAddress:   os.Getenv("ZEEBE_ADDRESS"),
		ClientID:       os.Getenv("ZEEBE_CLIENT_ID"),
		ClientSecret:   os.Getenv("ZEEBE_CLIENT_SECRET"),
		OAuthURL:       os.Getenv("CAMUNDA_OAUTH_URL"),
		TokenAudience:  os.Getenv("ZEEBE_TOKEN_AUDIENCE"),
		WorkerName:     os.Getenv("WORKER_NAME"),
		ForecastURL:    strings.TrimRight(os.Getenv("FORECAST_URL"), "/"),
		ForecastAPIKey: os.Getenv("FORECAST_API_KEY"),
		ForecastRegion: getString("FORECAST_REGION", DefaultForecastRegion),
		Timezone:       getString("TARGET_TIMEZONE", DefaultTimezone),
		ProbeSchedule:  strings.TrimSpace(os.Getenv("FORECAST_PROBE_SCHEDULE")),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		DatabaseURL:    os.Getenv("DB_URL"),
		Port:           getString("WORKER_PORT", DefaultPort),
	}

	cfg.ZeebePlaintext = getBool("ZEEBE_PLAINTEXT", &errs)
	cfg.Concurrency = getInt("WORKER_CONCURRENCY", DefaultConcurrency, &errs)
	cfg.LockTimeout = getDuration("JOB_LOCK_TIMEOUT", DefaultLockTimeout, &errs)
	cfg.PollInterval = getDuration("POLL_INTERVAL", DefaultPollInterval, &errs)
	cfg.ReportTimeout = getDuration("REPORT_TIMEOUT", DefaultReportTimeout, &errs)
	cfg.MessageTTL = getDuration("MESSAGE_TTL", 0, &errs)
	cfg.ForecastRPS = getFloat("FORECAST_RPS", DefaultForecastRPS, &errs)
	cfg.ProbeWindow = getInt("FORECAST_PROBE_WINDOW", 0, &errs)

	if cfg.WorkerName == "" {
		cfg.WorkerName = "antrag-worker-" + uuid.NewString()[:8]
	}

	return cfg, errs
}

func (c *Config) validate() []error {
	var errs []error

	if c.ZeebeAddress == "" {
		errs = append(errs, errors.New("ZEEBE_ADDRESS is required"))
	}
	if c.ClientID != "" {
		if c.ClientSecret == "" {
			errs = append(errs, errors.New("ZEEBE_CLIENT_SECRET is required when ZEEBE_CLIENT_ID is set"))
		}
		if c.OAuthURL == "" {
			errs = append(errs, errors.New("CAMUNDA_OAUTH_URL is required when ZEEBE_CLIENT_ID is set"))
		}
	}
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.Concurrency))
	}
	if c.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("JOB_LOCK_TIMEOUT must be positive, got %s", c.LockTimeout))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval))
	}
	if c.ReportTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REPORT_TIMEOUT must be positive, got %s", c.ReportTimeout))
	}
	if c.MessageTTL < 0 {
		errs = append(errs, fmt.Errorf("MESSAGE_TTL must not be negative, got %s", c.MessageTTL))
	}
	if c.ForecastRPS <= 0 {
		errs = append(errs, fmt.Errorf("FORECAST_RPS must be positive, got %v", c.ForecastRPS))
	}
	if c.ProbeWindow < 0 {
		errs = append(errs, fmt.Errorf("FORECAST_PROBE_WINDOW must not be negative, got %d", c.ProbeWindow))
	}
	if c.ProbeSchedule != "" && c.ForecastURL == "" {
		errs = append(errs, errors.New("FORECAST_URL is required when FORECAST_PROBE_SCHEDULE is set"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TARGET_TIMEZONE %q: %v", c.Timezone, err))
	}

	return errs
}

// ZeebeConfig возвращает параметры подключения к движку.
func (c *Config) ZeebeConfig() engine.ZeebeConfig {
	return engine.ZeebeConfig{
		GatewayAddress:         c.ZeebeAddress,
		ClientID:               c.ClientID,
		ClientSecret:           c.ClientSecret,
		AuthorizationServerURL: c.OAuthURL,
		Audience:               c.TokenAudience,
		Plaintext:              c.ZeebePlaintext,
	}
}

// Warnings возвращает замечания, не мешающие запуску.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.ForecastURL == "" {
		warnings = append(warnings, "FORECAST_URL is not set, optimalenStartErmitteln jobs will fail")
	}
	if c.ForecastAPIKey == "" {
		warnings = append(warnings, "FORECAST_API_KEY is not set, optimalenStartErmitteln jobs will fail")
	}
	if c.MessageTTL == 0 {
		warnings = append(warnings, "MESSAGE_TTL is 0, messages without a waiting receiver are dropped")
	}
	return warnings
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func getFloat(key string, def float64, errs *[]error) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a number", key, v))
		return def
	}
	return f
}

func getBool(key string, errs *[]error) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return false
	}
	return b
}

func getDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}
