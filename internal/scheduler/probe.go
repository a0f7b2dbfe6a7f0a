package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/antrag-worker/internal/domain"
)

const defaultProbeTimeout = 30 * time.Second

// Resolver — то, что проверяет probe. Реализуется forecast.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, windowSize int) (domain.OptimalStart, error)
}

// ProbeResult — результат последней проверки.
type ProbeResult struct {
	At        time.Time
	OK        bool
	BestStart string
	Fault     domain.FaultKind
	Error     string
}

// ProbeConfig — конфигурация Probe.
type ProbeConfig struct {
	Resolver Resolver

	// Schedule — cron-выражение.
	Schedule string

	// Window — окно прогноза для проверки, минуты.
	Window int

	// Timeout — таймаут одной проверки (default: 30s).
	Timeout time.Duration

	// Gauge — 1/0 по результату (опционально).
	Gauge prometheus.Gauge

	Logger *slog.Logger
}

// Probe проверяет сервис прогнозов по расписанию.
type Probe struct {
	resolver Resolver
	schedule string
	window   int
	timeout  time.Duration
	gauge    prometheus.Gauge
	logger   *slog.Logger

	cron *cron.Cron

	mu   sync.Mutex
	last ProbeResult
}

// NewProbe создаёт Probe. Некорректное расписание — ошибка.
func NewProbe(cfg ProbeConfig) (*Probe, error) {
	if err := ValidateSchedule(cfg.Schedule); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Probe{
		resolver: cfg.Resolver,
		schedule: cfg.Schedule,
		window:   cfg.Window,
		timeout:  timeout,
		gauge:    cfg.Gauge,
		logger:   logger,
	}, nil
}

// Run запускает проверки по расписанию и блокируется до отмены ctx.
func (p *Probe) Run(ctx context.Context) error {
	p.cron = cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := p.cron.AddFunc(p.schedule, func() { p.Check(ctx) }); err != nil {
		return err
	}

	p.logger.Info("forecast probe started", "schedule", p.schedule, "window", p.window)
	p.cron.Start()

	<-ctx.Done()

	// Ждём завершения текущей проверки
	<-p.cron.Stop().Done()
	p.logger.Info("forecast probe stopped")
	return nil
}

// Check выполняет одну проверку.
func (p *Probe) Check(ctx context.Context) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := ProbeResult{At: time.Now().UTC()}

	start, err := p.resolver.Resolve(ctx, p.window)
	if err != nil {
		result.Fault = domain.KindOf(err)
		result.Error = err.Error()

		if result.Fault == domain.FaultConfig {
			p.logger.Error("forecast probe failed: configuration", "error", err)
		} else {
			p.logger.Warn("forecast probe failed", "fault", result.Fault, "error", err)
		}
		p.setGauge(0)
	} else {
		result.OK = true
		result.BestStart = start.BestStart
		p.logger.Debug("forecast probe ok", "best_start", start.BestStart)
		p.setGauge(1)
	}

	p.mu.Lock()
	p.last = result
	p.mu.Unlock()

	return result
}

// Last возвращает результат последней проверки.
func (p *Probe) Last() ProbeResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Probe) setGauge(v float64) {
	if p.gauge != nil {
		p.gauge.Set(v)
	}
}
