// Package scheduler drives the periodic execution of due billing rules.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/metrics"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/middleware"
)

// RuleScheduler polls for due billing rules on a fixed interval.
type RuleScheduler struct {
	Service       portssvc.RuleSchedulerSvc
	CheckInterval time.Duration
	Enabled       bool
	Logger        *slog.Logger

	now    func() time.Time
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	tick   sync.Mutex
}

// New creates a scheduler. A non-positive interval defaults to one minute.
func New(svc portssvc.RuleSchedulerSvc, interval time.Duration, enabled bool, logger *slog.Logger) *RuleScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleScheduler{
		Service:       svc,
		CheckInterval: interval,
		Enabled:       enabled,
		Logger:        logger.With(slog.String("component", "scheduler")),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start begins polling in the background until Stop is called or ctx ends.
func (rs *RuleScheduler) Start(ctx context.Context) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Logger.Info("Scheduler disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)
	go rs.run(ctx)

	rs.Logger.Info("Scheduler started", slog.Duration("check_interval", rs.CheckInterval))
}

// Stop halts polling and waits for an in-flight pass to finish.
func (rs *RuleScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	close(rs.stop)
	rs.wg.Wait()
	rs.ticker = nil
	rs.Logger.Info("Scheduler stopped")
}

func (rs *RuleScheduler) run(ctx context.Context) {
	defer rs.wg.Done()

	rs.RunNow(ctx)
	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow(ctx)
		case <-rs.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunNow performs one pass. A pass that is still running causes the new one to be skipped.
func (rs *RuleScheduler) RunNow(ctx context.Context) portssvc.TickReport {
	if !rs.tick.TryLock() {
		rs.Logger.Warn("Previous scheduler pass still running, skipping tick")
		metrics.ObserveSchedulerTick("overlap", 0)
		return portssvc.TickReport{}
	}
	defer rs.tick.Unlock()

	ctx = middleware.WithLogger(ctx, rs.Logger)
	now := rs.now()
	report, err := rs.Service.RunDueRules(ctx, now)
	if err != nil {
		rs.Logger.Error("Scheduler pass failed", slog.String("error", err.Error()))
		metrics.ObserveSchedulerTick("error", report.Due)
		return report
	}
	metrics.ObserveSchedulerTick("ok", report.Due)
	if report.Due > 0 {
		rs.Logger.Info("Scheduler pass completed",
			slog.Int("due", report.Due),
			slog.Int("executed", report.Executed),
			slog.Int("skipped", report.Skipped),
			slog.Int("failed", report.Failed))
	}
	return report
}
