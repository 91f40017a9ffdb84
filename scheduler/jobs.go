package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/go-co-op/gocron"

	"stock_ingestion_backend/services"
)

const marketTimezone = "America/New_York"

type jobDef struct {
	name string
	spec string
	task func(ctx context.Context) error
	busy atomic.Bool
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	mu      sync.Mutex
	cron    *gocron.Scheduler
	running bool

	runner DailyCloseRunner
	stats  StatsReader
	logger *slog.Logger
	market *time.Location

	marketClose *jobDef
	liveness    *jobDef
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithMarketCloseSpec overrides the market-close cron spec
func WithMarketCloseSpec(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.marketClose.spec = spec
		}
	}
}

// WithLivenessSpec overrides the liveness cron spec
func WithLivenessSpec(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.liveness.spec = spec
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(runner DailyCloseRunner, stats StatsReader, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner: runner,
		stats:  stats,
		logger: slog.Default(),
		market: time.UTC,
	}
	s.marketClose = &jobDef{name: MarketCloseJob, spec: DefaultMarketCloseSpec, task: s.marketCloseTask}
	s.liveness = &jobDef{name: LivenessJob, spec: DefaultLivenessSpec, task: s.livenessTask}

	for _, opt := range opts {
		opt(s)
	}
	if loc, err := time.LoadLocation(marketTimezone); err == nil {
		s.market = loc
	} else {
		s.logger.Warn("Market timezone unavailable, logging UTC only", "timezone", marketTimezone, "error", err)
	}
	return s
}

func (s *Scheduler) jobs() []*jobDef {
	return []*jobDef{s.marketClose, s.liveness}
}

// Start registers both jobs and starts the cron loop
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("Scheduler already running, ignoring start")
		return nil
	}

	cron := gocron.NewScheduler(time.UTC)
	for _, job := range s.jobs() {
		job := job
		if _, err := cron.Cron(job.spec).Tag(job.name).Do(func() {
			s.fire(job)
		}); err != nil {
			cron.Clear()
			return fmt.Errorf("register %s job: %w", job.name, err)
		}
	}

	cron.StartAsync()
	s.cron = cron
	s.running = true
	s.logger.Info("Scheduler started",
		"market_close_spec", s.marketClose.spec,
		"liveness_spec", s.liveness.spec,
	)
	return nil
}

// Stop cancels both jobs and stops the cron loop. In-flight runs finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Clear()
	s.cron.Stop()
	s.cron = nil
	s.running = false
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow runs the market-close job immediately, bypassing the schedule
func (s *Scheduler) RunNow(ctx context.Context) (*services.DailyCloseSummary, error) {
	if !s.marketClose.busy.CompareAndSwap(false, true) {
		return nil, ErrJobRunning
	}
	defer s.marketClose.busy.Store(false)

	s.logger.Info("Manual market-close run requested")
	return s.runDailyClose(ctx)
}

// Status reports registered jobs and their next fire times after now
func (s *Scheduler) Status(now time.Time) Status {
	status := Status{Running: s.IsRunning()}
	for _, job := range s.jobs() {
		js := JobStatus{Name: job.name, Spec: job.spec, Busy: job.busy.Load()}
		if next, err := NextFire(job.spec, now); err == nil {
			js.NextRun = next
		}
		status.Jobs = append(status.Jobs, js)
	}
	return status
}

// fire runs a job unless a previous firing of the same job is still running
func (s *Scheduler) fire(job *jobDef) {
	if !job.busy.CompareAndSwap(false, true) {
		s.logger.Warn("Previous run still in progress, skipping", "job", job.name)
		return
	}
	defer job.busy.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled job panicked", "job", job.name, "panic", r)
		}
	}()

	if err := job.task(context.Background()); err != nil {
		s.logger.Error("Scheduled job failed", "job", job.name, "error", err)
	}
}

func (s *Scheduler) marketCloseTask(ctx context.Context) error {
	_, err := s.runDailyClose(ctx)
	return err
}

func (s *Scheduler) runDailyClose(ctx context.Context) (*services.DailyCloseSummary, error) {
	now := time.Now()
	s.logger.Info("Market-close ingestion starting",
		"utc", now.UTC().Format(time.RFC3339),
		"market_time", now.In(s.market).Format(time.RFC3339),
	)

	summary, err := s.runner.RunDailyClose(ctx)
	if err != nil {
		return nil, fmt.Errorf("market-close run: %w", err)
	}

	s.logger.Info("Market-close ingestion finished",
		"run_id", summary.RunID,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (s *Scheduler) livenessTask(ctx context.Context) error {
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}
	s.logger.Info("Liveness check", "assets", stats.Assets, "prices", stats.Prices)
	return nil
}
