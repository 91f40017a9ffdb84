// Package scheduler triggers market-close ingestion and periodic liveness
// checks on cron schedules. Next fire times are derived from the cron specs so
// status can be reported without polling the clock.
//
// The job registrations are implemented in jobs.go
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"stock_ingestion_backend/services"
)

const (
	MarketCloseJob = "market-close"
	LivenessJob    = "liveness"

	DefaultMarketCloseSpec = "30 21 * * 1-5"
	DefaultLivenessSpec    = "0 * * * *"
)

// ErrJobRunning is returned by RunNow while a market-close run is in flight
var ErrJobRunning = errors.New("market-close job already running")

// DailyCloseRunner runs one market-close ingestion pass
type DailyCloseRunner interface {
	RunDailyClose(ctx context.Context) (*services.DailyCloseSummary, error)
}

// StatsReader reports aggregate storage counts
type StatsReader interface {
	Stats(ctx context.Context) (services.StorageStats, error)
}

// JobStatus describes one registered job
type JobStatus struct {
	Name    string    `json:"name"`
	Spec    string    `json:"spec"`
	NextRun time.Time `json:"next_run"`
	Busy    bool      `json:"busy"`
}

// Status is a snapshot of the scheduler state
type Status struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

// NextFire returns the first time after now that spec fires, in UTC
func NextFire(spec string, now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now.UTC()), nil
}
