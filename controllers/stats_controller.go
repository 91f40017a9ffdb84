package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stock_ingestion_backend/scheduler"
	"stock_ingestion_backend/services"
)

const serviceName = "stock-ingestion-backend"

// StatsSource reads aggregate storage counts
type StatsSource interface {
	Stats(ctx context.Context) (services.StorageStats, error)
	Ping(ctx context.Context) error
}

// ScheduleSource reports scheduler state
type ScheduleSource interface {
	Status(now time.Time) scheduler.Status
}

// StatsController serves read-only views over storage and the scheduler.
// None of its handlers trigger ingestion.
type StatsController struct {
	stats    StatsSource
	schedule ScheduleSource
	now      func() time.Time
}

// NewStatsController creates a new stats controller. schedule may be nil when
// the scheduler is disabled.
func NewStatsController(stats StatsSource, schedule ScheduleSource) *StatsController {
	return &StatsController{
		stats:    stats,
		schedule: schedule,
		now:      time.Now,
	}
}

// GetRoot returns the service descriptor
// GET /
func (sc *StatsController) GetRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Stock price ingestion service",
		"service": serviceName,
		"endpoints": []string{
			"/api/stats",
			"/api/scheduler/status",
			"/api/health",
		},
	})
}

// GetStats returns asset and price counts
// GET /api/stats
func (sc *StatsController) GetStats(c *gin.Context) {
	stats, err := sc.stats.Stats(c.Request.Context())
	if err != nil {
		slog.Error("Failed to read storage stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assets":  stats.Assets,
		"prices":  stats.Prices,
		"updated": sc.now().UTC().Format(time.RFC3339),
	})
}

// GetSchedulerStatus returns registered jobs and their next fire times
// GET /api/scheduler/status
func (sc *StatsController) GetSchedulerStatus(c *gin.Context) {
	now := sc.now().UTC()
	if sc.schedule == nil {
		c.JSON(http.StatusOK, gin.H{
			"running": false,
			"jobs":    []scheduler.JobStatus{},
			"now":     now.Format(time.RFC3339),
		})
		return
	}

	status := sc.schedule.Status(now)
	c.JSON(http.StatusOK, gin.H{
		"running": status.Running,
		"jobs":    status.Jobs,
		"now":     now.Format(time.RFC3339),
	})
}

// GetHealth is the liveness probe. Storage reachability is reported but does
// not change the status code.
// GET /api/health
func (sc *StatsController) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	database := "ok"
	if err := sc.stats.Ping(ctx); err != nil {
		database = "unreachable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"database":  database,
		"timestamp": sc.now().UTC().Format(time.RFC3339),
	})
}
