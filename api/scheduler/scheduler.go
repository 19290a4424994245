package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lifeline-response/lifeline-api/databases"
	"github.com/lifeline-response/lifeline-api/dispatch"
)

// Scheduler handles periodic background jobs: expiring rescuers that have
// stopped heartbeating and logging an hourly operational snapshot.
type Scheduler struct {
	cron   *cron.Cron
	Engine *dispatch.Engine
	RDB    databases.RescuerDatabase
	window time.Duration
}

// NewScheduler creates a new scheduler instance. The window is how long a
// rescuer stays active without a heartbeat.
func NewScheduler(engine *dispatch.Engine, rDB databases.RescuerDatabase, window time.Duration) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		Engine: engine,
		RDB:    rDB,
		window: window,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Expire rescuers whose last heartbeat fell out of the liveness window
	_, err := s.cron.AddFunc("* * * * *", s.sweepInactiveRescuers)
	if err != nil {
		zap.S().Errorw("failed to register rescuer liveness job", "error", err)
	}

	// Log an aggregate snapshot hourly so an operator tailing the logs can
	// see the shape of the incident without hitting the API
	_, err = s.cron.AddFunc("0 * * * *", s.logOperationalStats)
	if err != nil {
		zap.S().Errorw("failed to register stats snapshot job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Background scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Background scheduler stopped")
}

// sweepInactiveRescuers marks rescuers inactive when their last heartbeat
// is older than the liveness window.
func (s *Scheduler) sweepInactiveRescuers() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-s.window)
	marked, err := s.RDB.MarkInactiveBefore(ctx, cutoff)
	if err != nil {
		zap.S().Errorw("failed to sweep inactive rescuers", "error", err)
		return
	}
	if marked > 0 {
		zap.S().Infow("marked rescuers inactive",
			"count", marked,
			"window", s.window,
		)
	}
}

// logOperationalStats emits the hourly snapshot line.
func (s *Scheduler) logOperationalStats() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	stats, err := s.Engine.Stats(ctx)
	if err != nil {
		zap.S().Errorw("failed to collect operational stats", "error", err)
		return
	}

	zap.S().Infow("operational snapshot",
		"reportsTotal", stats.Reports.Total,
		"reportsByStatus", stats.Reports.ByStatus,
		"reportsBySeverity", stats.Reports.BySeverity,
		"rescuersTotal", stats.Rescuers.Total,
		"rescuersActive", stats.Rescuers.Active,
		"connections", stats.Connections.Total,
	)
}
