// services/scheduler.go
package services

import (
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/gmottola00/Tickup/logger"
)

// StartSweepScheduler runs the periodic tournament sweeps: starting scheduled
// tournaments and closing expired phases. Returns the scheduler so the caller
// can shut it down.
func (s *TournamentService) StartSweepScheduler() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	interval := time.Hour
	if raw := os.Getenv("TOURNAMENT_SWEEP_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			interval = d
		} else {
			logger.Warn("invalid TOURNAMENT_SWEEP_INTERVAL, using default",
				zap.String("value", raw))
		}
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			started := s.StartScheduledTournaments()
			processed := s.CheckPhaseDeadlines()
			if started > 0 || processed > 0 {
				logger.Info("tournament sweep",
					zap.Int("tournaments_started", started),
					zap.Int("phases_processed", processed))
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	logger.Info("tournament sweep scheduler started",
		zap.Duration("interval", interval))
	return sched, nil
}
