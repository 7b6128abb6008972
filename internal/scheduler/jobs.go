package scheduler

import (
	"context"
	"fmt"

	"supermock/internal/metrics"
	"supermock/internal/storage"
)

const (
	PendingAuthSweepJob = "pending-auth-sweep"
	StatsJob            = "stats"

	PendingAuthSweepSchedule = "@every 1m"
	StatsSchedule            = "@every 5m"
)

// Sweeper evicts expired pending authentications.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// StatsSource counts rows by status.
type StatsSource interface {
	GetStats(ctx context.Context) (*storage.Stats, error)
}

// SweepPendingAuths returns a job that evicts expired pending bot logins.
func SweepPendingAuths(sweeper Sweeper) JobHandler {
	return func(ctx context.Context) error {
		if _, err := sweeper.Sweep(ctx); err != nil {
			return fmt.Errorf("sweep pending auths: %w", err)
		}
		return nil
	}
}

// RefreshStats returns a job that exports user and interview counts as gauges.
func RefreshStats(source StatsSource) JobHandler {
	return func(ctx context.Context) error {
		stats, err := source.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("collect stats: %w", err)
		}
		for status, n := range stats.Users {
			metrics.Users.WithLabelValues(string(status)).Set(float64(n))
		}
		for status, n := range stats.Interviews {
			metrics.Interviews.WithLabelValues(string(status)).Set(float64(n))
		}
		return nil
	}
}

// RegisterHousekeeping registers the pending-auth sweep and stats jobs.
func RegisterHousekeeping(s *Scheduler, sweeper Sweeper, source StatsSource) error {
	if err := s.Register(PendingAuthSweepJob, PendingAuthSweepSchedule, SweepPendingAuths(sweeper)); err != nil {
		return err
	}
	return s.Register(StatsJob, StatsSchedule, RefreshStats(source))
}
