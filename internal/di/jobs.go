package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/holdings-risk/internal/clientdata"
	"github.com/aristath/holdings-risk/internal/config"
	"github.com/aristath/holdings-risk/internal/modules/snapshots"
	"github.com/aristath/holdings-risk/internal/scheduler"
)

// RegisterJobs creates the scheduler and registers the background jobs.
// The snapshot refresh job is only scheduled when SNAPSHOT_REFRESH_SCHEDULE
// is set; it is always built so it can be run on demand.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container.CacheRegistry == nil || container.SnapshotService == nil {
		return nil, fmt.Errorf("services not initialized")
	}

	sched := scheduler.New(log)
	container.Scheduler = sched

	instances := &JobInstances{
		CacheCleanup: clientdata.NewCleanupJob(container.CacheRegistry, log),
		SnapshotRefresh: snapshots.NewRefreshJob(
			container.PortfolioRepo,
			container.SnapshotService,
			cfg.DefaultBenchmark,
			log,
		),
	}

	if cfg.CacheCleanupSchedule != "" {
		if err := sched.AddJob(cfg.CacheCleanupSchedule, instances.CacheCleanup); err != nil {
			return nil, fmt.Errorf("failed to register cache cleanup job: %w", err)
		}
	}

	if cfg.SnapshotRefreshSchedule != "" {
		if err := sched.AddJob(cfg.SnapshotRefreshSchedule, instances.SnapshotRefresh); err != nil {
			return nil, fmt.Errorf("failed to register snapshot refresh job: %w", err)
		}
	}

	return instances, nil
}
