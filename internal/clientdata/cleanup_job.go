package clientdata

import (
	"github.com/rs/zerolog"
)

// CleanupJob removes long-expired entries from every registered cache.
type CleanupJob struct {
	registry *Registry
	log      zerolog.Logger
}

// NewCleanupJob creates a new cache cleanup job.
func NewCleanupJob(registry *Registry, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		registry: registry,
		log:      log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run purges expired entries and logs per-store counts.
func (j *CleanupJob) Run() error {
	results := j.registry.DeleteAllExpired()

	var totalDeleted int64
	for store, count := range results {
		if count > 0 {
			j.log.Debug().
				Str("store", store).
				Int64("deleted", count).
				Msg("Cleaned up expired cache entries")
			totalDeleted += count
		}
	}

	if totalDeleted > 0 {
		j.log.Info().
			Int64("total_deleted", totalDeleted).
			Msg("Cache cleanup completed")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}
