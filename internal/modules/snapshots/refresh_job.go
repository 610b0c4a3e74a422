package snapshots

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/aristath/holdings-risk/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// PortfolioLister enumerates stored portfolios.
type PortfolioLister interface {
	ListPortfolios(ctx context.Context) ([]portfolio.Ref, error)
}

// Refresher recomputes one portfolio's snapshot.
type Refresher interface {
	RefreshHoldings(ctx context.Context, userID, portfolioID, benchmark string) (*domain.HoldingsSnapshot, error)
}

// RefreshJob keeps stored snapshots warm against the default benchmark.
type RefreshJob struct {
	lister    PortfolioLister
	refresher Refresher
	benchmark string
	timeout   time.Duration
	log       zerolog.Logger
}

// NewRefreshJob creates the warm refresh job.
func NewRefreshJob(lister PortfolioLister, refresher Refresher, benchmark string, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		lister:    lister,
		refresher: refresher,
		benchmark: benchmark,
		timeout:   2 * time.Minute,
		log:       log.With().Str("job", "snapshot_refresh").Logger(),
	}
}

// Run refreshes every portfolio sequentially. One failure does not stop the rest.
func (j *RefreshJob) Run() error {
	ctx := context.Background()
	refs, err := j.lister.ListPortfolios(ctx)
	if err != nil {
		return fmt.Errorf("failed to list portfolios: %w", err)
	}

	failed := 0
	for _, ref := range refs {
		pctx, cancel := context.WithTimeout(ctx, j.timeout)
		_, err := j.refresher.RefreshHoldings(pctx, ref.UserID, ref.ID, j.benchmark)
		cancel()
		if err != nil {
			failed++
			j.log.Warn().Err(err).Str("portfolio_id", ref.ID).Msg("Snapshot refresh failed")
		}
	}

	j.log.Info().Int("portfolios", len(refs)).Int("failed", failed).Msg("Snapshot refresh complete")
	if failed > 0 {
		return fmt.Errorf("%d of %d snapshot refreshes failed", failed, len(refs))
	}
	return nil
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "snapshot_refresh"
}
