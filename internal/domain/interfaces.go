package domain

import "context"

// PortfolioStore is the persistence contract the snapshot service depends on.
// The store owns portfolio records; the service only reads holdings and
// reads/writes snapshots keyed by (portfolioID, benchmark).
type PortfolioStore interface {
	// LoadPortfolio returns the portfolio owned by userID.
	// Returns ErrNotFound when it does not exist or belongs to another user.
	LoadPortfolio(ctx context.Context, userID, portfolioID string) (*Portfolio, error)

	// GetSnapshot returns the persisted snapshot, or nil when none exists.
	GetSnapshot(ctx context.Context, portfolioID, benchmark string) (*HoldingsSnapshot, error)

	// UpsertSnapshot overwrites the snapshot stored for (portfolioID, benchmark).
	UpsertSnapshot(ctx context.Context, portfolioID, benchmark string, snapshot *HoldingsSnapshot) error
}
