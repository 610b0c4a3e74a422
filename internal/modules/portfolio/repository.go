// Package portfolio persists portfolios, their holdings and the cached
// holdings snapshots computed for them.
package portfolio

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/holdings-risk/internal/database"
	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Ref identifies a stored portfolio and its owner.
type Ref struct {
	ID     string
	UserID string
}

// Repository is the SQLite implementation of domain.PortfolioStore.
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

var _ domain.PortfolioStore = (*Repository)(nil)

// NewRepository creates a repository over the holdings database.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// CreatePortfolio inserts an empty portfolio for userID.
func (r *Repository) CreatePortfolio(ctx context.Context, userID, name, baseCurrency string) (*domain.Portfolio, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if baseCurrency == "" {
		baseCurrency = domain.DefaultBaseCurrency
	}

	now := r.now().UTC().Truncate(time.Second)
	p := &domain.Portfolio{
		ID:           uuid.New().String(),
		UserID:       userID,
		Name:         name,
		BaseCurrency: strings.ToUpper(baseCurrency),
		CreatedAt:    now,
		UpdatedAt:    now,
		Holdings:     []domain.Holding{},
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO portfolios (id, user_id, name, base_currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.BaseCurrency, now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert portfolio: %w", err)
	}
	return p, nil
}

// AddHoldings appends holdings to a portfolio in one transaction, keeping
// their order. Missing IDs are generated.
func (r *Repository) AddHoldings(ctx context.Context, portfolioID string, holdings []domain.Holding) ([]domain.Holding, error) {
	if err := ValidateHoldings(holdings); err != nil {
		return nil, err
	}

	now := r.now().UTC().Unix()
	saved := make([]domain.Holding, 0, len(holdings))

	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM holdings WHERE portfolio_id = ?`,
			portfolioID).Scan(&next); err != nil {
			return fmt.Errorf("failed to read holding position: %w", err)
		}

		for i, h := range holdings {
			if h.ID == "" {
				h.ID = uuid.New().String()
			}
			h.Ticker = domain.NormalizeTicker(h.Ticker)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO holdings (id, portfolio_id, ticker, shares, purchase_price, target_weight_pct, position, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				h.ID, portfolioID, h.Ticker, nullFloat(h.Shares), nullFloat(h.PurchasePrice),
				nullFloat(h.TargetWeightPct), next+i, now); err != nil {
				return fmt.Errorf("failed to insert holding %s: %w", h.Ticker, err)
			}
			saved = append(saved, h)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE portfolios SET updated_at = ? WHERE id = ?`, now, portfolioID); err != nil {
			return fmt.Errorf("failed to touch portfolio: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ValidateHoldings checks every holding before anything is written.
// Failures wrap domain.ErrInvalidHolding.
func ValidateHoldings(holdings []domain.Holding) error {
	for _, h := range holdings {
		if err := validateHolding(h); err != nil {
			return err
		}
	}
	return nil
}

func validateHolding(h domain.Holding) error {
	if domain.NormalizeTicker(h.Ticker) == "" {
		return fmt.Errorf("%w: ticker is required", domain.ErrInvalidHolding)
	}
	if h.Shares != nil && *h.Shares < 0 {
		return fmt.Errorf("%w: %s shares must be non-negative", domain.ErrInvalidHolding, h.Ticker)
	}
	if h.PurchasePrice != nil && *h.PurchasePrice < 0 {
		return fmt.Errorf("%w: %s purchase price must be non-negative", domain.ErrInvalidHolding, h.Ticker)
	}
	if h.TargetWeightPct != nil && *h.TargetWeightPct < 0 {
		return fmt.Errorf("%w: %s target weight must be non-negative", domain.ErrInvalidHolding, h.Ticker)
	}
	return nil
}

// LoadPortfolio returns the portfolio with its holdings in insertion order.
func (r *Repository) LoadPortfolio(ctx context.Context, userID, portfolioID string) (*domain.Portfolio, error) {
	var (
		p                    domain.Portfolio
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, base_currency, created_at, updated_at
		 FROM portfolios WHERE id = ? AND user_id = ?`,
		portfolioID, userID).Scan(&p.ID, &p.UserID, &p.Name, &p.BaseCurrency, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	holdings, err := r.loadHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	p.Holdings = holdings
	return &p, nil
}

func (r *Repository) loadHoldings(ctx context.Context, portfolioID string) ([]domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ticker, shares, purchase_price, target_weight_pct
		 FROM holdings WHERE portfolio_id = ? ORDER BY position, created_at`,
		portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := []domain.Holding{}
	for rows.Next() {
		var (
			h                       domain.Holding
			shares, price, weighted sql.NullFloat64
		)
		if err := rows.Scan(&h.ID, &h.Ticker, &shares, &price, &weighted); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.Shares = floatPtr(shares)
		h.PurchasePrice = floatPtr(price)
		h.TargetWeightPct = floatPtr(weighted)
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// ListPortfolios returns every stored portfolio reference.
func (r *Repository) ListPortfolios(ctx context.Context) ([]Ref, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id FROM portfolios ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var refs []Ref
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.ID, &ref.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return refs, nil
}

// GetSnapshot returns the cached snapshot for (portfolioID, benchmark), or
// nil when none has been stored.
func (r *Repository) GetSnapshot(ctx context.Context, portfolioID, benchmark string) (*domain.HoldingsSnapshot, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM holdings_snapshots WHERE portfolio_id = ? AND benchmark = ?`,
		portfolioID, domain.NormalizeTicker(benchmark)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var snapshot domain.HoldingsSnapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		// A payload from an older layout is treated as a miss and recomputed.
		r.log.Warn().Err(err).Str("portfolio_id", portfolioID).Msg("Discarding unreadable snapshot")
		return nil, nil
	}
	return &snapshot, nil
}

// UpsertSnapshot stores the snapshot, replacing any previous one for the key.
func (r *Repository) UpsertSnapshot(ctx context.Context, portfolioID, benchmark string, snapshot *domain.HoldingsSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is nil")
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	refreshedAt := r.now().UTC()
	if ts, err := time.Parse(time.RFC3339, snapshot.Meta.RefreshedAt); err == nil {
		refreshedAt = ts
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO holdings_snapshots (portfolio_id, benchmark, risk_model, payload, refreshed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(portfolio_id, benchmark) DO UPDATE SET
		   risk_model = excluded.risk_model,
		   payload = excluded.payload,
		   refreshed_at = excluded.refreshed_at`,
		portfolioID, domain.NormalizeTicker(benchmark), snapshot.Meta.RiskModel, string(payload), refreshedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
