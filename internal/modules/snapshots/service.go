package snapshots

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/rs/zerolog"
)

// Computer builds a snapshot from holdings.
type Computer interface {
	ComputeHoldingsSnapshot(ctx context.Context, holdings []domain.Holding, benchmark, baseCurrency string) *domain.HoldingsSnapshot
}

// Service serves snapshots from the store and recomputes them on a miss or
// on demand.
type Service struct {
	store            domain.PortfolioStore
	computer         Computer
	defaultBenchmark string
	log              zerolog.Logger
}

// NewService creates the snapshot service.
func NewService(store domain.PortfolioStore, computer Computer, defaultBenchmark string, log zerolog.Logger) *Service {
	return &Service{
		store:            store,
		computer:         computer,
		defaultBenchmark: domain.NormalizeTicker(defaultBenchmark),
		log:              log.With().Str("service", "snapshots").Logger(),
	}
}

// DefaultBenchmark returns the benchmark used when a request names none.
func (s *Service) DefaultBenchmark() string {
	return s.defaultBenchmark
}

func (s *Service) resolveBenchmark(benchmark string) string {
	if b := domain.NormalizeTicker(benchmark); b != "" {
		return b
	}
	return s.defaultBenchmark
}

func (s *Service) loadPortfolio(ctx context.Context, userID, portfolioID string) (*domain.Portfolio, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthorized
	}
	p, err := s.store.LoadPortfolio(ctx, userID, portfolioID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load portfolio %s: %w", portfolioID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, domain.ErrNotFound)
	}
	return p, nil
}

// GetHoldingsAnalysis returns the cached snapshot unless forceRefresh is set
// or none exists, in which case it computes and stores a new one. A failed
// write is logged and the computed snapshot is still returned.
func (s *Service) GetHoldingsAnalysis(ctx context.Context, userID, portfolioID, benchmark string, forceRefresh bool) (*domain.HoldingsSnapshot, error) {
	p, err := s.loadPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	benchmark = s.resolveBenchmark(benchmark)

	if !forceRefresh {
		cached, err := s.store.GetSnapshot(ctx, p.ID, benchmark)
		if err != nil {
			s.log.Warn().Err(err).Str("portfolio_id", p.ID).Msg("Snapshot read failed, recomputing")
		} else if cached != nil && cached.Meta.BaseCurrency == baseCurrency(p) {
			return cached, nil
		}
	}

	snapshot := s.computer.ComputeHoldingsSnapshot(ctx, p.Holdings, benchmark, baseCurrency(p))
	if err := s.store.UpsertSnapshot(ctx, p.ID, benchmark, snapshot); err != nil {
		s.log.Error().Err(err).Str("portfolio_id", p.ID).Str("benchmark", benchmark).Msg("Failed to store snapshot")
	}
	return snapshot, nil
}

// RefreshHoldings always recomputes and stores the snapshot. A failed write
// is returned as ErrPersistence.
func (s *Service) RefreshHoldings(ctx context.Context, userID, portfolioID, benchmark string) (*domain.HoldingsSnapshot, error) {
	p, err := s.loadPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	benchmark = s.resolveBenchmark(benchmark)

	snapshot := s.computer.ComputeHoldingsSnapshot(ctx, p.Holdings, benchmark, baseCurrency(p))
	if err := s.store.UpsertSnapshot(ctx, p.ID, benchmark, snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	s.log.Info().
		Str("portfolio_id", p.ID).
		Str("benchmark", benchmark).
		Int("holdings", len(snapshot.Holdings)).
		Msg("Snapshot refreshed")
	return snapshot, nil
}

func baseCurrency(p *domain.Portfolio) string {
	if p.BaseCurrency == "" {
		return domain.DefaultBaseCurrency
	}
	return p.BaseCurrency
}
