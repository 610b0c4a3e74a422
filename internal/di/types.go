// Package di wires the application's dependencies.
package di

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aristath/holdings-risk/internal/clientdata"
	"github.com/aristath/holdings-risk/internal/clients/exchangerate"
	"github.com/aristath/holdings-risk/internal/clients/finnhub"
	"github.com/aristath/holdings-risk/internal/clients/stooq"
	"github.com/aristath/holdings-risk/internal/clients/yahoo"
	"github.com/aristath/holdings-risk/internal/database"
	"github.com/aristath/holdings-risk/internal/modules/currency"
	"github.com/aristath/holdings-risk/internal/modules/marketdata"
	"github.com/aristath/holdings-risk/internal/modules/portfolio"
	"github.com/aristath/holdings-risk/internal/modules/sectors"
	"github.com/aristath/holdings-risk/internal/modules/snapshots"
	"github.com/aristath/holdings-risk/internal/scheduler"
	"github.com/aristath/holdings-risk/internal/server"
)

// Container holds every long-lived dependency. It is created by Wire and
// owned by main.
type Container struct {
	// Storage
	HoldingsDB *database.DB

	// Caches and metrics
	CacheRegistry   *clientdata.Registry
	MetricsRegistry *prometheus.Registry
	ProviderMetrics *marketdata.ProviderMetrics

	// Clients
	FinnhubClient      *finnhub.Client
	YahooClient        *yahoo.Client
	StooqClient        *stooq.Client
	ExchangeRateClient *exchangerate.Client

	// Repositories
	PortfolioRepo *portfolio.Repository

	// Services
	MarketData       *marketdata.Service
	FxResolver       *currency.Resolver
	SectorClassifier *sectors.Classifier
	Orchestrator     *snapshots.Orchestrator
	SnapshotService  *snapshots.Service

	// HTTP
	Handlers []server.RouteRegistrar

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs so they can be run on demand.
type JobInstances struct {
	CacheCleanup    scheduler.Job
	SnapshotRefresh scheduler.Job
}

// Close releases the container's resources.
func (c *Container) Close() error {
	if c == nil || c.HoldingsDB == nil {
		return nil
	}
	return c.HoldingsDB.Close()
}
