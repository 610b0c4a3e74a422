package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/aristath/holdings-risk/internal/clientdata"
	"github.com/aristath/holdings-risk/internal/clients/exchangerate"
	"github.com/aristath/holdings-risk/internal/clients/finnhub"
	"github.com/aristath/holdings-risk/internal/clients/stooq"
	"github.com/aristath/holdings-risk/internal/clients/yahoo"
	"github.com/aristath/holdings-risk/internal/config"
	"github.com/aristath/holdings-risk/internal/modules/currency"
	currencyhandlers "github.com/aristath/holdings-risk/internal/modules/currency/handlers"
	"github.com/aristath/holdings-risk/internal/modules/marketdata"
	marketdatahandlers "github.com/aristath/holdings-risk/internal/modules/marketdata/handlers"
	"github.com/aristath/holdings-risk/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/holdings-risk/internal/modules/portfolio/handlers"
	"github.com/aristath/holdings-risk/internal/modules/sectors"
	sectorhandlers "github.com/aristath/holdings-risk/internal/modules/sectors/handlers"
	"github.com/aristath/holdings-risk/internal/modules/snapshots"
	snapshothandlers "github.com/aristath/holdings-risk/internal/modules/snapshots/handlers"
	"github.com/aristath/holdings-risk/internal/server"
)

// InitializeServices builds clients, caches, services and handlers.
// The databases must already be initialized.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container.HoldingsDB == nil {
		return fmt.Errorf("holdings database not initialized")
	}

	// Metrics
	container.MetricsRegistry = prometheus.NewRegistry()
	container.MetricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := marketdata.NewProviderMetrics(container.MetricsRegistry)
	if err != nil {
		return fmt.Errorf("failed to register provider metrics: %w", err)
	}
	container.ProviderMetrics = metrics

	// Caches
	container.CacheRegistry = clientdata.NewRegistry(clientdata.StaleGrace)
	exchangeCache := clientdata.NewStore[map[string]float64]("exchange_api")
	fxCache := clientdata.NewStore[float64]("fx_rates")
	sectorCache := clientdata.NewStore[string]("sectors")
	container.CacheRegistry.Register(exchangeCache)
	container.CacheRegistry.Register(fxCache)
	container.CacheRegistry.Register(sectorCache)

	// Clients
	container.FinnhubClient = finnhub.NewClient(cfg.FinnhubAPIKey, log,
		finnhub.WithRateLimit(cfg.FinnhubRateLimit),
		finnhub.WithTimeout(cfg.HTTPTimeout))
	if !container.FinnhubClient.Enabled() {
		log.Warn().Msg("FINNHUB_API_KEY not set, tier 1 provider disabled")
	}
	container.YahooClient = yahoo.NewClient(log, yahoo.WithTimeout(cfg.HTTPTimeout))
	container.StooqClient = stooq.NewClient(cfg.HTTPTimeout, log)
	container.ExchangeRateClient = exchangerate.NewClient(exchangeCache, cfg.HTTPTimeout, log)

	// Market data
	container.MarketData = marketdata.NewService(marketdata.Providers{
		Finnhub: container.FinnhubClient,
		Yahoo:   container.YahooClient,
		Stooq:   container.StooqClient,
	}, marketdata.NewCaches(container.CacheRegistry), metrics, log)

	container.FxResolver = currency.NewResolver(container.MarketData, container.ExchangeRateClient, fxCache, log)
	container.SectorClassifier = sectors.NewClassifier(container.MarketData, sectorCache, log)

	// Snapshots
	container.PortfolioRepo = portfolio.NewRepository(container.HoldingsDB.Conn(), log)
	container.Orchestrator = snapshots.NewOrchestrator(
		container.MarketData,
		container.SectorClassifier,
		container.FxResolver,
		cfg.BasePortfolioSize,
		log,
	)
	container.SnapshotService = snapshots.NewService(
		container.PortfolioRepo,
		container.Orchestrator,
		cfg.DefaultBenchmark,
		log,
	)

	// HTTP handlers
	container.Handlers = []server.RouteRegistrar{
		portfoliohandlers.NewHandler(container.PortfolioRepo, log),
		snapshothandlers.NewHandler(container.SnapshotService, log),
		sectorhandlers.NewHandler(container.SectorClassifier, log),
		currencyhandlers.NewHandler(container.FxResolver, log),
		marketdatahandlers.NewHandler(metrics, log),
	}

	log.Info().
		Bool("finnhub", container.FinnhubClient.Enabled()).
		Str("default_benchmark", cfg.DefaultBenchmark).
		Msg("Services initialized")

	return nil
}
