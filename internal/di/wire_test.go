package di

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holdings-risk/internal/clientdata"
	"github.com/aristath/holdings-risk/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:              t.TempDir(),
		DefaultBenchmark:     "SPY",
		BasePortfolioSize:    100000,
		FinnhubRateLimit:     1,
		HTTPTimeout:          time.Second,
		CacheCleanupSchedule: "0 */10 * * * *",
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.HoldingsDB)
	assert.NotNil(t, container.MarketData)
	assert.NotNil(t, container.FxResolver)
	assert.NotNil(t, container.SectorClassifier)
	assert.NotNil(t, container.SnapshotService)
	assert.Len(t, container.Handlers, 5)
	assert.False(t, container.FinnhubClient.Enabled())
	assert.Equal(t, clientdata.StaleGrace, container.CacheRegistry.Grace())

	require.NotNil(t, jobs)
	assert.Equal(t, "cache_cleanup", jobs.CacheCleanup.Name())
	assert.Equal(t, "snapshot_refresh", jobs.SnapshotRefresh.Name())
	assert.Equal(t, 1, container.Scheduler.Entries())
}

func TestWireSchedulesSnapshotRefresh(t *testing.T) {
	cfg := testConfig(t)
	cfg.SnapshotRefreshSchedule = "@every 1h"

	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.Equal(t, 2, container.Scheduler.Entries())
}

func TestWireRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.SnapshotRefreshSchedule = "whenever"

	_, _, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot refresh")
}

func TestSnapshotRefreshJobRunsWithNoPortfolios(t *testing.T) {
	container, jobs, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NoError(t, jobs.SnapshotRefresh.Run())
	assert.NoError(t, jobs.CacheCleanup.Run())
}

func TestInitializeServicesRequiresDatabase(t *testing.T) {
	err := InitializeServices(&Container{}, testConfig(t), zerolog.Nop())
	assert.Error(t, err)
}
