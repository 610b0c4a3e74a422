// Package sectors resolves a coarse sector label per ticker.
//
// Reads are synchronous and never touch the network: a static table wins,
// then the TTL cache. Misses and stale entries schedule a background
// resolution against the metadata provider, deduplicated per ticker.
package sectors

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/holdings-risk/internal/clientdata"
	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultResolveTimeout bounds background resolutions that have no caller context.
const DefaultResolveTimeout = 15 * time.Second

// MetadataProvider returns descriptive metadata for a symbol.
type MetadataProvider interface {
	FetchMetadata(ctx context.Context, symbol string) (*domain.SecurityMetadata, error)
}

// Source describes where a sector label came from.
type Source string

const (
	SourceStatic  Source = "static"
	SourceCache   Source = "cache"
	SourceStale   Source = "stale"
	SourcePending Source = "pending"
)

// Lookup is a sector label with its provenance.
type Lookup struct {
	StoredAt *time.Time `json:"storedAt,omitempty"`
	Ticker   string     `json:"ticker"`
	Sector   string     `json:"sector"`
	Source   Source     `json:"source"`
}

// Classifier resolves and caches sector labels.
type Classifier struct {
	provider       MetadataProvider
	cache          *clientdata.Store[string]
	group          singleflight.Group
	resolveTimeout time.Duration
	log            zerolog.Logger
}

// NewClassifier creates a classifier. provider may be nil, in which case
// only the static table and identifier patterns apply.
func NewClassifier(provider MetadataProvider, cache *clientdata.Store[string], log zerolog.Logger) *Classifier {
	if cache == nil {
		cache = clientdata.NewStore[string]("sectors")
	}
	return &Classifier{
		provider:       provider,
		cache:          cache,
		resolveTimeout: DefaultResolveTimeout,
		log:            log.With().Str("component", "sector_classifier").Logger(),
	}
}

// SectorForTicker returns the best known label without blocking. It never
// returns an empty string.
func (c *Classifier) SectorForTicker(ticker string) string {
	return c.Lookup(ticker).Sector
}

// Lookup is SectorForTicker with provenance.
func (c *Classifier) Lookup(ticker string) Lookup {
	t := domain.NormalizeTicker(ticker)
	if t == "" {
		return Lookup{Sector: Other, Source: SourceStatic}
	}
	if label, ok := staticSectors[t]; ok {
		return Lookup{Ticker: t, Sector: label, Source: SourceStatic}
	}

	entry, ok := c.cache.Get(t)
	if !ok {
		c.resolveInBackground(t)
		return Lookup{Ticker: t, Sector: Other, Source: SourcePending}
	}

	storedAt := entry.StoredAt
	if !c.cache.IsFresh(t) {
		c.resolveInBackground(t)
		return Lookup{Ticker: t, Sector: entry.Value, Source: SourceStale, StoredAt: &storedAt}
	}
	return Lookup{Ticker: t, Sector: entry.Value, Source: SourceCache, StoredAt: &storedAt}
}

// EnsureSectors resolves every ticker that has no fresh cache entry and
// waits for all resolutions to settle.
func (c *Classifier) EnsureSectors(ctx context.Context, tickers []string) {
	seen := make(map[string]struct{}, len(tickers))
	var wg sync.WaitGroup
	for _, ticker := range tickers {
		t := domain.NormalizeTicker(ticker)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, static := staticSectors[t]; static || c.cache.IsFresh(t) {
			continue
		}

		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			c.resolve(ctx, sym)
		}(t)
	}
	wg.Wait()
}

// SeedSectorFromQuote primes the cache from metadata obtained incidentally,
// typically alongside a quote. It does no network I/O and never replaces a
// fresh label other than Other.
func (c *Classifier) SeedSectorFromQuote(ticker string, meta *domain.SecurityMetadata) {
	if meta == nil {
		return
	}
	t := domain.NormalizeTicker(ticker)
	if _, ok := staticSectors[t]; ok {
		return
	}
	if current, ok := c.cache.GetIfFresh(t); ok && current != Other {
		return
	}

	label := Classify(t, meta)
	if label == Other {
		return
	}
	c.cache.Store(t, label, clientdata.TTLSector)
}

func (c *Classifier) resolveInBackground(ticker string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.resolveTimeout)
		defer cancel()
		c.resolve(ctx, ticker)
	}()
}

// resolve fetches and classifies metadata once per ticker at a time.
// Concurrent callers share the in-flight result.
func (c *Classifier) resolve(ctx context.Context, ticker string) string {
	v, _, _ := c.group.Do(ticker, func() (interface{}, error) {
		label := c.classifyRemote(ctx, ticker)
		ttl := clientdata.TTLSector
		if label == Other {
			ttl = clientdata.TTLSectorUnknown
		}
		c.cache.Store(ticker, label, ttl)
		return label, nil
	})
	label, _ := v.(string)
	if label == "" {
		return Other
	}
	return label
}

func (c *Classifier) classifyRemote(ctx context.Context, ticker string) string {
	if c.provider == nil {
		return ClassifyIdentifier(ticker)
	}

	meta, err := c.provider.FetchMetadata(ctx, ticker)
	if err != nil {
		c.log.Debug().Err(err).Str("ticker", ticker).Msg("Metadata lookup failed, using identifier patterns")
		return ClassifyIdentifier(ticker)
	}

	label := Classify(ticker, meta)
	c.log.Debug().Str("ticker", ticker).Str("sector", label).Msg("Resolved sector")
	return label
}
