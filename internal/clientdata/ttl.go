package clientdata

import "time"

// TTL constants for the in-process caches.
const (
	TTLSector         = 6 * time.Hour    // Resolved sector classification
	TTLSectorUnknown  = 5 * time.Minute  // "Other" is retried soon after
	TTLExchangeRate   = 5 * time.Minute  // Resolved FX pair
	TTLExchangeAPI    = time.Hour        // exchangerate-api payloads
	TTLQuote          = time.Minute      // Batch quote results
	TTLMonthlyHistory = 6 * time.Hour    // Month-end close series
	TTLDailyHistory   = time.Hour        // Daily bars
	TTLFundamentals   = 12 * time.Hour   // Balance sheet and market factors
	TTLMetadata       = 24 * time.Hour   // Security profile lookups
	StaleGrace        = 24 * time.Hour   // How long expired entries stay usable as fallback
)
