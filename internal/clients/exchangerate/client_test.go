package exchangerate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/holdings-risk/internal/clientdata"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRate_SameCurrency(t *testing.T) {
	client := NewClient(nil, time.Second, zerolog.Nop())
	rate, err := client.GetRate(context.Background(), "usd", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
}

func TestGetRate_FetchesAndCachesTable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/EUR", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"EUR","rates":{"USD":1.1,"GBP":0.85}}`))
	}))
	defer server.Close()

	cache := clientdata.NewStore[map[string]float64]("exchangerate")
	client := NewClient(cache, time.Second, zerolog.Nop())
	client.SetBaseURL(server.URL)

	rate, err := client.GetRate(context.Background(), "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.1, rate)

	rate, err = client.GetRate(context.Background(), "EUR", "GBP")
	require.NoError(t, err)
	assert.Equal(t, 0.85, rate)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetRate_StaleFallbackOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cache := clientdata.NewStore[map[string]float64]("exchangerate")
	cache.Store("EUR", map[string]float64{"USD": 1.05}, -time.Minute)

	client := NewClient(cache, time.Second, zerolog.Nop())
	client.SetBaseURL(server.URL)

	rate, err := client.GetRate(context.Background(), "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.05, rate)
}

func TestGetRate_ErrorWithoutCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewClient(nil, time.Second, zerolog.Nop())
	client.SetBaseURL(server.URL)

	_, err := client.GetRate(context.Background(), "EUR", "USD")
	assert.Error(t, err)
}

func TestGetRate_MissingCurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rates":{"USD":1.1}}`))
	}))
	defer server.Close()

	client := NewClient(nil, time.Second, zerolog.Nop())
	client.SetBaseURL(server.URL)

	_, err := client.GetRate(context.Background(), "EUR", "JPY")
	assert.Error(t, err)
}
