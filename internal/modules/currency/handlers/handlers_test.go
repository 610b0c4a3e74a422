package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	rate float64
}

func (s stubResolver) FetchFxRate(_ context.Context, from, to string) float64 {
	return s.rate
}

func (s stubResolver) ConvertPrice(_ context.Context, amount float64, from, to string) float64 {
	return amount * s.rate
}

func newRouter() http.Handler {
	r := chi.NewRouter()
	NewHandler(stubResolver{rate: 1.25}, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func TestHandleGetRate(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/currency/rate/EUR/USD", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1.25, body.Data["rate"])
	assert.Equal(t, "EURUSD=X", body.Data["symbol"])
}

func TestHandleConvert(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   float64
	}{
		{"ok", `{"from_currency":"EUR","to_currency":"USD","amount":100}`, http.StatusOK, 125},
		{"missing currency", `{"from_currency":"EUR","amount":100}`, http.StatusBadRequest, 0},
		{"bad json", `{`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/currency/convert", strings.NewReader(tt.body)))
			require.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				return
			}

			var body struct {
				Data map[string]interface{} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Data["converted"])
		})
	}
}
