package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/holdings-risk/internal/database"
	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/aristath/holdings-risk/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.New(database.Config{Path: ":memory:", Name: "holdings"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	r := chi.NewRouter()
	NewHandler(portfolio.NewRepository(db.Conn(), zerolog.Nop()), zerolog.Nop()).RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(UserIDHeader, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetPortfolio(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/portfolios", "user-1",
		`{"name":"Core","base_currency":"eur","holdings":[{"ticker":"aapl","shares":10},{"ticker":"MSFT","target_weight_pct":40}]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data domain.Portfolio `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "EUR", created.Data.BaseCurrency)
	require.Len(t, created.Data.Holdings, 2)
	assert.Equal(t, "AAPL", created.Data.Holdings[0].Ticker)

	w = do(r, http.MethodGet, "/portfolios/"+created.Data.ID, "user-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var loaded struct {
		Data domain.Portfolio `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loaded))
	assert.Equal(t, created.Data.ID, loaded.Data.ID)
	assert.Len(t, loaded.Data.Holdings, 2)
}

func TestCreatePortfolioRejectsInvalidInput(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name   string
		user   string
		body   string
		status int
	}{
		{"missing user", "", `{"name":"Core"}`, http.StatusUnauthorized},
		{"bad json", "user-1", `{`, http.StatusBadRequest},
		{"missing name", "user-1", `{"name":" "}`, http.StatusBadRequest},
		{"negative shares", "user-1", `{"name":"Core","holdings":[{"ticker":"AAPL","shares":-1}]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/portfolios", tt.user, tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestGetPortfolioOwnership(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/portfolios", "owner", `{"name":"Mine"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data domain.Portfolio `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/portfolios/"+created.Data.ID, "intruder", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/portfolios/missing", "owner", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/portfolios/"+created.Data.ID, "", "").Code)
}
