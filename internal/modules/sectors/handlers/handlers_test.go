package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/holdings-risk/internal/modules/sectors"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleGetSector(t *testing.T) {
	classifier := sectors.NewClassifier(nil, nil, zerolog.Nop())
	r := chi.NewRouter()
	NewHandler(classifier, zerolog.Nop()).RegisterRoutes(r)

	tests := []struct {
		ticker string
		sector string
		source sectors.Source
	}{
		{"aapl", sectors.Technology, sectors.SourceStatic},
		{"ZZZZ", sectors.Other, sectors.SourcePending},
	}

	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sectors/"+tt.ticker, nil))
			require.Equal(t, http.StatusOK, w.Code)

			var body struct {
				Data sectors.Lookup `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.sector, body.Data.Sector)
			assert.Equal(t, tt.source, body.Data.Source)
		})
	}
}
