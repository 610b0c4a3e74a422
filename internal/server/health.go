package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/holdings-risk/internal/database"
)

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status        string          `json:"status"`
	Service       string          `json:"service"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	CPUPercent    float64         `json:"cpu_percent"`
	MemoryPercent float64         `json:"memory_percent"`
	Database      *DatabaseHealth `json:"database,omitempty"`
	CheckedAt     string          `json:"checked_at"`
}

// DatabaseHealth describes the snapshot database.
type DatabaseHealth struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Stats *database.Stats `json:"stats,omitempty"`
}

// handleLiveness answers load balancer probes without touching dependencies.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealth reports process and database health.
// A failing database check answers 503 with status "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cpuPct, memPct := s.systemStats()
	resp := HealthResponse{
		Status:        "healthy",
		Service:       "holdings-risk",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		CPUPercent:    cpuPct,
		MemoryPercent: memPct,
		CheckedAt:     time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if s.db != nil {
		dbHealth := &DatabaseHealth{OK: true}
		if err := s.db.HealthCheck(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Database health check failed")
			dbHealth.OK = false
			dbHealth.Error = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else if stats, err := s.db.GetStats(ctx); err == nil {
			dbHealth.Stats = stats
		}
		resp.Database = dbHealth
	}

	s.writeJSON(w, status, resp)
}

// systemStats samples CPU over a short window so the endpoint stays fast.
func (s *Server) systemStats() (float64, float64) {
	cpuAvg := 0.0
	if pct, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(pct) > 0 {
		cpuAvg = pct[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
