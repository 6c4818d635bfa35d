package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/flexinvest/platform/internal/database"
)

// StatsSource is the database surface reported on the status page
type StatsSource interface {
	Name() string
	Path() string
	QuickCheck(ctx context.Context) error
	GetStats() (*database.Stats, error)
}

// SystemHandlers serves back-office system status
type SystemHandlers struct {
	db        StatsSource
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(db StatsSource, startedAt time.Time, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		db:        db,
		startedAt: startedAt,
		log:       log.With().Str("component", "system_handlers").Logger(),
	}
}

// SystemStatusResponse is the body of GET /api/admin/system/status
type SystemStatusResponse struct {
	Status        string         `json:"status"` // "healthy" or "degraded"
	UptimeSeconds int64          `json:"uptime_seconds"`
	Goroutines    int            `json:"goroutines"`
	CPUPercent    float64        `json:"cpu_percent"`
	MemoryPercent float64        `json:"memory_percent"`
	MemoryUsedMB  uint64         `json:"memory_used_mb"`
	DiskPercent   float64        `json:"disk_percent"`
	DiskFreeGB    float64        `json:"disk_free_gb"`
	Database      DatabaseStatus `json:"database"`
	Timestamp     string         `json:"timestamp"`
}

// DatabaseStatus reports the ledger database
type DatabaseStatus struct {
	Name   string          `json:"name"`
	Status string          `json:"status"`
	Stats  *database.Stats `json:"stats,omitempty"`
}

// HandleSystemStatus handles GET /api/admin/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent, memUsedMB := h.getSystemStats()
	diskPercent, diskFreeGB := h.getDiskStats()

	resp := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		MemoryUsedMB:  memUsedMB,
		DiskPercent:   diskPercent,
		DiskFreeGB:    diskFreeGB,
		Database:      DatabaseStatus{Name: h.db.Name(), Status: "connected"},
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.db.QuickCheck(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database.Status = "error: " + err.Error()
	} else if stats, err := h.db.GetStats(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get database statistics")
	} else {
		resp.Database.Stats = stats
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     resp,
		"metadata": map[string]interface{}{
			"timestamp": resp.Timestamp,
		},
	}, h.log)
}

// getSystemStats returns CPU percent, memory percent and used memory in MB
func (h *SystemHandlers) getSystemStats() (float64, float64, uint64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0, 0
	}

	return cpuPercent[0], memStat.UsedPercent, memStat.Used / 1024 / 1024
}

// getDiskStats reports the filesystem holding the database
func (h *SystemHandlers) getDiskStats() (float64, float64) {
	path := h.db.Path()
	if path == "" {
		path = "/"
	}

	usage, err := disk.Usage(filepath.Dir(path))
	if err != nil {
		h.log.Warn().Err(err).Str("path", path).Msg("Failed to get disk usage")
		return 0, 0
	}
	return usage.UsedPercent, float64(usage.Free) / 1024 / 1024 / 1024
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
