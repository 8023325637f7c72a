package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/voltsurf/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves health and system monitoring endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	historyDB   *database.DB
	cacheDB     *database.DB
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, historyDB, cacheDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		historyDB:   historyDB,
		cacheDB:     cacheDB,
	}
}

// HandleHealth reports liveness and database reachability.
// GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	databases := map[string]string{}

	for _, db := range []*database.DB{h.historyDB, h.cacheDB} {
		if db == nil {
			continue
		}
		if err := db.Conn().Ping(); err != nil {
			databases[db.Name()] = "unreachable"
			status = "degraded"
		} else {
			databases[db.Name()] = "ok"
		}
	}

	h.writeJSON(w, map[string]interface{}{
		"status":    status,
		"uptime_s":  int64(time.Since(h.startupTime).Seconds()),
		"databases": databases,
	})
}

// HandleSystemStatus reports resource usage and data directory size.
// GET /api/v1/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, ramPct := h.getSystemStats()

	h.writeJSON(w, map[string]interface{}{
		"cpu_percent":  cpuPct,
		"ram_percent":  ramPct,
		"data_size_mb": h.getDirSize(h.dataDir),
		"uptime_s":     int64(time.Since(h.startupTime).Seconds()),
	})
}

// getSystemStats calculates CPU and RAM usage percentages. The 100ms
// sampling interval keeps the endpoint responsive for pollers.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
