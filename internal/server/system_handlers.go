package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves host resource statistics.
type SystemHandlers struct {
	log     zerolog.Logger
	dataDir string
}

// NewSystemHandlers creates system handlers. dataDir is the path whose disk
// usage is reported.
func NewSystemHandlers(log zerolog.Logger, dataDir string) *SystemHandlers {
	return &SystemHandlers{
		log:     log.With().Str("handler", "system").Logger(),
		dataDir: dataDir,
	}
}

// SystemStatusResponse is the body of GET /api/system/status.
type SystemStatusResponse struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	DiskPercent   float64 `json:"disk_percent,omitempty"`
	DiskFreeMB    uint64  `json:"disk_free_mb,omitempty"`
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   uint64  `json:"heap_alloc_mb"`
	Timestamp     string  `json:"timestamp"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	resp := SystemStatusResponse{
		Goroutines: runtime.NumGoroutine(),
		Timestamp:  time.Now().Format(time.RFC3339),
	}
	resp.CPUPercent, resp.MemoryPercent = h.hostLoad()

	if vm, err := mem.VirtualMemory(); err == nil {
		resp.MemoryUsedMB = vm.Used / 1024 / 1024
	}

	if h.dataDir != "" {
		if usage, err := disk.Usage(h.dataDir); err != nil {
			h.log.Warn().Err(err).Str("path", h.dataDir).Msg("Failed to get disk usage")
		} else {
			resp.DiskPercent = usage.UsedPercent
			resp.DiskFreeMB = usage.Free / 1024 / 1024
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	resp.HeapAllocMB = ms.HeapAlloc / 1024 / 1024

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// hostLoad returns the CPU and RAM usage percentages.
func (h *SystemHandlers) hostLoad() (float64, float64) {
	// 100ms sample keeps /health responsive
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
