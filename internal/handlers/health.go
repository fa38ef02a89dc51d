package handlers

import (
	"net/http"
	"runtime"
	"time"

	"desktop-thumbnailer/internal/startup"
)

const statusHealthy = "healthy"

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	CacheRoot string   `json:"cacheRoot"`
	Size      string   `json:"size"`
	AppID     string   `json:"appId"`
	Codecs    []string `json:"codecs"`
	Scripts   int      `json:"scripts"`

	MemoryUsage  float64 `json:"memoryUsage"`
	MemoryPaused bool    `json:"memoryPaused"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		CacheRoot:    h.factory.Paths().Root(),
		Size:         h.factory.Size().String(),
		AppID:        h.factory.AppID(),
		Codecs:       h.factory.Codecs().Names(),
		Scripts:      h.factory.Scripts().Len(),
		MemoryUsage:  h.memory.Usage(),
		MemoryPaused: h.memory.Paused(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}
