package handlers

import (
	"net/http"
)

// ScriptsResponse lists the registered external thumbnailers.
type ScriptsResponse struct {
	Count   int               `json:"count"`
	Scripts map[string]string `json:"scripts"`
}

// ListScripts returns the current MIME type to command mapping.
func (h *Handlers) ListScripts(w http.ResponseWriter, _ *http.Request) {
	scripts := h.factory.Scripts().Snapshot()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, ScriptsResponse{Count: len(scripts), Scripts: scripts})
}

// ReloadScripts schedules a registry reload on the factory's owner loop.
func (h *Handlers) ReloadScripts(w http.ResponseWriter, _ *http.Request) {
	h.factory.NotifyConfigChanged()
	writeJSONStatus(w, "scheduled", http.StatusAccepted)
}
