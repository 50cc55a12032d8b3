package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleSummarizerStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "summarizer stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model": s.cfg.HuggingFaceModel,
		"stats": s.stats.Snapshot(),
	})
}
