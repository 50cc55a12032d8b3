package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// handleValidateURL checks that url answers a HEAD request with a PDF.
func (s *Server) handleValidateURL(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		jsonError(w, "url query parameter must be an http(s) URL", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodHead, u.String(), nil)
	if err != nil {
		jsonError(w, "invalid url: "+err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		jsonError(w, fmt.Sprintf("An error occurred while requesting %q.", u.String()), http.StatusInternalServerError)
		return
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		jsonError(w, "Request unsuccessful", resp.StatusCode)
		return
	}
	if !isPDF(resp.Header.Get("Content-Type")) {
		jsonError(w, "File has unsupported extension type", http.StatusUnsupportedMediaType)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"detail": "PDF URL is valid"})
}
