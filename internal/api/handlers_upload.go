package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/MastaChicken/Group-Project/internal/grobid"
	"github.com/MastaChicken/Group-Project/internal/pdfdoc"
	"github.com/MastaChicken/Group-Project/internal/pipeline"
	"github.com/MastaChicken/Group-Project/internal/tei"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	defer func() { s.metrics.Upload(status) }()
	fail := func(msg string, code int) {
		status = code
		jsonError(w, msg, code)
	}

	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		fail("invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		fail("file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !isPDF(header.Header.Get("Content-Type")) {
		fail("Invalid document type", http.StatusUnsupportedMediaType)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		fail("failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		fail(fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	filename := sanitizeFilename(header.Filename)
	resp, err := s.processor.Process(r.Context(), filename, data)
	if err != nil {
		code, msg := errorStatus(err)
		if code >= 500 {
			s.log.Error("upload failed", "filename", filename, "status", code, "error", err)
		}
		fail(msg, code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// errorStatus maps a processing error to its HTTP status and message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, pdfdoc.ErrUnreadable), errors.Is(err, pdfdoc.ErrEncrypted):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, tei.ErrNotStructured), errors.Is(err, tei.ErrMalformed):
		return http.StatusBadRequest, "document could not be structured"
	case errors.Is(err, grobid.ErrBadInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, grobid.ErrPartial):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, grobid.ErrInternal):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, grobid.ErrUnavailable), errors.Is(err, pipeline.ErrBusy):
		return http.StatusServiceUnavailable, err.Error()
	}
	var se *grobid.StatusError
	if errors.As(err, &se) {
		return http.StatusBadGateway, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func isPDF(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/pdf"
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed.pdf"
	}
	return name
}
