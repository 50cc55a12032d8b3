package grobid

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_ProcessFulltext(t *testing.T) {
	var gotPath string
	var gotFields map[string][]string
	var gotPDF string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotFields = r.MultipartForm.Value
		f, hdr, err := r.FormFile("input")
		if err != nil {
			t.Errorf("missing input file: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotPDF = string(b)
		if ct := hdr.Header.Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("expected application/pdf part, got %q", ct)
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte("<TEI/>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", time.Second, testLogger())
	defer c.Close()

	form := NewForm("paper.pdf", []byte("%PDF-1.4"))
	form.ConsolidateCitations = 1
	form.IncludeRawCitations = true
	form.TEICoordinates = []string{"ref", "head"}

	tei, err := c.ProcessFulltext(context.Background(), form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(tei) != "<TEI/>" {
		t.Errorf("expected TEI body, got %q", tei)
	}
	if gotPath != "/api/processFulltextDocument" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotPDF != "%PDF-1.4" {
		t.Errorf("unexpected pdf payload %q", gotPDF)
	}
	checks := map[string]string{
		"segmentSentences":     "1",
		"consolidateHeader":    "0",
		"consolidateCitations": "1",
		"includeRawCitations":  "1",
	}
	for k, v := range checks {
		if got := gotFields[k]; len(got) != 1 || got[0] != v {
			t.Errorf("field %s: expected %q, got %v", k, v, got)
		}
	}
	if _, ok := gotFields["includeRawAffiliations"]; ok {
		t.Error("disabled flag should not be sent")
	}
	if got := gotFields["teiCoordinates"]; len(got) != 2 || got[0] != "ref" || got[1] != "head" {
		t.Errorf("unexpected teiCoordinates %v", got)
	}
}

func TestClient_StatusCategories(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNonAuthoritativeInfo, ErrPartial},
		{http.StatusBadRequest, ErrBadInput},
		{http.StatusInternalServerError, ErrInternal},
		{http.StatusServiceUnavailable, ErrUnavailable},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(tt.status)
			w.Write([]byte("<html><head><title>x</title></head><body><h2>HTTP ERROR</h2><p>boom</p></body></html>"))
		}))
		c := NewClient(srv.URL, time.Second, testLogger())

		_, err := c.ProcessFulltext(context.Background(), NewForm("a.pdf", []byte("pdf")))
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.Message != "HTTP ERROR boom" {
			t.Errorf("status %d: expected html text message, got %v", tt.status, err)
		}
		srv.Close()
	}
}

func TestClient_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, testLogger())
	_, err := c.ProcessFulltext(context.Background(), NewForm("a.pdf", []byte("pdf")))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_BreakerOpensOnlyForUnavailable(t *testing.T) {
	var status, calls atomic.Int32
	status.Store(http.StatusBadRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second, testLogger())
	form := NewForm("a.pdf", []byte("pdf"))

	for range 6 {
		c.ProcessFulltext(context.Background(), form)
	}
	if n := calls.Load(); n != 6 {
		t.Fatalf("bad input should not trip the breaker, got %d calls", n)
	}

	status.Store(http.StatusServiceUnavailable)
	for range 5 {
		c.ProcessFulltext(context.Background(), form)
	}
	before := calls.Load()
	_, err := c.ProcessFulltext(context.Background(), form)
	if calls.Load() != before {
		t.Error("expected open breaker to short-circuit the call")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable from open breaker, got %v", err)
	}
}

func TestForm_Validate(t *testing.T) {
	f := NewForm("a.pdf", []byte("pdf"))
	f.ConsolidateHeader = 3
	if err := f.Validate(); err == nil {
		t.Error("expected out of range consolidation to fail")
	}
	if err := NewForm("a.pdf", nil).Validate(); err == nil {
		t.Error("expected empty pdf to fail")
	}
}

func TestErrorMessage_PlainText(t *testing.T) {
	if got := errorMessage("text/plain", []byte("  no\n pdf  ")); got != "no pdf" {
		t.Errorf("expected %q, got %q", "no pdf", got)
	}
}
