package summary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(ms)
	}
	stats.RecordFailure()

	snap := stats.Snapshot()
	if snap.Count != 5 || snap.Failures != 1 {
		t.Fatalf("expected count=5 failures=1, got %d/%d", snap.Count, snap.Failures)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got %d/%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 || snap.P50Ms != 300 {
		t.Fatalf("expected avg=p50=300, got %f/%f", snap.AvgMs, snap.P50Ms)
	}
	if snap.P95Ms != 480 || snap.P99Ms != 496 {
		t.Fatalf("expected p95=480 p99=496, got %f/%f", snap.P95Ms, snap.P99Ms)
	}
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewStats(10 * time.Millisecond)
	stats.Record(100)
	stats.RecordFailure()
	time.Sleep(25 * time.Millisecond)

	if snap := stats.Snapshot(); snap.Count != 0 || snap.Failures != 0 {
		t.Fatalf("expected empty snapshot after prune, got %+v", snap)
	}
	stats.Record(-5)
	if snap := stats.Snapshot(); snap.Count != 1 || snap.MinMs != 0 {
		t.Fatalf("expected one clamped sample, got %+v", snap)
	}
}

func TestLengthBounds(t *testing.T) {
	tests := []struct{ n, min, max int }{
		{0, 0, 0},
		{100, 20, 30},
		{3142, 628, 942},
		{3143, MinTokens, MaxTokens},
		{10000, MinTokens, MaxTokens},
	}
	for _, tt := range tests {
		lo, hi := LengthBounds(tt.n)
		if lo != tt.min || hi != tt.max {
			t.Errorf("LengthBounds(%d): expected %d..%d, got %d..%d", tt.n, tt.min, tt.max, lo, hi)
		}
	}
}

func TestClient_Summarize(t *testing.T) {
	var got inferenceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/facebook/bart-large-cnn" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("unexpected auth %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`[{"summary_text":" A short summary. "}]`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/models", Model: "facebook/bart-large-cnn", Token: "tok", Timeout: time.Second})
	defer c.Close()

	text := strings.Repeat("word ", 100)
	out, err := c.Summarize(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "A short summary." {
		t.Errorf("unexpected summary %q", out)
	}
	if got.Parameters.MinLength != 26 || got.Parameters.MaxLength != 39 {
		t.Errorf("unexpected bounds %+v", got.Parameters)
	}
	if snap := c.Stats().Snapshot(); snap.Count != 1 {
		t.Errorf("expected one recorded call, got %+v", snap)
	}
}

func TestClient_SummarizeRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Model is loading"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Model: "m", Token: "tok"})
	_, err := c.Summarize(context.Background(), "text")
	var re *RetryableError
	if !errors.As(err, &re) || re.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected RetryableError, got %v", err)
	}
	if snap := c.Stats().Snapshot(); snap.Failures != 1 {
		t.Errorf("expected one failure, got %+v", snap)
	}
}

func TestClient_Disabled(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://unused", Model: "m"})
	if c.Enabled() {
		t.Fatal("expected disabled client")
	}
	if _, err := c.Summarize(context.Background(), "x"); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("expected 0 for empty text")
	}
	if got := EstimateTokens("one"); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := EstimateTokens(strings.Repeat("w ", 300)); got != 399 {
		t.Errorf("expected 399, got %d", got)
	}
}
