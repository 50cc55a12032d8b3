package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecorder_Handler(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.Upload(200)
	r.Upload(200)
	r.GrobidRequest("ok", 2*time.Second)
	r.CacheLookup(true)
	done := r.Track()
	done()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`article_service_uploads_total{status="200"} 2`,
		`article_service_grobid_request_duration_seconds_count{outcome="ok"} 1`,
		`article_service_tei_cache_lookups_total{result="hit"} 1`,
		`article_service_parses_in_flight 0`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in output", want)
		}
	}
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	r.Upload(500)
	r.TEIParse("ok")
	r.Summarizer("error")
	r.Track()()
}
