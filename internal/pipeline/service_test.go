package pipeline

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MastaChicken/Group-Project/internal/events"
	"github.com/MastaChicken/Group-Project/internal/grobid"
	"github.com/MastaChicken/Group-Project/internal/nlp"
	"github.com/MastaChicken/Group-Project/internal/span"
	"github.com/MastaChicken/Group-Project/internal/store"
	"github.com/MastaChicken/Group-Project/internal/summary"
	"github.com/MastaChicken/Group-Project/internal/tei"
)

const testTEI = `<TEI xmlns="http://www.tei-c.org/ns/1.0">
<teiHeader>
  <fileDesc>
    <sourceDesc>
      <biblStruct>
        <analytic><title level="a" type="main">Graph Methods</title></analytic>
      </biblStruct>
    </sourceDesc>
  </fileDesc>
  <profileDesc>
    <abstract><div><p>Graph methods find structure.</p></div></abstract>
  </profileDesc>
</teiHeader>
<text>
  <body>
    <div><head>Introduction</head><p>Graphs are useful. They model networks.</p></div>
    <div><head>Method</head><p>We walk the graph.</p></div>
  </body>
  <back><div><listBibl></listBibl></div></back>
</text>
</TEI>`

type fakeStructurer struct {
	mu    sync.Mutex
	calls int
	errs  []error
	tei   []byte
}

func (f *fakeStructurer) ProcessFulltext(ctx context.Context, form grobid.Form) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.tei, nil
}

type fakeSummarizer struct {
	text string
	err  error
}

func (f fakeSummarizer) Enabled() bool { return true }

func (f fakeSummarizer) Summarize(context.Context, string) (string, error) {
	return f.text, f.err
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Entities(text string) []nlp.Entity {
	return []nlp.Entity{{Text: text, Label: "PERSON"}}
}

func (fakeAnalyzer) NounChunks(string) iter.Seq[nlp.Chunk] {
	return func(func(nlp.Chunk) bool) {}
}

func (fakeAnalyzer) CommonWords(text string, threshold int) ([]nlp.Ranked, error) {
	return []nlp.Ranked{{Term: "graph", Score: strings.Count(text, "graph")}}, nil
}

// RankSentences returns the first sentence of text.
func (fakeAnalyzer) RankSentences(text string, n int) ([]string, error) {
	first, _, _ := strings.Cut(text, ".")
	return []string{strings.TrimSpace(first) + "."}, nil
}

func (fakeAnalyzer) PhraseRanks(text string) ([]nlp.Ranked, error) {
	return []nlp.Ranked{{Term: "graph methods", Score: 100}}, nil
}

func (fakeAnalyzer) Sentences(text string) ([]string, error) {
	return strings.SplitAfter(text, ". "), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Parsed
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Parsed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() {}

type memCache struct {
	mu      sync.Mutex
	entries map[string]store.Entry
	puts    int
}

func (c *memCache) Get(_ context.Context, hash string) (store.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[hash]
	if !ok {
		return store.Entry{}, store.ErrNotFound
	}
	return e, nil
}

func (c *memCache) Put(_ context.Context, e store.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.Hash] = e
	c.puts++
	return nil
}

func (c *memCache) Close(context.Context) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(st Structurer, sum Summarizer, cache store.Cache, pub events.Publisher, opts Options) *Service {
	s := NewService(st, sum, fakeAnalyzer{}, cache, pub, nil, testLogger(), opts)
	s.backoff = func(int) time.Duration { return 0 }
	return s
}

func testDocument(hash string) document {
	return document{
		filename: "paper.pdf",
		pdf:      []byte("%PDF-1.4 test"),
		hash:     hash,
		uid:      "10.1234/abc",
		pages: func() []span.Page {
			return []span.Page{{
				Index:  0,
				Bounds: span.Rect{X1: 600, Y1: 800},
				Spans: []span.Span{
					{Text: "Introduction", Size: 12, Origin: span.Point{X: 50, Y: 100}},
					{Text: "Graphs are useful.", Size: 12, Origin: span.Point{X: 50, Y: 120}},
				},
			}}
		},
		toc: func() []string { return []string{"Introduction"} },
	}
}

func TestProcess_Structured(t *testing.T) {
	st := &fakeStructurer{tei: []byte(testTEI)}
	cache := &memCache{entries: map[string]store.Entry{}}
	pub := &recordingPublisher{}
	s := newTestService(st, nil, cache, pub, Options{CommonWordThreshold: 5})

	resp, err := s.process(context.Background(), testDocument("h1"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if resp.Article == nil || len(resp.Article.Sections) != 2 {
		t.Fatalf("expected article with 2 sections, got %+v", resp.Article)
	}
	if resp.Fallback != nil {
		t.Errorf("expected no fallback, got %v", resp.Fallback)
	}
	if resp.UID != "10.1234/abc" {
		t.Errorf("expected uid, got %q", resp.UID)
	}
	want := []string{"Graphs are useful.", "We walk the graph."}
	if strings.Join(resp.Summary, "|") != strings.Join(want, "|") {
		t.Errorf("expected summary %v, got %v", want, resp.Summary)
	}
	if len(resp.PhraseRanks) != 1 || resp.PhraseRanks[0].Term != "graph methods" {
		t.Errorf("expected phrase ranks from abstract, got %v", resp.PhraseRanks)
	}
	if _, ok := cache.entries["h1"]; !ok {
		t.Error("expected tei to be cached")
	}
	if len(pub.events) != 1 || pub.events[0].Status != events.StatusParsed || pub.events[0].Title != "Graph Methods" {
		t.Errorf("unexpected events %+v", pub.events)
	}
}

func TestProcess_CacheHit(t *testing.T) {
	st := &fakeStructurer{}
	cache := &memCache{entries: map[string]store.Entry{"h1": {Hash: "h1", TEI: []byte(testTEI)}}}
	s := newTestService(st, nil, cache, nil, Options{})

	if _, err := s.process(context.Background(), testDocument("h1")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if st.calls != 0 {
		t.Errorf("expected no grobid calls, got %d", st.calls)
	}
	if cache.puts != 0 {
		t.Errorf("expected cached tei not to be written again, got %d puts", cache.puts)
	}
}

func TestProcess_RetriesUnavailable(t *testing.T) {
	st := &fakeStructurer{errs: []error{grobid.ErrUnavailable}, tei: []byte(testTEI)}
	s := newTestService(st, nil, nil, nil, Options{MaxRetries: 1})

	resp, err := s.process(context.Background(), testDocument("h"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if st.calls != 2 || resp.Article == nil {
		t.Errorf("expected 2 calls and an article, got %d calls", st.calls)
	}
}

func TestProcess_BadInputNotRetried(t *testing.T) {
	bad := &grobid.StatusError{StatusCode: 400, Message: "bad pdf"}
	st := &fakeStructurer{errs: []error{bad}}
	s := newTestService(st, nil, nil, nil, Options{MaxRetries: 3})

	_, err := s.process(context.Background(), testDocument("h"))
	if !errors.Is(err, grobid.ErrBadInput) {
		t.Fatalf("expected ErrBadInput, got %v", err)
	}
	if st.calls != 1 {
		t.Errorf("expected 1 call, got %d", st.calls)
	}
}

func TestProcess_Fallback(t *testing.T) {
	st := &fakeStructurer{errs: []error{grobid.ErrUnavailable}}
	pub := &recordingPublisher{}
	s := newTestService(st, nil, nil, pub, Options{})

	resp, err := s.process(context.Background(), testDocument("h"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if resp.Article != nil {
		t.Errorf("expected no article, got %+v", resp.Article)
	}
	if len(resp.Fallback) != 1 || resp.Fallback[0].Title != "Introduction" || resp.Fallback[0].Text != "Graphs are useful." {
		t.Errorf("unexpected fallback %+v", resp.Fallback)
	}
	if len(resp.PhraseRanks) != 0 || resp.PhraseRanks == nil {
		t.Errorf("expected empty phrase ranks, got %v", resp.PhraseRanks)
	}
	if len(pub.events) != 1 || pub.events[0].Status != events.StatusFallback {
		t.Errorf("unexpected events %+v", pub.events)
	}
}

func TestProcess_FallbackWithoutSections(t *testing.T) {
	st := &fakeStructurer{errs: []error{grobid.ErrUnavailable}}
	s := newTestService(st, nil, nil, nil, Options{})

	doc := testDocument("h")
	doc.toc = func() []string { return nil }
	if _, err := s.process(context.Background(), doc); !errors.Is(err, grobid.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestProcess_NotStructured(t *testing.T) {
	st := &fakeStructurer{tei: []byte(`<TEI><text><body/></text></TEI>`)}
	s := newTestService(st, nil, nil, nil, Options{})

	if _, err := s.process(context.Background(), testDocument("h")); !errors.Is(err, tei.ErrNotStructured) {
		t.Errorf("expected ErrNotStructured, got %v", err)
	}
}

func TestProcess_UnparsableNotCached(t *testing.T) {
	st := &fakeStructurer{tei: []byte(`<TEI><text><body/></text></TEI>`)}
	cache := &memCache{entries: map[string]store.Entry{}}
	s := newTestService(st, nil, cache, nil, Options{})

	for range 2 {
		if _, err := s.process(context.Background(), testDocument("h1")); !errors.Is(err, tei.ErrNotStructured) {
			t.Fatalf("expected ErrNotStructured, got %v", err)
		}
	}
	if _, ok := cache.entries["h1"]; ok {
		t.Error("expected unparsable tei not to be cached")
	}
	if st.calls != 2 {
		t.Errorf("expected grobid to be asked again, got %d calls", st.calls)
	}
}

func TestSummarize(t *testing.T) {
	ranked := []string{"One.", "Two."}

	s := newTestService(nil, fakeSummarizer{text: "Short one. Short two."}, nil, nil, Options{})
	got := s.summarize(context.Background(), ranked)
	if len(got) != 2 || got[0] != "Short one. " {
		t.Errorf("expected summarizer sentences, got %q", got)
	}

	s = newTestService(nil, fakeSummarizer{err: &summary.RetryableError{StatusCode: 503}}, nil, nil, Options{})
	got = s.summarize(context.Background(), ranked)
	if strings.Join(got, " ") != "One. Two." {
		t.Errorf("expected ranked sentences on failure, got %q", got)
	}

	got = s.summarize(context.Background(), nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil summary, got %v", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{grobid.ErrUnavailable, true},
		{&grobid.StatusError{StatusCode: 503}, true},
		{&grobid.StatusError{StatusCode: 500}, false},
		{&summary.RetryableError{StatusCode: 429}, true},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v): expected %v, got %v", tt.err, tt.want, got)
		}
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := range 8 {
		d := Backoff(attempt)
		base := time.Duration(1<<uint(attempt)) * time.Second
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: expected [%v, %v), got %v", attempt, base, base+base/2, d)
		}
	}
}

func TestContentHashHex(t *testing.T) {
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h := ContentHashHex([]byte("hello world")); h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
	want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h := ContentHashHex([]byte{}); h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}
