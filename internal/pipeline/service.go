package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MastaChicken/Group-Project/internal/events"
	"github.com/MastaChicken/Group-Project/internal/grobid"
	"github.com/MastaChicken/Group-Project/internal/headings"
	"github.com/MastaChicken/Group-Project/internal/metrics"
	"github.com/MastaChicken/Group-Project/internal/nlp"
	"github.com/MastaChicken/Group-Project/internal/pdfdoc"
	"github.com/MastaChicken/Group-Project/internal/span"
	"github.com/MastaChicken/Group-Project/internal/store"
	"github.com/MastaChicken/Group-Project/internal/tei"
)

// rankedSentencesPerSection bounds the extractive summary of each section.
const rankedSentencesPerSection = 4

// ErrBusy is returned when the context ends while waiting for a parse slot.
var ErrBusy = errors.New("pipeline: too many concurrent parses")

// Structurer converts a PDF into TEI.
type Structurer interface {
	ProcessFulltext(ctx context.Context, form grobid.Form) ([]byte, error)
}

type Summarizer interface {
	Enabled() bool
	Summarize(ctx context.Context, text string) (string, error)
}

// Analyzer is the language model behind TEI parsing and enrichment.
type Analyzer interface {
	tei.Model
	CommonWords(text string, threshold int) ([]nlp.Ranked, error)
	RankSentences(text string, n int) ([]string, error)
	PhraseRanks(text string) ([]nlp.Ranked, error)
	Sentences(text string) ([]string, error)
}

type Options struct {
	ConsolidateHeader    int
	ConsolidateCitations int
	MaxRetries           int
	MaxConcurrent        int
	CommonWordThreshold  int
}

// Service runs one uploaded PDF through structuring and enrichment.
type Service struct {
	structurer Structurer
	summarizer Summarizer
	analyzer   Analyzer
	parser     *tei.Parser
	cache      store.Cache
	publisher  events.Publisher
	metrics    *metrics.Recorder
	log        *slog.Logger
	opts       Options
	sem        chan struct{}
	backoff    func(int) time.Duration
}

func NewService(
	structurer Structurer,
	summarizer Summarizer,
	analyzer Analyzer,
	cache store.Cache,
	publisher events.Publisher,
	rec *metrics.Recorder,
	log *slog.Logger,
	opts Options,
) *Service {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if cache == nil {
		cache = store.Nop{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		structurer: structurer,
		summarizer: summarizer,
		analyzer:   analyzer,
		parser:     tei.NewParser(analyzer, log),
		cache:      cache,
		publisher:  publisher,
		metrics:    rec,
		log:        log,
		opts:       opts,
		sem:        make(chan struct{}, opts.MaxConcurrent),
		backoff:    Backoff,
	}
}

// Response is the body returned for an upload.
type Response struct {
	Article     *tei.Article       `json:"article"`
	CommonWords []nlp.Ranked       `json:"common_words"`
	PhraseRanks []nlp.Ranked       `json:"phrase_ranks"`
	Summary     []string           `json:"summary"`
	UID         string             `json:"uid"`
	Fallback    []headings.Section `json:"fallback"`
}

// document is everything Process needs from an opened PDF.
type document struct {
	filename string
	pdf      []byte
	hash     string
	uid      string
	pages    func() []span.Page
	toc      func() []string
}

// Process structures data, falling back to heading reconstruction when
// GROBID cannot be reached.
func (s *Service) Process(ctx context.Context, filename string, data []byte) (*Response, error) {
	done := s.metrics.Track()
	defer done()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
	}

	doc, err := pdfdoc.Open(data)
	if err != nil {
		return nil, err
	}

	pdf := data
	if repaired, err := pdfdoc.Repair(data); err != nil {
		s.log.Warn("pdf repair failed, using original bytes", "filename", filename, "error", err)
	} else {
		pdf = repaired
	}

	return s.process(ctx, document{
		filename: filename,
		pdf:      pdf,
		hash:     ContentHashHex(pdf),
		uid:      doc.DOI(),
		pages:    doc.Pages,
		toc:      func() []string { return span.Titles(doc.Outline()) },
	})
}

func (s *Service) process(ctx context.Context, doc document) (*Response, error) {
	log := s.log.With("filename", doc.filename, "hash", doc.hash)

	raw, cached, err := s.structure(ctx, doc)
	if errors.Is(err, grobid.ErrUnavailable) {
		log.Warn("grobid unavailable, reconstructing sections from layout", "error", err)
		return s.fallback(ctx, doc, err)
	}
	if err != nil {
		return nil, err
	}

	article, err := s.parser.Parse(raw)
	if err != nil {
		s.metrics.TEIParse("error")
		return nil, err
	}
	s.metrics.TEIParse("ok")
	if !cached {
		s.remember(ctx, doc, raw)
	}

	resp := &Response{Article: article, UID: doc.uid}
	sections := make([]string, 0, len(article.Sections))
	titles := make([]string, 0, len(article.Sections))
	for _, sec := range article.Sections {
		sections = append(sections, sec.String())
		titles = append(titles, sec.Title)
	}
	abstract := ""
	if article.Abstract != nil {
		abstract = article.Abstract.String()
	}
	s.enrich(ctx, resp, sections, abstract)

	s.publish(ctx, events.Parsed{
		Hash:     doc.hash,
		DOI:      doc.uid,
		Title:    article.Bibliography.Title,
		Sections: titles,
		Status:   events.StatusParsed,
	})
	return resp, nil
}

// structure returns cached TEI for doc, or asks GROBID. cached reports
// whether raw came from the cache.
func (s *Service) structure(ctx context.Context, doc document) (raw []byte, cached bool, err error) {
	entry, err := s.cache.Get(ctx, doc.hash)
	switch {
	case err == nil:
		s.metrics.CacheLookup(true)
		return entry.TEI, true, nil
	case errors.Is(err, store.ErrNotFound):
		s.metrics.CacheLookup(false)
	default:
		s.log.Warn("tei cache lookup failed", "hash", doc.hash, "error", err)
	}

	form := grobid.NewForm(doc.filename, doc.pdf)
	form.ConsolidateHeader = s.opts.ConsolidateHeader
	form.ConsolidateCitations = s.opts.ConsolidateCitations
	if err := form.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", grobid.ErrBadInput, err)
	}

	start := time.Now()
	raw, err = withRetry(ctx, s.opts.MaxRetries, s.backoff, func() ([]byte, error) {
		return s.structurer.ProcessFulltext(ctx, form)
	})
	s.metrics.GrobidRequest(outcome(err), time.Since(start))
	if err != nil {
		return nil, false, err
	}
	return raw, false, nil
}

// remember caches TEI that parsed, so a malformed response is fetched
// again next time instead of being served from the cache.
func (s *Service) remember(ctx context.Context, doc document, raw []byte) {
	if err := s.cache.Put(ctx, store.Entry{Hash: doc.hash, DOI: doc.uid, TEI: raw}); err != nil {
		s.log.Warn("tei cache write failed", "hash", doc.hash, "error", err)
	}
}

func (s *Service) fallback(ctx context.Context, doc document, cause error) (*Response, error) {
	result := headings.Reconstruct(doc.pages(), doc.toc())
	if len(result.Sections) == 0 {
		return nil, cause
	}

	resp := &Response{UID: doc.uid, Fallback: result.Sections}
	texts := make([]string, 0, len(result.Sections))
	titles := make([]string, 0, len(result.Sections))
	for _, sec := range result.Sections {
		texts = append(texts, sec.Text)
		titles = append(titles, sec.Title)
	}
	s.enrich(ctx, resp, texts, "")

	s.publish(ctx, events.Parsed{
		Hash:     doc.hash,
		DOI:      doc.uid,
		Sections: titles,
		Status:   events.StatusFallback,
	})
	return resp, nil
}

func (s *Service) publish(ctx context.Context, p events.Parsed) {
	if err := s.publisher.Publish(ctx, p); err != nil {
		s.log.Warn("publish parsed event failed", "hash", p.Hash, "error", err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, grobid.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, grobid.ErrPartial):
		return "partial"
	case errors.Is(err, grobid.ErrBadInput):
		return "bad_input"
	default:
		return "error"
	}
}
