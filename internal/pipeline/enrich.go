package pipeline

import (
	"context"
	"strings"

	"github.com/MastaChicken/Group-Project/internal/nlp"
)

// enrich fills the derived fields of resp. Every step is best effort; a
// failing step leaves its field empty.
func (s *Service) enrich(ctx context.Context, resp *Response, sections []string, abstract string) {
	resp.CommonWords = s.commonWords(sections)
	resp.PhraseRanks = s.phraseRanks(abstract)

	var ranked []string
	for _, text := range sections {
		if strings.TrimSpace(text) == "" {
			continue
		}
		sents, err := s.analyzer.RankSentences(text, rankedSentencesPerSection)
		if err != nil {
			s.log.Warn("rank sentences failed", "error", err)
			continue
		}
		ranked = append(ranked, sents...)
	}
	resp.Summary = s.summarize(ctx, ranked)
}

func (s *Service) commonWords(sections []string) []nlp.Ranked {
	words, err := s.analyzer.CommonWords(strings.Join(sections, " "), s.opts.CommonWordThreshold)
	if err != nil {
		s.log.Warn("common words failed", "error", err)
		return []nlp.Ranked{}
	}
	return words
}

func (s *Service) phraseRanks(abstract string) []nlp.Ranked {
	if abstract == "" {
		return []nlp.Ranked{}
	}
	ranks, err := s.analyzer.PhraseRanks(abstract)
	if err != nil {
		s.log.Warn("phrase ranks failed", "error", err)
		return []nlp.Ranked{}
	}
	return ranks
}

// summarize condenses the ranked sentences with the abstractive model,
// returning them unchanged when the model is disabled or fails.
func (s *Service) summarize(ctx context.Context, ranked []string) []string {
	if ranked == nil {
		ranked = []string{}
	}
	if s.summarizer == nil || !s.summarizer.Enabled() || len(ranked) == 0 {
		return ranked
	}

	text, err := withRetry(ctx, 1, s.backoff, func() (string, error) {
		return s.summarizer.Summarize(ctx, strings.Join(ranked, " "))
	})
	if err != nil || text == "" {
		s.metrics.Summarizer("error")
		if err != nil {
			s.log.Warn("summarizer failed, using ranked sentences", "error", err)
		}
		return ranked
	}
	s.metrics.Summarizer("ok")

	sents, err := s.analyzer.Sentences(text)
	if err != nil || len(sents) == 0 {
		return []string{text}
	}
	return sents
}
