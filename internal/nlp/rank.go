package nlp

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode"
)

// CommonWords returns the noun lemmas of text occurring at least threshold
// times, most frequent first.
func (e *Engine) CommonWords(text string, threshold int) ([]Ranked, error) {
	toks, err := e.Tokens(text)
	if err != nil {
		return nil, err
	}
	return commonWords(nounFrequencies(toks, e.lex), threshold), nil
}

// RankSentences returns the n sentences of text with the highest summed
// noun frequency, in document order.
func (e *Engine) RankSentences(text string, n int) ([]string, error) {
	toks, err := e.Tokens(text)
	if err != nil {
		return nil, err
	}
	sents, err := e.Sentences(text)
	if err != nil {
		return nil, err
	}
	return rankSentences(sents, nounFrequencies(toks, e.lex), n, e.lex), nil
}

// PhraseRanks scores the multi-word noun phrases of text by how often and
// how early their words occur. Scores are scaled to 1..100, highest first.
func (e *Engine) PhraseRanks(text string) ([]Ranked, error) {
	toks, err := e.Tokens(text)
	if err != nil {
		return nil, err
	}
	return phraseRanks(toks, e.lex), nil
}

func nounFrequencies(toks []Token, lex *lexicon) map[string]int {
	freq := make(map[string]int)
	for _, t := range toks {
		if !isNoun(t.Tag) || isPunct(t.Text) || lex.isStop(t.Text) {
			continue
		}
		l := lex.nounLemma(t)
		if len([]rune(l)) <= 1 {
			continue
		}
		freq[l]++
	}
	return freq
}

func commonWords(freq map[string]int, threshold int) []Ranked {
	out := []Ranked{}
	for w, c := range freq {
		if c >= threshold {
			out = append(out, Ranked{Term: w, Score: c})
		}
	}
	sortRanked(out)
	return out
}

func rankSentences(sents []string, freq map[string]int, n int, lex *lexicon) []string {
	if n <= 0 || len(freq) == 0 {
		return []string{}
	}
	maxFreq := 0
	for _, c := range freq {
		maxFreq = max(maxFreq, c)
	}

	type scored struct {
		pos   int
		score float64
	}
	var ss []scored
	for i, s := range sents {
		var score float64
		for _, w := range words(s) {
			if c, ok := freq[w]; ok {
				score += float64(c) / float64(maxFreq)
			} else if c, ok := freq[lex.lemma(w)]; ok {
				score += float64(c) / float64(maxFreq)
			}
		}
		if score > 0 {
			ss = append(ss, scored{pos: i, score: score})
		}
	}
	slices.SortStableFunc(ss, func(a, b scored) int { return cmp.Compare(b.score, a.score) })
	if len(ss) > n {
		ss = ss[:n]
	}
	slices.SortFunc(ss, func(a, b scored) int { return cmp.Compare(a.pos, b.pos) })

	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, strings.TrimSpace(sents[s.pos]))
	}
	return out
}

func phraseRanks(toks []Token, lex *lexicon) []Ranked {
	// Each occurrence of a word adds the inverse of its position, so words
	// seen early and often weigh most.
	weight := make(map[string]float64)
	for i, t := range toks {
		weight[strings.ToLower(t.Text)] += 1 / float64(i+1)
	}
	var top float64
	for _, w := range weight {
		top = math.Max(top, w)
	}
	if top == 0 {
		return []Ranked{}
	}

	best := make(map[string]int)
	for c := range Chunks(toks) {
		words := scrub(c.Tokens, lex)
		if len(words) < 2 {
			continue
		}
		var sum float64
		for _, w := range words {
			sum += weight[w] / top
		}
		rank := int(math.Ceil(sum / float64(len(words)) * 100))
		if rank == 0 {
			continue
		}
		phrase := strings.Join(words, " ")
		best[phrase] = max(best[phrase], rank)
	}

	out := make([]Ranked, 0, len(best))
	for p, r := range best {
		out = append(out, Ranked{Term: p, Score: r})
	}
	sortRanked(out)
	return out
}

// scrub drops leading determiners, then keeps lower-cased alphanumeric
// tokens longer than one character that are not stop words.
func scrub(toks []Token, lex *lexicon) []string {
	for len(toks) > 0 && determinerTags[toks[0].Tag] {
		toks = toks[1:]
	}
	var out []string
	for _, t := range toks {
		w := strings.ToLower(t.Text)
		if len([]rune(w)) <= 1 || isPunct(w) || !isAlnum(w) || lex.isStop(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func sortRanked(rs []Ranked) {
	slices.SortFunc(rs, func(a, b Ranked) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Term, b.Term)
	})
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

func isPunct(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return s != ""
}

func isAlnum(s string) bool {
	alpha, digit := true, true
	for _, r := range s {
		alpha = alpha && unicode.IsLetter(r)
		digit = digit && unicode.IsDigit(r)
	}
	return alpha || digit
}
