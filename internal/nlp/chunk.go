package nlp

import (
	"iter"
	"strings"
)

// Tags that may open a noun phrase but never end one.
var determinerTags = map[string]bool{"DT": true, "PDT": true, "PRP$": true}

// Tags allowed inside a noun phrase.
var phraseTags = map[string]bool{
	"DT": true, "PDT": true, "PRP$": true, "CD": true,
	"JJ": true, "JJR": true, "JJS": true, "VBN": true,
	"NN": true, "NNS": true, "NNP": true, "NNPS": true,
}

func isNoun(tag string) bool {
	return tag == "NN" || tag == "NNS" || tag == "NNP" || tag == "NNPS"
}

// Chunks groups tagged tokens into noun phrases: maximal runs of
// determiners, numbers, adjectives and nouns that end on a noun. A
// determiner after a noun starts a new phrase.
func Chunks(tokens []Token) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		var run []Token
		flush := func() bool {
			defer func() { run = nil }()
			last := -1
			for i, t := range run {
				if isNoun(t.Tag) {
					last = i
				}
			}
			if last < 0 {
				return true
			}
			toks := append([]Token(nil), run[:last+1]...)
			return yield(Chunk{Text: joinTokens(toks), Tokens: toks})
		}

		for _, t := range tokens {
			switch {
			case !phraseTags[t.Tag]:
				if !flush() {
					return
				}
			case determinerTags[t.Tag] && hasNoun(run):
				if !flush() {
					return
				}
				run = append(run, t)
			default:
				run = append(run, t)
			}
		}
		flush()
	}
}

func hasNoun(run []Token) bool {
	for _, t := range run {
		if isNoun(t.Tag) {
			return true
		}
	}
	return false
}

func joinTokens(toks []Token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}
