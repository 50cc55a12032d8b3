package nlp

import (
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/bbalet/stopwords"
)

func init() {
	// Numbers such as "3" or "2019" are content words here.
	stopwords.DontStripDigits()
}

// lexicon answers English stop-word and lemma lookups.
type lexicon struct {
	lem  *golem.Lemmatizer
	stop sync.Map // lower-cased word -> bool
}

// loadLexicon reads the lemma dictionary once per process.
var loadLexicon = sync.OnceValues(func() (*lexicon, error) {
	lem, err := golem.New(en.New())
	if err != nil {
		return nil, err
	}
	return &lexicon{lem: lem}, nil
})

// isStop reports whether w carries no content on its own.
func (l *lexicon) isStop(w string) bool {
	w = strings.ToLower(w)
	if v, ok := l.stop.Load(w); ok {
		return v.(bool)
	}
	stop := strings.TrimSpace(stopwords.CleanString(w, "en", false)) == ""
	l.stop.Store(w, stop)
	return stop
}

// lemma returns the lower-cased dictionary form of w, or w itself when the
// dictionary has no entry.
func (l *lexicon) lemma(w string) string {
	w = strings.ToLower(w)
	return strings.ToLower(l.lem.Lemma(w))
}

// nounLemma lower-cases a noun and reduces plurals to their dictionary form.
func (l *lexicon) nounLemma(t Token) string {
	if t.Tag == "NNS" || t.Tag == "NNPS" {
		return l.lemma(t.Text)
	}
	return strings.ToLower(t.Text)
}
