// Package nlp wraps the linguistic pipeline used to validate author names,
// extract keywords and derive word, phrase and sentence rankings.
package nlp

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

// Entity is a named entity found in a text.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Token is a word with its Penn Treebank part-of-speech tag.
type Token struct {
	Text string `json:"text"`
	Tag  string `json:"tag"`
}

// Chunk is a contiguous run of tokens forming a noun phrase.
type Chunk struct {
	Text   string
	Tokens []Token
}

// Ranked pairs a term with an integer score. It encodes as a two element
// JSON array so clients can treat it as a tuple.
type Ranked struct {
	Term  string
	Score int
}

func (r Ranked) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{r.Term, r.Score})
}

func (r *Ranked) UnmarshalJSON(b []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &r.Term); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &r.Score)
}

// Config selects the pipeline stages. It is fixed when the Engine is built.
type Config struct {
	Tagging      bool
	Entities     bool
	Segmentation bool
}

// DefaultConfig enables every stage.
func DefaultConfig() Config {
	return Config{Tagging: true, Entities: true, Segmentation: true}
}

// Engine runs the pipeline described by its Config. The models are loaded
// once by New and shared read-only, so an Engine is safe for concurrent use.
type Engine struct {
	cfg   Config
	model *prose.Model
	lex   *lexicon
}

// New builds an Engine and loads the underlying models once so later calls
// cannot fail on model loading.
func New(cfg Config) (*Engine, error) {
	lex, err := loadLexicon()
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	e := &Engine{cfg: cfg, lex: lex}
	doc, err := e.document("Engine warm up.")
	if err != nil {
		return nil, fmt.Errorf("load nlp models: %w", err)
	}
	e.model = doc.Model
	return e, nil
}

// Config returns the stages this engine was built with.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) document(text string) (*prose.Document, error) {
	opts := []prose.DocOpt{
		prose.WithTagging(e.cfg.Tagging),
		prose.WithExtraction(e.cfg.Entities),
		prose.WithSegmentation(e.cfg.Segmentation),
	}
	if e.model != nil {
		opts = append(opts, prose.UsingModel(e.model))
	}
	return prose.NewDocument(text, opts...)
}

// maxNameTokens caps the length of a string treated as a bare name.
const maxNameTokens = 6

// Entities returns the named entities of text in order of appearance.
// The entity model needs sentence context, so a short string with no
// entities of its own is retried as the subject of a carrier sentence.
func (e *Engine) Entities(text string) []Entity {
	if !e.cfg.Entities {
		return nil
	}
	doc, err := e.document(text)
	if err != nil {
		return nil
	}
	out := entitiesOf(doc)
	if len(out) == 0 && len(strings.Fields(text)) <= maxNameTokens {
		out = e.nameEntities(strings.TrimSpace(text))
	}
	return out
}

func entitiesOf(doc *prose.Document) []Entity {
	ents := doc.Entities()
	out := make([]Entity, 0, len(ents))
	for _, ent := range ents {
		out = append(out, Entity{Text: ent.Text, Label: ent.Label})
	}
	return out
}

// carrier follows a bare name to give the tagger a subject position.
var carrier = []string{"wrote", "the", "paper", "."}

// nameEntities embeds name in a carrier sentence. Entities found inside the
// name are returned. Failing that, a name whose words the tagger reads as
// proper nouns is reported as a PERSON.
func (e *Engine) nameEntities(name string) []Entity {
	if name == "" {
		return []Entity{}
	}
	doc, err := e.document(name + " " + strings.Join(carrier[:3], " ") + carrier[3])
	if err != nil {
		return []Entity{}
	}
	out := []Entity{}
	for _, ent := range entitiesOf(doc) {
		if strings.Contains(name, ent.Text) {
			out = append(out, ent)
		}
	}
	if len(out) > 0 {
		return out
	}

	toks := doc.Tokens()
	n := len(toks) - len(carrier)
	if n <= 0 || toks[n].Text != carrier[0] {
		return out
	}
	if properNoun(toks[:n]) {
		out = append(out, Entity{Text: name, Label: "PERSON"})
	}
	return out
}

// properNoun reports whether every word token is tagged NNP or NNPS.
// Punctuation such as the period of an initial is ignored.
func properNoun(toks []prose.Token) bool {
	words := 0
	for _, t := range toks {
		if !strings.ContainsFunc(t.Text, unicode.IsLetter) {
			continue
		}
		if t.Tag != "NNP" && t.Tag != "NNPS" {
			return false
		}
		words++
	}
	return words > 0
}

// Tokens returns the tagged tokens of text.
func (e *Engine) Tokens(text string) ([]Token, error) {
	doc, err := e.document(text)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	toks := doc.Tokens()
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		out = append(out, Token{Text: t.Text, Tag: t.Tag})
	}
	return out, nil
}

// Sentences splits text into sentences.
func (e *Engine) Sentences(text string) ([]string, error) {
	if !e.cfg.Segmentation {
		return []string{text}, nil
	}
	doc, err := e.document(text)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	sents := doc.Sentences()
	out := make([]string, 0, len(sents))
	for _, s := range sents {
		out = append(out, s.Text)
	}
	return out, nil
}

// NounChunks yields the noun phrases of text. Tokenization happens on the
// first pull from the sequence.
func (e *Engine) NounChunks(text string) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		toks, err := e.Tokens(text)
		if err != nil {
			return
		}
		for c := range Chunks(toks) {
			if !yield(c) {
				return
			}
		}
	}
}
