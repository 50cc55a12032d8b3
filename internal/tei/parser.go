// Package tei turns the TEI XML produced by GROBID into an Article.
//
// Parsing is strict about the three structural anchors (body, sourceDesc,
// listBibl) and lenient about everything else: a malformed date, page range
// or affiliation leaves that field unset and never fails the document.
package tei

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/beevik/etree"

	"github.com/MastaChicken/Group-Project/internal/nlp"
)

var (
	ErrMalformed     = errors.New("tei: malformed xml")
	ErrNotStructured = errors.New("tei: document could not be structured")

	ErrMissingBody       = fmt.Errorf("%w: no body", ErrNotStructured)
	ErrMissingSourceDesc = fmt.Errorf("%w: no bibliographic source description", ErrNotStructured)
	ErrMissingListBibl   = fmt.Errorf("%w: no reference list", ErrNotStructured)
)

// Model is the linguistic collaborator used to vet author names and to
// extract keyword phrases.
type Model interface {
	Entities(text string) []nlp.Entity
	NounChunks(text string) iter.Seq[nlp.Chunk]
}

// Entity labels accepted as evidence that a string is a name.
var acceptedEntities = map[string]bool{"GPE": true, "ORG": true, "PERSON": true}

// Parser converts TEI documents. It keeps no per-document state and may be
// shared across goroutines.
type Parser struct {
	model Model
	log   *slog.Logger
}

func NewParser(model Model, log *slog.Logger) *Parser {
	if log == nil {
		log = slog.Default()
	}
	return &Parser{model: model, log: log}
}

// Parse builds an Article from TEI bytes. It returns an error wrapping
// ErrNotStructured when a structural anchor is missing and ErrMalformed when
// the bytes are not XML.
func (p *Parser) Parse(data []byte) (*Article, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	w := newWalker(p.log)

	body := w.find(root, "body")
	if body == nil {
		return nil, ErrMissingBody
	}
	source := w.find(root, "sourceDesc")
	if source == nil {
		return nil, ErrMissingSourceDesc
	}
	self := w.find(source, "biblStruct")
	if self == nil {
		return nil, fmt.Errorf("%w: no biblStruct", ErrMissingSourceDesc)
	}
	listBibl := w.find(root, "listBibl")
	if listBibl == nil {
		return nil, ErrMissingListBibl
	}

	article := &Article{
		Bibliography: p.citation(w, self),
		Keywords:     p.keywords(w, w.find(root, "keywords")),
		Citations:    make(map[string]Citation),
		Sections:     []Section{},
	}
	for _, div := range w.children(body, "div") {
		if s, ok := w.section(div); ok {
			article.Sections = append(article.Sections, s)
		}
	}
	for _, bs := range w.children(listBibl, "biblStruct") {
		id, _ := attr(bs, "xml:id")
		article.Citations[id] = p.citation(w, bs)
	}
	if abs := w.find(root, "abstract"); abs != nil {
		s := Section{Title: "Abstract", Paragraphs: w.paragraphs(abs)}
		article.Abstract = &s
	}
	return article, nil
}

// section reads a body division. Divisions whose head is missing or blank
// and carries no n attribute are not sections.
func (w *walker) section(div *etree.Element) (Section, bool) {
	head := w.find(div, "head")
	if head == nil {
		return Section{}, false
	}
	title := strings.TrimSpace(textOf(head))
	_, numbered := attr(head, "n")
	if title == "" && !numbered {
		return Section{}, false
	}
	if numbered || startsWithLetter(title) {
		title = capitalizeHeading(title)
	}
	return Section{Title: title, Paragraphs: w.paragraphs(div)}, true
}

func (w *walker) paragraphs(el *etree.Element) []RefText {
	out := []RefText{}
	for _, p := range w.findAll(el, "p") {
		if rt, ok := w.refText(p); ok {
			out = append(out, rt)
		}
	}
	return out
}

// refText flattens a paragraph. Each ref contributes its text once and a Ref
// covering exactly that text.
func (w *walker) refText(p *etree.Element) (RefText, bool) {
	var (
		b   strings.Builder
		n   int
		out = RefText{Refs: []Ref{}}
	)
	for node := range w.inline(p) {
		switch node.kind {
		case textNode:
			b.WriteString(node.text)
			n += utf8.RuneCountInString(node.text)
		case refNode:
			ref := Ref{Start: n, End: n + utf8.RuneCountInString(node.text)}
			if v, ok := attr(node.ref, "target"); ok {
				ref.Target = &v
			}
			if v, ok := attr(node.ref, "type"); ok {
				ref.Type = &v
			}
			b.WriteString(node.text)
			n = ref.End
			out.Refs = append(out.Refs, ref)
		}
	}
	out.Text = b.String()
	if strings.TrimSpace(out.Text) == "" && len(out.Refs) == 0 {
		return RefText{}, false
	}
	return out, true
}

func (p *Parser) citation(w *walker, el *etree.Element) Citation {
	c := Citation{
		Title:   w.title(el, map[string]string{"type": "main"}),
		Authors: p.authors(w, el),
		Date:    w.date(el),
		Scope:   w.scope(el),
	}
	c.IDs.DOI = optionalText(w.findWhere(el, "idno", map[string]string{"type": "DOI"}))
	c.IDs.ArXiv = optionalText(w.findWhere(el, "idno", map[string]string{"type": "arXiv"}))
	if ptr := w.find(el, "ptr"); ptr != nil {
		if v, ok := attr(ptr, "target"); ok {
			c.Target = &v
		}
	}
	c.Publisher = optionalText(w.find(el, "publisher"))
	if journal := w.title(el, map[string]string{"level": "j"}); journal != "" && journal != c.Title {
		c.Journal = &journal
	}
	return c
}

func (w *walker) title(el *etree.Element, attrs map[string]string) string {
	return strings.TrimSpace(textOf(w.findWhere(el, "title", attrs)))
}

func (w *walker) date(el *etree.Element) *Date {
	d := w.find(el, "date")
	if d == nil {
		return nil
	}
	when, ok := attr(d, "when")
	if !ok {
		return nil
	}
	return parseDate(when)
}

// parseDate splits an ISO-like date into year, month and day. Anything other
// than one to three parts yields nil.
func parseDate(s string) *Date {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) > 3 || parts[0] == "" {
		return nil
	}
	d := &Date{Year: parts[0]}
	if len(parts) > 1 {
		d.Month = &parts[1]
	}
	if len(parts) > 2 {
		d.Day = &parts[2]
	}
	return d
}

// authors keeps only authors with a surname whose display name the model
// recognises as an entity.
func (p *Parser) authors(w *walker, el *etree.Element) []Author {
	out := []Author{}
	for _, a := range w.findAll(el, "author") {
		pers := w.find(a, "persName")
		if pers == nil {
			continue
		}
		surname := w.find(pers, "surname")
		if surname == nil {
			continue
		}
		name := PersonName{Surname: strings.TrimSpace(textOf(surname))}
		name.FirstName = optionalText(w.findWhere(pers, "forename", map[string]string{"type": "first"}))
		if !p.plausibleName(name.String()) {
			continue
		}

		author := Author{
			PersonName:   name,
			Email:        optionalText(w.find(a, "email")),
			Affiliations: []Affiliation{},
		}
		for _, aff := range w.findAll(a, "affiliation") {
			author.Affiliations = append(author.Affiliations, w.affiliation(aff))
		}
		out = append(out, author)
	}
	return out
}

func (p *Parser) plausibleName(name string) bool {
	ents := p.model.Entities(name)
	return len(ents) > 0 && acceptedEntities[ents[0].Label]
}

func (w *walker) affiliation(el *etree.Element) Affiliation {
	var a Affiliation
	for _, org := range w.findAll(el, "orgName") {
		kind, _ := attr(org, "type")
		v := strings.TrimSpace(textOf(org))
		switch kind {
		case "institution":
			a.Institution = &v
		case "department":
			a.Department = &v
		case "laboratory":
			a.Laboratory = &v
		}
	}
	return a
}

// keywords runs noun-chunk extraction over each term and returns the
// cleaned, deduplicated chunks in sorted order.
func (p *Parser) keywords(w *walker, el *etree.Element) []string {
	if el == nil {
		return []string{}
	}
	set := make(map[string]struct{})
	for _, term := range w.findAll(el, "term") {
		for chunk := range p.model.NounChunks(textOf(term)) {
			if k := cleanKeyword(chunk.Text); k != "" {
				set[k] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func cleanKeyword(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimLeftFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	return capitalize(s)
}

// capitalizeHeading capitalizes headings written entirely in one case and
// leaves mixed-case headings alone.
func capitalizeHeading(s string) string {
	var upper, lower bool
	for _, r := range s {
		upper = upper || unicode.IsUpper(r)
		lower = lower || unicode.IsLower(r)
	}
	if upper == lower {
		return s
	}
	return capitalize(s)
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func startsWithLetter(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r)
}

func optionalText(el *etree.Element) *string {
	if el == nil {
		return nil
	}
	v := strings.TrimSpace(textOf(el))
	if v == "" {
		return nil
	}
	return &v
}
