// Package headings rebuilds titled sections from raw PDF span geometry using
// the document outline as the list of expected section headings.
package headings

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MastaChicken/Group-Project/internal/span"
)

// Fraction of the page height cut from the top and the bottom to drop
// running headers and footers.
const marginRatio = 0.1

// Glyph sequences that PDF renderers tend to emit as spans of their own.
var ligatures = map[string]bool{
	"ff":  true,
	"fi":  true,
	"fl":  true,
	"ffi": true,
	"ffl": true,
	"ft":  true,
	"st":  true,
}

// Section is a heading and the body text collected under it.
type Section struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Result holds the reconstructed sections in the order their headings were
// first found.
type Result struct {
	Sections []Section `json:"sections"`
}

// Map returns the sections keyed by heading.
func (r Result) Map() map[string]string {
	m := make(map[string]string, len(r.Sections))
	for _, s := range r.Sections {
		m[s.Title] = s.Text
	}
	return m
}

// Reconstruct scans pages in order and assigns body spans to the most recent
// heading. A span is a heading when its normalized text equals one of the
// normalized toc titles. A span is body text when a heading is active, its
// font is at least the page mean, it lies after the heading and it sits
// inside the page's vertical content band.
func Reconstruct(pages []span.Page, toc []string) Result {
	want := make(map[string]bool, len(toc))
	for _, t := range toc {
		if n := span.Normalize(t); n != "" {
			want[n] = true
		}
	}

	acc := newAccumulator()
	if len(want) == 0 {
		return acc.result()
	}

	var (
		origin     span.Point
		originPage int
	)
	for _, p := range pages {
		mean := meanFontSize(p.Spans)
		top, bottom := contentBand(p.Bounds)

		for _, s := range p.Spans {
			if want[span.Normalize(s.Text)] {
				acc.open(strings.TrimSpace(s.Text))
				origin = s.Origin
				originPage = p.Index
				continue
			}
			if !acc.active() || s.Size < mean {
				continue
			}
			if p.Index < originPage || (p.Index == originPage && s.Origin.Y <= origin.Y) {
				continue
			}
			if s.Origin.Y < top || s.Origin.Y > bottom {
				continue
			}
			acc.append(s.Text)
		}
	}
	return acc.result()
}

// meanFontSize is 0 for a page without spans, which lets every span pass
// the font-size test.
func meanFontSize(spans []span.Span) float64 {
	if len(spans) == 0 {
		return 0
	}
	var sum float64
	for _, s := range spans {
		sum += s.Size
	}
	return sum / float64(len(spans))
}

// contentBand returns the inclusive vertical range holding body text. Pages
// with unknown bounds get an unbounded band.
func contentBand(r span.Rect) (top, bottom float64) {
	h := r.Height()
	if h <= 0 {
		return -1e308, 1e308
	}
	return r.Y0 + marginRatio*h, r.Y0 + (1-marginRatio)*h
}

type accumulator struct {
	index    map[string]int
	sections []Section
	current  string
	started  bool
	ligature bool
}

func newAccumulator() *accumulator {
	return &accumulator{index: make(map[string]int)}
}

func (a *accumulator) open(title string) {
	a.current = title
	a.started = true
	a.ligature = false
}

func (a *accumulator) active() bool { return a.started }

func (a *accumulator) append(text string) {
	i, ok := a.index[a.current]
	if !ok {
		i = len(a.sections)
		a.index[a.current] = i
		a.sections = append(a.sections, Section{Title: a.current})
	}
	body := a.sections[i].Text

	switch trimmed := strings.TrimSpace(text); {
	case ligatures[trimmed]:
		body = strings.TrimRightFunc(body, unicode.IsSpace) + trimmed
		a.ligature = true
	case a.ligature:
		body = strings.TrimRightFunc(body, unicode.IsSpace) + strings.TrimLeftFunc(text, unicode.IsSpace)
		a.ligature = false
	case !ok:
		body = strings.TrimLeftFunc(text, unicode.IsSpace)
	default:
		body = join(body, text)
	}
	a.sections[i].Text = body
}

func (a *accumulator) result() Result {
	if a.sections == nil {
		return Result{Sections: []Section{}}
	}
	return Result{Sections: a.sections}
}

// join inserts one space between two alphabetic boundaries, or after a
// sentence delimiter that is followed by an upper-case letter.
func join(body, text string) string {
	if body == "" || text == "" {
		return body + text
	}
	last, _ := utf8.DecodeLastRuneInString(body)
	first, _ := utf8.DecodeRuneInString(text)
	if unicode.IsLetter(last) && unicode.IsLetter(first) {
		return body + " " + text
	}
	if strings.ContainsRune(".?!,", last) && unicode.IsUpper(first) {
		return body + " " + text
	}
	return body + text
}
