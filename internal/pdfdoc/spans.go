package pdfdoc

import (
	"math"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/MastaChicken/Group-Project/internal/span"
)

// US Letter, used when a page has no usable MediaBox.
var defaultBox = [4]float64{0, 0, 612, 792}

// Pages returns every page's spans in content-stream order with y measured
// from the top edge. A page whose content cannot be decoded has no spans.
func (d *Document) Pages() []span.Page {
	n := d.NumPage()
	pages := make([]span.Page, 0, n)
	for i := 1; i <= n; i++ {
		var (
			box    = defaultBox
			glyphs []pdflib.Text
		)
		safely(func() error {
			p := d.reader.Page(i)
			if p.V.IsNull() {
				return nil
			}
			box = mediaBox(p)
			glyphs = p.Content().Text
			return nil
		})
		pages = append(pages, span.Page{
			Index:  i - 1,
			Bounds: span.Rect{X0: box[0], Y0: 0, X1: box[2], Y1: box[3] - box[1]},
			Spans:  mergeGlyphs(glyphs, i-1, box[3]),
		})
	}
	return pages
}

// maxInheritDepth bounds the walk up the page tree.
const maxInheritDepth = 32

// mediaBox reads the page's MediaBox, inheriting it from ancestor Pages
// nodes when the page itself has none.
func mediaBox(p pdflib.Page) [4]float64 {
	return boxOf(inherited(p.V, "MediaBox"))
}

func inherited(v pdflib.Value, key string) pdflib.Value {
	for range maxInheritDepth {
		if v.IsNull() {
			break
		}
		if r := v.Key(key); !r.IsNull() {
			return r
		}
		v = v.Key("Parent")
	}
	return pdflib.Value{}
}

func boxOf(mb pdflib.Value) [4]float64 {
	if mb.Len() < 4 {
		return defaultBox
	}
	var box [4]float64
	for i := range box {
		box[i] = mb.Index(i).Float64()
	}
	if box[2] <= box[0] || box[3] <= box[1] {
		return defaultBox
	}
	return box
}

// mergeGlyphs joins consecutive glyphs that share a font, size and baseline
// into spans. A horizontal gap wider than a fifth of the font size becomes
// a space. top is the page's upper edge in PDF user space.
func mergeGlyphs(glyphs []pdflib.Text, page int, top float64) []span.Span {
	var (
		out  []span.Span
		cur  strings.Builder
		open bool
		head pdflib.Text
		end  float64
		y    float64
	)
	flush := func() {
		if open {
			if text := norm.NFKC.String(cur.String()); strings.TrimSpace(text) != "" {
				out = append(out, span.Span{
					Text:   text,
					Size:   head.FontSize,
					Origin: span.Point{X: head.X, Y: top - head.Y},
					Font:   head.Font,
					Page:   page,
				})
			}
		}
		cur.Reset()
		open = false
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		sameRun := open &&
			g.Font == head.Font &&
			math.Abs(g.FontSize-head.FontSize) < 0.01 &&
			math.Abs(g.Y-y) < 0.5*math.Max(g.FontSize, 1) &&
			g.X >= end-g.FontSize
		if !sameRun {
			flush()
			head, open, y = g, true, g.Y
		} else if gap := g.X - end; gap > 0.2*g.FontSize && !endsWithSpace(&cur) && g.S != " " {
			cur.WriteByte(' ')
		}
		cur.WriteString(g.S)
		end = g.X + g.W
	}
	flush()
	return out
}

func endsWithSpace(b *strings.Builder) bool {
	s := b.String()
	return s != "" && s[len(s)-1] == ' '
}
