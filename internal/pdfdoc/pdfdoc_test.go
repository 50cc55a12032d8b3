package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	pdflib "github.com/ledongthuc/pdf"
)

// buildPDF writes a one-page PDF with the given content stream, a single
// outline entry and one link annotation.
func buildPDF(content, outlineTitle, linkURI string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R /Outlines 5 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R " +
			"/Resources << /Font << /F1 6 0 R >> >> /Annots [8 0 R] >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Outlines /First 7 0 R /Last 7 0 R /Count 1 >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Title (%s) /Parent 5 0 R >>", outlineTitle),
		fmt.Sprintf("<< /Type /Annot /Subtype /Link /Rect [0 0 10 10] /A << /S /URI /URI (%s) >> >>", linkURI),
	}
	return writePDF(objects)
}

// writePDF numbers objects from 1 and treats object 1 as the catalog.
func writePDF(objects []string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.Bytes()
}

const samplePage = "BT /F1 14 Tf 72 700 Td (Introduction) Tj ET\n" +
	"BT /F1 12 Tf 72 680 Td (Body text, see 10.1234/abc.5678.) Tj ET"

func TestOpen_NotPDF(t *testing.T) {
	_, err := Open([]byte("hello world"))
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable, got %v", err)
	}
}

func TestDocument_PagesOutlineDOI(t *testing.T) {
	doc, err := Open(buildPDF(samplePage, "Introduction", "https://example.org/home"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	pages := doc.Pages()
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	p := pages[0]
	if p.Bounds.Height() != 792 {
		t.Errorf("expected page height 792, got %v", p.Bounds.Height())
	}
	if len(p.Spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(p.Spans), p.Spans)
	}
	head, body := p.Spans[0], p.Spans[1]
	if head.Text != "Introduction" || head.Size != 14 || head.Origin.Y != 92 {
		t.Errorf("unexpected heading span %+v", head)
	}
	if body.Size != 12 || body.Origin.Y <= head.Origin.Y {
		t.Errorf("unexpected body span %+v", body)
	}

	toc := doc.Outline()
	if len(toc) != 1 || toc[0].Title != "Introduction" || toc[0].Level != 1 {
		t.Errorf("unexpected outline %+v", toc)
	}

	if got := doc.DOI(); got != "10.1234/abc.5678" {
		t.Errorf("expected DOI from text, got %q", got)
	}
}

// pageTree builds a one-page PDF whose Pages node and Page carry the
// given extra entries.
func pageTree(pagesExtra, pageExtra string) []byte {
	content := "BT /F1 12 Tf 10 50 Td (Body) Tj ET"
	return writePDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 " + pagesExtra + " >>",
		"<< /Type /Page /Parent 2 0 R /Contents 4 0 R " +
			"/Resources << /Font << /F1 5 0 R >> >> " + pageExtra + " >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	})
}

func TestDocument_MediaBox(t *testing.T) {
	tests := []struct {
		name       string
		pages      string
		page       string
		wantWidth  float64
		wantHeight float64
	}{
		{"on page", "", "/MediaBox [0 0 300 400]", 300, 400},
		{"inherited from pages node", "/MediaBox [0 0 595 842]", "", 595, 842},
		{"page overrides pages node", "/MediaBox [0 0 595 842]", "/MediaBox [0 0 200 100]", 200, 100},
		{"missing", "", "", 612, 792},
		{"degenerate", "", "/MediaBox [0 0 0 0]", 612, 792},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Open(pageTree(tt.pages, tt.page))
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			pages := doc.Pages()
			if len(pages) != 1 {
				t.Fatalf("expected 1 page, got %d", len(pages))
			}
			b := pages[0].Bounds
			if w := b.X1 - b.X0; w != tt.wantWidth || b.Height() != tt.wantHeight {
				t.Errorf("expected %vx%v, got %vx%v", tt.wantWidth, tt.wantHeight, w, b.Height())
			}
		})
	}
}

func TestDocument_DOIFromLink(t *testing.T) {
	doc, err := Open(buildPDF(samplePage, "Introduction", "https://doi.org/10.5555/link.1"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := doc.DOI(); got != "10.5555/link.1" {
		t.Errorf("expected DOI from link, got %q", got)
	}
}

func TestDoiFromLink(t *testing.T) {
	tests := map[string]string{
		"https://crossmark.crossref.org/dialog/?doi=10.1000/xyz.1&domain=pdf": "10.1000/xyz.1",
		"http://dx.doi.org/10.1000/abc":                                       "10.1000/abc",
		"https://example.org/10.1000/abc":                                     "",
		"::not a url":                                                         "",
	}
	for in, want := range tests {
		if got := doiFromLink(in); got != want {
			t.Errorf("doiFromLink(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestMergeGlyphs(t *testing.T) {
	glyph := func(s string, x, y, size float64) pdflib.Text {
		return pdflib.Text{Font: "Times", FontSize: size, X: x, Y: y, W: size / 2, S: s}
	}
	glyphs := []pdflib.Text{
		glyph("H", 10, 700, 10), glyph("i", 15, 700, 10),
		glyph("y", 30, 700, 10), glyph("o", 35, 700, 10),
		glyph("ﬁ", 40, 700, 10),
		glyph("N", 10, 680, 10),
		glyph("B", 20, 680, 14),
		glyph(" ", 30, 680, 14),
	}

	got := mergeGlyphs(glyphs, 3, 792)
	if len(got) != 3 {
		t.Fatalf("expected 3 spans, got %d: %+v", len(got), got)
	}
	if got[0].Text != "Hi yofi" {
		t.Errorf("expected %q, got %q", "Hi yofi", got[0].Text)
	}
	if got[0].Origin.Y != 92 || got[0].Page != 3 {
		t.Errorf("unexpected origin %+v page %d", got[0].Origin, got[0].Page)
	}
	if got[1].Text != "N" || got[2].Text != "B " || got[2].Size != 14 {
		t.Errorf("unexpected spans %+v", got[1:])
	}
}

func TestParsePDFDate(t *testing.T) {
	d := parsePDFDate("D:20200514093000Z")
	if d == nil || d.Year() != 2020 || d.Month() != 5 || d.Day() != 14 || d.Hour() != 9 {
		t.Errorf("unexpected date %v", d)
	}
	if d := parsePDFDate("D:2021"); d == nil || d.Year() != 2021 {
		t.Errorf("expected year-only date, got %v", d)
	}
	if d := parsePDFDate("garbage"); d != nil {
		t.Errorf("expected nil, got %v", d)
	}
}
