// Package span holds the geometric text fragments produced by PDF text
// extraction and the outline entries used to find section starts.
package span

import "strings"

// Point is a position on a page. Y grows downward from the top edge.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a page rectangle in the same top-down coordinate space as Point.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Height returns the vertical extent of r.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Span is one run of same-styled text at a fixed position.
type Span struct {
	Text   string  `json:"text"`
	Size   float64 `json:"size"`
	Origin Point   `json:"origin"`
	Font   string  `json:"font"`
	Page   int     `json:"page"`
}

// Page is the ordered span list of one page plus its bounds.
type Page struct {
	Index  int    `json:"index"`
	Bounds Rect   `json:"bounds"`
	Spans  []Span `json:"spans"`
}

// TocEntry is one document outline entry.
type TocEntry struct {
	Level       int    `json:"level"`
	Title       string `json:"title"`
	Page        int    `json:"page"`
	Destination string `json:"destination,omitempty"`
}

// Normalize folds s for heading comparison: trimmed, inner whitespace
// collapsed to single spaces, lower-cased.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Titles returns the outline titles in order.
func Titles(entries []TocEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Title)
	}
	return out
}
