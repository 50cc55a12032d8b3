package tei

import "strings"

// Article is a parsed scholarly document.
type Article struct {
	Bibliography Citation            `json:"bibliography"`
	Keywords     []string            `json:"keywords"`
	Citations    map[string]Citation `json:"citations"`
	Sections     []Section           `json:"sections"`
	Abstract     *Section            `json:"abstract"`
}

// Text joins the text of every section body.
func (a *Article) Text() string {
	parts := make([]string, 0, len(a.Sections))
	for _, s := range a.Sections {
		if t := s.String(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Citation describes a cited work, or the article itself when used as its
// bibliography entry.
type Citation struct {
	Title     string      `json:"title"`
	Authors   []Author    `json:"authors"`
	Date      *Date       `json:"date"`
	IDs       CitationIDs `json:"ids"`
	Target    *string     `json:"target"`
	Publisher *string     `json:"publisher"`
	Journal   *string     `json:"journal"`
	Scope     Scope       `json:"scope"`
}

type CitationIDs struct {
	DOI   *string `json:"doi"`
	ArXiv *string `json:"arxiv"`
}

// Date is a publication date. Only the year is guaranteed.
type Date struct {
	Year  string  `json:"year"`
	Month *string `json:"month"`
	Day   *string `json:"day"`
}

// Scope is the volume and page extent of a citation.
type Scope struct {
	Volume *int       `json:"volume"`
	Pages  *PageRange `json:"pages"`
}

type PageRange struct {
	From int `json:"from_page"`
	To   int `json:"to_page"`
}

type Author struct {
	PersonName   PersonName    `json:"person_name"`
	Email        *string       `json:"email"`
	Affiliations []Affiliation `json:"affiliations"`
}

type PersonName struct {
	Surname   string  `json:"surname"`
	FirstName *string `json:"first_name"`
}

// String returns "first surname", or the surname alone.
func (n PersonName) String() string {
	if n.FirstName != nil && *n.FirstName != "" {
		return *n.FirstName + " " + n.Surname
	}
	return n.Surname
}

type Affiliation struct {
	Department  *string `json:"department"`
	Institution *string `json:"institution"`
	Laboratory  *string `json:"laboratory"`
}

// Section is a titled division of the body.
type Section struct {
	Title      string    `json:"title"`
	Paragraphs []RefText `json:"paragraphs"`
}

// String joins the paragraph texts with single spaces.
func (s Section) String() string {
	parts := make([]string, 0, len(s.Paragraphs))
	for _, p := range s.Paragraphs {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, " ")
}

// RefText is a paragraph with inline references. Ref offsets count runes
// of Text.
type RefText struct {
	Text string `json:"text"`
	Refs []Ref  `json:"refs"`
}

// Ref marks the half-open rune range [Start, End) of a reference.
type Ref struct {
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Target *string `json:"target"`
	Type   *string `json:"type"`
}
