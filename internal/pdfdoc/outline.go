package pdfdoc

import (
	"net/url"
	"regexp"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/MastaChicken/Group-Project/internal/span"
)

// Outline flattens the document outline depth-first. Levels start at 1.
// The outline does not expose target pages, so Page is left at 0.
func (d *Document) Outline() []span.TocEntry {
	var root pdflib.Outline
	if err := safely(func() error { root = d.reader.Outline(); return nil }); err != nil {
		return nil
	}
	var out []span.TocEntry
	var walk func(o pdflib.Outline, level int)
	walk = func(o pdflib.Outline, level int) {
		for _, c := range o.Child {
			if t := strings.TrimSpace(c.Title); t != "" {
				out = append(out, span.TocEntry{Level: level, Title: t})
			}
			walk(c, level+1)
		}
	}
	walk(root, 1)
	return out
}

var doiPattern = regexp.MustCompile(`\b10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// DOI looks for the article's DOI on the first page: first in link
// annotations, then in the text. It returns "" when none is found.
func (d *Document) DOI() string {
	var (
		uris []string
		text string
	)
	safely(func() error {
		p := d.reader.Page(1)
		if p.V.IsNull() {
			return nil
		}
		annots := p.V.Key("Annots")
		for i := 0; i < annots.Len(); i++ {
			if uri := annots.Index(i).Key("A").Key("URI").Text(); uri != "" {
				uris = append(uris, uri)
			}
		}
		text, _ = p.GetPlainText(nil)
		return nil
	})
	for _, u := range uris {
		if doi := doiFromLink(u); doi != "" {
			return doi
		}
	}
	return doiFromText(text)
}

// doiFromLink reads a DOI from a Crossmark link's doi parameter or from a
// doi.org resolver path.
func doiFromLink(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "crossmark"):
		return cleanDOI(u.Query().Get("doi"))
	case host == "doi.org" || host == "dx.doi.org" || strings.HasSuffix(host, ".doi.org"):
		return cleanDOI(strings.TrimPrefix(u.Path, "/"))
	}
	return ""
}

func doiFromText(text string) string {
	return cleanDOI(doiPattern.FindString(text))
}

func cleanDOI(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), ".,;:)'")
	if !strings.HasPrefix(s, "10.") || !strings.Contains(s, "/") {
		return ""
	}
	return s
}
