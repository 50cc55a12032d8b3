package grobid

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// errorMessage turns an error body into one line of text. HTML error pages
// are reduced to their visible text.
func errorMessage(contentType string, body []byte) string {
	if strings.Contains(contentType, "html") || bytes.HasPrefix(bytes.TrimSpace(body), []byte("<")) {
		if doc, err := html.Parse(bytes.NewReader(body)); err == nil {
			if t := textContent(doc); t != "" {
				return t
			}
		}
	}
	return strings.Join(strings.Fields(string(body)), " ")
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "head") {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}
