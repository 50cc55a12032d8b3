package tei

import (
	"iter"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
)

// walker navigates one TEI tree. Tag names are compared case-insensitively;
// a tag whose casing differs from the requested one is logged once.
type walker struct {
	log   *slog.Logger
	noted map[string]bool
}

func newWalker(log *slog.Logger) *walker {
	return &walker{log: log, noted: make(map[string]bool)}
}

func (w *walker) is(el *etree.Element, tag string) bool {
	if el.Tag == tag {
		return true
	}
	if !strings.EqualFold(el.Tag, tag) {
		return false
	}
	if !w.noted[el.Tag] {
		w.noted[el.Tag] = true
		w.log.Debug("tei tag casing differs", "tag", el.Tag, "expected", tag)
	}
	return true
}

// find returns the first descendant of el named tag, in document order.
func (w *walker) find(el *etree.Element, tag string) *etree.Element {
	return w.findWhere(el, tag, nil)
}

// findWhere is find restricted to elements carrying every attribute in attrs.
func (w *walker) findWhere(el *etree.Element, tag string, attrs map[string]string) *etree.Element {
	for d := range w.descendants(el, tag) {
		if hasAttrs(d, attrs) {
			return d
		}
	}
	return nil
}

func (w *walker) findAll(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for d := range w.descendants(el, tag) {
		out = append(out, d)
	}
	return out
}

func (w *walker) children(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if w.is(c, tag) {
			out = append(out, c)
		}
	}
	return out
}

func (w *walker) descendants(el *etree.Element, tag string) iter.Seq[*etree.Element] {
	return func(yield func(*etree.Element) bool) {
		var visit func(*etree.Element) bool
		visit = func(e *etree.Element) bool {
			for _, c := range e.ChildElements() {
				if w.is(c, tag) && !yield(c) {
					return false
				}
				if !visit(c) {
					return false
				}
			}
			return true
		}
		visit(el)
	}
}

type nodeKind uint8

const (
	textNode nodeKind = iota
	refNode
)

// inlineNode is one piece of paragraph content: literal text, or a ref
// element together with its rendered text.
type inlineNode struct {
	kind nodeKind
	text string
	ref  *etree.Element
}

// inline yields the mixed content of el in document order. Ref elements are
// leaves; every other element is transparent.
func (w *walker) inline(el *etree.Element) iter.Seq[inlineNode] {
	return func(yield func(inlineNode) bool) {
		var visit func(*etree.Element) bool
		visit = func(e *etree.Element) bool {
			for _, tok := range e.Child {
				switch t := tok.(type) {
				case *etree.CharData:
					if !yield(inlineNode{kind: textNode, text: t.Data}) {
						return false
					}
				case *etree.Element:
					if w.is(t, "ref") {
						if !yield(inlineNode{kind: refNode, text: textOf(t), ref: t}) {
							return false
						}
						continue
					}
					if !visit(t) {
						return false
					}
				}
			}
			return true
		}
		visit(el)
	}
}

// textOf concatenates every character data descendant of el.
func textOf(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var b strings.Builder
	var visit func(*etree.Element)
	visit = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				b.WriteString(t.Data)
			case *etree.Element:
				visit(t)
			}
		}
	}
	visit(el)
	return b.String()
}

// attr looks key up exactly first, then ignoring case.
func attr(el *etree.Element, key string) (string, bool) {
	if a := el.SelectAttr(key); a != nil {
		return a.Value, true
	}
	for _, a := range el.Attr {
		if strings.EqualFold(a.FullKey(), key) {
			return a.Value, true
		}
	}
	return "", false
}

func hasAttrs(el *etree.Element, attrs map[string]string) bool {
	for k, v := range attrs {
		if got, ok := attr(el, k); !ok || got != v {
			return false
		}
	}
	return true
}
