package tei

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

type scopeKind uint8

const (
	unsetScope scopeKind = iota
	pageScope
	volumeScope
)

// scopePart is what one biblScope element contributes.
type scopePart struct {
	kind   scopeKind
	pages  PageRange
	volume int
}

// scopeHandlers maps a biblScope unit to its parser. Units without a
// handler contribute nothing.
var scopeHandlers = map[string]func(*etree.Element) scopePart{
	"page":   parsePageScope,
	"volume": parseVolumeScope,
}

// parsePageScope reads from/to when both are present, otherwise the element
// text as a single page. Unparsable numbers leave the scope unset.
func parsePageScope(el *etree.Element) scopePart {
	from, okFrom := attr(el, "from")
	to, okTo := attr(el, "to")
	if !okFrom || !okTo {
		from = textOf(el)
		to = from
	}
	f, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return scopePart{}
	}
	t, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return scopePart{}
	}
	return scopePart{kind: pageScope, pages: PageRange{From: f, To: t}}
}

func parseVolumeScope(el *etree.Element) scopePart {
	v, err := strconv.Atoi(strings.TrimSpace(textOf(el)))
	if err != nil {
		return scopePart{}
	}
	return scopePart{kind: volumeScope, volume: v}
}

// scope folds every biblScope under el into a Scope; later elements win.
func (w *walker) scope(el *etree.Element) Scope {
	var s Scope
	for _, bs := range w.findAll(el, "biblScope") {
		unit, ok := attr(bs, "unit")
		if !ok {
			continue
		}
		handler, ok := scopeHandlers[unit]
		if !ok {
			continue
		}
		switch part := handler(bs); part.kind {
		case pageScope:
			pages := part.pages
			s.Pages = &pages
		case volumeScope:
			volume := part.volume
			s.Volume = &volume
		}
	}
	return s
}
