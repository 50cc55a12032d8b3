// Package pdfdoc reads uploaded PDFs: repair, identifiers, metadata, outline
// and the positioned text spans consumed by the headings package.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrUnreadable = errors.New("pdf: document could not be read")
	ErrEncrypted  = errors.New("pdf: document is encrypted")
)

// Document is an opened PDF held in memory.
type Document struct {
	data   []byte
	reader *pdflib.Reader
}

// Open parses data as a PDF. It fails with ErrEncrypted when a password is
// needed and ErrUnreadable for anything that is not a readable PDF.
func Open(data []byte) (*Document, error) {
	var r *pdflib.Reader
	err := safely(func() error {
		var err error
		r, err = pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
		return err
	})
	switch {
	case errors.Is(err, pdflib.ErrInvalidPassword):
		return nil, ErrEncrypted
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var pages int
	if err := safely(func() error { pages = r.NumPage(); return nil }); err != nil || pages == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrUnreadable)
	}
	return &Document{data: data, reader: r}, nil
}

// Bytes returns the bytes the document was opened from.
func (d *Document) Bytes() []byte { return d.data }

// NumPage returns the page count.
func (d *Document) NumPage() int {
	var n int
	safely(func() error { n = d.reader.NumPage(); return nil })
	return n
}

// Repair rewrites data through pdfcpu with relaxed validation, fixing broken
// cross-reference tables and normalizing the file structure.
func Repair(data []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var out bytes.Buffer
	err := safely(func() error {
		ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
		if err != nil {
			return fmt.Errorf("pdfcpu read: %w", err)
		}
		return api.WriteContext(ctx, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("repair pdf: %w", err)
	}
	return out.Bytes(), nil
}

// Metadata is the document information dictionary.
type Metadata struct {
	Title    string     `json:"title"`
	Author   string     `json:"author"`
	Created  *time.Time `json:"created"`
	NumPages int        `json:"num_pages"`
}

func (d *Document) Metadata() Metadata {
	var m Metadata
	safely(func() error {
		info := d.reader.Trailer().Key("Info")
		m.Title = strings.TrimSpace(info.Key("Title").Text())
		m.Author = strings.TrimSpace(info.Key("Author").Text())
		m.Created = parsePDFDate(info.Key("CreationDate").Text())
		return nil
	})
	m.NumPages = d.NumPage()
	return m
}

// parsePDFDate reads the leading digits of a "D:YYYYMMDDHHmmSS" date as UTC.
func parsePDFDate(s string) *time.Time {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	n := 0
	for n < len(s) && n < 14 && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n < 4 || n%2 != 0 {
		return nil
	}
	t, err := time.Parse("20060102150405"[:n], s[:n])
	if err != nil {
		return nil
	}
	return &t
}

// Text returns the plain text of every page.
func (d *Document) Text() (string, error) {
	var b strings.Builder
	err := safely(func() error {
		r, err := d.reader.GetPlainText()
		if err != nil {
			return err
		}
		_, err = io.Copy(&b, r)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return b.String(), nil
}

// safely runs fn and turns a panic from the PDF libraries, which panic on
// some malformed input, into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()
	return fn()
}
