// Package grobid submits PDFs to a GROBID service and returns the TEI XML
// it produces.
package grobid

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
)

// Form is the multipart submission for processFulltextDocument.
type Form struct {
	Filename string
	PDF      []byte

	SegmentSentences       bool
	ConsolidateHeader      int
	ConsolidateCitations   int
	IncludeRawCitations    bool
	IncludeRawAffiliations bool
	// TEICoordinates lists the TEI elements that should carry PDF
	// coordinates, e.g. "ref", "biblStruct", "head".
	TEICoordinates []string
}

// NewForm returns a form with sentence segmentation on and no
// consolidation.
func NewForm(filename string, pdf []byte) Form {
	return Form{Filename: filename, PDF: pdf, SegmentSentences: true}
}

func (f Form) Validate() error {
	if len(f.PDF) == 0 {
		return errors.New("grobid form: empty pdf")
	}
	if f.ConsolidateHeader < 0 || f.ConsolidateHeader > 2 {
		return fmt.Errorf("grobid form: consolidateHeader %d out of range 0-2", f.ConsolidateHeader)
	}
	if f.ConsolidateCitations < 0 || f.ConsolidateCitations > 2 {
		return fmt.Errorf("grobid form: consolidateCitations %d out of range 0-2", f.ConsolidateCitations)
	}
	return nil
}

type field struct{ name, value string }

// Write encodes the form into mw. The caller closes mw.
func (f Form) Write(mw *multipart.Writer) error {
	if err := f.Validate(); err != nil {
		return err
	}

	filename := f.Filename
	if filename == "" {
		filename = "document.pdf"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="input"; filename=%q`, filename))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create input part: %w", err)
	}
	if _, err := part.Write(f.PDF); err != nil {
		return fmt.Errorf("write input part: %w", err)
	}

	fields := []field{
		{"consolidateHeader", strconv.Itoa(f.ConsolidateHeader)},
		{"consolidateCitations", strconv.Itoa(f.ConsolidateCitations)},
	}
	if f.SegmentSentences {
		fields = append(fields, field{"segmentSentences", "1"})
	}
	if f.IncludeRawCitations {
		fields = append(fields, field{"includeRawCitations", "1"})
	}
	if f.IncludeRawAffiliations {
		fields = append(fields, field{"includeRawAffiliations", "1"})
	}
	for _, c := range f.TEICoordinates {
		fields = append(fields, field{"teiCoordinates", c})
	}
	for _, fld := range fields {
		if err := mw.WriteField(fld.name, fld.value); err != nil {
			return fmt.Errorf("write field %s: %w", fld.name, err)
		}
	}
	return nil
}
