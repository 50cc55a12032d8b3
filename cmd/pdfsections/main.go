// Command pdfsections prints the outline-bounded sections of a PDF without
// calling GROBID.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MastaChicken/Group-Project/internal/headings"
	"github.com/MastaChicken/Group-Project/internal/nlp"
	"github.com/MastaChicken/Group-Project/internal/pdfdoc"
	"github.com/MastaChicken/Group-Project/internal/span"
	"github.com/spf13/cobra"
)

type options struct {
	JSON      bool
	Top       int
	Threshold int
}

type report struct {
	Metadata    pdfdoc.Metadata    `json:"metadata"`
	DOI         string             `json:"doi"`
	Headings    []string           `json:"headings"`
	Sections    []headings.Section `json:"sections"`
	CommonWords []nlp.Ranked       `json:"common_words"`
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "pdfsections [flags] file.pdf",
		Short: "Reconstruct PDF sections from outline headings and text geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), args[0], opts)
		},
	}
	rootCmd.Flags().BoolVar(&opts.JSON, "json", false, "print the report as JSON")
	rootCmd.Flags().IntVar(&opts.Top, "top", 10, "number of common words to print")
	rootCmd.Flags().IntVar(&opts.Threshold, "threshold", 5, "minimum occurrences for a common word")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(w io.Writer, path string, opts options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := pdfdoc.Open(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	toc := doc.Outline()
	var top []string
	for _, e := range toc {
		if e.Level == 1 {
			top = append(top, e.Title)
		}
	}
	result := headings.Reconstruct(doc.Pages(), span.Titles(toc))

	engine, err := nlp.New(nlp.DefaultConfig())
	if err != nil {
		return err
	}
	texts := make([]string, 0, len(result.Sections))
	for _, s := range result.Sections {
		texts = append(texts, s.Text)
	}
	words, err := engine.CommonWords(strings.Join(texts, " "), opts.Threshold)
	if err != nil {
		return fmt.Errorf("common words: %w", err)
	}
	if opts.Top >= 0 && len(words) > opts.Top {
		words = words[:opts.Top]
	}

	r := report{
		Metadata:    doc.Metadata(),
		DOI:         doc.DOI(),
		Headings:    top,
		Sections:    result.Sections,
		CommonWords: words,
	}
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	printReport(w, r)
	return nil
}

func printReport(w io.Writer, r report) {
	fmt.Fprintf(w, "Title:   %s\n", r.Metadata.Title)
	fmt.Fprintf(w, "Author:  %s\n", r.Metadata.Author)
	fmt.Fprintf(w, "Pages:   %d\n", r.Metadata.NumPages)
	if r.DOI != "" {
		fmt.Fprintf(w, "DOI:     %s\n", r.DOI)
	}

	fmt.Fprintln(w, "\nTop level headings:")
	for _, h := range r.Headings {
		fmt.Fprintf(w, "  %s\n", h)
	}

	for _, s := range r.Sections {
		fmt.Fprintf(w, "\n== %s ==\n%s\n", s.Title, s.Text)
	}

	if len(r.CommonWords) > 0 {
		fmt.Fprintln(w, "\nCommon words:")
		for _, cw := range r.CommonWords {
			fmt.Fprintf(w, "  %-20s %d\n", cw.Term, cw.Score)
		}
	}
}
