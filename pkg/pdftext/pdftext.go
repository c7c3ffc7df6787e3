// Package pdftext extracts plain text from uploaded PDF resumes.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxPages is how many leading pages are read from a resume.
const DefaultMaxPages = 2

// ErrNotPDF is returned when the input does not start with a PDF header.
var ErrNotPDF = errors.New("pdftext: not a PDF document")

var magic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// Extract returns the text of the first maxPages pages of the PDF in data
// (all pages if maxPages <= 0), with runs of whitespace collapsed to a single
// space.
func Extract(data []byte, maxPages int) (string, error) {
	if !IsPDF(data) {
		return "", ErrNotPDF
	}
	return ExtractReader(bytes.NewReader(data), int64(len(data)), maxPages)
}

// ExtractReader is Extract over an io.ReaderAt of known size.
func ExtractReader(r io.ReaderAt, size int64, maxPages int) (text string, err error) {
	// The parser panics on some malformed documents.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("pdftext: malformed document: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("pdftext: open: %w", err)
	}

	n := reader.NumPage()
	if maxPages <= 0 || maxPages > n {
		maxPages = n
	}

	var b strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pt, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdftext: page %d: %w", i, err)
		}
		b.WriteString(pt)
		b.WriteString(" ")
	}
	return Collapse(b.String()), nil
}

// Collapse replaces every run of whitespace with one space and trims the ends.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
