package raster

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotPDF reports decoded bytes that do not start like a PDF file.
var ErrNotPDF = errors.New("document is not a PDF")

var pdfMagic = []byte("%PDF-")

// DecodeDocument reads a base64 encoded PDF. Whitespace anywhere in the
// text is ignored.
func DecodeDocument(r io.Reader) ([]byte, error) {
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read encoded document: %w", err)
	}

	clean := strings.Join(strings.Fields(string(text)), "")
	doc, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("could not decode base64 document: %w", err)
	}

	if err := CheckPDF(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CheckPDF verifies the PDF magic at the start of doc.
func CheckPDF(doc []byte) error {
	if !bytes.HasPrefix(doc, pdfMagic) {
		n := min(len(doc), len(pdfMagic))
		return fmt.Errorf("%w: starts with %q", ErrNotPDF, doc[:n])
	}
	return nil
}
