package acquire

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"researchmind/internal/util"
)

// Extractor turns raw PDF bytes into plain text. It may fail on malformed,
// scanned or image-only input.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// PDFExtractor extracts embedded text; it performs no OCR.
type PDFExtractor struct{}

func (PDFExtractor) Extract(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	text := util.NormalizeWhitespace(util.SanitizeText(buf.String()))
	if text == "" {
		return "", util.ErrNoExtractableText
	}
	return text, nil
}
