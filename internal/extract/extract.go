package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ledongthuc/pdf"
)

const mimePDF = "application/pdf"

// ErrUnsupported is returned for payloads the extractor cannot read.
var ErrUnsupported = errors.New("unsupported document format")

// TextExtractor turns document bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// PDFExtractor extracts text with github.com/ledongthuc/pdf.
type PDFExtractor struct{}

// NewPDFExtractor returns the default extractor.
func NewPDFExtractor() PDFExtractor {
	return PDFExtractor{}
}

// Extract returns the concatenated plain text of every page.
func (PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if http.DetectContentType(data) != mimePDF {
		return "", ErrUnsupported
	}
	return extractPDF(data)
}

// extractPDF recovers from parser panics, which malformed input can trigger.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("parse pdf: %v", rec)
		}
	}()

	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var _ TextExtractor = PDFExtractor{}
