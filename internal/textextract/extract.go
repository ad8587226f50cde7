package textextract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"claimcheck/internal/services"
)

// Kind identifies how a document's bytes were interpreted.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// OCR recognizes text in a scanned page image.
type OCR interface {
	Text(ctx context.Context, image []byte) (string, error)
}

// Extractor reads text from claim documents.
type Extractor struct {
	ocr OCR
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithOCR overrides the OCR engine. A nil engine disables image documents.
func WithOCR(engine OCR) Option {
	return func(e *Extractor) {
		e.ocr = engine
	}
}

// New returns an extractor using the OCR engine compiled into this build, if any.
func New(opts ...Option) *Extractor {
	e := &Extractor{ocr: defaultOCR()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Detect classifies document bytes without extracting anything.
func Detect(data []byte) (Kind, bool) {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return KindPDF, true
	}
	mime := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(mime, "image/"):
		return KindImage, true
	case strings.HasPrefix(mime, "text/plain") && utf8.Valid(data):
		return KindText, true
	}
	return "", false
}

// Extract returns the normalized text content of a document. Empty, unreadable,
// or unsupported input is tagged with services.ErrExtraction.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", services.Wrap(services.ErrExtraction, "textextract", "extract", "document is empty", nil)
	}
	kind, ok := Detect(data)
	if !ok {
		return "", services.Wrap(services.ErrExtraction, "textextract", "extract",
			fmt.Sprintf("unsupported document content (%s)", http.DetectContentType(data)), nil)
	}

	var (
		text string
		err  error
	)
	switch kind {
	case KindPDF:
		text, err = pdfText(data)
	case KindImage:
		if e == nil || e.ocr == nil {
			return "", services.Wrap(services.ErrExtraction, "textextract", "ocr",
				"scanned documents require a build with OCR support", nil)
		}
		text, err = e.ocr.Text(ctx, data)
	default:
		text = string(data)
	}
	if err != nil {
		return "", services.Wrap(services.ErrExtraction, "textextract", string(kind), "", err)
	}
	text = Normalize(text)
	if text == "" {
		return "", services.Wrap(services.ErrExtraction, "textextract", string(kind), "document contains no text", nil)
	}
	return text, nil
}

// Normalize applies NFKC, unifies line endings, and trims surrounding space.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

func pdfText(data []byte) (text string, err error) {
	// The pdf reader panics on some truncated inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return string(raw), nil
}
