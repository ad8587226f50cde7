// Package textextract turns uploaded claim documents into plain text.
//
// PDF documents are read from their text layer with github.com/ledongthuc/pdf.
// Scanned documents (JPEG, PNG, TIFF) are passed through Tesseract OCR when the
// binary is built with the "ocr" tag; otherwise they fail with an extraction
// error. Plain UTF-8 text is accepted as-is. All output is NFKC normalized so
// marker phrase matching is insensitive to ligatures and full-width forms.
package textextract
