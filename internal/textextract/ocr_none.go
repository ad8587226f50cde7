//go:build !ocr

package textextract

func defaultOCR() OCR {
	return nil
}
