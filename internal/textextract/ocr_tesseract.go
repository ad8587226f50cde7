//go:build ocr

package textextract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

type tesseractOCR struct {
	language string
}

func defaultOCR() OCR {
	return tesseractOCR{language: "eng"}
}

func (o tesseractOCR) Text(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(o.language); err != nil {
		return "", fmt.Errorf("ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("ocr image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}
