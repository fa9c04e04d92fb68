//go:build !tesseract

package ocr

import (
	"context"

	"github.com/ignite/cardscan/internal/capture"
)

// TesseractExtractor is unavailable without the tesseract build tag.
type TesseractExtractor struct{}

// NewTesseractExtractor reports ErrNotBuilt; rebuild with -tags tesseract.
func NewTesseractExtractor(...string) (*TesseractExtractor, error) {
	return nil, ErrNotBuilt
}

func (e *TesseractExtractor) Name() string { return "tesseract" }

func (e *TesseractExtractor) Extract(context.Context, *capture.Asset) (string, error) {
	return "", ErrNotBuilt
}
