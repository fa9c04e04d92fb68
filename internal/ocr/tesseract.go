//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/cardscan/internal/capture"
	"github.com/otiai10/gosseract/v2"
)

// TesseractExtractor runs libtesseract in-process through gosseract.
type TesseractExtractor struct {
	languages []string
}

// NewTesseractExtractor creates a local extractor. Languages default to eng.
func NewTesseractExtractor(languages ...string) (*TesseractExtractor, error) {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractExtractor{languages: languages}, nil
}

func (e *TesseractExtractor) Name() string { return "tesseract" }

func (e *TesseractExtractor) Extract(ctx context.Context, asset *capture.Asset) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("set page seg mode: %w", err)
	}
	if err := c.SetImageFromBytes(asset.PNG); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return strings.TrimSpace(text), nil
}
