// Package ocr turns a captured card image into untrusted contact-field
// candidates. Text recognition is delegated to an Extractor; the heuristics
// in ParseCandidates map raw text onto card fields.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ignite/cardscan/internal/capture"
	"github.com/ignite/cardscan/internal/domain"
	"github.com/ignite/cardscan/internal/pkg/logger"
)

var (
	// ErrUnavailable means the recognition engine could not be reached or
	// failed; the request may be retried later.
	ErrUnavailable = errors.New("ocr engine unavailable")
	// ErrNotBuilt is returned when an engine was requested that this
	// binary was compiled without.
	ErrNotBuilt = errors.New("ocr engine not compiled in")
)

// Extractor recognizes the text on an image asset.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, asset *capture.Asset) (string, error)
}

// Result is one pass through the scan pipeline.
type Result struct {
	Asset      *capture.Asset
	Text       string
	Candidates domain.CardFields
}

// Pipeline runs capture, recognition and candidate parsing as separate
// stages, each with its own artifact.
type Pipeline struct {
	extractor Extractor
	capture   capture.Options
}

// NewPipeline creates a pipeline using ex for recognition.
func NewPipeline(ex Extractor, opts capture.Options) *Pipeline {
	return &Pipeline{extractor: ex, capture: opts}
}

// Engine returns the configured extractor's name.
func (p *Pipeline) Engine() string { return p.extractor.Name() }

// Scan processes one uploaded image. crop may be nil.
func (p *Pipeline) Scan(ctx context.Context, r io.Reader, crop *capture.Rect) (*Result, error) {
	opts := p.capture
	opts.Crop = crop

	asset, err := capture.Process(r, opts)
	if err != nil {
		return nil, err
	}

	text, err := p.extractor.Extract(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("%s extract: %w", p.extractor.Name(), err)
	}
	text = Normalize(text)

	res := &Result{Asset: asset, Text: text, Candidates: ParseCandidates(text)}
	logger.Debug("scan complete",
		"asset_id", asset.ID, "engine", p.extractor.Name(),
		"width", asset.Width, "height", asset.Height, "chars", len(text))
	return res, nil
}
