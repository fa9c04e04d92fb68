// Package capture turns an uploaded card photo into a normalized image
// asset for OCR: decode, optional crop, bounded downscale, PNG re-encode.
package capture

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // GIF decode support
	_ "image/jpeg" // JPEG decode support
	"image/png"
	"io"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp" // BMP decode support
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // TIFF decode support
	_ "golang.org/x/image/webp" // WebP decode support
)

// DefaultMaxBytes bounds how much of an upload is read.
const DefaultMaxBytes = 10 << 20

var (
	ErrEmpty       = errors.New("empty image upload")
	ErrTooLarge    = errors.New("image upload too large")
	ErrUnsupported = errors.New("unsupported image format")
	ErrBadCrop     = errors.New("crop rectangle outside image")
)

// Rect is a crop rectangle in source pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Options controls Process.
type Options struct {
	// MaxBytes caps the upload size. Zero means DefaultMaxBytes.
	MaxBytes int64
	// MaxDimension bounds the longest side of the output. Zero keeps size.
	MaxDimension int
	// Crop, when set, is applied before scaling.
	Crop *Rect
}

// Asset is the image handed to the OCR stage.
type Asset struct {
	ID           string
	SourceFormat string
	Width        int
	Height       int
	Checksum     string
	PNG          []byte
}

// Process decodes r, applies opts and returns the normalized asset.
func Process(r io.Reader, opts Options) (*Asset, error) {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, maxBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	if opts.Crop != nil {
		if img, err = crop(img, *opts.Crop); err != nil {
			return nil, err
		}
	}
	img = downscale(img, opts.MaxDimension)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	b := img.Bounds()
	return &Asset{
		ID:           uuid.New().String(),
		SourceFormat: format,
		Width:        b.Dx(),
		Height:       b.Dy(),
		Checksum:     hex.EncodeToString(sum[:]),
		PNG:          buf.Bytes(),
	}, nil
}

// crop clips rc to the image bounds and copies that region.
func crop(img image.Image, rc Rect) (image.Image, error) {
	src := img.Bounds()
	r := image.Rect(rc.X, rc.Y, rc.X+rc.Width, rc.Y+rc.Height).Add(src.Min).Intersect(src)
	if r.Empty() {
		return nil, ErrBadCrop
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, nil
}

// downscale shrinks img so its longest side is at most maxDim, keeping
// the aspect ratio. Smaller images are returned unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}

	nw, nh := maxDim, maxDim
	if w >= h {
		nh = max(1, int(float64(h)*float64(maxDim)/float64(w)))
	} else {
		nw = max(1, int(float64(w)*float64(maxDim)/float64(h)))
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
