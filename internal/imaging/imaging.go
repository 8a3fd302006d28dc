// Package imaging normalizes uploaded book cover images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// Cover bounds. Covers are portrait, so height gets more room than width.
const (
	DefaultMaxWidth  = 600
	DefaultMaxHeight = 900
	DefaultQuality   = 85
	DefaultMaxBytes  = 10 << 20
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooLarge          = errors.New("image too large")
)

// allowedMIME lists the accepted input types, as sniffed from the data.
var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Options bound the processed cover.
type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
	MaxBytes  int64
}

// DefaultOptions returns the bounds used for book covers.
func DefaultOptions() Options {
	return Options{
		MaxWidth:  DefaultMaxWidth,
		MaxHeight: DefaultMaxHeight,
		Quality:   DefaultQuality,
		MaxBytes:  DefaultMaxBytes,
	}
}

// Cover is a processed cover image.
type Cover struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// ProcessCover reads an uploaded image, checks its type by sniffing the
// bytes, fits it inside the configured box and re-encodes it as JPEG.
func ProcessCover(r io.Reader, opts Options) (*Cover, error) {
	opts = withDefaults(opts)

	data, err := io.ReadAll(io.LimitReader(r, opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if int64(len(data)) > opts.MaxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, opts.MaxBytes)
	}

	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s (JPEG, PNG and WebP accepted)", ErrUnsupportedFormat, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = fit(img, opts.MaxWidth, opts.MaxHeight)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Cover{
		Data:   buf.Bytes(),
		MIME:   "image/jpeg",
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = def.MaxWidth
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = def.MaxHeight
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = def.MaxBytes
	}
	return opts
}

// fit scales img down to fit inside maxW x maxH, keeping the aspect ratio.
// Smaller images are returned unchanged.
func fit(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
	image.RegisterFormat("webp", "RIFF????WEBPVP8", webp.Decode, webp.DecodeConfig)
}
