// Package capture produces raw photo bytes for a run, either from a file
// the user picks or from a camera. Sources bound the photo to the selected
// Resolution; they never normalize it.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrCameraUnavailable is returned by camera sources built without camera support.
var ErrCameraUnavailable = errors.New("camera capture is not available in this build")

// Source yields encoded photo bytes. A nil slice with a nil error means the
// user cancelled.
type Source interface {
	Capture(ctx context.Context, res Resolution) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, res Resolution) ([]byte, error)

func (f SourceFunc) Capture(ctx context.Context, res Resolution) ([]byte, error) {
	return f(ctx, res)
}

const jpegQuality = 90

// Fit returns raw unchanged when it already fits res. Otherwise the photo is
// downscaled and re-encoded in its original format.
func Fit(raw []byte, res Resolution) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read image header: %w", err)
	}
	if res.Fits(cfg.Width, cfg.Height) {
		return raw, nil
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	long, short, _ := res.MaxDimensions()
	b := img.Bounds()
	if b.Dx() >= b.Dy() {
		img = imaging.Fit(img, long, short, imaging.Lanczos)
	} else {
		img = imaging.Fit(img, short, long, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if format == "webp" {
		if err := webp.Encode(&buf, img, &webp.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
		return buf.Bytes(), nil
	}

	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		return nil, fmt.Errorf("unsupported format %q: %w", format, err)
	}
	if err := imaging.Encode(&buf, img, f, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
