// Package normalizer decodes arbitrary encoded images into one canonical
// in-memory pixel layout: 8 bits per channel, blue-green-red-alpha order,
// alpha premultiplied. Downstream code renders and inspects Bitmaps without
// branching on the source encoding.
package normalizer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// PixelFormat names a pixel layout.
type PixelFormat int

const (
	// BGRA8Premultiplied is the only layout Normalize produces.
	BGRA8Premultiplied PixelFormat = iota
)

func (f PixelFormat) String() string {
	if f == BGRA8Premultiplied {
		return "bgra8-premultiplied"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// ErrEmptyInput is wrapped by DecodeError when there are no bytes to decode.
var ErrEmptyInput = errors.New("empty image data")

// DecodeError reports a byte stream that is not a decodable image container.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("failed to decode %s image: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Bitmap is a decoded pixel buffer in the canonical format. It implements
// image.Image so it can be encoded or drawn directly.
type Bitmap struct {
	Pix    []byte
	Stride int
	Width  int
	Height int
	Format PixelFormat
}

// ColorModel implements image.Image. Premultiplied BGRA maps onto color.RGBA.
func (b *Bitmap) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (b *Bitmap) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

// At implements image.Image.
func (b *Bitmap) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return color.RGBA{}
	}
	i := y*b.Stride + x*4
	return color.RGBA{R: b.Pix[i+2], G: b.Pix[i+1], B: b.Pix[i], A: b.Pix[i+3]}
}

// Config holds configuration for the normalizer
type Config struct {
	SupportedFormats []string
	AutoOrient       bool
}

// Normalizer converts encoded images into Bitmaps.
type Normalizer struct {
	config Config
}

// New creates a Normalizer accepting every registered format
func New() *Normalizer {
	return &Normalizer{
		config: Config{
			SupportedFormats: []string{"jpeg", "png", "gif", "bmp", "tiff", "webp"},
			AutoOrient:       true,
		},
	}
}

// NewWithConfig creates a Normalizer with custom configuration
func NewWithConfig(config Config) *Normalizer {
	return &Normalizer{config: config}
}

var defaultNormalizer = New()

// Normalize decodes raw with the default configuration.
func Normalize(raw []byte) (*Bitmap, error) {
	return defaultNormalizer.Normalize(raw)
}

// Normalize decodes raw and converts it to the canonical format. It never
// returns a partial bitmap: on failure the bitmap is nil and the error is a
// *DecodeError.
func (n *Normalizer) Normalize(raw []byte) (*Bitmap, error) {
	if len(raw) == 0 {
		return nil, &DecodeError{Err: ErrEmptyInput}
	}

	img, format, err := n.decode(raw)
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}
	if !n.isFormatSupported(format) {
		return nil, &DecodeError{Format: format, Err: fmt.Errorf("unsupported image format: %s", format)}
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, &DecodeError{Format: format, Err: errors.New("image has no pixels")}
	}
	return toBitmap(img), nil
}

func (n *Normalizer) decode(raw []byte) (image.Image, string, error) {
	_, format, cfgErr := image.DecodeConfig(bytes.NewReader(raw))
	if cfgErr == nil {
		var opts []imaging.DecodeOption
		if n.config.AutoOrient {
			opts = append(opts, imaging.AutoOrientation(true))
		}
		img, err := imaging.Decode(bytes.NewReader(raw), opts...)
		if err == nil {
			return img, format, nil
		}
		if format != "webp" {
			return nil, format, err
		}
	}

	// Fallback: explicit WebP decode for containers the registered decoder rejects
	if isWebP(raw) {
		img, err := webp.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, "webp", err
		}
		return img, "webp", nil
	}

	if cfgErr == nil {
		cfgErr = fmt.Errorf("image: unknown format")
	}
	return nil, format, cfgErr
}

func (n *Normalizer) isFormatSupported(format string) bool {
	for _, supported := range n.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

func isWebP(raw []byte) bool {
	return len(raw) >= 12 && string(raw[0:4]) == "RIFF" && string(raw[8:12]) == "WEBP"
}

func toBitmap(img image.Image) *Bitmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	bmp := &Bitmap{
		Pix:    make([]byte, w*h*4),
		Stride: w * 4,
		Width:  w,
		Height: h,
		Format: BGRA8Premultiplied,
	}

	// *image.RGBA is already premultiplied; only the channel order differs.
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < h; y++ {
			src := rgba.Pix[(y+bounds.Min.Y-rgba.Rect.Min.Y)*rgba.Stride+(bounds.Min.X-rgba.Rect.Min.X)*4:]
			dst := bmp.Pix[y*bmp.Stride:]
			for x := 0; x < w; x++ {
				i := x * 4
				dst[i], dst[i+1], dst[i+2], dst[i+3] = src[i+2], src[i+1], src[i], src[i+3]
			}
		}
		return bmp
	}

	nrgba := imaging.Clone(img)
	for y := 0; y < h; y++ {
		src := nrgba.Pix[y*nrgba.Stride:]
		dst := bmp.Pix[y*bmp.Stride:]
		for x := 0; x < w; x++ {
			i := x * 4
			a := src[i+3]
			dst[i] = premultiply(src[i+2], a)
			dst[i+1] = premultiply(src[i+1], a)
			dst[i+2] = premultiply(src[i], a)
			dst[i+3] = a
		}
	}
	return bmp
}

func premultiply(c, a uint8) uint8 {
	if a == 0xff {
		return c
	}
	return uint8((uint32(c)*uint32(a) + 127) / 255)
}
