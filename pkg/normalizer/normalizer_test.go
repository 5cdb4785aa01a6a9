package normalizer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// createTestImage creates a simple opaque gradient image
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.NRGBA{r, g, 128, 255})
		}
	}
	return img
}

func encode(t *testing.T, format string, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, nil)
	case "webp":
		err = webp.Encode(&buf, img, &webp.Options{Lossless: true})
	default:
		t.Fatalf("unknown format %s", format)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", format, err)
	}
	return buf.Bytes()
}

func TestNormalizeProducesCanonicalFormat(t *testing.T) {
	src := createTestImage(64, 48)

	for _, format := range []string{"png", "jpeg", "gif", "bmp", "tiff", "webp"} {
		t.Run(format, func(t *testing.T) {
			bmp, err := Normalize(encode(t, format, src))
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if bmp.Format != BGRA8Premultiplied {
				t.Errorf("expected canonical format, got %s", bmp.Format)
			}
			if bmp.Width != 64 || bmp.Height != 48 {
				t.Errorf("expected 64x48, got %dx%d", bmp.Width, bmp.Height)
			}
			if bmp.Stride != 64*4 || len(bmp.Pix) != 64*48*4 {
				t.Errorf("unexpected buffer layout: stride=%d len=%d", bmp.Stride, len(bmp.Pix))
			}
		})
	}
}

func TestNormalizeChannelOrderAndPremultiply(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	img.Set(1, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	bmp, err := Normalize(encode(t, "png", img))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	opaque := bmp.Pix[0:4]
	if want := []byte{50, 100, 200, 255}; !bytes.Equal(opaque, want) {
		t.Errorf("opaque pixel = %v, want %v", opaque, want)
	}
	translucent := bmp.Pix[4:8]
	if want := []byte{25, 50, 100, 128}; !bytes.Equal(translucent, want) {
		t.Errorf("translucent pixel = %v, want %v", translucent, want)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, format := range []string{"png", "jpeg", "webp"} {
		t.Run(format, func(t *testing.T) {
			first, err := Normalize(encode(t, format, createTestImage(40, 30)))
			if err != nil {
				t.Fatalf("first Normalize failed: %v", err)
			}

			// PNG round-trips opaque pixels exactly. Translucent ones are
			// covered by TestNormalizeTranslucentRoundTrip.
			second, err := Normalize(encode(t, "png", first))
			if err != nil {
				t.Fatalf("second Normalize failed: %v", err)
			}
			if !bytes.Equal(first.Pix, second.Pix) {
				t.Error("normalizing canonical output changed pixels")
			}
		})
	}
}

// PNG stores straight alpha, so re-encoding a premultiplied bitmap rounds
// each color channel once. Alpha survives exactly and colors move by at
// most one step.
func TestNormalizeTranslucentRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			src.Set(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 200, A: uint8(x*2 + y*2)})
		}
	}

	first, err := Normalize(encode(t, "png", src))
	if err != nil {
		t.Fatalf("first Normalize failed: %v", err)
	}
	second, err := Normalize(encode(t, "png", first))
	if err != nil {
		t.Fatalf("second Normalize failed: %v", err)
	}

	for i := range first.Pix {
		a, b := int(first.Pix[i]), int(second.Pix[i])
		if i%4 == 3 {
			if a != b {
				t.Fatalf("alpha at byte %d changed: %d -> %d", i, a, b)
			}
			continue
		}
		if d := a - b; d > 1 || d < -1 {
			t.Fatalf("byte %d moved by %d (%d -> %d)", i, d, a, b)
		}
	}
}

func TestNormalizeRejectsMalformedInput(t *testing.T) {
	valid := encode(t, "png", createTestImage(16, 16))

	cases := map[string][]byte{
		"empty":     nil,
		"garbage":   []byte("definitely not an image"),
		"truncated": valid[:len(valid)/2],
		"webp-like": append([]byte("RIFF\x00\x00\x00\x00WEBP"), bytes.Repeat([]byte{0xff}, 32)...),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			bmp, err := Normalize(raw)
			if bmp != nil {
				t.Error("expected no bitmap on failure")
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected DecodeError, got %T (%v)", err, err)
			}
		})
	}

	if _, err := Normalize(nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestNormalizeRespectsSupportedFormats(t *testing.T) {
	n := NewWithConfig(Config{SupportedFormats: []string{"png"}})

	if _, err := n.Normalize(encode(t, "png", createTestImage(8, 8))); err != nil {
		t.Errorf("png should be accepted: %v", err)
	}
	if _, err := n.Normalize(encode(t, "gif", createTestImage(8, 8))); err == nil {
		t.Error("gif should be rejected")
	}
}

func TestBitmapImplementsImage(t *testing.T) {
	bmp, err := Normalize(encode(t, "png", createTestImage(10, 10)))
	if err != nil {
		t.Fatal(err)
	}

	var img image.Image = bmp
	if img.Bounds() != image.Rect(0, 0, 10, 10) {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
	c := img.At(3, 4).(color.RGBA)
	i := 4*bmp.Stride + 3*4
	if c.B != bmp.Pix[i] || c.G != bmp.Pix[i+1] || c.R != bmp.Pix[i+2] || c.A != bmp.Pix[i+3] {
		t.Errorf("At returned %v for pixel %v", c, bmp.Pix[i:i+4])
	}
	if (img.At(-1, 0) != color.RGBA{}) {
		t.Error("out of range pixels should be transparent")
	}
}

func TestRenderable(t *testing.T) {
	bmp, err := Normalize(encode(t, "png", createTestImage(400, 200)))
	if err != nil {
		t.Fatal(err)
	}

	full := Renderable(bmp, 0, 0)
	if full.Bounds().Dx() != 400 || full.Bounds().Dy() != 200 {
		t.Errorf("expected full size surface, got %v", full.Bounds())
	}
	r, g, b, a := full.At(10, 10).RGBA()
	br, bg, bb, ba := bmp.At(10, 10).RGBA()
	if r != br || g != bg || b != bb || a != ba {
		t.Error("surface pixels differ from bitmap")
	}

	fitted := Renderable(bmp, 100, 100)
	if fitted.Bounds().Dx() != 100 || fitted.Bounds().Dy() != 50 {
		t.Errorf("expected 100x50 surface, got %v", fitted.Bounds())
	}
}

func BenchmarkNormalize(b *testing.B) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createTestImage(1920, 1080), nil); err != nil {
		b.Fatal(err)
	}
	raw := buf.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Normalize(raw); err != nil {
			b.Fatal(err)
		}
	}
}
