package normalizer

import (
	"image"

	"github.com/disintegration/imaging"
)

// Renderable produces a displayable surface from a canonical bitmap. When
// maxWidth and maxHeight are positive the surface is scaled down to fit
// inside them, keeping the aspect ratio.
func Renderable(b *Bitmap, maxWidth, maxHeight int) image.Image {
	rgba := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		src := b.Pix[y*b.Stride:]
		dst := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < b.Width; x++ {
			i := x * 4
			dst[i], dst[i+1], dst[i+2], dst[i+3] = src[i+2], src[i+1], src[i], src[i+3]
		}
	}

	if maxWidth > 0 && maxHeight > 0 && (b.Width > maxWidth || b.Height > maxHeight) {
		return imaging.Fit(rgba, maxWidth, maxHeight, imaging.Lanczos)
	}
	return rgba
}
