package thumbnail

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// scaledSize returns the dimensions of a w x h image shrunk to fit inside
// size x size. The factor is size/max(w, h) and both sides are rounded half
// up. Images that already fit are returned unchanged.
func scaledSize(w, h, size int) (int, int) {
	if w <= size && h <= size {
		return w, h
	}
	factor := float64(size) / float64(max(w, h))
	nw := int(math.Floor(float64(w)*factor + 0.5))
	nh := int(math.Floor(float64(h)*factor + 0.5))
	return max(nw, 1), max(nh, 1)
}

// scaleDown shrinks img to fit inside size x size with a bilinear filter.
func scaleDown(img image.Image, size int) image.Image {
	b := img.Bounds()
	nw, nh := scaledSize(b.Dx(), b.Dy(), size)
	if nw == b.Dx() && nh == b.Dy() {
		return img
	}
	return imaging.Resize(img, nw, nh, imaging.Linear)
}
