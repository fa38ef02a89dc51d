package thumbnail

import (
	"image"
	"testing"
)

func TestScaledSize(t *testing.T) {
	tests := []struct {
		w, h, size int
		wantW      int
		wantH      int
	}{
		{400, 200, 128, 128, 64},
		{200, 400, 128, 64, 128},
		{100, 50, 128, 100, 50},
		{128, 128, 128, 128, 128},
		{300, 1000, 128, 38, 128},
		{1000, 3, 128, 128, 1},
		{129, 1, 128, 128, 1},
		{1000, 999, 256, 256, 256},
		{1000, 997, 256, 256, 255},
	}
	for _, tt := range tests {
		gotW, gotH := scaledSize(tt.w, tt.h, tt.size)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("scaledSize(%d, %d, %d) = %dx%d, want %dx%d",
				tt.w, tt.h, tt.size, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}

func TestScaleDownKeepsSmallImages(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	if got := scaleDown(img, 128); got != image.Image(img) {
		t.Error("scaleDown returned a new image for an image that already fits")
	}

	big := image.NewNRGBA(image.Rect(0, 0, 512, 256))
	got := scaleDown(big, 128)
	if got.Bounds().Dx() != 128 || got.Bounds().Dy() != 64 {
		t.Errorf("scaleDown size = %v, want 128x64", got.Bounds())
	}
}
