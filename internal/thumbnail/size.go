package thumbnail

import (
	"fmt"
	"strings"
)

// Size is the thumbnail size class. It selects the cache subdirectory and
// the target pixel dimension.
type Size int

const (
	// SizeNormal thumbnails fit in 128x128 and live under thumbnails/normal.
	SizeNormal Size = iota
	// SizeLarge thumbnails fit in 256x256 and live under thumbnails/large.
	SizeLarge
)

// Pixels returns the maximum width and height for the size class.
func (s Size) Pixels() int {
	if s == SizeLarge {
		return 256
	}
	return 128
}

// Dir returns the cache subdirectory name for the size class.
func (s Size) Dir() string {
	if s == SizeLarge {
		return "large"
	}
	return "normal"
}

func (s Size) String() string {
	return s.Dir()
}

// ParseSize accepts "normal" or "large".
func ParseSize(s string) (Size, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "":
		return SizeNormal, nil
	case "large":
		return SizeLarge, nil
	}
	return SizeNormal, fmt.Errorf("unknown thumbnail size %q (want normal or large)", s)
}
