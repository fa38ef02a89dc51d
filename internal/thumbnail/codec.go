package thumbnail

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"desktop-thumbnailer/internal/filesystem"
	"desktop-thumbnailer/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupported is returned when no registered codec handles a MIME type.
var ErrUnsupported = errors.New("no codec supports this mime type")

// Decoded is an image loaded by a Codec. OriginalWidth and OriginalHeight
// are the dimensions before any load-time scaling, or zero when the codec
// could not tell.
type Decoded struct {
	Image          image.Image
	OriginalWidth  int
	OriginalHeight int
}

// Codec decodes local image files.
type Codec interface {
	Name() string
	Supports(mimeType string) bool
	// Load decodes path with orientation applied. When size > 0 the result
	// fits inside size x size.
	Load(path string, size int) (Decoded, error)
}

// Codecs is an ordered set of codecs. The first codec that supports a MIME
// type and loads the file successfully wins.
type Codecs struct {
	mu     sync.RWMutex
	codecs []Codec
}

// NewCodecs returns a set holding codecs in order.
func NewCodecs(codecs ...Codec) *Codecs {
	return &Codecs{codecs: codecs}
}

// Register appends codec to the set.
func (c *Codecs) Register(codec Codec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codecs = append(c.codecs, codec)
	logging.Debug("Registered codec %s", codec.Name())
}

// Names returns the registered codec names in order.
func (c *Codecs) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.codecs))
	for i, codec := range c.codecs {
		names[i] = codec.Name()
	}
	return names
}

// Supports reports whether any codec handles mimeType.
func (c *Codecs) Supports(mimeType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, codec := range c.codecs {
		if codec.Supports(mimeType) {
			return true
		}
	}
	return false
}

// Load tries each codec supporting mimeType in turn.
func (c *Codecs) Load(path, mimeType string, size int) (Decoded, error) {
	c.mu.RLock()
	codecs := make([]Codec, 0, len(c.codecs))
	for _, codec := range c.codecs {
		if codec.Supports(mimeType) {
			codecs = append(codecs, codec)
		}
	}
	c.mu.RUnlock()

	if len(codecs) == 0 {
		return Decoded{}, fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}

	var errs []error
	for _, codec := range codecs {
		d, err := codec.Load(path, size)
		if err == nil {
			return d, nil
		}
		logging.Debug("Codec %s failed for %s: %v", codec.Name(), path, err)
		errs = append(errs, fmt.Errorf("%s: %w", codec.Name(), err))
	}
	return Decoded{}, errors.Join(errs...)
}

// MaxImagePixels bounds the images BuiltinCodec will fully decode. A 20MP
// image uses about 80MB as RGBA.
const MaxImagePixels = 20_000_000

var builtinMimeTypes = map[string]bool{
	"image/jpeg":     true,
	"image/pjpeg":    true,
	"image/png":      true,
	"image/gif":      true,
	"image/webp":     true,
	"image/bmp":      true,
	"image/x-bmp":    true,
	"image/x-ms-bmp": true,
	"image/tiff":     true,
}

// BuiltinCodec decodes the formats supported by the standard library and
// golang.org/x/image.
type BuiltinCodec struct {
	// MaxPixels rejects larger images. Zero means MaxImagePixels.
	MaxPixels int
}

// Name implements Codec.
func (BuiltinCodec) Name() string { return "builtin" }

// Supports implements Codec.
func (BuiltinCodec) Supports(mimeType string) bool {
	return builtinMimeTypes[strings.ToLower(mimeType)]
}

// Load implements Codec.
func (b BuiltinCodec) Load(path string, size int) (Decoded, error) {
	width, height, err := imageDimensions(path)
	if err != nil {
		return Decoded{}, fmt.Errorf("failed to read image header: %w", err)
	}

	limit := b.MaxPixels
	if limit <= 0 {
		limit = MaxImagePixels
	}
	if width*height > limit {
		return Decoded{}, fmt.Errorf("image %dx%d exceeds %d pixels", width, height, limit)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Decoded{}, fmt.Errorf("failed to open image: %w", err)
	}
	if size > 0 {
		img = scaleDown(img, size)
	}

	logging.Debug("Decoded %s: %dx%d -> %dx%d", path, width, height, img.Bounds().Dx(), img.Bounds().Dy())
	return Decoded{Image: img, OriginalWidth: width, OriginalHeight: height}, nil
}

func imageDimensions(path string) (int, int, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}
	return config.Width, config.Height, nil
}
