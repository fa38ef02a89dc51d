package media

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"desktop-thumbnailer/internal/logging"
	"desktop-thumbnailer/internal/thumbnail"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// ErrVipsUnavailable is returned by VipsCodec when libvips is not running.
var ErrVipsUnavailable = errors.New("libvips not available")

// vipsLogLevel maps the application log level onto the most verbose libvips
// level that should still be forwarded.
func vipsLogLevel(level logging.LogLevel) vips.LogLevel {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelInfo:
		return vips.LogLevelWarning
	case logging.LevelWarn:
		return vips.LogLevelError
	case logging.LevelError:
		return vips.LogLevelCritical
	default:
		return vips.LogLevelWarning
	}
}

func forwardVipsLog(domain string, level vips.LogLevel, msg string) {
	switch level {
	case vips.LogLevelError, vips.LogLevelCritical:
		logging.Error("[%s] %s", domain, msg)
	case vips.LogLevelWarning:
		logging.Warn("[%s] %s", domain, msg)
	default:
		logging.Debug("[%s] %s", domain, msg)
	}
}

// InitVips starts libvips. It is safe to call more than once; govips cannot
// be restarted after ShutdownVips.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Logging must be configured before Startup to take effect.
	vips.LoggingSettings(forwardVipsLog, vipsLogLevel(logging.GetLevel()))

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable reports whether InitVips has run.
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

var vipsMimeTypes = map[string]bool{
	"image/jpeg":    true,
	"image/png":     true,
	"image/gif":     true,
	"image/webp":    true,
	"image/tiff":    true,
	"image/heic":    true,
	"image/heif":    true,
	"image/avif":    true,
	"image/jxl":     true,
	"image/svg+xml": true,
}

// VipsCodec decodes images with libvips, shrinking during decode where the
// format allows it. It covers formats the builtin codec cannot read such as
// HEIC, AVIF, JPEG XL and SVG.
type VipsCodec struct{}

// Name implements thumbnail.Codec.
func (VipsCodec) Name() string { return "vips" }

// Supports implements thumbnail.Codec.
func (VipsCodec) Supports(mimeType string) bool {
	return vipsMimeTypes[strings.ToLower(mimeType)]
}

// Load implements thumbnail.Codec. Images larger than size are shrunk to
// fit; smaller ones keep their dimensions.
func (VipsCodec) Load(path string, size int) (thumbnail.Decoded, error) {
	if !IsVipsAvailable() {
		return thumbnail.Decoded{}, ErrVipsUnavailable
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return thumbnail.Decoded{}, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	origWidth, origHeight := ref.Width(), ref.Height()

	if err := ref.AutoRotate(); err != nil {
		return thumbnail.Decoded{}, fmt.Errorf("vips auto-rotate failed: %w", err)
	}

	if size > 0 && (ref.Width() > size || ref.Height() > size) {
		logging.Debug("Vips loaded %s: %dx%d, shrinking to fit %d",
			filepath.Base(path), ref.Width(), ref.Height(), size)
		if err := ref.Thumbnail(size, size, vips.InterestingNone); err != nil {
			return thumbnail.Decoded{}, fmt.Errorf("vips resize failed: %w", err)
		}
	}

	// PNG keeps alpha, which JPEG export would drop.
	data, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return thumbnail.Decoded{}, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return thumbnail.Decoded{}, fmt.Errorf("failed to decode vips output: %w", err)
	}

	return thumbnail.Decoded{
		Image:          img,
		OriginalWidth:  origWidth,
		OriginalHeight: origHeight,
	}, nil
}

var _ thumbnail.Codec = VipsCodec{}
