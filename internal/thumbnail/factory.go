package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"desktop-thumbnailer/internal/filesystem"
	"desktop-thumbnailer/internal/logging"
	"desktop-thumbnailer/internal/metrics"
	"desktop-thumbnailer/internal/settings"
)

var (
	// ErrNoThumbnail means no thumbnail exists and none could be produced.
	ErrNoThumbnail = errors.New("no thumbnail available")
	// ErrSaveFailed means a generated thumbnail could not be written. A
	// failure marker is recorded in its place.
	ErrSaveFailed = errors.New("failed to save thumbnail")
	// ErrInvalidURI is returned for empty URIs.
	ErrInvalidURI = errors.New("invalid uri")
	// ErrInvalidAppID is returned for application ids that are not a single
	// path segment.
	ErrInvalidAppID = errors.New("invalid application id")
)

// ValidateAppID checks that id can be used as a directory name under
// thumbnails/fail.
func ValidateAppID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w %q", ErrInvalidAppID, id)
	}
	return nil
}

// Thumbnail is a generated image ready to be saved.
type Thumbnail struct {
	Image          image.Image
	OriginalWidth  int
	OriginalHeight int
}

// Options configures a Factory.
type Options struct {
	// CacheRoot is the directory holding "thumbnails". Defaults to the
	// user cache directory.
	CacheRoot string
	// AppID namespaces failure markers.
	AppID string
	Size  Size
	// Codecs defaults to a set holding only BuiltinCodec.
	Codecs *Codecs
	// Runner defaults to ShellRunner.
	Runner Runner
	// Config supplies thumbnailer registrations. A nil Config means no
	// scripts are ever registered.
	Config ConfigSource
	// Software is written into every entry. Defaults to DefaultSoftware.
	Software string
	// TempDir holds script output files. Defaults to os.TempDir().
	TempDir string
}

// Factory looks up, generates and stores thumbnails for one size class.
// All methods except Run and Reload may be called from any goroutine.
type Factory struct {
	size     Size
	appID    string
	paths    *PathResolver
	codecs   *Codecs
	runner   Runner
	config   ConfigSource
	scripts  *ScriptRegistry
	software string
	tempDir  string
	retry    filesystem.RetryConfig

	reloadCh    chan struct{}
	unsubscribe func()
}

// New creates a factory and loads the script registry. When a Config is
// given, changes under the thumbnailers subtree schedule a reload that Run
// performs.
func New(opts Options) (*Factory, error) {
	if err := ValidateAppID(opts.AppID); err != nil {
		return nil, err
	}
	if opts.CacheRoot == "" {
		root, err := DefaultCacheRoot()
		if err != nil {
			return nil, err
		}
		opts.CacheRoot = root
	}
	root, err := filepath.Abs(opts.CacheRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache root: %w", err)
	}
	opts.CacheRoot = root
	if opts.Codecs == nil {
		opts.Codecs = NewCodecs(BuiltinCodec{})
	}
	if opts.Runner == nil {
		opts.Runner = ShellRunner{}
	}
	if opts.Software == "" {
		opts.Software = DefaultSoftware
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}

	f := &Factory{
		size:     opts.Size,
		appID:    opts.AppID,
		paths:    NewPathResolver(opts.CacheRoot),
		codecs:   opts.Codecs,
		runner:   opts.Runner,
		config:   opts.Config,
		scripts:  NewScriptRegistry(),
		software: opts.Software,
		tempDir:  opts.TempDir,
		retry:    filesystem.DefaultRetryConfig(),
		reloadCh: make(chan struct{}, 1),
	}

	if f.config != nil {
		f.Reload()
		f.unsubscribe = f.config.Subscribe(settings.ThumbnailersRoot, func(key string) {
			logging.Debug("Settings key %s changed, scheduling script reload", key)
			f.NotifyConfigChanged()
		})
	}

	logging.Debug("Thumbnail factory: root=%s size=%s app=%s codecs=%v scripts=%d",
		f.paths.Root(), f.size, f.appID, f.codecs.Names(), f.scripts.Len())
	return f, nil
}

// Close stops listening for settings changes.
func (f *Factory) Close() {
	if f.unsubscribe != nil {
		f.unsubscribe()
		f.unsubscribe = nil
	}
}

// Size returns the factory's size class.
func (f *Factory) Size() Size { return f.size }

// AppID returns the application id used for failure markers.
func (f *Factory) AppID() string { return f.appID }

// Paths returns the cache path resolver.
func (f *Factory) Paths() *PathResolver { return f.paths }

// Scripts returns the script registry.
func (f *Factory) Scripts() *ScriptRegistry { return f.scripts }

// Codecs returns the codec set.
func (f *Factory) Codecs() *Codecs { return f.codecs }

// NotifyConfigChanged schedules a script reload. Any number of calls
// before Run gets to it result in a single reload.
func (f *Factory) NotifyConfigChanged() {
	select {
	case f.reloadCh <- struct{}{}:
	default:
	}
}

// Run performs scheduled reloads until ctx is done. Only one goroutine may
// call Run.
func (f *Factory) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.reloadCh:
			f.Reload()
		}
	}
}

// Reload rebuilds the script registry from the settings tree and installs
// it. If the settings cannot be read the registry becomes empty.
func (f *Factory) Reload() {
	if f.config == nil {
		return
	}

	scripts, err := BuildScripts(f.config)
	if err != nil {
		logging.Warn("Failed to read thumbnailer settings, disabling scripts: %v", err)
		metrics.ScriptRegistryReloads.WithLabelValues("error").Inc()
		scripts = map[string]string{}
	} else {
		metrics.ScriptRegistryReloads.WithLabelValues("success").Inc()
	}

	f.scripts.Replace(scripts)
	metrics.ScriptRegistrySize.Set(float64(len(scripts)))
	logging.Info("Loaded %d thumbnailer scripts", len(scripts))
}

// CanThumbnail reports whether generating a thumbnail for uri is worth
// attempting: uri is not itself a cache entry, some codec or script handles
// mimeType, and no current failure marker exists.
func (f *Factory) CanThumbnail(uri, mimeType string, mtime int64) bool {
	if uri == "" {
		return false
	}
	if path, ok := LocalPath(uri); ok && f.paths.Contains(path) {
		return false
	}
	if !f.codecs.Supports(mimeType) && !f.scripts.Has(mimeType) {
		return false
	}
	return !f.HasValidFailure(uri, mtime)
}

// Generate produces a thumbnail for uri. A registered script is tried
// first; if it is missing or fails the file is decoded directly. Failures
// are logged and reported only as ok == false.
func (f *Factory) Generate(ctx context.Context, uri, mimeType string) (*Thumbnail, bool) {
	if uri == "" {
		return nil, false
	}

	start := time.Now()
	source := "none"
	var thumb *Thumbnail

	if cmd, ok := f.scripts.Lookup(mimeType); ok {
		t, err := f.runScript(ctx, cmd, uri)
		if err != nil {
			logging.Debug("Script thumbnailer for %s failed on %s: %v", mimeType, uri, err)
		} else {
			thumb, source = t, "script"
		}
	}

	if thumb == nil {
		t, err := f.decode(uri, mimeType)
		if err != nil {
			logging.Debug("Decoding %s (%s) failed: %v", uri, mimeType, err)
		} else {
			thumb, source = t, "codec"
		}
	}

	metrics.ThumbnailGenerationDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if thumb == nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues(source, "error").Inc()
		return nil, false
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues(source, "success").Inc()

	thumb.Image = scaleDown(thumb.Image, f.size.Pixels())
	return thumb, true
}

func (f *Factory) runScript(ctx context.Context, template, uri string) (*Thumbnail, error) {
	tmp, err := os.CreateTemp(f.tempDir, "thumbnailer-*.png")
	if err != nil {
		metrics.ScriptRunsTotal.WithLabelValues("load_error").Inc()
		return nil, fmt.Errorf("failed to create script output file: %w", err)
	}
	outPath := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove script output %s: %v", outPath, err)
		}
	}()

	cmdLine, err := Expand(template, uri, outPath, f.size.Pixels())
	if err != nil {
		metrics.ScriptRunsTotal.WithLabelValues("malformed").Inc()
		return nil, err
	}

	if err := f.runner.Run(ctx, cmdLine); err != nil {
		metrics.ScriptRunsTotal.WithLabelValues("exit_error").Inc()
		return nil, err
	}

	thumb, err := loadScriptOutput(outPath)
	if err != nil {
		metrics.ScriptRunsTotal.WithLabelValues("load_error").Inc()
		return nil, err
	}
	metrics.ScriptRunsTotal.WithLabelValues("success").Inc()
	return thumb, nil
}

// loadScriptOutput reads the image a script produced. Scripts that record
// the original size in PNG text chunks have it carried over.
func loadScriptOutput(path string) (*Thumbnail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script output: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("script produced no output")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode script output: %w", err)
	}

	thumb := &Thumbnail{Image: img}
	if meta, err := ReadMetadata(data); err == nil {
		if w, h, ok := meta.OriginalSize(); ok {
			thumb.OriginalWidth, thumb.OriginalHeight = w, h
		}
	}
	return thumb, nil
}

func (f *Factory) decode(uri, mimeType string) (*Thumbnail, error) {
	path, ok := LocalPath(uri)
	if !ok {
		return nil, fmt.Errorf("%s is not a local file", uri)
	}
	d, err := f.codecs.Load(path, mimeType, f.size.Pixels())
	if err != nil {
		return nil, err
	}
	return &Thumbnail{
		Image:          d.Image,
		OriginalWidth:  d.OriginalWidth,
		OriginalHeight: d.OriginalHeight,
	}, nil
}

// Save writes thumb as the cache entry for (uri, mtime). If the entry
// cannot be written a failure marker is recorded instead and the error is
// returned wrapped in ErrSaveFailed.
func (f *Factory) Save(thumb *Thumbnail, uri string, mtime int64) error {
	if uri == "" {
		return ErrInvalidURI
	}

	var err error
	if thumb == nil || thumb.Image == nil {
		err = ErrNoThumbnail
	} else {
		meta := entryMetadata(uri, mtime, f.software)
		if thumb.OriginalWidth > 0 && thumb.OriginalHeight > 0 {
			meta[KeyWidth] = strconv.Itoa(thumb.OriginalWidth)
			meta[KeyHeight] = strconv.Itoa(thumb.OriginalHeight)
		}
		path := f.paths.SuccessPath(uri, f.size)
		err = f.writeEntry(path, thumb.Image, meta)
		if err == nil {
			metrics.ThumbnailSavesTotal.WithLabelValues("thumbnail", "success").Inc()
			logging.Debug("Saved thumbnail for %s to %s", uri, path)
			return nil
		}
	}

	metrics.ThumbnailSavesTotal.WithLabelValues("thumbnail", "error").Inc()
	logging.Warn("Failed to save thumbnail for %s: %v", uri, err)
	if ferr := f.RecordFailure(uri, mtime); ferr != nil {
		logging.Warn("Failed to record failure for %s: %v", uri, ferr)
	}
	return fmt.Errorf("%w: %w", ErrSaveFailed, err)
}

// RecordFailure writes a failure marker for (uri, mtime). Markers are
// shared by all size classes of the application.
func (f *Factory) RecordFailure(uri string, mtime int64) error {
	if uri == "" {
		return ErrInvalidURI
	}

	path := f.paths.FailurePath(uri, f.appID)
	meta := entryMetadata(uri, mtime, f.software)
	marker := image.NewNRGBA(image.Rect(0, 0, 1, 1))

	err := f.writeEntry(path, marker, meta)
	if err != nil {
		metrics.ThumbnailSavesTotal.WithLabelValues("failure", "error").Inc()
		return fmt.Errorf("failed to write failure marker: %w", err)
	}
	metrics.ThumbnailSavesTotal.WithLabelValues("failure", "success").Inc()
	logging.Debug("Recorded thumbnail failure for %s", uri)
	return nil
}

// writeEntry atomically writes img with meta to path, creating the cache
// directories on demand.
func (f *Factory) writeEntry(path string, img image.Image, meta Metadata) error {
	return filesystem.WriteAtomicIn(path, func() error {
		return f.paths.EnsureDirs(path)
	}, func(w io.Writer) error {
		return EncodePNG(w, img, meta)
	})
}

// Lookup returns the path of a valid cache entry for (uri, mtime). Missing,
// corrupt and stale entries are all reported as not found.
func (f *Factory) Lookup(uri string, mtime int64) (string, bool) {
	if uri == "" {
		return "", false
	}
	path := f.paths.SuccessPath(uri, f.size)

	switch f.checkFile(path, uri, mtime) {
	case fileValid:
		metrics.ThumbnailLookupsTotal.WithLabelValues("hit").Inc()
		return path, true
	case fileStale:
		metrics.ThumbnailLookupsTotal.WithLabelValues("stale").Inc()
	default:
		metrics.ThumbnailLookupsTotal.WithLabelValues("miss").Inc()
	}
	return "", false
}

// HasValidFailure reports whether a current failure marker exists for
// (uri, mtime).
func (f *Factory) HasValidFailure(uri string, mtime int64) bool {
	if uri == "" {
		return false
	}
	return f.checkFile(f.paths.FailurePath(uri, f.appID), uri, mtime) == fileValid
}

// Thumbnail returns the path of a valid thumbnail for (uri, mtime),
// generating and saving one when needed. When generation fails a failure
// marker is recorded and ErrNoThumbnail is returned.
func (f *Factory) Thumbnail(ctx context.Context, uri, mimeType string, mtime int64) (string, error) {
	if uri == "" {
		return "", ErrInvalidURI
	}
	if path, ok := f.Lookup(uri, mtime); ok {
		return path, nil
	}
	if !f.CanThumbnail(uri, mimeType, mtime) {
		return "", ErrNoThumbnail
	}

	thumb, ok := f.Generate(ctx, uri, mimeType)
	if !ok {
		if err := f.RecordFailure(uri, mtime); err != nil {
			logging.Warn("Failed to record failure for %s: %v", uri, err)
		}
		return "", ErrNoThumbnail
	}
	if err := f.Save(thumb, uri, mtime); err != nil {
		return "", err
	}
	return f.paths.SuccessPath(uri, f.size), nil
}

type fileState int

const (
	fileMissing fileState = iota
	fileStale
	fileValid
)

// ValidFile reports whether the PNG at path decodes and carries metadata
// matching (uri, mtime).
func ValidFile(path, uri string, mtime int64) bool {
	return checkFile(path, uri, mtime, filesystem.DefaultRetryConfig()) == fileValid
}

func (f *Factory) checkFile(path, uri string, mtime int64) fileState {
	return checkFile(path, uri, mtime, f.retry)
}

func checkFile(path, uri string, mtime int64, retry filesystem.RetryConfig) fileState {
	data, err := filesystem.ReadFileWithRetry(path, retry)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Debug("Reading %s failed: %v", path, err)
		}
		return fileMissing
	}
	_, meta, err := DecodePNG(data)
	if err != nil {
		logging.Debug("Cache entry %s is unreadable: %v", path, err)
		return fileMissing
	}
	if !IsValid(meta, uri, mtime) {
		return fileStale
	}
	return fileValid
}
