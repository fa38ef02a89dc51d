package thumbnail

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"desktop-thumbnailer/internal/filesystem"
	"desktop-thumbnailer/internal/metrics"
)

const failDir = "fail"

// PathResolver maps URIs to cache paths under <cache-root>/thumbnails.
type PathResolver struct {
	root string
}

// NewPathResolver returns a resolver rooted at cacheRoot/thumbnails.
func NewPathResolver(cacheRoot string) *PathResolver {
	return &PathResolver{root: filepath.Join(filepath.Clean(cacheRoot), "thumbnails")}
}

// DefaultCacheRoot returns $XDG_CACHE_HOME, or ~/.cache when unset.
func DefaultCacheRoot() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user cache dir: %w", err)
	}
	return dir, nil
}

// Root returns the thumbnails directory.
func (p *PathResolver) Root() string {
	return p.root
}

// SuccessPath returns where the thumbnail of uri at size is cached.
func (p *PathResolver) SuccessPath(uri string, size Size) string {
	return filepath.Join(p.root, size.Dir(), Key(uri))
}

// FailurePath returns where the failure marker of uri for appID is cached.
func (p *PathResolver) FailurePath(uri, appID string) string {
	return filepath.Join(p.root, failDir, appID, Key(uri))
}

// EnsureDirs creates the directory holding path and every missing parent
// up to and including the thumbnails root, owner-only.
func (p *PathResolver) EnsureDirs(path string) error {
	if err := filesystem.EnsureDir(p.root); err != nil {
		return err
	}
	return filesystem.EnsureDir(filepath.Dir(path))
}

// Contains reports whether path lies inside the thumbnails tree.
func (p *PathResolver) Contains(path string) bool {
	rel, err := filepath.Rel(p.root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Usage walks the normal, large and fail subtrees and reports their size.
// Missing subtrees are reported as empty.
func (p *PathResolver) Usage() (metrics.Stats, error) {
	stats := metrics.Stats{Dirs: make(map[string]metrics.DirStats, 3)}

	for _, dir := range []string{SizeNormal.Dir(), SizeLarge.Dir(), failDir} {
		var ds metrics.DirStats
		err := filepath.WalkDir(filepath.Join(p.root, dir), func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".png") {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			ds.Bytes += info.Size()
			ds.Entries++
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return stats, fmt.Errorf("failed to walk %s: %w", dir, err)
		}
		stats.Dirs[dir] = ds
	}
	return stats, nil
}
