package thumbnail

import (
	"net/url"
	"path/filepath"
)

// LocalPath returns the filesystem path of a file:// URI with an empty or
// "localhost" authority.
func LocalPath(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", false
	}
	if u.Path == "" {
		return "", false
	}
	return u.Path, true
}

// FileURI returns the file:// URI of path, made absolute first.
func FileURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
