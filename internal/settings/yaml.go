package settings

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"desktop-thumbnailer/internal/logging"
)

// ThumbnailersRoot is the settings subtree holding external thumbnailer
// registrations.
const ThumbnailersRoot = "/desktop/gnome/thumbnailers"

// ThumbnailersFile is the on-disk YAML form of the thumbnailers subtree.
// Map keys are directory segments such as "image@svg+xml".
//
//	disable_all: false
//	thumbnailers:
//	  image@svg+xml:
//	    enable: true
//	    command: "rsvg-convert -w %s -h %s %i -o %o"
type ThumbnailersFile struct {
	DisableAll   bool                   `yaml:"disable_all"`
	Thumbnailers map[string]Thumbnailer `yaml:"thumbnailers"`
}

// Thumbnailer is one registration in a ThumbnailersFile.
type Thumbnailer struct {
	Enable  bool   `yaml:"enable"`
	Command string `yaml:"command"`
}

// LoadThumbnailersFile parses path.
func LoadThumbnailersFile(path string) (*ThumbnailersFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var f ThumbnailersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for segment := range f.Thumbnailers {
		if segment == "" || strings.Contains(segment, "/") {
			return nil, fmt.Errorf("invalid thumbnailer name %q in %s: must be a single path segment", segment, path)
		}
	}
	return &f, nil
}

// ImportThumbnailers writes f into the thumbnailers subtree of s. Entries
// present in the store but absent from f are removed, so the subtree ends up
// mirroring the file. Subscribers are notified once, after the whole file has
// been written.
func ImportThumbnailers(s *Store, f *ThumbnailersFile) error {
	return s.Batch(func() error {
		return importThumbnailers(s, f)
	})
}

func importThumbnailers(s *Store, f *ThumbnailersFile) error {
	if err := s.SetBool(ThumbnailersRoot+"/disable_all", f.DisableAll); err != nil {
		return err
	}

	existing, err := s.Dirs(ThumbnailersRoot)
	if err != nil {
		return err
	}
	for _, dir := range existing {
		segment := strings.TrimPrefix(dir, ThumbnailersRoot+"/")
		if _, keep := f.Thumbnailers[segment]; keep {
			continue
		}
		keys, err := s.backend.Keys(dir + "/")
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, key := range keys {
			if err := s.Unset(key); err != nil {
				return err
			}
		}
	}

	segments := make([]string, 0, len(f.Thumbnailers))
	for segment := range f.Thumbnailers {
		segments = append(segments, segment)
	}
	sort.Strings(segments)

	for _, segment := range segments {
		t := f.Thumbnailers[segment]
		dir := ThumbnailersRoot + "/" + segment
		if err := s.SetBool(dir+"/enable", t.Enable); err != nil {
			return err
		}
		if err := s.SetString(dir+"/command", t.Command); err != nil {
			return err
		}
	}

	logging.Info("Imported %d thumbnailer registrations (disable_all=%v)", len(segments), f.DisableAll)
	return nil
}

// ImportYAML loads path and imports it into s.
func ImportYAML(s *Store, path string) error {
	f, err := LoadThumbnailersFile(path)
	if err != nil {
		return err
	}
	return ImportThumbnailers(s, f)
}
