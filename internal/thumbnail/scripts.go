package thumbnail

import (
	"fmt"
	"maps"
	"path"
	"sort"
	"strings"
	"sync"

	"desktop-thumbnailer/internal/settings"
)

// ConfigSource is the part of the settings tree the factory reads.
// *settings.Store satisfies it.
type ConfigSource interface {
	GetBool(key string, fallback bool) bool
	GetString(key, fallback string) string
	Dirs(prefix string) ([]string, error)
	Subscribe(prefix string, fn func(key string)) (cancel func())
}

// ScriptRegistry holds the MIME type to command template mapping. The map
// is never mutated after installation; Replace swaps it wholesale.
type ScriptRegistry struct {
	mu      sync.Mutex
	scripts map[string]string
}

// NewScriptRegistry returns an empty registry.
func NewScriptRegistry() *ScriptRegistry {
	return &ScriptRegistry{scripts: map[string]string{}}
}

// Lookup returns the command template registered for mimeType.
func (r *ScriptRegistry) Lookup(mimeType string) (string, bool) {
	r.mu.Lock()
	scripts := r.scripts
	r.mu.Unlock()

	cmd, ok := scripts[mimeType]
	return cmd, ok
}

// Has reports whether a script is registered for mimeType.
func (r *ScriptRegistry) Has(mimeType string) bool {
	_, ok := r.Lookup(mimeType)
	return ok
}

// Len returns the number of registrations.
func (r *ScriptRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scripts)
}

// Snapshot returns a copy of the current mapping.
func (r *ScriptRegistry) Snapshot() map[string]string {
	r.mu.Lock()
	scripts := r.scripts
	r.mu.Unlock()
	return maps.Clone(scripts)
}

// MimeTypes returns the registered MIME types in sorted order.
func (r *ScriptRegistry) MimeTypes() []string {
	snapshot := r.Snapshot()
	types := make([]string, 0, len(snapshot))
	for t := range snapshot {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Replace installs scripts as the new mapping. The caller must not modify
// scripts afterwards.
func (r *ScriptRegistry) Replace(scripts map[string]string) {
	if scripts == nil {
		scripts = map[string]string{}
	}
	r.mu.Lock()
	r.scripts = scripts
	r.mu.Unlock()
}

// BuildScripts reads the thumbnailers subtree of src into a fresh mapping.
// When disable_all is set the mapping is empty. Subdirectories are visited
// in sorted order, so a later segment decoding to the same MIME type wins.
func BuildScripts(src ConfigSource) (map[string]string, error) {
	root := settings.ThumbnailersRoot
	scripts := make(map[string]string)

	if src.GetBool(root+"/disable_all", false) {
		return scripts, nil
	}

	dirs, err := src.Dirs(root)
	if err != nil {
		return scripts, fmt.Errorf("failed to list %s: %w", root, err)
	}

	for _, dir := range dirs {
		if !src.GetBool(dir+"/enable", false) {
			continue
		}
		cmd := src.GetString(dir+"/command", "")
		if cmd == "" {
			continue
		}
		scripts[decodeMimeSegment(path.Base(dir))] = cmd
	}
	return scripts, nil
}

// decodeMimeSegment turns a settings directory name such as "image@svg@xml"
// back into a MIME type: the first @ becomes /, every later @ becomes +.
func decodeMimeSegment(segment string) string {
	first := strings.IndexByte(segment, '@')
	if first < 0 {
		return segment
	}
	return segment[:first] + "/" + strings.ReplaceAll(segment[first+1:], "@", "+")
}
