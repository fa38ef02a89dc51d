package thumbnail

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"desktop-thumbnailer/internal/settings"
)

func TestDecodeMimeSegment(t *testing.T) {
	tests := map[string]string{
		"image@png":                       "image/png",
		"image@svg+xml":                   "image/svg+xml",
		"image@svg@xml":                   "image/svg+xml",
		"application@vnd@oasis@text":      "application/vnd+oasis+text",
		"plain":                           "plain",
		"application@x-ms-dos-executable": "application/x-ms-dos-executable",
	}
	for in, want := range tests {
		if got := decodeMimeSegment(in); got != want {
			t.Errorf("decodeMimeSegment(%q) = %q, want %q", in, got, want)
		}
	}
}

func newSettings(t *testing.T, entries map[string]string) *settings.Store {
	t.Helper()
	s := settings.NewStore(settings.NewMemoryBackend())
	for k, v := range entries {
		if err := s.SetValue(k, v); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestBuildScripts(t *testing.T) {
	root := settings.ThumbnailersRoot

	tests := []struct {
		name    string
		entries map[string]string
		want    map[string]string
	}{
		{
			name: "enabled entries only",
			entries: map[string]string{
				root + "/image@svg@xml/enable":     "true",
				root + "/image@svg@xml/command":    "rsvg %i %o",
				root + "/application@pdf/enable":   "false",
				root + "/application@pdf/command":  "evince %u %o",
				root + "/image@x-xcf/enable":       "true",
				root + "/image@x-xcf/command":      "",
				root + "/video@mp4/command":        "totem %u %o",
				root + "/application@x-foo/enable": "true",
			},
			want: map[string]string{"image/svg+xml": "rsvg %i %o"},
		},
		{
			name: "disable all",
			entries: map[string]string{
				root + "/disable_all":       "true",
				root + "/image@png/enable":  "true",
				root + "/image@png/command": "x %u %o",
			},
			want: map[string]string{},
		},
		{
			name: "later segment with same type wins",
			entries: map[string]string{
				root + "/image@svg+xml/enable":  "true",
				root + "/image@svg+xml/command": "first %u",
				root + "/image@svg@xml/enable":  "true",
				root + "/image@svg@xml/command": "second %u",
			},
			want: map[string]string{"image/svg+xml": "second %u"},
		},
		{
			name:    "empty tree",
			entries: nil,
			want:    map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildScripts(newSettings(t, tt.entries))
			if err != nil {
				t.Fatalf("BuildScripts() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildScripts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildScriptsUnavailable(t *testing.T) {
	backend := settings.NewMemoryBackend()
	s := settings.NewStore(backend)
	_ = backend.Close()

	got, err := BuildScripts(s)
	if err == nil {
		t.Fatal("BuildScripts() on closed store should fail")
	}
	if len(got) != 0 {
		t.Errorf("BuildScripts() = %v, want empty", got)
	}
}

func TestScriptRegistryReplace(t *testing.T) {
	r := NewScriptRegistry()
	r.Replace(map[string]string{"image/png": "a %u", "image/gif": "b %u"})
	r.Replace(map[string]string{"image/jpeg": "c %u"})

	if r.Has("image/png") {
		t.Error("old entry survived Replace")
	}
	if cmd, ok := r.Lookup("image/jpeg"); !ok || cmd != "c %u" {
		t.Errorf("Lookup(image/jpeg) = %q, %v", cmd, ok)
	}
	if got := r.MimeTypes(); !reflect.DeepEqual(got, []string{"image/jpeg"}) {
		t.Errorf("MimeTypes() = %v", got)
	}

	snap := r.Snapshot()
	snap["image/webp"] = "mutated"
	if r.Has("image/webp") {
		t.Error("Snapshot shares storage with the registry")
	}

	r.Replace(nil)
	if r.Len() != 0 {
		t.Errorf("Len() after Replace(nil) = %d", r.Len())
	}
}

// Readers must only ever observe one of the installed mappings in full.
func TestScriptRegistryConsistentSnapshots(t *testing.T) {
	r := NewScriptRegistry()
	mappings := []map[string]string{
		{"a/a": "1 %u", "b/b": "1 %u"},
		{"a/a": "2 %u", "b/b": "2 %u"},
	}
	r.Replace(mappings[0])

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 8)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := r.Snapshot()
				if snap["a/a"] != snap["b/b"] {
					errs <- fmt.Errorf("torn snapshot: %v", snap)
					return
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		r.Replace(mappings[i%2])
	}
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
