package thumbnail

import (
	"path/filepath"
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"file uri", "file:///home/jens/photos/me.png", "c6ee772d9e49320e97ec29a7eb5b1697.png"},
		{"trailing slash differs", "file:///home/jens/photos/me.png/", "edb842066fc1161200f4ab98baea3ac4.png"},
		{"case differs", "FILE:///home/jens/photos/me.png", "acdb7e4a9e31e2b02dbc807fd5c10e37.png"},
		{"unescaped space", "http://example.com/a b.jpg", "7bcf2f7b6c367196e399a23760be4453.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.uri); got != tt.want {
				t.Errorf("Key(%q) = %q, want %q", tt.uri, got, tt.want)
			}
			if Key(tt.uri) != Key(tt.uri) {
				t.Error("Key is not deterministic")
			}
		})
	}
}

func TestPathResolver(t *testing.T) {
	root := t.TempDir()
	p := NewPathResolver(root)
	uri := "file:///home/jens/photos/me.png"

	if got, want := p.SuccessPath(uri, SizeNormal), filepath.Join(root, "thumbnails", "normal", Key(uri)); got != want {
		t.Errorf("SuccessPath(normal) = %s, want %s", got, want)
	}
	if got, want := p.SuccessPath(uri, SizeLarge), filepath.Join(root, "thumbnails", "large", Key(uri)); got != want {
		t.Errorf("SuccessPath(large) = %s, want %s", got, want)
	}
	if got, want := p.FailurePath(uri, "eog"), filepath.Join(root, "thumbnails", "fail", "eog", Key(uri)); got != want {
		t.Errorf("FailurePath = %s, want %s", got, want)
	}

	containsTests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "thumbnails", "normal", "x.png"), true},
		{filepath.Join(root, "thumbnails"), true},
		{filepath.Join(root, "thumbnails-old", "x.png"), false},
		{filepath.Join(root, "other.png"), false},
		{"/etc/passwd", false},
	}
	for _, tt := range containsTests {
		if got := p.Contains(tt.path); got != tt.want {
			t.Errorf("Contains(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSize(t *testing.T) {
	if SizeNormal.Pixels() != 128 || SizeNormal.Dir() != "normal" {
		t.Errorf("SizeNormal = %d/%s", SizeNormal.Pixels(), SizeNormal.Dir())
	}
	if SizeLarge.Pixels() != 256 || SizeLarge.Dir() != "large" {
		t.Errorf("SizeLarge = %d/%s", SizeLarge.Pixels(), SizeLarge.Dir())
	}

	for in, want := range map[string]Size{"normal": SizeNormal, "LARGE": SizeLarge, "": SizeNormal} {
		got, err := ParseSize(in)
		if err != nil || got != want {
			t.Errorf("ParseSize(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseSize("huge"); err == nil {
		t.Error("ParseSize(huge) should fail")
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		uri    string
		want   string
		wantOK bool
	}{
		{"file:///tmp/a.png", "/tmp/a.png", true},
		{"file://localhost/tmp/a.png", "/tmp/a.png", true},
		{"file:///tmp/with%20space.png", "/tmp/with space.png", true},
		{"file://remote/tmp/a.png", "", false},
		{"http://example.com/a.png", "", false},
		{"/tmp/a.png", "", false},
	}
	for _, tt := range tests {
		got, ok := LocalPath(tt.uri)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("LocalPath(%q) = %q, %v; want %q, %v", tt.uri, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFileURIRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a file #1.png")
	uri, err := FileURI(path)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := LocalPath(uri)
	if !ok || got != path {
		t.Errorf("LocalPath(FileURI(%q)) = %q, %v", path, got, ok)
	}
}
