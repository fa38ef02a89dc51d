package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"desktop-thumbnailer/internal/handlers"
	"desktop-thumbnailer/internal/startup"
	"desktop-thumbnailer/internal/thumbnail"
)

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 5), B: 0x40, A: 0xff})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLooksLikeURI(t *testing.T) {
	tests := map[string]bool{
		"file:///tmp/a.png":      true,
		"http://example.com/a":   true,
		"smb+ssh://host/share":   true,
		"photo.png":              false,
		"dir/photo:1.png":        false,
		":nope":                  false,
		"1http://example.com":    false,
		"/absolute/path/a.png":   false,
		"relative/path/with:col": false,
	}
	for in, want := range tests {
		if got := looksLikeURI(in); got != want {
			t.Errorf("looksLikeURI(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestResolveTarget(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "a.png", 4, 4)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	uri, err := thumbnail.FileURI(path)
	if err != nil {
		t.Fatal(err)
	}

	for _, arg := range []string{path, uri} {
		got, err := resolveTarget(arg, 0, true)
		if err != nil {
			t.Fatalf("resolveTarget(%q) error = %v", arg, err)
		}
		if got.uri != uri || got.mtime != info.ModTime().Unix() || got.mime != "image/png" {
			t.Errorf("resolveTarget(%q) = %+v", arg, got)
		}
	}

	got, err := resolveTarget(path, 99, false)
	if err != nil || got.mtime != 99 || got.mime != "" {
		t.Errorf("resolveTarget with explicit mtime = %+v, %v", got, err)
	}

	if _, err := resolveTarget("http://example.com/a.png", 0, false); err == nil {
		t.Error("remote URI without mtime should fail")
	}
	remote, err := resolveTarget("http://example.com/a.png", 5, true)
	if err != nil || remote.uri != "http://example.com/a.png" || remote.mime != "" {
		t.Errorf("remote target = %+v, %v", remote, err)
	}

	if _, err := resolveTarget(filepath.Join(dir, "missing.png"), 0, false); err == nil {
		t.Error("missing file should fail")
	}
}

func TestPrintResults(t *testing.T) {
	results := []result{
		{target: target{arg: "a.png"}, path: "/cache/a"},
		{target: target{arg: "b.bin"}, err: thumbnail.ErrNoThumbnail},
	}

	var buf bytes.Buffer
	if failed := printResults(&buf, results, false); failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "ok\ta.png\t/cache/a" || !strings.HasPrefix(lines[1], "none\tb.bin\t") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	printResults(&buf, results, true)
	if strings.Contains(buf.String(), "\t") {
		t.Errorf("terminal output should be aligned with spaces: %q", buf.String())
	}
}

func TestGenerateLookupAndFailCheck(t *testing.T) {
	cache := t.TempDir()
	src := t.TempDir()
	t.Setenv("THUMBNAILER_CACHE_DIR", cache)

	good := writeTestPNG(t, src, "good.png", 300, 150)
	bad := filepath.Join(src, "bad.png")
	if err := os.WriteFile(bad, []byte("\x89PNG\r\n\x1a\nbroken"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "generate", "--no-vips", "--mime", "image/png", good, bad)
	if err == nil {
		t.Fatalf("generate with an undecodable file should report failure, output %q", out)
	}
	if !strings.Contains(out, "ok\t"+good) || !strings.Contains(out, "none\t"+bad) {
		t.Errorf("generate output = %q", out)
	}

	out, err = runCommand(t, "lookup", "--no-vips", good)
	if err != nil {
		t.Fatalf("lookup error = %v (%s)", err, out)
	}
	goodURI, _ := thumbnail.FileURI(good)
	want := thumbnail.NewPathResolver(cache).SuccessPath(goodURI, thumbnail.SizeNormal)
	if strings.TrimSpace(out) != want {
		t.Errorf("lookup = %q, want %q", out, want)
	}

	if _, err := runCommand(t, "lookup", "--no-vips", "--size", "large", good); err == nil {
		t.Error("lookup of a large thumbnail should miss")
	}

	out, err = runCommand(t, "fail-check", "--no-vips", bad)
	if err != nil || strings.TrimSpace(out) != "true" {
		t.Errorf("fail-check(bad) = %q, %v", out, err)
	}
	out, err = runCommand(t, "fail-check", "--no-vips", good)
	if err != nil || strings.TrimSpace(out) != "false" {
		t.Errorf("fail-check(good) = %q, %v", out, err)
	}
}

func TestScriptsCommandReadsThumbnailersFile(t *testing.T) {
	t.Setenv("THUMBNAILER_CACHE_DIR", t.TempDir())
	file := filepath.Join(t.TempDir(), "thumbnailers.yaml")
	yaml := "thumbnailers:\n  image@svg+xml:\n    enable: true\n    command: rsvg %i %o\n  text@plain:\n    enable: false\n    command: txt %u %o\n"
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "scripts", "--no-vips", "--thumbnailers", file)
	if err != nil {
		t.Fatalf("scripts error = %v", err)
	}
	if !strings.Contains(out, "image/svg+xml") || !strings.Contains(out, "rsvg %i %o") {
		t.Errorf("scripts output = %q", out)
	}
	if strings.Contains(out, "text/plain") {
		t.Errorf("disabled thumbnailer listed: %q", out)
	}
}

func TestInvalidFlagsRejected(t *testing.T) {
	t.Setenv("THUMBNAILER_CACHE_DIR", t.TempDir())
	for _, args := range [][]string{
		{"scripts", "--size", "huge"},
		{"scripts", "--app-id", "../escape"},
		{"scripts", "--log-level", "chatty"},
	} {
		if _, err := runCommand(t, args...); err == nil {
			t.Errorf("%v succeeded, want error", args)
		}
	}
}

func TestServeListenAddress(t *testing.T) {
	t.Setenv("THUMBNAILER_CACHE_DIR", t.TempDir())
	t.Setenv("THUMBNAILER_PORT", "9090")

	tests := []struct {
		name string
		env  string
		args []string
		want string
	}{
		{name: "loopback by default", want: "127.0.0.1:9090"},
		{name: "environment", env: "0.0.0.0", want: "0.0.0.0:9090"},
		{name: "flag overrides environment", env: "0.0.0.0", args: []string{"--listen", "::1"}, want: "[::1]:9090"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("THUMBNAILER_LISTEN_ADDR", tt.env)
			}
			opts := &options{}
			cmd := newServeCmd(opts)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}
			if err := opts.load(cmd); err != nil {
				t.Fatalf("load() error = %v", err)
			}
			if got := opts.cfg.Addr(); got != tt.want {
				t.Errorf("Addr() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSetupRouter(t *testing.T) {
	cfg := &startup.Config{MetricsEnabled: true}
	routes, err := startup.GetRoutes(setupRouter(handlers.New(nil, nil), cfg))
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	for _, r := range routes {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /livez",
		"GET /version",
		"GET /metrics",
		"GET /api/thumbnail",
		"GET /api/thumbnail/status",
		"GET /api/scripts",
		"POST /api/scripts/reload",
	} {
		if !got[want] {
			t.Errorf("route %q not registered (have %v)", want, got)
		}
	}

	cfg.MetricsEnabled = false
	routes, err = startup.GetRoutes(setupRouter(handlers.New(nil, nil), cfg))
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range routes {
		if r.Path == "/metrics" {
			t.Error("/metrics registered with metrics disabled")
		}
	}
}

func TestCacheStatsAdapter(t *testing.T) {
	root := t.TempDir()
	paths := thumbnail.NewPathResolver(root)
	entry := paths.SuccessPath("file:///x.png", thumbnail.SizeNormal)
	if err := paths.EnsureDirs(entry); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(entry, []byte("12345"), 0o600); err != nil {
		t.Fatal(err)
	}

	stats := cacheStatsAdapter{paths: paths}.GetStats()
	if got := stats.Dirs["normal"]; got.Entries != 1 || got.Bytes != 5 {
		t.Errorf("normal stats = %+v, want 1 entry of 5 bytes", got)
	}
}

func TestNewVolumeResolver(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cache := filepath.Join(home, ".cache")

	vr := newVolumeResolver(&startup.Config{CacheDir: cache})
	tests := map[string]string{
		filepath.Join(cache, "thumbnails", "normal", "x.png"): "cache",
		filepath.Join(home, "Pictures", "a.jpg"):              "media",
		"/somewhere/else":                                     "unknown",
	}
	for path, want := range tests {
		if got := vr.Resolve(path); got != want {
			t.Errorf("Resolve(%s) = %q, want %q", path, got, want)
		}
	}
}
