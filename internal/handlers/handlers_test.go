package handlers

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"desktop-thumbnailer/internal/memory"
	"desktop-thumbnailer/internal/settings"
	"desktop-thumbnailer/internal/thumbnail"
)

func newTestHandlers(t *testing.T) (*Handlers, *thumbnail.Factory) {
	t.Helper()
	store := settings.NewStore(settings.NewMemoryBackend())
	t.Cleanup(func() { _ = store.Close() })

	f, err := thumbnail.New(thumbnail.Options{
		CacheRoot: t.TempDir(),
		AppID:     "handlers-test",
		Size:      thumbnail.SizeNormal,
		Config:    store,
		TempDir:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("thumbnail.New() error = %v", err)
	}
	t.Cleanup(f.Close)
	return New(f, nil), f
}

func writePNG(t *testing.T, w, h int) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.png")
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatal(err)
	}
	uri, err := thumbnail.FileURI(path)
	if err != nil {
		t.Fatal(err)
	}
	return path, uri
}

func query(params map[string]string) string {
	v := url.Values{}
	for k, val := range params {
		v.Set(k, val)
	}
	return v.Encode()
}

func TestGetThumbnailGeneratesAndServes(t *testing.T) {
	h, f := newTestHandlers(t)
	path, uri := writePNG(t, 400, 200)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/thumbnail?"+query(map[string]string{"uri": uri}), nil)
	rec := httptest.NewRecorder()
	h.GetThumbnail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if got := rec.Header().Get("X-Thumbnail-Key"); got != thumbnail.Key(uri) {
		t.Errorf("X-Thumbnail-Key = %q", got)
	}

	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("response is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 128 || b.Dy() != 64 {
		t.Errorf("thumbnail size = %dx%d, want 128x64", b.Dx(), b.Dy())
	}

	if _, ok := f.Lookup(uri, info.ModTime().Unix()); !ok {
		t.Error("thumbnail was not cached")
	}
}

func TestGetThumbnailErrors(t *testing.T) {
	h, _ := newTestHandlers(t)

	corrupt := filepath.Join(t.TempDir(), "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("not a png"), 0o600); err != nil {
		t.Fatal(err)
	}
	corruptURI, err := thumbnail.FileURI(corrupt)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		params map[string]string
		want   int
	}{
		{"missing uri", map[string]string{}, http.StatusBadRequest},
		{"bad mtime", map[string]string{"uri": "file:///x.png", "mtime": "soon", "mime": "image/png"}, http.StatusBadRequest},
		{"remote without mtime", map[string]string{"uri": "http://example.com/a.png", "mime": "image/png"}, http.StatusBadRequest},
		{"remote without mime", map[string]string{"uri": "http://example.com/a.png", "mtime": "10"}, http.StatusBadRequest},
		{"missing local file", map[string]string{"uri": "file:///does/not/exist.png"}, http.StatusNotFound},
		{"unsupported remote", map[string]string{"uri": "http://example.com/a.png", "mtime": "10", "mime": "image/png"}, http.StatusNotFound},
		{"undecodable", map[string]string{"uri": corruptURI, "mtime": "10", "mime": "image/png"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/thumbnail?"+query(tt.params), nil)
			rec := httptest.NewRecorder()
			h.GetThumbnail(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

func TestGetStatus(t *testing.T) {
	h, f := newTestHandlers(t)
	_, uri := writePNG(t, 32, 32)
	const mtime = 1234

	get := func() StatusResponse {
		t.Helper()
		params := map[string]string{"uri": uri, "mtime": strconv.Itoa(mtime)}
		req := httptest.NewRequest(http.MethodGet, "/api/thumbnail/status?"+query(params), nil)
		rec := httptest.NewRecorder()
		h.GetStatus(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var resp StatusResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		return resp
	}

	resp := get()
	if resp.Cached || resp.Failed {
		t.Errorf("fresh status = %+v, want neither cached nor failed", resp)
	}
	if resp.Key != thumbnail.Key(uri) || resp.Size != "normal" || resp.MTime != mtime {
		t.Errorf("status = %+v", resp)
	}

	if err := f.RecordFailure(uri, mtime); err != nil {
		t.Fatal(err)
	}
	if resp := get(); !resp.Failed {
		t.Error("Failed = false after RecordFailure")
	}

	if _, err := f.Thumbnail(t.Context(), uri, "image/png", mtime); !errors.Is(err, thumbnail.ErrNoThumbnail) {
		t.Fatalf("Thumbnail() error = %v, want ErrNoThumbnail while a marker exists", err)
	}

	thumb, ok := f.Generate(t.Context(), uri, "image/png")
	if !ok {
		t.Fatal("Generate() failed")
	}
	if err := f.Save(thumb, uri, mtime); err != nil {
		t.Fatal(err)
	}
	resp = get()
	if !resp.Cached || resp.Path != f.Paths().SuccessPath(uri, thumbnail.SizeNormal) {
		t.Errorf("status after Save = %+v", resp)
	}
}

func TestScriptsEndpoints(t *testing.T) {
	h, f := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.ListScripts(rec, httptest.NewRequest(http.MethodGet, "/api/scripts", nil))
	var resp ScriptsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 0 {
		t.Errorf("Count = %d, want 0", resp.Count)
	}

	rec = httptest.NewRecorder()
	h.ReloadScripts(rec, httptest.NewRequest(http.MethodPost, "/api/scripts/reload", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("reload status = %d, want 202", rec.Code)
	}

	f.Reload()
	if f.Scripts().Len() != 0 {
		t.Errorf("registry size = %d after reload of empty settings", f.Scripts().Len())
	}
}

func TestHealthAndLiveness(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var health HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != statusHealthy || health.AppID != "handlers-test" || len(health.Codecs) == 0 {
		t.Errorf("health = %+v", health)
	}

	rec = httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	if rec.Body.Len() != 0 {
		t.Error("HEAD health check wrote a body")
	}

	rec = httptest.NewRecorder()
	h.LivenessCheck(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("liveness status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetVersion(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Errorf("version status = %d, body %q", rec.Code, rec.Body.String())
	}
}

func TestGetThumbnailUnderMemoryPressure(t *testing.T) {
	_, f := newTestHandlers(t)

	cfg := memory.DefaultMonitorConfig()
	cfg.LimitBytes = 1
	monitor := memory.NewMonitor(cfg)
	t.Cleanup(monitor.Stop)
	monitor.Check()
	if !monitor.Paused() {
		t.Fatal("monitor with a 1 byte limit should be paused")
	}
	h := New(f, monitor)

	_, uri := writePNG(t, 64, 64)
	params := map[string]string{"uri": uri, "mtime": "77", "mime": "image/png"}

	rec := httptest.NewRecorder()
	h.GetThumbnail(rec, httptest.NewRequest(http.MethodGet, "/api/thumbnail?"+query(params), nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After not set")
	}

	thumb, ok := f.Generate(t.Context(), uri, "image/png")
	if !ok {
		t.Fatal("Generate() failed")
	}
	if err := f.Save(thumb, uri, 77); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	h.GetThumbnail(rec, httptest.NewRequest(http.MethodGet, "/api/thumbnail?"+query(params), nil))
	if rec.Code != http.StatusOK {
		t.Errorf("cached thumbnail status = %d, want 200 while paused", rec.Code)
	}
}
