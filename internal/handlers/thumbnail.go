package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"desktop-thumbnailer/internal/filesystem"
	"desktop-thumbnailer/internal/logging"
	"desktop-thumbnailer/internal/mediatypes"
	"desktop-thumbnailer/internal/thumbnail"
)

const retryAfterSeconds = "5"

// StatusResponse describes the cache state of one resource.
type StatusResponse struct {
	URI    string `json:"uri"`
	Key    string `json:"key"`
	MTime  int64  `json:"mtime"`
	Size   string `json:"size"`
	Cached bool   `json:"cached"`
	Path   string `json:"path,omitempty"`
	Failed bool   `json:"failed"`
}

type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(format string, args ...interface{}) error {
	return &requestError{status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

type resource struct {
	uri   string
	mtime int64
	mime  string
	local string
}

// parseResource reads uri, mtime and mime from the query string. For local
// file URIs a missing mtime is taken from the file and a missing mime is
// sniffed from its content.
func parseResource(r *http.Request, needMime bool) (resource, error) {
	q := r.URL.Query()
	res := resource{uri: q.Get("uri"), mime: q.Get("mime")}
	if res.uri == "" {
		return res, badRequest("uri parameter required")
	}
	res.local, _ = thumbnail.LocalPath(res.uri)

	if raw := q.Get("mtime"); raw != "" {
		mtime, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return res, badRequest("invalid mtime %q", raw)
		}
		res.mtime = mtime
	} else if res.local != "" {
		info, err := filesystem.StatWithRetry(res.local, filesystem.DefaultRetryConfig())
		if err != nil {
			return res, &requestError{status: http.StatusNotFound, message: "file not accessible"}
		}
		res.mtime = info.ModTime().Unix()
	} else {
		return res, badRequest("mtime parameter required for non-local uri")
	}

	if needMime && res.mime == "" {
		if res.local == "" {
			return res, badRequest("mime parameter required for non-local uri")
		}
		mime, err := mediatypes.Detect(res.local)
		if err != nil {
			return res, &requestError{status: http.StatusNotFound, message: "file not accessible"}
		}
		res.mime = mime
	}
	return res, nil
}

func writeRequestError(w http.ResponseWriter, err error) {
	var re *requestError
	if errors.As(err, &re) {
		writeJSONError(w, re.message, re.status)
		return
	}
	writeJSONError(w, "internal error", http.StatusInternalServerError)
}

// GetThumbnail serves the PNG thumbnail of a resource, generating it when
// no valid cache entry exists.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	res, err := parseResource(r, true)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	if h.memory.Paused() {
		if _, ok := h.factory.Lookup(res.uri, res.mtime); !ok {
			w.Header().Set("Retry-After", retryAfterSeconds)
			writeJSONError(w, "thumbnail generation paused under memory pressure", http.StatusServiceUnavailable)
			return
		}
	}

	path, err := h.factory.Thumbnail(r.Context(), res.uri, res.mime, res.mtime)
	switch {
	case errors.Is(err, thumbnail.ErrNoThumbnail):
		writeJSONError(w, "no thumbnail available", http.StatusNotFound)
		return
	case errors.Is(err, thumbnail.ErrInvalidURI):
		writeJSONError(w, "invalid uri", http.StatusBadRequest)
		return
	case err != nil:
		logging.Warn("Thumbnail for %s failed: %v", res.uri, err)
		writeJSONError(w, "failed to store thumbnail", http.StatusInternalServerError)
		return
	}

	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("Failed to open thumbnail %s: %v", path, err)
		writeJSONError(w, "thumbnail not readable", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close thumbnail %s: %v", path, err)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		writeJSONError(w, "thumbnail not readable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, no-cache")
	w.Header().Set("X-Thumbnail-Key", thumbnail.Key(res.uri))
	http.ServeContent(w, r, "", info.ModTime(), file)
}

// GetStatus reports whether a valid thumbnail or failure marker exists.
// It never generates anything.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	res, err := parseResource(r, false)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	response := StatusResponse{
		URI:    res.uri,
		Key:    thumbnail.Key(res.uri),
		MTime:  res.mtime,
		Size:   h.factory.Size().String(),
		Failed: h.factory.HasValidFailure(res.uri, res.mtime),
	}
	if path, ok := h.factory.Lookup(res.uri, res.mtime); ok {
		response.Cached = true
		response.Path = path
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}
