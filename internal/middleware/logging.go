package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"desktop-thumbnailer/internal/logging"
)

// LoggingConfig controls which requests the access log records.
type LoggingConfig struct {
	SkipPaths       []string
	LogHealthChecks bool
}

// DefaultLoggingConfig logs everything except health probes.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:       []string{"/metrics"},
		LogHealthChecks: false,
	}
}

var healthCheckPaths = map[string]bool{
	"/healthz": true,
	"/livez":   true,
}

// sanitizeLogField strips control characters so request data cannot forge
// log lines or emit terminal escapes. Newlines become spaces.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteByte(' ')
		case r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// quoteField wraps values containing blanks or quotes in W3C quoting.
func quoteField(s string) string {
	if s == "" {
		return "-"
	}
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// Logger returns access-log middleware.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipLogging(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			logging.Printf("%s", formatW3C(r, sw, time.Since(start), start.UTC()))
		})
	}
}

// formatW3C renders
// date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken x-thumbnail-key cs(User-Agent)
func formatW3C(r *http.Request, sw *statusWriter, took time.Duration, at time.Time) string {
	query := sanitizeLogField(r.URL.RawQuery)
	if query == "" {
		query = "-"
	}
	key := sw.Header().Get("X-Thumbnail-Key")
	if key == "" {
		key = "-"
	}

	return fmt.Sprintf("%s %s %s %s %s %s %d %d %d %s %s",
		at.Format("2006-01-02"),
		at.Format("15:04:05"),
		sanitizeLogField(clientIP(r)),
		sanitizeLogField(r.Method),
		sanitizeLogField(r.URL.Path),
		query,
		sw.status,
		sw.bytes,
		took.Milliseconds(),
		key,
		quoteField(sanitizeLogField(r.UserAgent())),
	)
}

func skipLogging(path string, config LoggingConfig) bool {
	for _, p := range config.SkipPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return !config.LogHealthChecks && healthCheckPaths[path]
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
