package mediatypes

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// OctetStream is reported when a type cannot be determined.
const OctetStream = "application/octet-stream"

// MimeTypes maps file extensions to their MIME types. It is consulted when
// content sniffing gives no specific answer.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".svgz": "image/svg+xml-compressed",
	".ico":  "image/x-icon",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",
	".jxl":  "image/jxl",
	".xcf":  "image/x-xcf",

	// Documents
	".pdf":  "application/pdf",
	".ps":   "application/postscript",
	".djvu": "image/vnd.djvu",
	".epub": "application/epub+zip",
	".odt":  "application/vnd.oasis.opendocument.text",
	".ods":  "application/vnd.oasis.opendocument.spreadsheet",
	".odp":  "application/vnd.oasis.opendocument.presentation",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
}

// GetMimeType returns the MIME type for a file extension, which may be
// given with or without the leading dot in any case. Unknown extensions
// yield OctetStream.
func GetMimeType(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return OctetStream
}

// Detect sniffs the MIME type of the file at path. Generic results such as
// application/octet-stream or text/plain fall back to the extension table,
// so formats the sniffer does not know are still identified.
func Detect(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("mime detection failed for %s: %w", path, err)
	}

	detected := Essence(mtype.String())
	if detected != OctetStream && detected != "text/plain" && detected != "application/zip" {
		return detected, nil
	}
	if byExt := GetMimeType(filepath.Ext(path)); byExt != OctetStream {
		return byExt, nil
	}
	return detected, nil
}

// Essence strips parameters from a MIME type: "text/plain; charset=utf-8"
// becomes "text/plain".
func Essence(mimeType string) string {
	essence, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(essence))
}

// IsImage reports whether mimeType is an image type.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(Essence(mimeType), "image/")
}
