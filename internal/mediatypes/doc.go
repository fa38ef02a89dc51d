// Package mediatypes identifies the MIME type of local files.
//
// Content sniffing is done with github.com/gabriel-vasile/mimetype; the
// extension table covers formats the sniffer reports only generically
// (an ODF document is a zip, an SVG may be plain text).
//
//	mime, err := mediatypes.Detect("/home/me/photo.jpg") // "image/jpeg"
package mediatypes
