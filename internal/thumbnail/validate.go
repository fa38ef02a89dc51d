package thumbnail

import "strconv"

// IsValid reports whether meta describes a current entry for uri: the
// stored URI must equal uri exactly and the stored mtime must equal mtime.
func IsValid(meta Metadata, uri string, mtime int64) bool {
	if !HasURI(meta, uri) {
		return false
	}
	stored, ok := meta.MTime()
	return ok && stored == mtime
}

// HasURI reports whether meta was written for uri.
func HasURI(meta Metadata, uri string) bool {
	stored, ok := meta[KeyURI]
	return ok && stored == uri
}

func entryMetadata(uri string, mtime int64, software string) Metadata {
	return Metadata{
		KeyURI:      uri,
		KeyMTime:    strconv.FormatInt(mtime, 10),
		KeySoftware: software,
	}
}
