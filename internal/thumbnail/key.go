package thumbnail

import (
	"crypto/md5"
	"encoding/hex"
)

// Key returns the cache file name for uri: the lowercase hex MD5 digest of
// the URI bytes followed by ".png". The URI is not normalised, so URIs that
// differ only in case or a trailing slash get different keys.
func Key(uri string) string {
	sum := md5.Sum([]byte(uri))
	return hex.EncodeToString(sum[:]) + ".png"
}
