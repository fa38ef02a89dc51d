// Package thumbnail implements a freedesktop-style thumbnail cache.
//
// Thumbnails are PNG files stored under <cache-root>/thumbnails, named by
// the MD5 of the source URI:
//
//	thumbnails/normal/<md5>.png          128x128 bound
//	thumbnails/large/<md5>.png           256x256 bound
//	thumbnails/fail/<app-id>/<md5>.png   failure markers
//
// Every file carries Thumb::URI and Thumb::MTime text chunks; an entry is
// only used when both match the resource being looked up.
//
// A Factory generates thumbnails by running an external thumbnailer
// registered for the MIME type in the settings tree, falling back to the
// registered Codecs. Generation failures are remembered with failure
// markers so unchanged resources are not retried.
package thumbnail
