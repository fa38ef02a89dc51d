/*
Package filesystem provides the filesystem primitives the thumbnail cache is
built on.

# Retries

StatWithRetry, OpenWithRetry and ReadFileWithRetry wrap the os calls with
exponential backoff for NFS stale file handle errors (ESTALE). Other errors
are returned immediately. Defaults: 3 retries, 50ms initial backoff, 500ms cap.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

Retry metrics are reported through an Observer registered with SetObserver,
labelled with the volume returned by the VolumeResolver.

# Atomic writes

WriteAtomic streams into a uniquely named sibling of the destination
(".<name>.<uuid>.tmp"), forces 0600 permissions, closes it and renames it
over the destination:

	err := filesystem.WriteAtomic(final, func(w io.Writer) error {
	    return png.Encode(w, img)
	})

If the temporary file cannot be created the parent directory is created with
0700 permissions and the attempt is repeated once; a second failure wraps
ErrTempFile.
*/
package filesystem
