// Package media provides the libvips-backed image codec.
//
// VipsCodec plugs into thumbnail.Codecs ahead of the builtin codec when
// libvips has been started with InitVips. It shrinks during decode, which
// keeps memory bounded for very large photographs, and reads formats the
// standard library cannot (HEIC, AVIF, JPEG XL, SVG).
package media
