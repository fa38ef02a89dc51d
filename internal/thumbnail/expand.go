package thumbnail

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrMalformedCommand is returned by Expand when the template substitutes
// neither %u nor %i, so the script would not know what to thumbnail.
var ErrMalformedCommand = errors.New("thumbnailer command does not reference its input")

// Expand substitutes the placeholders of a thumbnailer command template:
//
//	%u  the URI, shell-quoted
//	%i  the local path of a file:// URI, shell-quoted
//	%o  the output path, shell-quoted
//	%s  the size in pixels
//	%%  a literal percent sign
//
// Any other %x pair is dropped, whole runes included, as is a trailing lone %. %i expands to
// nothing for non-local URIs.
func Expand(template, uri, outPath string, size int) (string, error) {
	var b strings.Builder
	gotInput := false

	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(template) {
			break
		}
		switch template[i] {
		case 'u':
			b.WriteString(ShellQuote(uri))
			gotInput = true
		case 'i':
			if path, ok := LocalPath(uri); ok {
				b.WriteString(ShellQuote(path))
				gotInput = true
			}
		case 'o':
			b.WriteString(ShellQuote(outPath))
		case 's':
			b.WriteString(strconv.Itoa(size))
		case '%':
			b.WriteByte('%')
		default:
			_, width := utf8.DecodeRuneInString(template[i:])
			i += width - 1
		}
	}

	if !gotInput {
		return "", ErrMalformedCommand
	}
	return b.String(), nil
}

// ShellQuote quotes s for a POSIX shell. The result is always a single word.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
