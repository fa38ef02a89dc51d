package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"sort"
	"strconv"

	pngstructure "github.com/dsoprea/go-png-image-structure"
)

// Text chunk keys written into every cache entry.
const (
	KeyURI      = "Thumb::URI"
	KeyMTime    = "Thumb::MTime"
	KeyWidth    = "Thumb::Image::Width"
	KeyHeight   = "Thumb::Image::Height"
	KeySoftware = "Software"
)

// DefaultSoftware identifies the writer in the Software chunk.
const DefaultSoftware = "GNOME::ThumbnailFactory"

var errNotPNG = errors.New("not a PNG chunk stream")

// Metadata is the set of PNG text chunks of a cache entry.
type Metadata map[string]string

// MTime parses the Thumb::MTime entry.
func (m Metadata) MTime() (int64, bool) {
	v, ok := m[KeyMTime]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// OriginalSize returns the original image dimensions, if recorded.
func (m Metadata) OriginalSize() (int, int, bool) {
	w, err := strconv.Atoi(m[KeyWidth])
	if err != nil || w <= 0 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(m[KeyHeight])
	if err != nil || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// EncodePNG writes img as a PNG with meta stored as text chunks directly
// after the header. Values that fit in Latin-1 are written as tEXt, anything
// else as uncompressed iTXt.
func EncodePNG(w io.Writer, img image.Image, meta Metadata) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	if len(meta) == 0 {
		_, err := w.Write(buf.Bytes())
		return err
	}

	cs, err := parseChunks(buf.Bytes())
	if err != nil {
		return err
	}
	chunks := cs.Chunks()
	if len(chunks) == 0 || chunks[0].Type != "IHDR" {
		return fmt.Errorf("encoded png has no IHDR chunk")
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*pngstructure.Chunk, 0, len(chunks)+len(keys))
	out = append(out, chunks[0])
	for _, k := range keys {
		out = append(out, textChunk(k, meta[k]))
	}
	out = append(out, chunks[1:]...)

	return pngstructure.NewChunkSlice(out).WriteTo(w)
}

// ReadMetadata returns the tEXt and uncompressed iTXt entries of a PNG.
// Unknown or compressed text chunks are skipped.
func ReadMetadata(data []byte) (Metadata, error) {
	cs, err := parseChunks(data)
	if err != nil {
		return nil, err
	}

	meta := make(Metadata)
	for _, c := range cs.Chunks() {
		switch c.Type {
		case "tEXt":
			if k, v, ok := parseTEXt(c.Data); ok {
				meta[k] = v
			}
		case "iTXt":
			if k, v, ok := parseITXt(c.Data); ok {
				meta[k] = v
			}
		}
	}
	return meta, nil
}

// DecodePNG decodes a cache entry and its text chunks.
func DecodePNG(data []byte) (image.Image, Metadata, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode png: %w", err)
	}
	meta, err := ReadMetadata(data)
	if err != nil {
		return nil, nil, err
	}
	return img, meta, nil
}

func parseChunks(data []byte) (*pngstructure.ChunkSlice, error) {
	mc, err := pngstructure.NewPngMediaParser().Parse(bytes.NewReader(data), len(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse png chunks: %w", err)
	}
	cs, ok := mc.(*pngstructure.ChunkSlice)
	if !ok {
		return nil, errNotPNG
	}
	return cs, nil
}

func textChunk(key, value string) *pngstructure.Chunk {
	var data []byte
	chunkType := "tEXt"
	if latin1, ok := toLatin1(value); ok {
		data = make([]byte, 0, len(key)+1+len(latin1))
		data = append(data, key...)
		data = append(data, 0)
		data = append(data, latin1...)
	} else {
		// keyword, NUL, compression flag, compression method,
		// empty language tag, NUL, empty translated keyword, NUL, text
		chunkType = "iTXt"
		data = make([]byte, 0, len(key)+5+len(value))
		data = append(data, key...)
		data = append(data, 0, 0, 0, 0, 0)
		data = append(data, value...)
	}

	crc := crc32.NewIEEE()
	_, _ = crc.Write([]byte(chunkType))
	_, _ = crc.Write(data)

	return &pngstructure.Chunk{
		Length: uint32(len(data)),
		Type:   chunkType,
		Data:   data,
		Crc:    crc.Sum32(),
	}
}

func toLatin1(s string) ([]byte, bool) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, false
		}
		out = append(out, byte(r))
	}
	return out, true
}

func parseTEXt(data []byte) (string, string, bool) {
	i := bytes.IndexByte(data, 0)
	if i <= 0 {
		return "", "", false
	}
	raw := data[i+1:]
	runes := make([]rune, len(raw))
	for j, b := range raw {
		runes[j] = rune(b)
	}
	return string(data[:i]), string(runes), true
}

func parseITXt(data []byte) (string, string, bool) {
	i := bytes.IndexByte(data, 0)
	if i <= 0 || len(data) < i+3 {
		return "", "", false
	}
	key := string(data[:i])
	if data[i+1] != 0 {
		return "", "", false
	}
	rest := data[i+3:]
	// language tag
	j := bytes.IndexByte(rest, 0)
	if j < 0 {
		return "", "", false
	}
	rest = rest[j+1:]
	// translated keyword
	j = bytes.IndexByte(rest, 0)
	if j < 0 {
		return "", "", false
	}
	return key, string(rest[j+1:]), true
}
