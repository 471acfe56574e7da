package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

// pngSignature is the 8-byte magic every PNG starts with.
var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// ErrNotPNG is returned when data fails PNG structural checks.
var ErrNotPNG = errors.New("data is not a PNG image")

// chunkOverhead is length + type + crc around each chunk's data.
const chunkOverhead = 12

// maxKeywordLen is the PNG tEXt keyword limit.
const maxKeywordLen = 79

// TextChunk is one tEXt keyword/value pair.
type TextChunk struct {
	Keyword string
	Text    string
}

// InjectText returns a copy of data with the given tEXt chunks inserted
// directly after IHDR, leaving every other chunk untouched. Save
// operations use it to embed the workflow graph and extra metadata in
// image files.
func InjectText(data []byte, chunks []TextChunk) ([]byte, error) {
	if len(chunks) == 0 {
		return data, nil
	}
	end, err := ihdrEnd(data)
	if err != nil {
		return nil, err
	}

	size := len(data)
	for _, c := range chunks {
		size += chunkOverhead + len(c.Keyword) + 1 + len(c.Text)
	}
	var buf bytes.Buffer
	buf.Grow(size)
	buf.Write(data[:end])
	for _, c := range chunks {
		if err := writeTextChunk(&buf, c); err != nil {
			return nil, err
		}
	}
	buf.Write(data[end:])
	return buf.Bytes(), nil
}

// ExtractText returns the tEXt chunks of a PNG keyed by keyword. Load
// operations use it to recover an embedded workflow graph.
func ExtractText(data []byte) (map[string]string, error) {
	if len(data) < len(pngSignature)+chunkOverhead || !bytes.Equal(data[:8], pngSignature) {
		return nil, ErrNotPNG
	}

	out := make(map[string]string)
	off := len(pngSignature)
	for off+chunkOverhead <= len(data) {
		length := int(binary.BigEndian.Uint32(data[off : off+4]))
		typ := string(data[off+4 : off+8])
		dataEnd := off + 8 + length
		if length < 0 || dataEnd+4 > len(data) {
			return nil, ErrNotPNG
		}
		if typ == "tEXt" {
			chunk := data[off+8 : dataEnd]
			if i := bytes.IndexByte(chunk, 0); i >= 0 {
				out[string(chunk[:i])] = string(chunk[i+1:])
			}
		}
		if typ == "IEND" {
			return out, nil
		}
		off = dataEnd + 4
	}
	// Ran out of bytes before IEND: truncated file.
	return nil, ErrNotPNG
}

// ihdrEnd returns the offset just past the IHDR chunk's CRC.
func ihdrEnd(data []byte) (int, error) {
	if len(data) < len(pngSignature)+chunkOverhead || !bytes.Equal(data[:8], pngSignature) {
		return 0, ErrNotPNG
	}
	length := int(binary.BigEndian.Uint32(data[8:12]))
	if string(data[12:16]) != "IHDR" {
		return 0, ErrNotPNG
	}
	end := len(pngSignature) + chunkOverhead + length
	if end > len(data) {
		return 0, ErrNotPNG
	}
	return end, nil
}

func writeTextChunk(buf *bytes.Buffer, c TextChunk) error {
	if c.Keyword == "" || len(c.Keyword) > maxKeywordLen || strings.ContainsRune(c.Keyword, 0) {
		return fmt.Errorf("invalid tEXt keyword %q", c.Keyword)
	}

	data := make([]byte, 0, len(c.Keyword)+1+len(c.Text))
	data = append(data, c.Keyword...)
	data = append(data, 0)
	data = append(data, c.Text...)

	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(data)))
	copy(header[4:], "tEXt")
	buf.Write(header[:])
	buf.Write(data)

	crc := crc32.NewIEEE()
	crc.Write(header[4:])
	crc.Write(data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	buf.Write(sum[:])
	return nil
}
