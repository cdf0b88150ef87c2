package core

// textio.go turns raw upload bytes into text.
//
// Two views exist:
//
//   - Lossy (delimiter sniffing): BOMSkippingReader + StreamingUTF8Sanitizer.
//     Invalid bytes become '?', nothing ever fails.
//   - Strict (parsing): decodeText. UTF-8 must be valid; other encodings are
//     resolved through golang.org/x/text.

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DefaultEncoding is the assumed encoding of uploaded files.
const DefaultEncoding = "utf-8"

// StreamingUTF8Sanitizer replaces invalid UTF-8 bytes with '?' as they are
// read. A multi-byte sequence split across two reads is held back until
// the rest arrives.
type StreamingUTF8Sanitizer struct {
	reader  io.Reader
	pending []byte
}

// NewStreamingUTF8Sanitizer wraps r.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of bytes to hand
// to the caller. Replacement is one byte wide, so data never grows.
func (s *StreamingUTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		if data[read] < utf8.RuneSelf {
			data[write] = data[read]
			write++
			read++
			continue
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && !utf8.FullRune(data[read:]) {
				s.pending = append(s.pending, data[read:]...)
				return write
			}
			data[write] = '?'
			write++
			read++
			continue
		}

		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// BOMSkippingReader drops a leading UTF-8 byte order mark.
type BOMSkippingReader struct {
	reader  io.Reader
	checked bool
	head    []byte
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		buf := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(r.reader, buf)
		switch {
		case n == len(utf8BOM) && bytes.Equal(buf, utf8BOM):
			r.head = nil
		default:
			r.head = buf[:n]
		}
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
		if err != nil && len(r.head) == 0 {
			return 0, io.EOF
		}
	}

	if len(r.head) > 0 {
		n := copy(p, r.head)
		r.head = r.head[n:]
		return n, nil
	}

	return r.reader.Read(p)
}

// lossyText returns a best-effort UTF-8 view of data without touching it.
func lossyText(data []byte) string {
	// A bytes.Reader never fails, so the error is always nil.
	out, _ := io.ReadAll(NewStreamingUTF8Sanitizer(NewBOMSkippingReader(bytes.NewReader(data))))
	return string(out)
}

// decodeText converts data to UTF-8 text under the named encoding. A
// leading BOM is dropped. UTF-8 input must be valid; the error names the
// first offending byte offset.
func decodeText(data []byte, encoding string) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	name := strings.ToLower(strings.TrimSpace(encoding))
	if name == "" || name == "utf-8" || name == "utf8" {
		if off := invalidUTF8Offset(data); off >= 0 {
			return "", fmt.Errorf("%w: invalid UTF-8 at byte %d", ErrEncoding, off)
		}
		return string(data), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", fmt.Errorf("%w: unsupported encoding %q", ErrEncoding, encoding)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", ErrEncoding, name, err)
	}
	return string(out), nil
}

// ValidEncoding reports whether name is accepted by decodeText.
func ValidEncoding(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return true
	}
	_, err := htmlindex.Get(name)
	return err == nil
}

func invalidUTF8Offset(data []byte) int {
	for i := 0; i < len(data); {
		if data[i] < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
