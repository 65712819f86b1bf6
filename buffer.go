package mp4

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// be is the byte order used by every multi-byte field in the container
// format: big-endian, per ISO/IEC 14496-12.
var be = binary.BigEndian

// Encoding selects how StringAt interprets a byte range as text.
type Encoding int

const (
	EncodingUTF8 Encoding = iota
	EncodingLatin1
)

// Buffer is an owned, read-only byte sequence with typed accessors. It
// never mutates its backing array; writers build a new one with Builder.
type Buffer struct {
	b        []byte
	readOnly bool
}

// NewBuffer wraps b without copying it.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{b: b}
}

// ReadOnly returns a handle over the same bytes, flagged read-only. Buffer
// has no mutating methods, so the guard is the API itself; the flag is not
// consulted by any accessor, and Slice and Bytes both return views of the
// backing array rather than copies.
func (buf *Buffer) ReadOnly() *Buffer {
	return &Buffer{b: buf.b, readOnly: true}
}

func (buf *Buffer) Len() int { return len(buf.b) }

func (buf *Buffer) Bytes() []byte { return buf.b }

func (buf *Buffer) checkRange(off, n int) error {
	if off < 0 || n < 0 || off+n > len(buf.b) {
		return errors.Wrapf(ErrTruncated, "range [%d:%d) out of bounds (len=%d)", off, off+n, len(buf.b))
	}
	return nil
}

func (buf *Buffer) Slice(off, n int) ([]byte, error) {
	if err := buf.checkRange(off, n); err != nil {
		return nil, err
	}
	return buf.b[off : off+n], nil
}

func (buf *Buffer) Uint16At(off int) (uint16, error) {
	if err := buf.checkRange(off, 2); err != nil {
		return 0, err
	}
	return be.Uint16(buf.b[off:]), nil
}

func (buf *Buffer) Uint32At(off int) (uint32, error) {
	if err := buf.checkRange(off, 4); err != nil {
		return 0, err
	}
	return be.Uint32(buf.b[off:]), nil
}

func (buf *Buffer) Uint64At(off int) (uint64, error) {
	if err := buf.checkRange(off, 8); err != nil {
		return 0, err
	}
	return be.Uint64(buf.b[off:]), nil
}

func (buf *Buffer) Int32At(off int) (int32, error) {
	v, err := buf.Uint32At(off)
	return int32(v), err
}

// StringAt decodes n bytes starting at off as text. A trailing NUL (if any)
// is not included in n by the caller's convention; StringAt itself trims
// one trailing 0x00 byte when present.
func (buf *Buffer) StringAt(off, n int, enc Encoding) (string, error) {
	b, err := buf.Slice(off, n)
	if err != nil {
		return "", err
	}
	if len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	switch enc {
	case EncodingLatin1:
		return latin1ToUTF8(b), nil
	default:
		return string(b), nil
	}
}

// CStringAt reads a NUL-terminated string starting at off, stopping at end
// (exclusive) if no terminator is found first.
func (buf *Buffer) CStringAt(off, end int, enc Encoding) (string, int, error) {
	if err := buf.checkRange(off, 0); err != nil {
		return "", 0, err
	}
	if end > len(buf.b) {
		end = len(buf.b)
	}
	i := off
	for i < end && buf.b[i] != 0 {
		i++
	}
	s, err := buf.StringAt(off, i-off, enc)
	if err != nil {
		return "", 0, err
	}
	consumed := i - off
	if i < end {
		consumed++ // include the terminating NUL
	}
	return s, consumed, nil
}

// latin1ToUTF8 widens each ISO-8859-1 byte to its identical Unicode code
// point. No third-party charset table is involved: Latin-1's 256 code
// points map 1:1 onto U+0000-U+00FF.
func latin1ToUTF8(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	n := 0
	for _, r := range runes {
		n += utf8.RuneLen(r)
	}
	out := make([]byte, n)
	pos := 0
	for _, r := range runes {
		pos += utf8.EncodeRune(out[pos:], r)
	}
	return string(out)
}

// Builder assembles a byte slice by appending typed values, used when
// rendering boxes back to wire format.
type Builder struct {
	buf []byte
}

func NewBuilder() *Builder { return &Builder{} }

func NewBuilderWithCapacity(n int) *Builder { return &Builder{buf: make([]byte, 0, n)} }

func (w *Builder) Len() int { return len(w.buf) }

func (w *Builder) Bytes() []byte { return w.buf }

func (w *Builder) WriteBytes(b []byte) *Builder {
	w.buf = append(w.buf, b...)
	return w
}

func (w *Builder) WriteByte(b byte) *Builder {
	w.buf = append(w.buf, b)
	return w
}

func (w *Builder) WriteZero(n int) *Builder {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
	return w
}

func (w *Builder) WriteUint16(v uint16) *Builder {
	var b [2]byte
	be.PutUint16(b[:], v)
	return w.WriteBytes(b[:])
}

func (w *Builder) WriteUint32(v uint32) *Builder {
	var b [4]byte
	be.PutUint32(b[:], v)
	return w.WriteBytes(b[:])
}

func (w *Builder) WriteUint64(v uint64) *Builder {
	var b [8]byte
	be.PutUint64(b[:], v)
	return w.WriteBytes(b[:])
}

func (w *Builder) WriteInt32(v int32) *Builder {
	return w.WriteUint32(uint32(v))
}

// WriteStringLatin1 writes s re-narrowed from Unicode back to single
// Latin-1 bytes; callers only ever pass strings that originated from
// StringAt(..., EncodingLatin1) or plain ASCII, so every rune fits in a
// byte.
func (w *Builder) WriteStringLatin1(s string) *Builder {
	for _, r := range s {
		if r > 0xFF {
			r = '?'
		}
		w.buf = append(w.buf, byte(r))
	}
	return w
}

func (w *Builder) WriteString(s string) *Builder {
	w.buf = append(w.buf, s...)
	return w
}

// PutUint32At overwrites 4 bytes already written, used for backpatching a
// box's size field once its total length is known.
func (w *Builder) PutUint32At(off int, v uint32) {
	be.PutUint32(w.buf[off:], v)
}
