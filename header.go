package mp4

import "github.com/pkg/errors"

// Header is the decoded box preamble: size, type, and the extended fields
// present when size==1 (64-bit largesize) or type=="uuid" (16-byte
// extendedType).
type Header struct {
	Position     int64
	HeaderSize   int64
	TotalBoxSize int64
	Type         BoxType
	ExtendedType [16]byte
	HasExtended  bool
}

// End returns the file offset one past the end of the box this header
// introduces.
func (h Header) End() int64 { return h.Position + h.TotalBoxSize }

// DataSize is the payload length: total size minus the header itself.
func (h Header) DataSize() int64 { return h.TotalBoxSize - h.HeaderSize }

// DecodeHeader reads a box header at file offset pos from buf, where buf
// holds bytes starting at file offset bufBase. fileLen is the total file
// length, needed to resolve a size of 0 ("extends to end of file").
func DecodeHeader(buf *Buffer, bufBase, pos, fileLen int64) (Header, error) {
	off := int(pos - bufBase)
	size32, err := buf.Uint32At(off)
	if err != nil {
		return Header{}, errors.Wrapf(err, "reading box size at %d", pos)
	}
	var typ BoxType
	tb, err := buf.Slice(off+4, 4)
	if err != nil {
		return Header{}, errors.Wrapf(err, "reading box type at %d", pos)
	}
	copy(typ[:], tb)

	h := Header{Position: pos, Type: typ, HeaderSize: 8}

	switch size32 {
	case 1:
		large, err := buf.Uint64At(off + 8)
		if err != nil {
			return Header{}, errors.Wrapf(err, "reading largesize at %d", pos)
		}
		h.TotalBoxSize = int64(large)
		h.HeaderSize = 16
	case 0:
		h.TotalBoxSize = fileLen - pos
	default:
		h.TotalBoxSize = int64(size32)
	}

	if typ == uuidType {
		ub, err := buf.Slice(off+int(h.HeaderSize), 16)
		if err != nil {
			return Header{}, errors.Wrapf(err, "reading uuid at %d", pos)
		}
		copy(h.ExtendedType[:], ub)
		h.HasExtended = true
		h.HeaderSize += 16
	}

	if h.TotalBoxSize < h.HeaderSize {
		return Header{}, errors.Wrapf(ErrBadBoxSize, "box %q at %d: total=%d header=%d", typ.String(), pos, h.TotalBoxSize, h.HeaderSize)
	}
	return h, nil
}

// Render writes the header back to wire format. If totalSize is at least
// 2^32 it is emitted as size=1 followed by a 64-bit largesize, matching
// the encoding DecodeHeader understands.
func (h Header) Render(w *Builder) {
	const maxUint32 = 1<<32 - 1
	if h.TotalBoxSize > maxUint32 {
		w.WriteUint32(1)
		w.WriteBytes(h.Type[:])
		w.WriteUint64(uint64(h.TotalBoxSize))
	} else {
		w.WriteUint32(uint32(h.TotalBoxSize))
		w.WriteBytes(h.Type[:])
	}
	if h.HasExtended {
		w.WriteBytes(h.ExtendedType[:])
	}
}

// RenderedHeaderSize returns how many bytes Render will emit for a box
// whose final TotalBoxSize is size.
func RenderedHeaderSize(t BoxType, size int64) int64 {
	const maxUint32 = 1<<32 - 1
	n := int64(8)
	if size > maxUint32 {
		n += 8
	}
	if t == uuidType {
		n += 16
	}
	return n
}
