// Package mp4 implements encoding and decoding of ISO Base Media File
// Format (ISOBMFF) boxes, and an Apple iTunes-style tag façade over the
// ilst item list carried inside moov/udta/meta.
package mp4

import "strings"

// BoxType is a 4-byte box type identifier.
type BoxType [4]byte

func (t BoxType) String() string {
	return string(t[:])
}

// legacySigil is the byte iTunes prefixes onto 3-character tag names
// ("alb", "ART", ...) to canonicalize them into 4-byte box types. It also
// renders as the "©" glyph when the result is treated as MacRoman text.
const legacySigil = 0xA9

// NewBoxType builds a BoxType from a string, padding a 3-byte legacy
// iTunes identifier with the 0xA9 sigil so that "alb" and "©alb" compare
// equal as their canonical 4-byte form.
func NewBoxType(s string) BoxType {
	var t BoxType
	// A "©" written in Go source is the two UTF-8 bytes C2 A9; strip it so
	// the remaining 3-byte name gets the single-byte sigil below.
	s = strings.TrimPrefix(s, "©")
	if len(s) == 3 {
		t[0] = legacySigil
		copy(t[1:], s)
		return t
	}
	copy(t[:], s)
	return t
}

// Known box types.
var (
	TypeFtyp = BoxType{'f', 't', 'y', 'p'} // File type and compatibility
	TypeStyp = BoxType{'s', 't', 'y', 'p'} // Segment type (fragmented MP4)
)

// Movie structure boxes (moov and children).
var (
	TypeMoov = BoxType{'m', 'o', 'o', 'v'} // Movie metadata container
	TypeMvhd = BoxType{'m', 'v', 'h', 'd'} // Movie header (timescale, duration)
	TypeTrak = BoxType{'t', 'r', 'a', 'k'} // Track container
	TypeTkhd = BoxType{'t', 'k', 'h', 'd'} // Track header (ID, dimensions)
	TypeMdia = BoxType{'m', 'd', 'i', 'a'} // Media information container
	TypeMdhd = BoxType{'m', 'd', 'h', 'd'} // Media header (timescale, duration)
	TypeHdlr = BoxType{'h', 'd', 'l', 'r'} // Handler reference (vide/soun/mdir)
	TypeMinf = BoxType{'m', 'i', 'n', 'f'} // Media information container
	TypeVmhd = BoxType{'v', 'm', 'h', 'd'} // Video media header
	TypeSmhd = BoxType{'s', 'm', 'h', 'd'} // Sound media header
	TypeDinf = BoxType{'d', 'i', 'n', 'f'} // Data information container
	TypeDref = BoxType{'d', 'r', 'e', 'f'} // Data reference (URL/URN entries)
)

// Sample table boxes (stbl children).
var (
	TypeStbl = BoxType{'s', 't', 'b', 'l'} // Sample table container
	TypeStsd = BoxType{'s', 't', 's', 'd'} // Sample descriptions (codec config)
	TypeStts = BoxType{'s', 't', 't', 's'} // Decoding time-to-sample
	TypeStsc = BoxType{'s', 't', 's', 'c'} // Sample-to-chunk mapping
	TypeStsz = BoxType{'s', 't', 's', 'z'} // Sample sizes
	TypeStco = BoxType{'s', 't', 'c', 'o'} // Chunk offsets (32-bit)
	TypeCo64 = BoxType{'c', 'o', '6', '4'} // Chunk offsets (64-bit)
	TypeStss = BoxType{'s', 't', 's', 's'} // Sync sample table (keyframes)
)

// Metadata boxes.
var (
	TypeMeta = BoxType{'m', 'e', 't', 'a'} // Metadata container
	TypeUdta = BoxType{'u', 'd', 't', 'a'} // User data container
	TypeIlst = BoxType{'i', 'l', 's', 't'} // Apple item list
	TypeData = BoxType{'d', 'a', 't', 'a'} // Apple data atom
	TypeMean = BoxType{'m', 'e', 'a', 'n'} // Apple dash-atom namespace
	TypeName = BoxType{'n', 'a', 'm', 'e'} // Apple dash-atom name
	TypeDash = BoxType{'-', '-', '-', '-'} // Apple freeform/custom atom
)

// Data boxes.
var (
	TypeMdat = BoxType{'m', 'd', 'a', 't'} // Media data payload
	TypeFree = BoxType{'f', 'r', 'e', 'e'} // Free space (can be skipped)
	TypeSkip = BoxType{'s', 'k', 'i', 'p'} // Free space (can be skipped)
)

// Sample entry boxes (children of stsd).
var (
	TypeAvc1 = BoxType{'a', 'v', 'c', '1'} // AVC/H.264 visual sample entry
	TypeAvcC = BoxType{'a', 'v', 'c', 'C'} // AVC decoder configuration record
	TypeMp4a = BoxType{'m', 'p', '4', 'a'} // MPEG-4 audio sample entry
	TypeEsds = BoxType{'e', 's', 'd', 's'} // ES descriptor
)

// Text/URL boxes.
var (
	TypeText = BoxType{'t', 'e', 'x', 't'}
	TypeURL  = BoxType{'u', 'r', 'l', ' '}
)

// uuidType marks the extended-header box type carrying a 16-byte UUID.
var uuidType = BoxType{'u', 'u', 'i', 'd'}

// IsFullBox returns true if the box type has version and flags fields.
func IsFullBox(t BoxType) bool {
	switch t {
	case TypeMvhd, TypeTkhd, TypeMdhd, TypeHdlr,
		TypeVmhd, TypeSmhd, TypeDref, TypeStsd,
		TypeStts, TypeStsc, TypeStsz,
		TypeStco, TypeCo64, TypeStss,
		TypeMeta, TypeEsds, TypeData,
		TypeMean, TypeName:
		return true
	}
	return false
}

// Handler types (hdlr handler_type field).
var (
	HandlerSound = BoxType{'s', 'o', 'u', 'n'} // Audio track
	HandlerVideo = BoxType{'v', 'i', 'd', 'e'} // Video track
	HandlerAlias = BoxType{'a', 'l', 'i', 's'} // Alias, treated as audio
	HandlerMeta  = BoxType{'m', 'd', 'i', 'r'} // iTunes metadata handler
)
