package mp4

// Box is the single polymorphic tree node. Rather than a subclass per box
// kind, one node carries every structural field (header, data position,
// inherited handler, children) plus a set of optional pointer fields, at
// most one of which is non-nil, holding the decoded variant payload. A
// container box (moov, trak, ...) leaves every payload field nil and
// relies on Children alone.
type Box struct {
	Header   Header
	DataPos  int64
	Handler  BoxType
	Children []*Box

	Ftyp                *Ftyp
	Mvhd                *Mvhd
	Hdlr                *Hdlr
	Stsd                *Stsd
	SampleEntryAudio    *SampleEntryAudio
	SampleEntryVisual   *SampleEntryVisual
	AppleData           *AppleData
	AppleAdditionalInfo *AppleAdditionalInfo
	Stco                *Stco
	Co64                *Co64
	Esds                *Esds
	Unknown             *Unknown
}

func (b *Box) Type() BoxType { return b.Header.Type }

// FindChild returns the first direct child of the given type, or nil.
func (b *Box) FindChild(t BoxType) *Box {
	for _, c := range b.Children {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// FindChildren returns every direct child of the given type, in order.
func (b *Box) FindChildren(t BoxType) []*Box {
	var out []*Box
	for _, c := range b.Children {
		if c.Type() == t {
			out = append(out, c)
		}
	}
	return out
}

// FindPath walks a chain of box types starting at b, descending one level
// per element; it returns nil if any step is missing.
func (b *Box) FindPath(types ...BoxType) *Box {
	cur := b
	for _, t := range types {
		cur = cur.FindChild(t)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// RemoveChild deletes the first direct child equal to target by identity.
func (b *Box) RemoveChild(target *Box) {
	for i, c := range b.Children {
		if c == target {
			b.Children = append(b.Children[:i], b.Children[i+1:]...)
			return
		}
	}
}

// Ftyp is the file type and compatibility box.
type Ftyp struct {
	MajorBrand       BoxType
	MinorVersion     uint32
	CompatibleBrands []BoxType
}

// Mvhd is the movie header box. Version 0 stores 32-bit time fields,
// version 1 stores 64-bit; Duration is always widened to uint64.
type Mvhd struct {
	Version   uint8
	TimeScale uint32
	Duration  uint64
}

// DurationMillis converts the ticks-based Duration/TimeScale pair into
// milliseconds, per spec: duration / timescale * 1000.
func (m *Mvhd) DurationMillis() float64 {
	if m.TimeScale == 0 {
		return 0
	}
	return float64(m.Duration) / float64(m.TimeScale) * 1000
}

// Hdlr declares the handler type governing every descendant box below it.
type Hdlr struct {
	HandlerType BoxType
	Name        string
}

// Stsd is the sample description box. EntryCount is its declared entry
// count; the decoded sample entries themselves are the stsd box's
// Children, populated only in ModeTagAndProperties.
type Stsd struct {
	EntryCount uint32
}

// SampleEntryAudio is the mp4a-family sample entry.
type SampleEntryAudio struct {
	DataReferenceIndex uint16
	ChannelCount       uint16
	SampleSize         uint16
	SampleRateHz       uint32 // integer Hz, widened from the 16.16 fixed field
}

// SampleEntryVisual is the avc1-family sample entry.
type SampleEntryVisual struct {
	DataReferenceIndex uint16
	Width              uint16
	Height             uint16
}

// AppleDataFlags is the semantic enum carried in an Apple data atom's
// FullBox flags field.
type AppleDataFlags uint32

const (
	ContainsData          AppleDataFlags = 0x00
	ContainsText          AppleDataFlags = 0x01
	ContainsJpegData      AppleDataFlags = 0x0D
	ContainsPngData       AppleDataFlags = 0x0E
	ForTempo              AppleDataFlags = 0x15
	ContainsExplicitData  AppleDataFlags = 0x17
	ContainsBmpData       AppleDataFlags = 0x1B
)

// AppleData is an Apple "data" atom: a FullBox whose flags field is
// reinterpreted as AppleDataFlags and whose payload follows a 4-byte
// reserved locale field.
type AppleData struct {
	Version uint8
	Flags   AppleDataFlags
	Locale  uint32
	Data    []byte
}

// AppleAdditionalInfo is a "mean" or "name" box: a FullBox carrying
// Latin-1 text, used inside a dash atom.
type AppleAdditionalInfo struct {
	Version uint8
	Flags   uint32
	Text    string
}

// Stco is the 32-bit chunk-offset table.
type Stco struct {
	Entries []uint32
}

// Co64 is the 64-bit chunk-offset table.
type Co64 struct {
	Entries []uint64
}

// Unknown holds the opaque payload of a box type the factory does not
// otherwise decode.
type Unknown struct {
	Data []byte
}

// Esds is the elementary stream descriptor box, decoded far enough to
// expose the object-type-indication byte and an RFC 6381-style MIME
// codec string (e.g. "40.2" for AAC-LC).
type Esds struct {
	ObjectTypeIndication byte
	MimeCodec            string
}
