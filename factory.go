package mp4

import "github.com/pkg/errors"

// ParseMode selects how much of a box tree decodeTree/newBox materialises
// below the top level, matching the four traversal policies in spec §4.5.
// ModeHeadersOnly decodes no payload at all; in the other modes it never
// changes what a box's own header/payload decode to, only which
// containers get descended into.
type ParseMode int

const (
	// ModeHeadersOnly never recurses into any container; callers see only
	// the top-level box sequence.
	ModeHeadersOnly ParseMode = iota
	// ModeTag descends moov->trak->mdia->minf->stbl and moov->udta, and
	// fully materialises every udta/meta/ilst subtree, but does not
	// descend into stsd (codec properties are not needed for tagging).
	ModeTag
	// ModeTagAndProperties is ModeTag plus stsd/sample-entry/esds decode.
	ModeTagAndProperties
	// ModeChunkOffsets descends only far enough to reach stco/co64 under
	// stbl; it does not materialise udta/meta/ilst or stsd.
	ModeChunkOffsets
)

// isStructuralContainer reports the container chain every mode except
// ModeHeadersOnly descends into to reach stbl (and, via moov/trak, udta).
func isStructuralContainer(t BoxType) bool {
	switch t {
	case TypeMoov, TypeTrak, TypeMdia, TypeMinf, TypeStbl:
		return true
	}
	return false
}

// isTagContainer is the udta/meta/ilst family that ModeTag and
// ModeTagAndProperties descend into in full; ModeChunkOffsets does not.
// Annotation and "----" boxes below ilst are descended into by newBox's
// parent-type cases instead.
func isTagContainer(t BoxType) bool {
	switch t {
	case TypeUdta, TypeMeta, TypeIlst:
		return true
	}
	return false
}

// decodeTree decodes the box sequence in [start, end) against buf (whose
// byte 0 is file offset bufBase), propagating handler down through the
// container set the given mode permits. fileLen resolves a declared size
// of 0 on the last top-level box.
func decodeTree(buf *Buffer, bufBase, start, end, fileLen int64, handler, parentType BoxType, mode ParseMode) ([]*Box, error) {
	var boxes []*Box
	pos := start
	for pos < end {
		h, err := DecodeHeader(buf, bufBase, pos, fileLen)
		if err != nil {
			return boxes, err
		}
		if h.TotalBoxSize == 0 {
			// A zero-length step would never advance pos. DecodeHeader
			// resolves a declared size of 0 to the end of the file, so a box
			// declared that way does not stop here: it is materialised as
			// extending to EOF (and overruns any parent that ends earlier).
			break
		}
		if h.End() > end {
			return boxes, errors.Wrapf(ErrBadBoxSize, "box %q at %d overruns parent end %d", h.Type.String(), pos, end)
		}

		box, err := newBox(buf, bufBase, h, fileLen, handler, parentType, mode)
		if err != nil {
			return boxes, err
		}
		boxes = append(boxes, box)

		if box.Type() == TypeHdlr && box.Hdlr != nil {
			handler = box.Hdlr.HandlerType
		}

		pos = h.End()
	}
	return boxes, nil
}

// newBox decodes one box at header h, dispatching on type per the
// selection table, and recursing into children where the box type and the
// active parse mode warrant it.
func newBox(buf *Buffer, bufBase int64, h Header, fileLen int64, handler, parentType BoxType, mode ParseMode) (*Box, error) {
	box := &Box{Header: h, DataPos: h.Position + h.HeaderSize, Handler: handler}

	dataOff := int(h.Position - bufBase + h.HeaderSize)
	dataEnd := int(h.End() - bufBase)
	payload, err := buf.Slice(dataOff, dataEnd-dataOff)
	if err != nil {
		return nil, errors.Wrapf(err, "reading payload of %q at %d", h.Type.String(), h.Position)
	}

	t := h.Type

	if mode == ModeHeadersOnly {
		box.Unknown = &Unknown{Data: nil}
		return box, nil
	}

	switch {
	case t == TypeFtyp:
		if err := decodeFtyp(box, payload); err != nil {
			return nil, err
		}
		return box, nil

	case t == TypeMvhd:
		if err := decodeMvhd(box, payload); err != nil {
			return nil, err
		}
		return box, nil

	case t == TypeHdlr:
		if err := decodeHdlr(box, payload); err != nil {
			return nil, err
		}
		return box, nil

	case t == TypeStco:
		decodeStco(box, payload)
		return box, nil

	case t == TypeCo64:
		decodeCo64(box, payload)
		return box, nil

	case t == TypeData:
		if err := decodeAppleData(box, payload); err != nil {
			return nil, err
		}
		return box, nil

	case t == TypeEsds:
		decodeEsds(box, payload)
		return box, nil

	case t == TypeMean || t == TypeName:
		if err := decodeAppleAdditionalInfo(box, payload); err != nil {
			return nil, err
		}
		return box, nil

	case t == TypeFree || t == TypeSkip:
		box.Unknown = &Unknown{Data: payload}
		return box, nil

	case t == TypeMdat:
		box.Unknown = &Unknown{Data: nil} // mdat payload is never materialised in memory
		return box, nil

	case t == TypeStsd:
		num, err := decodeStsdHeader(box, payload)
		if err != nil {
			return nil, err
		}
		if mode != ModeTagAndProperties {
			// Entry count is still exposed via box.Stsd; the sample entries
			// themselves (codec properties) are out of scope for this mode.
			return box, nil
		}
		children, err := decodeStsdEntries(buf, bufBase, h, fileLen, handler, num, mode)
		if err != nil {
			return nil, err
		}
		box.Children = children
		return box, nil

	case parentType == TypeStsd && (handler == HandlerSound || handler == HandlerAlias):
		if err := decodeSampleEntryAudio(box, payload); err != nil {
			return nil, err
		}
		ch, err := decodeSampleEntryChildren(buf, bufBase, h, fileLen, handler, t, 28, mode)
		if err != nil {
			return nil, err
		}
		box.Children = ch
		return box, nil

	case parentType == TypeStsd && handler == HandlerVideo:
		if err := decodeSampleEntryVisual(box, payload); err != nil {
			return nil, err
		}
		ch, err := decodeSampleEntryChildren(buf, bufBase, h, fileLen, handler, t, 78, mode)
		if err != nil {
			return nil, err
		}
		box.Children = ch
		return box, nil

	case isTagContainer(t):
		if mode == ModeChunkOffsets {
			box.Unknown = &Unknown{Data: nil}
			return box, nil
		}
		children, err := decodeTree(buf, bufBase, h.Position+h.HeaderSize+fullBoxPrefixLen(t), h.End(), fileLen, handler, t, mode)
		if err != nil {
			return nil, err
		}
		box.Children = children
		return box, nil

	case isStructuralContainer(t) || t == TypeDinf:
		children, err := decodeTree(buf, bufBase, h.Position+h.HeaderSize, h.End(), fileLen, handler, t, mode)
		if err != nil {
			return nil, err
		}
		box.Children = children
		return box, nil

	case parentType == TypeIlst:
		// Every direct child of ilst is an Apple annotation box keyed by
		// its 4-byte tag type; it contains one data atom, or (for "----")
		// a mean/name/data triple.
		children, err := decodeTree(buf, bufBase, h.Position+h.HeaderSize, h.End(), fileLen, handler, t, mode)
		if err != nil {
			return nil, err
		}
		box.Children = children
		return box, nil

	case parentType == TypeDash:
		children, err := decodeTree(buf, bufBase, h.Position+h.HeaderSize, h.End(), fileLen, handler, t, mode)
		if err != nil {
			return nil, err
		}
		box.Children = children
		return box, nil

	default:
		box.Unknown = &Unknown{Data: payload}
		return box, nil
	}
}

// fullBoxPrefixLen returns 4 for box types decoded as a FullBox whose
// children start after the version+flags prefix (meta), 0 otherwise.
func fullBoxPrefixLen(t BoxType) int64 {
	if t == TypeMeta {
		return 4
	}
	return 0
}

func decodeFtyp(box *Box, b []byte) error {
	if len(b) < 8 {
		return errors.Wrap(ErrTruncated, "ftyp")
	}
	f := &Ftyp{MinorVersion: be.Uint32(b[4:8])}
	copy(f.MajorBrand[:], b[0:4])
	for i := 8; i+4 <= len(b); i += 4 {
		var bt BoxType
		copy(bt[:], b[i:i+4])
		f.CompatibleBrands = append(f.CompatibleBrands, bt)
	}
	box.Ftyp = f
	return nil
}

func decodeMvhd(box *Box, b []byte) error {
	if len(b) < 1 {
		return errors.Wrap(ErrTruncated, "mvhd")
	}
	version := b[0]
	m := &Mvhd{Version: version}
	if version == 1 {
		if len(b) < 32 {
			return errors.Wrap(ErrTruncated, "mvhd v1")
		}
		m.TimeScale = be.Uint32(b[20:24])
		m.Duration = be.Uint64(b[24:32])
	} else {
		if len(b) < 16 {
			return errors.Wrap(ErrTruncated, "mvhd v0")
		}
		m.TimeScale = be.Uint32(b[12:16])
		m.Duration = uint64(be.Uint32(b[16:20]))
	}
	box.Mvhd = m
	return nil
}

// decodeHdlr reads a hdlr box payload: FullBox prefix(4), pre_defined(4),
// handler_type(4), reserved(12), then a NUL-terminated (or unterminated,
// for some encoders) name string.
func decodeHdlr(box *Box, b []byte) error {
	if len(b) < 24 {
		return errors.Wrap(ErrTruncated, "hdlr")
	}
	h := &Hdlr{}
	copy(h.HandlerType[:], b[8:12])
	nameBuf := NewBuffer(b)
	name, _, err := nameBuf.CStringAt(24, len(b), EncodingUTF8)
	if err != nil {
		name = ""
	}
	h.Name = name
	box.Hdlr = h
	return nil
}

func decodeStco(box *Box, b []byte) {
	if len(b) < 8 {
		box.Stco = &Stco{}
		return
	}
	num := int(be.Uint32(b[4:8])) // after the FullBox version+flags prefix
	entries := make([]uint32, 0, num)
	for i := 0; i < num && 8+i*4+4 <= len(b); i++ {
		entries = append(entries, be.Uint32(b[8+i*4:]))
	}
	box.Stco = &Stco{Entries: entries}
}

func decodeCo64(box *Box, b []byte) {
	if len(b) < 8 {
		box.Co64 = &Co64{}
		return
	}
	num := int(be.Uint32(b[4:8])) // after the FullBox version+flags prefix
	entries := make([]uint64, 0, num)
	for i := 0; i < num && 8+i*8+8 <= len(b); i++ {
		entries = append(entries, be.Uint64(b[8+i*8:]))
	}
	box.Co64 = &Co64{Entries: entries}
}

// decodeAppleData decodes an Apple "data" atom: FullBox prefix, then a
// 4-byte reserved locale, then the raw value bytes.
func decodeAppleData(box *Box, b []byte) error {
	if len(b) < 8 {
		return errors.Wrap(ErrTruncated, "data")
	}
	flags := be.Uint32(b[0:4]) & 0x00FFFFFF
	version := b[0]
	a := &AppleData{
		Version: version,
		Flags:   AppleDataFlags(flags),
		Locale:  be.Uint32(b[4:8]),
		Data:    append([]byte(nil), b[8:]...),
	}
	box.AppleData = a
	return nil
}

// decodeAppleAdditionalInfo decodes a "mean" or "name" box: FullBox
// prefix followed by Latin-1 text.
func decodeAppleAdditionalInfo(box *Box, b []byte) error {
	if len(b) < 4 {
		return errors.Wrap(ErrTruncated, "mean/name")
	}
	buf := NewBuffer(b)
	text, err := buf.StringAt(4, len(b)-4, EncodingLatin1)
	if err != nil {
		return err
	}
	box.AppleAdditionalInfo = &AppleAdditionalInfo{
		Version: b[0],
		Flags:   be.Uint32(b[0:4]) & 0x00FFFFFF,
		Text:    text,
	}
	return nil
}

// decodeEsds decodes an esds box payload (FullBox prefix then the
// descriptor chain).
func decodeEsds(box *Box, b []byte) {
	if len(b) < 4 {
		box.Esds = &Esds{}
		return
	}
	body := b[4:]
	d := decodeDescriptorTree(body)
	e := &Esds{}
	if d != nil && d.tagName == "ESDescriptor" {
		if dc, ok := d.children["DecoderConfigDescriptor"]; ok {
			e.ObjectTypeIndication = dc.oti
		}
	}
	e.MimeCodec = mimeCodecFromEsds(body)
	box.Esds = e
}

func decodeStsdHeader(box *Box, b []byte) (uint32, error) {
	if len(b) < 8 {
		return 0, errors.Wrap(ErrTruncated, "stsd")
	}
	num := be.Uint32(b[4:8])
	box.Stsd = &Stsd{EntryCount: num}
	return num, nil
}

// decodeStsdEntries decodes exactly EntryCount children of an stsd box,
// each dispatched through newBox with parentType=stsd so the sample-entry
// branches in newBox fire.
func decodeStsdEntries(buf *Buffer, bufBase int64, stsdHeader Header, fileLen int64, handler BoxType, num uint32, mode ParseMode) ([]*Box, error) {
	start := stsdHeader.Position + stsdHeader.HeaderSize + 8
	end := stsdHeader.End()
	var entries []*Box
	pos := start
	for i := uint32(0); i < num && pos < end; i++ {
		h, err := DecodeHeader(buf, bufBase, pos, fileLen)
		if err != nil {
			return entries, err
		}
		if h.TotalBoxSize == 0 || h.End() > end {
			break
		}
		entry, err := newBox(buf, bufBase, h, fileLen, handler, TypeStsd, mode)
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
		pos = h.End()
	}
	return entries, nil
}

func decodeSampleEntryAudio(box *Box, b []byte) error {
	if len(b) < 28 {
		return errors.Wrap(ErrTruncated, "mp4a")
	}
	box.SampleEntryAudio = &SampleEntryAudio{
		DataReferenceIndex: be.Uint16(b[6:8]),
		ChannelCount:       be.Uint16(b[16:18]),
		SampleSize:         be.Uint16(b[18:20]),
		SampleRateHz:       be.Uint32(b[24:28]) >> 16,
	}
	return nil
}

func decodeSampleEntryVisual(box *Box, b []byte) error {
	if len(b) < 78 {
		return errors.Wrap(ErrTruncated, "avc1")
	}
	box.SampleEntryVisual = &SampleEntryVisual{
		DataReferenceIndex: be.Uint16(b[6:8]),
		Width:              be.Uint16(b[24:26]),
		Height:             be.Uint16(b[26:28]),
	}
	return nil
}

// decodeSampleEntryChildren decodes the boxes nested after a sample
// entry's fixed-size header (e.g. esds inside mp4a, avcC inside avc1).
func decodeSampleEntryChildren(buf *Buffer, bufBase int64, h Header, fileLen int64, handler, parentType BoxType, fixedHeaderLen int64, mode ParseMode) ([]*Box, error) {
	start := h.Position + h.HeaderSize + fixedHeaderLen
	if start >= h.End() {
		return nil, nil
	}
	return decodeTree(buf, bufBase, start, h.End(), fileLen, handler, parentType, mode)
}
