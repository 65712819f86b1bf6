package mp4

import "bytes"

// Hand-built byte fixtures used across the package's tests. Every box is
// assembled bottom-up with boxBytes, mirroring how a real encoder lays
// bytes out, so the parser and tag façade exercise genuine wire format
// rather than a mocked tree.

func boxBytes(t BoxType, body []byte) []byte {
	w := NewBuilder()
	w.WriteUint32(uint32(8 + len(body)))
	w.WriteBytes(t[:])
	w.WriteBytes(body)
	return w.Bytes()
}

func fullBoxData(version byte, flags AppleDataFlags, locale uint32, payload []byte) []byte {
	w := NewBuilder()
	w.WriteByte(version)
	writeUint24(w, uint32(flags))
	w.WriteUint32(locale)
	w.WriteBytes(payload)
	return boxBytes(TypeData, w.Bytes())
}

func tagAtom(tag BoxType, data []byte) []byte {
	return boxBytes(tag, data)
}

func trackPairData(index, total uint16) []byte {
	payload := make([]byte, 8)
	be.PutUint16(payload[0:2], 0)
	be.PutUint16(payload[2:4], index)
	be.PutUint16(payload[4:6], total)
	be.PutUint16(payload[6:8], 0)
	return fullBoxData(0, ContainsData, 0, payload)
}

func hdlrBytes(handlerType BoxType, name string) []byte {
	w := NewBuilder()
	w.WriteZero(4) // version+flags
	w.WriteZero(4) // predefined
	w.WriteBytes(handlerType[:])
	w.WriteZero(12) // reserved
	w.WriteString(name)
	w.WriteZero(1) // NUL
	return boxBytes(TypeHdlr, w.Bytes())
}

func stcoBytes(entries []uint32) []byte {
	w := NewBuilder()
	w.WriteZero(4)
	w.WriteUint32(uint32(len(entries)))
	for _, e := range entries {
		w.WriteUint32(e)
	}
	return boxBytes(TypeStco, w.Bytes())
}

func esdsBytes(oti byte, audioObjectType byte, freqIndex byte, channelConfig byte) []byte {
	dsiPayload := []byte{
		(audioObjectType << 3) | (freqIndex >> 1),
		(freqIndex&1)<<7 | (channelConfig << 3),
	}
	dsi := append([]byte{0x05, byte(len(dsiPayload))}, dsiPayload...)

	dcdPayload := append([]byte{oti}, make([]byte, 12)...)
	dcdPayload = append(dcdPayload, dsi...)
	dcd := append([]byte{0x04, byte(len(dcdPayload))}, dcdPayload...)

	esPayload := append([]byte{0x00, 0x00, 0x00}, dcd...)
	es := append([]byte{0x03, byte(len(esPayload))}, esPayload...)

	body := append([]byte{0, 0, 0, 0}, es...)
	return boxBytes(TypeEsds, body)
}

func mp4aBytes(sampleRateHz uint32, esds []byte) []byte {
	w := NewBuilder()
	w.WriteZero(6)
	w.WriteUint16(1) // data reference index
	w.WriteZero(8)
	w.WriteUint16(2)  // channel count
	w.WriteUint16(16) // sample size
	w.WriteZero(4)
	w.WriteUint32(sampleRateHz << 16)
	body := append(w.Bytes(), esds...)
	return boxBytes(TypeMp4a, body)
}

func stsdBytes(entry []byte) []byte {
	w := NewBuilder()
	w.WriteZero(4)
	w.WriteUint32(1)
	w.WriteBytes(entry)
	return boxBytes(TypeStsd, w.Bytes())
}

// syntheticFile describes a fully assembled m4a-shaped fixture plus the
// offsets a test needs to assert against.
type syntheticFile struct {
	data          []byte
	mdatDataStart int64
}

// buildSyntheticM4A assembles ftyp/moov(mvhd,trak(mdia(hdlr,minf(stbl(stsd,
// stco)))),udta(meta(hdlr,ilst)))/mdat with a title and a track-number tag
// already present, and a chunk offset entry patched to point at mdat's
// payload start.
func buildSyntheticM4A(title string, trackIndex, trackTotal uint16) syntheticFile {
	esds := esdsBytes(0x40, 2, 4, 2) // AAC-LC, 44.1kHz, stereo
	mp4a := mp4aBytes(44100, esds)
	stsd := stsdBytes(mp4a)
	stco := stcoBytes([]uint32{0}) // patched below once the real offset is known
	stbl := boxBytes(TypeStbl, append(append([]byte{}, stsd...), stco...))
	minf := boxBytes(TypeMinf, stbl)
	mdiaHdlr := hdlrBytes(HandlerSound, "SoundHandler")
	mdia := boxBytes(TypeMdia, append(append([]byte{}, mdiaHdlr...), minf...))
	trak := boxBytes(TypeTrak, mdia)

	mvhdBody := make([]byte, 100)
	be.PutUint32(mvhdBody[12:16], 1000)
	be.PutUint32(mvhdBody[16:20], 5000)
	mvhd := boxBytes(TypeMvhd, mvhdBody)

	nam := tagAtom(tagTitle, fullBoxData(0, ContainsText, 0, []byte(title)))
	trkn := tagAtom(tagTrackNumber, trackPairData(trackIndex, trackTotal))
	ilst := boxBytes(TypeIlst, append(append([]byte{}, nam...), trkn...))
	metaHdlr := hdlrBytes(HandlerMeta, "")
	meta := boxBytes(TypeMeta, append(append([]byte{0, 0, 0, 0}, metaHdlr...), ilst...))
	udta := boxBytes(TypeUdta, meta)

	moovBody := append([]byte{}, mvhd...)
	moovBody = append(moovBody, trak...)
	moovBody = append(moovBody, udta...)
	moov := boxBytes(TypeMoov, moovBody)

	ftypBody := append([]byte{}, NewBoxType("M4A ")[:]...)
	ftypBody = append(ftypBody, 0, 0, 0, 0)
	ftypBody = append(ftypBody, NewBoxType("isom")[:]...)
	ftyp := boxBytes(TypeFtyp, ftypBody)

	mdatPayload := bytes.Repeat([]byte{0xAB}, 32)
	mdat := boxBytes(TypeMdat, mdatPayload)

	file := append([]byte{}, ftyp...)
	file = append(file, moov...)
	mdatStart := int64(len(file))
	file = append(file, mdat...)
	mdatDataStart := mdatStart + 8

	patchStcoEntry(file, uint32(mdatDataStart))

	return syntheticFile{data: file, mdatDataStart: mdatDataStart}
}

// patchStcoEntry finds the lone stco box in data (by its 4-byte type
// marker) and overwrites its single entry in place.
func patchStcoEntry(data []byte, value uint32) {
	marker := TypeStco[:]
	idx := bytes.Index(data, marker)
	if idx < 0 {
		panic("stco not found in fixture")
	}
	entryOff := idx + 12 // type(4) + version/flags(4) + entry count(4)
	be.PutUint32(data[entryOff:], value)
}
