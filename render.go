package mp4

// Rendering turns a mutated *Box back into wire bytes. Only the boxes this
// package ever constructs or mutates need a render path: containers
// (udta/meta/ilst/annotation/dash), data atoms, mean/name, and the opaque
// passthrough for anything else untouched since parse (spec §4.7 "save"
// only ever re-serialises the udta->meta->ilst subtree).
func RenderBox(b *Box) []byte {
	body := renderBoxBody(b)
	h := Header{Type: b.Header.Type, HeaderSize: 8, TotalBoxSize: int64(8 + len(body))}
	w := NewBuilderWithCapacity(int(h.TotalBoxSize))
	h.Render(w)
	w.WriteBytes(body)
	return w.Bytes()
}

func renderBoxBody(b *Box) []byte {
	switch {
	case b.AppleData != nil:
		w := NewBuilder()
		w.WriteByte(b.AppleData.Version)
		writeUint24(w, uint32(b.AppleData.Flags))
		w.WriteUint32(b.AppleData.Locale)
		w.WriteBytes(b.AppleData.Data)
		return w.Bytes()

	case b.AppleAdditionalInfo != nil:
		w := NewBuilder()
		w.WriteByte(b.AppleAdditionalInfo.Version)
		writeUint24(w, b.AppleAdditionalInfo.Flags)
		w.WriteStringLatin1(b.AppleAdditionalInfo.Text)
		return w.Bytes()

	case b.Hdlr != nil:
		w := NewBuilder()
		w.WriteZero(4) // version+flags
		w.WriteZero(4) // pre_defined
		w.WriteBytes(b.Hdlr.HandlerType[:])
		w.WriteZero(12) // reserved
		w.WriteString(b.Hdlr.Name)
		w.WriteZero(1) // NUL terminator
		return w.Bytes()

	case b.Stco != nil:
		w := NewBuilder()
		w.WriteZero(4) // version+flags
		w.WriteUint32(uint32(len(b.Stco.Entries)))
		for _, e := range b.Stco.Entries {
			w.WriteUint32(e)
		}
		return w.Bytes()

	case b.Co64 != nil:
		w := NewBuilder()
		w.WriteZero(4) // version+flags
		w.WriteUint32(uint32(len(b.Co64.Entries)))
		for _, e := range b.Co64.Entries {
			w.WriteUint64(e)
		}
		return w.Bytes()

	case b.Unknown != nil:
		return b.Unknown.Data

	default:
		// Container: meta carries a 4-byte version+flags FullBox prefix
		// ahead of its children (spec §4.3); always rendered zeroed since
		// meta's flags are conventionally unused.
		w := NewBuilder()
		if b.Header.Type == TypeMeta {
			w.WriteZero(4)
		}
		for _, c := range b.Children {
			w.WriteBytes(RenderBox(c))
		}
		return w.Bytes()
	}
}

func writeUint24(w *Builder, v uint32) {
	w.WriteByte(byte(v >> 16))
	w.WriteByte(byte(v >> 8))
	w.WriteByte(byte(v))
}
