package mp4

import "fmt"

// descriptor decoding for the nested tag/length/value chain carried
// inside an esds box: ESDescriptor -> DecoderConfigDescriptor ->
// DecoderSpecificInfo. Decoding stops at exposing the object-type-
// indication byte and a MIME-style codec string; no AAC bitstream, SBR,
// or PS parsing is attempted.

var descriptorTagNames = map[byte]string{
	0x03: "ESDescriptor",
	0x04: "DecoderConfigDescriptor",
	0x05: "DecoderSpecificInfo",
	0x06: "SLConfigDescriptor",
}

type descriptor struct {
	tag      byte
	tagName  string
	oti      byte
	buffer   []byte
	children map[string]*descriptor
}

// descCursor walks a flat run of ISO/IEC 14496-1 descriptors: each one
// opens with a tag byte and a base-128 "expandable class" length prefix
// (continuation in the top bit, 7 value bits per byte) ahead of its body.
// Every decode step advances pos itself, so callers never juggle a
// separate running offset alongside the cursor.
type descCursor struct {
	buf      []byte
	pos, end int
}

func (c *descCursor) remaining() int { return c.end - c.pos }

func (c *descCursor) readByte() (byte, bool) {
	if c.pos >= c.end {
		return 0, false
	}
	b := c.buf[c.pos]
	c.pos++
	return b, true
}

func (c *descCursor) readVarLength() int {
	length := 0
	for {
		b, ok := c.readByte()
		if !ok {
			return length
		}
		length = (length << 7) | int(b&0x7f)
		if b&0x80 == 0 {
			return length
		}
	}
}

// skip discards up to n bytes, clamped to the cursor's end.
func (c *descCursor) skip(n int) {
	c.pos += n
	if c.pos > c.end {
		c.pos = c.end
	}
}

// child carves out a nested cursor over the next n bytes (clamped to end)
// and advances past it, so a descriptor's body is decoded in isolation
// from whatever follows it at the parent level.
func (c *descCursor) child(n int) *descCursor {
	stop := c.pos + n
	if stop > c.end {
		stop = c.end
	}
	sub := &descCursor{buf: c.buf, pos: c.pos, end: stop}
	c.pos = stop
	return sub
}

func decodeDescriptor(c *descCursor) *descriptor {
	tag, ok := c.readByte()
	if !ok {
		return nil
	}
	body := c.child(c.readVarLength())

	d := &descriptor{tag: tag, tagName: descriptorTagNames[tag], children: make(map[string]*descriptor)}
	switch d.tagName {
	case "ESDescriptor":
		decodeESDescriptor(d, body)
	case "DecoderConfigDescriptor":
		decodeDecoderConfigDescriptor(d, body)
	default:
		d.buffer = body.buf[body.pos:body.end]
	}
	return d
}

func decodeDescriptorArray(c *descCursor) map[string]*descriptor {
	out := make(map[string]*descriptor)
	for c.remaining() >= 2 {
		d := decodeDescriptor(c)
		if d == nil {
			break
		}
		if d.tagName != "" {
			out[d.tagName] = d
		}
	}
	return out
}

// decodeESDescriptor reads an ES_Descriptor body: ES_ID(2), flags(1), then
// whichever of dependsOn_ES_ID/URL/OCR_ES_Id the flags mark present, ahead
// of the nested descriptor array.
func decodeESDescriptor(d *descriptor, c *descCursor) {
	if c.remaining() < 3 {
		return
	}
	c.skip(2) // ES_ID
	flags, _ := c.readByte()
	if flags&0x80 != 0 {
		c.skip(2) // dependsOn_ES_ID
	}
	if flags&0x40 != 0 {
		n, ok := c.readByte()
		if !ok {
			return
		}
		c.skip(int(n)) // URL string
	}
	if flags&0x20 != 0 {
		c.skip(2) // OCR_ES_Id
	}
	d.children = decodeDescriptorArray(c)
}

// decodeDecoderConfigDescriptor reads a DecoderConfigDescriptor body:
// objectTypeIndication(1), streamType/upStream/reserved(1),
// bufferSizeDB(3), maxBitrate(4), avgBitrate(4), then the nested
// DecoderSpecificInfo descriptor.
func decodeDecoderConfigDescriptor(d *descriptor, c *descCursor) {
	oti, ok := c.readByte()
	if !ok {
		return
	}
	d.oti = oti
	c.skip(12)
	d.children = decodeDescriptorArray(c)
}

// decodeDescriptorTree runs the tag/length/value walk over the whole of
// buf, returning the top-level descriptor (an ESDescriptor for a
// well-formed esds payload) or nil if buf is empty.
func decodeDescriptorTree(buf []byte) *descriptor {
	if len(buf) == 0 {
		return nil
	}
	return decodeDescriptor(&descCursor{buf: buf, end: len(buf)})
}

// mp4AudioObjectTypes maps the 5-bit AudioObjectType read from the front
// of a DecoderSpecificInfo payload to the suffix iTunes-style MIME codec
// strings use, e.g. "40.2" for AAC-LC.
var mp4AudioObjectTypes = map[byte]string{
	1: "1", 2: "2", 3: "3", 4: "4", 5: "5",
}

// mimeCodecFromEsds decodes the esds payload buf (everything after the
// FullBox version/flags prefix) into an RFC 6381-style codec string.
func mimeCodecFromEsds(buf []byte) string {
	es := decodeDescriptorTree(buf)
	if es == nil || es.tagName != "ESDescriptor" {
		return ""
	}
	dc, ok := es.children["DecoderConfigDescriptor"]
	if !ok {
		return ""
	}
	oti := dc.oti
	if dsi, ok := dc.children["DecoderSpecificInfo"]; ok && len(dsi.buffer) > 0 {
		objType := dsi.buffer[0] >> 3
		if suffix, ok := mp4AudioObjectTypes[objType]; ok {
			return fmt.Sprintf("%02x.%s", oti, suffix)
		}
	}
	return fmt.Sprintf("%02x", oti)
}
