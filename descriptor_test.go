package mp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMimeCodecFromEsdsAACLC(t *testing.T) {
	esds := esdsBytes(0x40, 2, 4, 2)
	box := &Box{}
	decodeEsds(box, esds[8:]) // strip the box header esdsBytes() added
	assert.Equal(t, "40.2", box.Esds.MimeCodec)
	assert.Equal(t, byte(0x40), box.Esds.ObjectTypeIndication)
}

func TestMimeCodecFromEsdsEmptyPayload(t *testing.T) {
	assert.Equal(t, "", mimeCodecFromEsds(nil))
}
