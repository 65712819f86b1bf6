package mp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferTypedAccessors(t *testing.T) {
	b := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}
	buf := NewBuffer(b)

	u16, err := buf.Uint16At(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0001), u16)

	u32, err := buf.Uint32At(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x02030405), u32)

	u64, err := buf.Uint64At(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0203040506070809), u64)

	_, err = buf.Uint32At(8)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestBufferStringAtTrimsTrailingNUL(t *testing.T) {
	buf := NewBuffer([]byte("abc\x00"))
	s, err := buf.StringAt(0, 4, EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
}

func TestBufferCStringAt(t *testing.T) {
	buf := NewBuffer([]byte("hello\x00world"))
	s, consumed, err := buf.CStringAt(0, 11, EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	assert.Equal(t, 6, consumed)
}

func TestBufferCStringAtNoTerminator(t *testing.T) {
	buf := NewBuffer([]byte("hello"))
	s, consumed, err := buf.CStringAt(0, 5, EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	assert.Equal(t, 5, consumed)
}

func TestBufferLatin1Widening(t *testing.T) {
	buf := NewBuffer([]byte{0xE9}) // Latin-1 'é'
	s, err := buf.StringAt(0, 1, EncodingLatin1)
	require.NoError(t, err)
	assert.Equal(t, "é", s)
}

func TestReadOnlyBufferStillExposesBytes(t *testing.T) {
	buf := NewBuffer([]byte{1, 2, 3}).ReadOnly()
	assert.Equal(t, []byte{1, 2, 3}, buf.Bytes())
}

func TestBuilderRoundTrip(t *testing.T) {
	w := NewBuilder()
	w.WriteUint16(0x0102).WriteUint32(0x03040506).WriteUint64(0x0708090a0b0c0d0e).WriteZero(2).WriteString("ok")

	buf := NewBuffer(w.Bytes())
	u16, err := buf.Uint16At(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), u16)

	u32, err := buf.Uint32At(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x03040506), u32)

	u64, err := buf.Uint64At(6)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0708090a0b0c0d0e), u64)

	s, err := buf.StringAt(16, 2, EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, "ok", s)
}

func TestBuilderPutUint32At(t *testing.T) {
	w := NewBuilder()
	w.WriteUint32(0)
	w.WriteString("abcd")
	w.PutUint32At(0, 99)
	assert.Equal(t, uint32(99), be.Uint32(w.Bytes()[0:4]))
}
