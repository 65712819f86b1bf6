package mp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileParserRejectsMissingFtyp(t *testing.T) {
	buf := NewBuffer([]byte("not an mp4 file at all"))
	_, err := NewFileParser(buf)
	assert.ErrorIs(t, err, ErrNotISOBMFF)
}

func TestParseBoxHeadersDoesNotDescend(t *testing.T) {
	fixture := buildSyntheticM4A("Test Title", 3, 12)
	buf := NewBuffer(fixture.data)
	p, err := NewFileParser(buf)
	require.NoError(t, err)

	res, err := p.ParseBoxHeaders()
	require.NoError(t, err)
	require.Len(t, res.TopLevel, 3) // ftyp, moov, mdat
	assert.Nil(t, res.TopLevel[1].Children)
	assert.True(t, res.Mdat.Found)
	assert.Equal(t, fixture.mdatDataStart, res.Mdat.Start)
	assert.Empty(t, res.Udtas)
}

func TestParseTagMaterialisesUdtaWithoutStsd(t *testing.T) {
	fixture := buildSyntheticM4A("Test Title", 3, 12)
	buf := NewBuffer(fixture.data)
	p, err := NewFileParser(buf)
	require.NoError(t, err)

	res, err := p.ParseTag()
	require.NoError(t, err)
	require.Len(t, res.Udtas, 1)
	assert.Equal(t, []BoxType{TypeMoov}, res.Udtas[0].ParentTree())

	ilst := res.Udtas[0].Box.FindPath(TypeMeta, TypeIlst)
	require.NotNil(t, ilst)
	nam := ilst.FindChild(tagTitle)
	require.NotNil(t, nam)

	moov := res.Moov
	require.NotNil(t, moov)
	trak := moov.FindChild(TypeTrak)
	stsd := trak.FindPath(TypeMdia, TypeMinf, TypeStbl, TypeStsd)
	require.NotNil(t, stsd)
	assert.Nil(t, stsd.Children) // ModeTag does not decode sample entries
}

func TestParseTagAndPropertiesDecodesStsd(t *testing.T) {
	fixture := buildSyntheticM4A("Test Title", 3, 12)
	buf := NewBuffer(fixture.data)
	p, err := NewFileParser(buf)
	require.NoError(t, err)

	res, err := p.ParseTagAndProperties()
	require.NoError(t, err)
	require.NotNil(t, res.Mvhd)
	assert.Equal(t, uint32(1000), res.Mvhd.Mvhd.TimeScale)
	require.NotNil(t, res.Hdlr)

	stsd := res.Moov.FindPath(TypeTrak, TypeMdia, TypeMinf, TypeStbl, TypeStsd)
	require.NotNil(t, stsd)
	require.Len(t, stsd.Children, 1)
	mp4a := stsd.Children[0]
	require.NotNil(t, mp4a.SampleEntryAudio)
	assert.Equal(t, uint16(2), mp4a.SampleEntryAudio.ChannelCount)
	assert.Equal(t, uint32(44100), mp4a.SampleEntryAudio.SampleRateHz)

	esds := mp4a.FindChild(TypeEsds)
	require.NotNil(t, esds)
	require.NotNil(t, esds.Esds)
	assert.Equal(t, "40.2", esds.Esds.MimeCodec)
}

func TestParseChunkOffsetsDoesNotMaterialiseTags(t *testing.T) {
	fixture := buildSyntheticM4A("Test Title", 3, 12)
	buf := NewBuffer(fixture.data)
	p, err := NewFileParser(buf)
	require.NoError(t, err)

	res, err := p.ParseChunkOffsets()
	require.NoError(t, err)
	require.Len(t, res.ChunkOffsetBoxes, 1)
	assert.Equal(t, []uint32{uint32(fixture.mdatDataStart)}, res.ChunkOffsetBoxes[0].Stco.Entries)
	assert.Empty(t, res.Udtas)

	udta := res.Moov.FindChild(TypeUdta)
	require.NotNil(t, udta)
	assert.Nil(t, udta.Children) // udta is a tag container: not descended into in this mode
}
