package mp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMp4FileReadsExistingTags(t *testing.T) {
	fixture := buildSyntheticM4A("Original Title", 3, 10)
	file := NewMemoryFile(fixture.data)

	mf, err := OpenMp4File(file)
	require.NoError(t, err)
	assert.Equal(t, "Original Title", mf.Tag().Title())
	idx, total := mf.Tag().Track()
	assert.Equal(t, uint16(3), idx)
	assert.Equal(t, uint16(10), total)
}

func TestSaveGrowingTagShiftsChunkOffsets(t *testing.T) {
	fixture := buildSyntheticM4A("Short", 1, 1)
	file := NewMemoryFile(fixture.data)
	originalMdatStart := fixture.mdatDataStart

	mf, err := OpenMp4File(file)
	require.NoError(t, err)
	mf.Tag().SetTitle("A Considerably Longer Replacement Title That Grows The ilst Atom")
	require.NoError(t, mf.Save())

	reparsed, err := OpenMp4File(file)
	require.NoError(t, err)
	assert.Equal(t, "A Considerably Longer Replacement Title That Grows The ilst Atom", reparsed.Tag().Title())

	parser, err := NewFileParserFromFile(file)
	require.NoError(t, err)
	res, err := parser.ParseChunkOffsets()
	require.NoError(t, err)
	require.Len(t, res.ChunkOffsetBoxes, 1)
	require.Len(t, res.ChunkOffsetBoxes[0].Stco.Entries, 1)
	newOffset := int64(res.ChunkOffsetBoxes[0].Stco.Entries[0])
	assert.Greater(t, newOffset, originalMdatStart, "chunk offset must shift forward as the moov atom grows")

	mdatPos := res.Mdat.Start
	assert.Equal(t, mdatPos, newOffset, "patched chunk offset must still point at mdat's payload start")
}

func TestSaveShrinkingTagShiftsChunkOffsetsBackward(t *testing.T) {
	fixture := buildSyntheticM4A("A Considerably Longer Original Title Here", 1, 1)
	file := NewMemoryFile(fixture.data)

	mf, err := OpenMp4File(file)
	require.NoError(t, err)
	mf.Tag().SetTitle("X")
	require.NoError(t, mf.Save())

	parser, err := NewFileParserFromFile(file)
	require.NoError(t, err)
	res, err := parser.ParseChunkOffsets()
	require.NoError(t, err)
	require.Len(t, res.ChunkOffsetBoxes[0].Stco.Entries, 1)
	assert.Equal(t, res.Mdat.Start, int64(res.ChunkOffsetBoxes[0].Stco.Entries[0]))
	assert.Less(t, int64(res.ChunkOffsetBoxes[0].Stco.Entries[0]), fixture.mdatDataStart)
}

func TestSavePatchesAncestorMoovSize(t *testing.T) {
	fixture := buildSyntheticM4A("Short", 1, 1)
	file := NewMemoryFile(fixture.data)

	parserBefore, err := NewFileParserFromFile(file)
	require.NoError(t, err)
	resBefore, err := parserBefore.ParseBoxHeaders()
	require.NoError(t, err)
	var moovBefore *Box
	for _, b := range resBefore.TopLevel {
		if b.Type() == TypeMoov {
			moovBefore = b
		}
	}
	require.NotNil(t, moovBefore)
	sizeBefore := moovBefore.Header.TotalBoxSize

	mf, err := OpenMp4File(file)
	require.NoError(t, err)
	mf.Tag().SetTitle("A Title That Is Quite A Bit Longer Than Short")
	require.NoError(t, mf.Save())

	parserAfter, err := NewFileParserFromFile(file)
	require.NoError(t, err)
	resAfter, err := parserAfter.ParseBoxHeaders()
	require.NoError(t, err)
	var moovAfter *Box
	for _, b := range resAfter.TopLevel {
		if b.Type() == TypeMoov {
			moovAfter = b
		}
	}
	require.NotNil(t, moovAfter)
	assert.Greater(t, moovAfter.Header.TotalBoxSize, sizeBefore)
}

func TestMp4FileRepairsMissingMetaHdlr(t *testing.T) {
	udta := &Box{Header: Header{Type: TypeUdta}}
	meta := &Box{Header: Header{Type: TypeMeta}}
	udta.Children = append(udta.Children, meta)

	ensureHdlr(meta)
	hdlr := meta.FindChild(TypeHdlr)
	require.NotNil(t, hdlr)
	assert.Equal(t, HandlerMeta, hdlr.Hdlr.HandlerType)
}

func TestMp4FileBootstrapsUdtaWhenAbsent(t *testing.T) {
	moov := &Box{Header: Header{Type: TypeMoov}}
	res := &ParseResult{Moov: moov}

	udta, parents := selectOrCreateUdta(res)
	require.NotNil(t, udta)
	assert.Equal(t, TypeUdta, udta.Type())
	require.Len(t, parents, 1)
	assert.Same(t, moov, parents[0])
	assert.Contains(t, moov.Children, udta)
}
