package mp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTag() *AppleTag {
	return NewAppleTag(&Box{Header: Header{Type: TypeIlst}})
}

func TestAppleTagTitleGetterSetterAndRemoval(t *testing.T) {
	tag := newTag()
	assert.Equal(t, "", tag.Title())

	tag.SetTitle("Test Title")
	assert.Equal(t, "Test Title", tag.Title())

	tag.SetTitle("")
	assert.True(t, tag.IsEmpty())
}

func TestAppleTagArtistsMultiValued(t *testing.T) {
	tag := newTag()
	tag.SetArtists([]string{"Alice", "Bob"})
	assert.Equal(t, []string{"Alice", "Bob"}, tag.Artists())
}

func TestAppleTagTrackAndDiskPair(t *testing.T) {
	tag := newTag()
	tag.SetTrack(3, 12)
	idx, total := tag.Track()
	assert.Equal(t, uint16(3), idx)
	assert.Equal(t, uint16(12), total)

	tag.SetDisk(1, 2)
	idx, total = tag.Disk()
	assert.Equal(t, uint16(1), idx)
	assert.Equal(t, uint16(2), total)

	// Setting both halves to zero removes the atom.
	tag.SetTrack(0, 0)
	idx, total = tag.Track()
	assert.Zero(t, idx)
	assert.Zero(t, total)
}

func TestAppleTagGenrePrefersTextOverIndex(t *testing.T) {
	ilst := &Box{Header: Header{Type: TypeIlst}}
	tag := NewAppleTag(ilst)

	// Simulate a legacy file carrying only the binary gnre index for Jazz.
	gnreIndex, ok := id3v1GenreIndex("Jazz")
	require.True(t, ok)
	payload := make([]byte, 2)
	be.PutUint16(payload, gnreIndex)
	ilst.Children = append(ilst.Children, &Box{
		Header:   Header{Type: tagGenreIndex},
		Children: []*Box{{Header: Header{Type: TypeData}, AppleData: &AppleData{Flags: ContainsData, Data: payload}}},
	})

	assert.Equal(t, []string{"Jazz"}, tag.Genres())

	tag.SetGenres([]string{"Ambient"})
	assert.Equal(t, []string{"Ambient"}, tag.Genres())
	assert.Nil(t, ilst.FindChild(tagGenreIndex), "SetGenres must clear the legacy gnre atom")
}

func TestAppleTagYearParsesFirstFourDigits(t *testing.T) {
	tag := newTag()
	tag.SetYear(2004)
	assert.Equal(t, 2004, tag.Year())

	tag.SetYear(0)
	assert.Equal(t, 0, tag.Year())
}

func TestAppleTagReplayGainFormatting(t *testing.T) {
	tag := newTag()
	tag.SetReplayGainTrackGain(-6.5)
	assert.InDelta(t, -6.5, tag.ReplayGainTrackGain(), 0.001)

	tag.SetReplayGainTrackPeak(0.987654)
	assert.InDelta(t, 0.987654, tag.ReplayGainTrackPeak(), 0.000001)
}

func TestAppleTagConductorIsDashAtom(t *testing.T) {
	tag := newTag()
	tag.SetConductor("Herbert von Karajan")
	assert.Equal(t, "Herbert von Karajan", tag.Conductor())

	dash := findDashAtom(tag.ilst, appleITunesMean, conductorName)
	require.NotNil(t, dash)
}

func TestAppleTagPerformerRolesSlashTranslation(t *testing.T) {
	tag := newTag()
	tag.SetPerformerRoles([]string{"Violin", "Viola"})
	assert.Equal(t, "Violin/Viola", getDashText(tag.ilst, appleITunesMean, performerRolesName))
	assert.Equal(t, []string{"Violin", "Viola"}, tag.PerformerRoles())
}

func TestAppleTagMusicBrainzArtistIDsSlashJoined(t *testing.T) {
	tag := newTag()
	tag.SetMusicBrainzArtistIDs([]string{"id-1", "id-2"})
	assert.Equal(t, "id-1/id-2", getDashText(tag.ilst, appleITunesMean, mbArtistID))
	assert.Equal(t, []string{"id-1", "id-2"}, tag.MusicBrainzArtistIDs())
}

func TestAppleTagArtworkRoundTrip(t *testing.T) {
	tag := newTag()
	data := []byte{0xFF, 0xD8, 0xFF} // JPEG SOI marker
	tag.SetArtwork(data, ContainsJpegData)

	got, flags := tag.Artwork()
	assert.Equal(t, data, got)
	assert.Equal(t, ContainsJpegData, flags)

	tag.SetArtwork(nil, ContainsJpegData)
	got, _ = tag.Artwork()
	assert.Nil(t, got)
}

func TestAppleTagCustomText(t *testing.T) {
	tag := newTag()
	tag.SetCustomText("com.example", "CustomKey", "custom value")
	assert.Equal(t, "custom value", tag.CustomText("com.example", "CustomKey"))
}

// id3v1GenreIndex is a tiny test-only helper mirroring genre.go's removed
// write-direction lookup, kept local to this test since the package no
// longer exposes one (writers always use the text atom).
func id3v1GenreIndex(name string) (uint16, bool) {
	for i, g := range id3v1Genres {
		if g == name {
			return uint16(i + 1), true
		}
	}
	return 0, false
}
