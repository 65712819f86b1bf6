package mp4

import (
	"fmt"
	"strconv"
	"strings"
)

// AppleTag is a façade over an ilst item-list box (spec §4.6): typed
// getters/setters for the ~40 fields iTunes stores as annotation atoms,
// plus genre/track-disk/dash-atom indirection. Every mutation method
// mutates ilst.Children directly; there is no separate staging buffer.
type AppleTag struct {
	ilst *Box
}

// NewAppleTag wraps an ilst box. Callers obtain ilst from Mp4File, which
// creates one on demand if the file has none.
func NewAppleTag(ilst *Box) *AppleTag { return &AppleTag{ilst: ilst} }

// IsEmpty reports whether the item list carries no atoms at all.
func (t *AppleTag) IsEmpty() bool { return len(t.ilst.Children) == 0 }

// Clear empties the item list.
func (t *AppleTag) Clear() { t.ilst.Children = nil }

// --- plain text atoms -------------------------------------------------

func (t *AppleTag) findAtom(tag BoxType) *Box { return t.ilst.FindChild(tag) }

func (t *AppleTag) atomText(tag BoxType) string {
	a := t.findAtom(tag)
	if a == nil {
		return ""
	}
	for _, c := range a.Children {
		if c.Type() == TypeData && c.AppleData != nil {
			return string(c.AppleData.Data)
		}
	}
	return ""
}

// setAtomText sets tag's single data atom to value, removing the whole
// annotation if value is empty (spec §4.6, "a setter with empty/undefined
// value removes the atom").
func (t *AppleTag) setAtomText(tag BoxType, value string) {
	a := t.findAtom(tag)
	if value == "" {
		if a != nil {
			t.ilst.RemoveChild(a)
		}
		return
	}
	if a != nil {
		for _, c := range a.Children {
			if c.Type() == TypeData && c.AppleData != nil {
				c.AppleData.Flags = ContainsText
				c.AppleData.Data = []byte(value)
				return
			}
		}
		a.Children = append(a.Children, newDataBox(ContainsText, []byte(value)))
		return
	}
	t.ilst.Children = append(t.ilst.Children, &Box{
		Header:   Header{Type: tag},
		Children: []*Box{newDataBox(ContainsText, []byte(value))},
	})
}

// atomTextList reads tag's value and splits it on ";", trimming each
// element (spec §4.6 multi-valued text fields).
func (t *AppleTag) atomTextList(tag BoxType) []string {
	s := t.atomText(tag)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// setAtomTextList joins values with "; " and stores them as tag's text.
func (t *AppleTag) setAtomTextList(tag BoxType, values []string) {
	t.setAtomText(tag, strings.Join(values, "; "))
}

var (
	tagTitle        = NewBoxType("©nam")
	tagAlbum        = NewBoxType("©alb")
	tagArtist       = NewBoxType("©ART")
	tagAlbumArtist  = NewBoxType("aART")
	tagComment      = NewBoxType("©cmt")
	tagLyrics       = NewBoxType("©lyr")
	tagGrouping     = NewBoxType("©grp")
	tagComposer     = NewBoxType("©wrt")
	tagCopyright    = NewBoxType("cprt")
	tagEncoder      = NewBoxType("©too")
	tagYear         = NewBoxType("©day")
	tagGenreText    = NewBoxType("©gen")
	tagGenreIndex   = NewBoxType("gnre")
	tagTrackNumber  = NewBoxType("trkn")
	tagDiskNumber   = NewBoxType("disk")
	tagCompilation  = NewBoxType("cpil")
	tagTempo        = NewBoxType("tmpo")
	tagArtwork      = NewBoxType("covr")
	tagSortName     = NewBoxType("sonm")
	tagSortAlbum    = NewBoxType("soal")
	tagSortArtist   = NewBoxType("soar")
	tagSortAlbumArt = NewBoxType("soaa")
)

func (t *AppleTag) Title() string          { return t.atomText(tagTitle) }
func (t *AppleTag) SetTitle(v string)      { t.setAtomText(tagTitle, v) }
func (t *AppleTag) Album() string          { return t.atomText(tagAlbum) }
func (t *AppleTag) SetAlbum(v string)      { t.setAtomText(tagAlbum, v) }
func (t *AppleTag) Comment() string        { return t.atomText(tagComment) }
func (t *AppleTag) SetComment(v string)    { t.setAtomText(tagComment, v) }
func (t *AppleTag) Lyrics() string         { return t.atomText(tagLyrics) }
func (t *AppleTag) SetLyrics(v string)     { t.setAtomText(tagLyrics, v) }
func (t *AppleTag) Grouping() string       { return t.atomText(tagGrouping) }
func (t *AppleTag) SetGrouping(v string)   { t.setAtomText(tagGrouping, v) }
func (t *AppleTag) Copyright() string      { return t.atomText(tagCopyright) }
func (t *AppleTag) SetCopyright(v string)  { t.setAtomText(tagCopyright, v) }
func (t *AppleTag) Encoder() string        { return t.atomText(tagEncoder) }
func (t *AppleTag) SetEncoder(v string)    { t.setAtomText(tagEncoder, v) }
func (t *AppleTag) SortName() string       { return t.atomText(tagSortName) }
func (t *AppleTag) SetSortName(v string)   { t.setAtomText(tagSortName, v) }
func (t *AppleTag) SortAlbum() string      { return t.atomText(tagSortAlbum) }
func (t *AppleTag) SetSortAlbum(v string)  { t.setAtomText(tagSortAlbum, v) }
func (t *AppleTag) SortArtist() string     { return t.atomText(tagSortArtist) }
func (t *AppleTag) SetSortArtist(v string) { t.setAtomText(tagSortArtist, v) }
func (t *AppleTag) SortAlbumArtist() string     { return t.atomText(tagSortAlbumArt) }
func (t *AppleTag) SetSortAlbumArtist(v string) { t.setAtomText(tagSortAlbumArt, v) }

// Artists/AlbumArtists/Composers (and Genres, below) are multi-valued,
// joined with "; " and split on ";" per spec §4.6. PerformerRoles, below,
// is stored slash-joined instead.
func (t *AppleTag) Artists() []string       { return t.atomTextList(tagArtist) }
func (t *AppleTag) SetArtists(v []string)   { t.setAtomTextList(tagArtist, v) }
func (t *AppleTag) AlbumArtists() []string  { return t.atomTextList(tagAlbumArtist) }
func (t *AppleTag) SetAlbumArtists(v []string) { t.setAtomTextList(tagAlbumArtist, v) }
func (t *AppleTag) Composers() []string     { return t.atomTextList(tagComposer) }
func (t *AppleTag) SetComposers(v []string) { t.setAtomTextList(tagComposer, v) }

// PerformerRoles additionally translates "/" <-> ";" to share storage with
// a single dash-atom convention (spec §4.6), since role lists commonly
// arrive slash-separated ("Violin/Viola") from scrobbler metadata.
const performerRolesName = "Performer Roles"

func (t *AppleTag) PerformerRoles() []string {
	s := getDashText(t.ilst, appleITunesMean, performerRolesName)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "/", ";")
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (t *AppleTag) SetPerformerRoles(v []string) {
	joined := strings.Join(v, ";")
	joined = strings.ReplaceAll(joined, ";", "/")
	setDashText(t.ilst, appleITunesMean, performerRolesName, joined)
}

// --- conductor (no canonical 4-byte ilst atom; stored as a dash atom,
// matching the convention most third-party iTunes taggers use) ---------

const conductorName = "CONDUCTOR"

func (t *AppleTag) Conductor() string     { return getDashText(t.ilst, appleITunesMean, conductorName) }
func (t *AppleTag) SetConductor(v string) { setDashText(t.ilst, appleITunesMean, conductorName, v) }

// --- artwork ------------------------------------------------------------

// Artwork returns the raw cover-art bytes and the AppleDataFlags that name
// their format (ContainsJpegData, ContainsPngData, ContainsBmpData).
func (t *AppleTag) Artwork() ([]byte, AppleDataFlags) {
	a := t.findAtom(tagArtwork)
	if a == nil {
		return nil, ContainsData
	}
	for _, c := range a.Children {
		if c.Type() == TypeData && c.AppleData != nil {
			return c.AppleData.Data, c.AppleData.Flags
		}
	}
	return nil, ContainsData
}

// SetArtwork replaces the cover art; an empty data removes the atom.
func (t *AppleTag) SetArtwork(data []byte, flags AppleDataFlags) {
	a := t.findAtom(tagArtwork)
	if len(data) == 0 {
		if a != nil {
			t.ilst.RemoveChild(a)
		}
		return
	}
	if a != nil {
		for _, c := range a.Children {
			if c.Type() == TypeData && c.AppleData != nil {
				c.AppleData.Flags = flags
				c.AppleData.Data = data
				return
			}
		}
		a.Children = append(a.Children, newDataBox(flags, data))
		return
	}
	t.ilst.Children = append(t.ilst.Children, &Box{
		Header:   Header{Type: tagArtwork},
		Children: []*Box{newDataBox(flags, data)},
	})
}

// --- integer pair (track/disk) ------------------------------------------

// trackDiskPair decodes the four 16-bit fields {reserved, index, total,
// reserved} an Apple integer-pair data atom carries.
func trackDiskPair(tag BoxType, ilst *Box) (index, total uint16) {
	a := ilst.FindChild(tag)
	if a == nil {
		return 0, 0
	}
	for _, c := range a.Children {
		if c.Type() == TypeData && c.AppleData != nil && len(c.AppleData.Data) >= 6 {
			d := c.AppleData.Data
			return be.Uint16(d[2:4]), be.Uint16(d[4:6])
		}
	}
	return 0, 0
}

// setTrackDiskPair packs {0, index, total, 0} into tag's data atom; if
// both become 0 the whole annotation is removed (spec §4.6).
func setTrackDiskPair(tag BoxType, ilst *Box, index, total uint16) {
	if index == 0 && total == 0 {
		if a := ilst.FindChild(tag); a != nil {
			ilst.RemoveChild(a)
		}
		return
	}
	payload := make([]byte, 8)
	be.PutUint16(payload[0:2], 0)
	be.PutUint16(payload[2:4], index)
	be.PutUint16(payload[4:6], total)
	be.PutUint16(payload[6:8], 0)

	a := ilst.FindChild(tag)
	if a != nil {
		for _, c := range a.Children {
			if c.Type() == TypeData && c.AppleData != nil {
				c.AppleData.Flags = ContainsData
				c.AppleData.Data = payload
				return
			}
		}
		a.Children = append(a.Children, newDataBox(ContainsData, payload))
		return
	}
	ilst.Children = append(ilst.Children, &Box{
		Header:   Header{Type: tag},
		Children: []*Box{newDataBox(ContainsData, payload)},
	})
}

func (t *AppleTag) Track() (index, total uint16) { return trackDiskPair(tagTrackNumber, t.ilst) }
func (t *AppleTag) SetTrack(index, total uint16) { setTrackDiskPair(tagTrackNumber, t.ilst, index, total) }
func (t *AppleTag) Disk() (index, total uint16)  { return trackDiskPair(tagDiskNumber, t.ilst) }
func (t *AppleTag) SetDisk(index, total uint16)  { setTrackDiskPair(tagDiskNumber, t.ilst, index, total) }

// --- tempo / compilation -------------------------------------------------

// Tempo returns the tmpo atom's 16-bit BPM value, or 0 if absent.
func (t *AppleTag) Tempo() uint16 {
	a := t.findAtom(tagTempo)
	if a == nil {
		return 0
	}
	for _, c := range a.Children {
		if c.Type() == TypeData && c.AppleData != nil && len(c.AppleData.Data) >= 2 {
			return be.Uint16(c.AppleData.Data[0:2])
		}
	}
	return 0
}

func (t *AppleTag) SetTempo(bpm uint16) {
	if bpm == 0 {
		if a := t.findAtom(tagTempo); a != nil {
			t.ilst.RemoveChild(a)
		}
		return
	}
	payload := make([]byte, 2)
	be.PutUint16(payload, bpm)
	t.setIntegerAtom(tagTempo, ForTempo, payload)
}

func (t *AppleTag) setIntegerAtom(tag BoxType, flags AppleDataFlags, payload []byte) {
	a := t.findAtom(tag)
	if a != nil {
		for _, c := range a.Children {
			if c.Type() == TypeData && c.AppleData != nil {
				c.AppleData.Flags = flags
				c.AppleData.Data = payload
				return
			}
		}
		a.Children = append(a.Children, newDataBox(flags, payload))
		return
	}
	t.ilst.Children = append(t.ilst.Children, &Box{
		Header:   Header{Type: tag},
		Children: []*Box{newDataBox(flags, payload)},
	})
}

// Compilation reports the cpil flag: a single nonzero byte, historically
// stored with flags=ForTempo rather than ContainsData (spec §4.6 preserves
// this bit-exactly).
func (t *AppleTag) Compilation() bool {
	a := t.findAtom(tagCompilation)
	if a == nil {
		return false
	}
	for _, c := range a.Children {
		if c.Type() == TypeData && c.AppleData != nil && len(c.AppleData.Data) >= 1 {
			return c.AppleData.Data[0] != 0
		}
	}
	return false
}

func (t *AppleTag) SetCompilation(v bool) {
	if !v {
		if a := t.findAtom(tagCompilation); a != nil {
			t.ilst.RemoveChild(a)
		}
		return
	}
	t.setIntegerAtom(tagCompilation, ForTempo, []byte{1})
}

// --- genre ----------------------------------------------------------------

// Genres prefers the ©gen text atom; if absent it falls back to the legacy
// binary gnre ID3v1 index (spec §4.6).
func (t *AppleTag) Genres() []string {
	if s := t.atomText(tagGenreText); s != "" {
		return t.atomTextList(tagGenreText)
	}
	a := t.findAtom(tagGenreIndex)
	if a == nil {
		return nil
	}
	for _, c := range a.Children {
		if c.Type() == TypeData && c.AppleData != nil && len(c.AppleData.Data) >= 2 {
			name := genreNameFromID3Index(be.Uint16(c.AppleData.Data[0:2]))
			if name == "" {
				return nil
			}
			return []string{name}
		}
	}
	return nil
}

// SetGenres clears gnre and writes the text atom (spec §4.6: "On write,
// the gnre atom is cleared and the text atom is set").
func (t *AppleTag) SetGenres(values []string) {
	if a := t.findAtom(tagGenreIndex); a != nil {
		t.ilst.RemoveChild(a)
	}
	t.setAtomTextList(tagGenreText, values)
}

// --- year -------------------------------------------------------------

// Year takes the first 4 characters of ©day and parses them as decimal;
// non-numeric (or absent) yields 0 (spec §4.6).
func (t *AppleTag) Year() int {
	s := t.atomText(tagYear)
	if len(s) > 4 {
		s = s[:4]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// SetYear writes y's decimal form to ©day; 0 clears the atom.
func (t *AppleTag) SetYear(y int) {
	if y == 0 {
		t.setAtomText(tagYear, "")
		return
	}
	t.setAtomText(tagYear, strconv.Itoa(y))
}

// --- replay gain --------------------------------------------------------

const (
	rgTrackGain = "replaygain_track_gain"
	rgTrackPeak = "replaygain_track_peak"
	rgAlbumGain = "replaygain_album_gain"
	rgAlbumPeak = "replaygain_album_peak"
)

func parseGainDB(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.ToLower(s), "db")
	s = strings.TrimSpace(s)
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parsePeak(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func (t *AppleTag) ReplayGainTrackGain() float64 {
	return parseGainDB(getDashText(t.ilst, appleITunesMean, rgTrackGain))
}
func (t *AppleTag) SetReplayGainTrackGain(db float64) {
	setDashText(t.ilst, appleITunesMean, rgTrackGain, fmt.Sprintf("%.2f dB", db))
}
func (t *AppleTag) ReplayGainTrackPeak() float64 {
	return parsePeak(getDashText(t.ilst, appleITunesMean, rgTrackPeak))
}
func (t *AppleTag) SetReplayGainTrackPeak(v float64) {
	setDashText(t.ilst, appleITunesMean, rgTrackPeak, fmt.Sprintf("%.6f", v))
}
func (t *AppleTag) ReplayGainAlbumGain() float64 {
	return parseGainDB(getDashText(t.ilst, appleITunesMean, rgAlbumGain))
}
func (t *AppleTag) SetReplayGainAlbumGain(db float64) {
	setDashText(t.ilst, appleITunesMean, rgAlbumGain, fmt.Sprintf("%.2f dB", db))
}
func (t *AppleTag) ReplayGainAlbumPeak() float64 {
	return parsePeak(getDashText(t.ilst, appleITunesMean, rgAlbumPeak))
}
func (t *AppleTag) SetReplayGainAlbumPeak(v float64) {
	setDashText(t.ilst, appleITunesMean, rgAlbumPeak, fmt.Sprintf("%.6f", v))
}

// --- MusicBrainz / Amazon / ISRC / InitialKey / Publisher / Remixer -----

const (
	mbTrackID          = "MusicBrainz Track Id"
	mbAlbumID          = "MusicBrainz Album Id"
	mbArtistID         = "MusicBrainz Artist Id"
	mbReleaseArtistID  = "MusicBrainz Release Artist Id"
	mbReleaseGroupID   = "MusicBrainz Release Group Id"
	mbReleaseTrackID   = "MusicBrainz Release Track Id"
	tagISRC            = "ISRC"
	tagInitialKey      = "initialkey"
	tagPublisher       = "LABEL"
	tagRemixer         = "REMIXER"
	tagASIN            = "ASIN"
)

func (t *AppleTag) MusicBrainzTrackID() string {
	return getDashText(t.ilst, appleITunesMean, mbTrackID)
}
func (t *AppleTag) SetMusicBrainzTrackID(v string) {
	setDashText(t.ilst, appleITunesMean, mbTrackID, v)
}
func (t *AppleTag) MusicBrainzReleaseTrackID() string {
	return getDashText(t.ilst, appleITunesMean, mbReleaseTrackID)
}
func (t *AppleTag) SetMusicBrainzReleaseTrackID(v string) {
	setDashText(t.ilst, appleITunesMean, mbReleaseTrackID, v)
}
func (t *AppleTag) MusicBrainzReleaseGroupID() string {
	return getDashText(t.ilst, appleITunesMean, mbReleaseGroupID)
}
func (t *AppleTag) SetMusicBrainzReleaseGroupID(v string) {
	setDashText(t.ilst, appleITunesMean, mbReleaseGroupID, v)
}

// MusicBrainzArtistIDs and MusicBrainzReleaseArtistIDs are multi-valued,
// joined/split on "/" (spec §4.6).
func (t *AppleTag) MusicBrainzArtistIDs() []string {
	return splitSlash(getDashText(t.ilst, appleITunesMean, mbArtistID))
}
func (t *AppleTag) SetMusicBrainzArtistIDs(v []string) {
	setDashText(t.ilst, appleITunesMean, mbArtistID, strings.Join(v, "/"))
}
func (t *AppleTag) MusicBrainzReleaseArtistIDs() []string {
	return splitSlash(getDashText(t.ilst, appleITunesMean, mbReleaseArtistID))
}
func (t *AppleTag) SetMusicBrainzReleaseArtistIDs(v []string) {
	setDashText(t.ilst, appleITunesMean, mbReleaseArtistID, strings.Join(v, "/"))
}

func splitSlash(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (t *AppleTag) ISRC() string          { return getDashText(t.ilst, appleITunesMean, tagISRC) }
func (t *AppleTag) SetISRC(v string)      { setDashText(t.ilst, appleITunesMean, tagISRC, v) }
func (t *AppleTag) InitialKey() string    { return getDashText(t.ilst, appleITunesMean, tagInitialKey) }
func (t *AppleTag) SetInitialKey(v string) {
	setDashText(t.ilst, appleITunesMean, tagInitialKey, v)
}
func (t *AppleTag) Publisher() string     { return getDashText(t.ilst, appleITunesMean, tagPublisher) }
func (t *AppleTag) SetPublisher(v string) { setDashText(t.ilst, appleITunesMean, tagPublisher, v) }
func (t *AppleTag) Remixer() string       { return getDashText(t.ilst, appleITunesMean, tagRemixer) }
func (t *AppleTag) SetRemixer(v string)   { setDashText(t.ilst, appleITunesMean, tagRemixer, v) }
func (t *AppleTag) ASIN() string          { return getDashText(t.ilst, appleITunesMean, tagASIN) }
func (t *AppleTag) SetASIN(v string)      { setDashText(t.ilst, appleITunesMean, tagASIN, v) }

// --- custom free-form (----) lookup, exposed for callers that need an
// arbitrary (mean, name) pair the façade has no dedicated accessor for ---

// CustomText reads an arbitrary dash atom's text value.
func (t *AppleTag) CustomText(mean, name string) string { return getDashText(t.ilst, mean, name) }

// SetCustomText writes an arbitrary dash atom's text value.
func (t *AppleTag) SetCustomText(mean, name, value string) { setDashText(t.ilst, mean, name, value) }
