package mp4

import "github.com/pkg/errors"

// MdatRange is the byte range of an mdat box (its data, not its header),
// captured by every parse entry point per spec §4.5.
type MdatRange struct {
	Start, End int64
	Found      bool
}

// UdtaEntry is one udta box discovered during a tag-oriented parse,
// together with the chain of ancestor boxes leading to it (e.g. {moov}
// for a movie-level udta, {moov, trak} for a track-level one) — kept as
// box pointers, not just types, so a save can patch each ancestor's size
// field when the udta's own rendered size changes.
type UdtaEntry struct {
	Box     *Box
	Parents []*Box
}

// ParentTree returns the ancestor chain's box types, per spec §4.5's
// "parentTree" terminology.
func (u UdtaEntry) ParentTree() []BoxType {
	types := make([]BoxType, len(u.Parents))
	for i, p := range u.Parents {
		types[i] = p.Type()
	}
	return types
}

// ParseResult is what every FileParser entry point returns: the top-level
// box sequence plus whatever indices that entry point's mode populates.
type ParseResult struct {
	TopLevel         []*Box
	Mdat             MdatRange
	Moov             *Box
	Udtas            []UdtaEntry
	Mvhd             *Box
	Hdlr             *Box
	ChunkOffsetBoxes []*Box // every stco/co64 found, in document order
}

// FileParser implements the four traversal policies over a file's
// top-level box sequence described in spec §4.5. Each entry point is
// idempotent: it re-walks the buffer from scratch and returns a fresh
// ParseResult, never mutating parser state across calls.
type FileParser struct {
	buf     *Buffer
	fileLen int64
	src     *MediaFile // set by NewFileParserFromFile; enables panic->ErrCorrupt recovery
}

// NewFileParser validates that buf begins with an ftyp box (spec §4.5
// precondition) and returns a parser over it.
func NewFileParser(buf *Buffer) (*FileParser, error) {
	if buf.Len() < 8 {
		return nil, errors.Wrap(ErrNotISOBMFF, "file too short")
	}
	var typ BoxType
	tb, err := buf.Slice(4, 4)
	if err != nil {
		return nil, errors.Wrap(ErrNotISOBMFF, "reading leading box type")
	}
	copy(typ[:], tb)
	if typ != TypeFtyp {
		return nil, errors.Wrapf(ErrNotISOBMFF, "file begins with %q", typ.String())
	}
	return &FileParser{buf: buf, fileLen: int64(buf.Len())}, nil
}

// NewFileParserFromFile is NewFileParser over file's current bytes, with
// panic recovery wired to file: a malformed box tree that would otherwise
// panic mid-decode (an out-of-range slice past a check the decoder
// missed) is instead reported as ErrCorrupt, and file itself is marked
// corrupt so later calls fail fast (spec §7 "invariant violation" class).
func NewFileParserFromFile(file *MediaFile) (*FileParser, error) {
	buf, err := file.Buffer()
	if err != nil {
		return nil, err
	}
	p, err := NewFileParser(buf)
	if err != nil {
		return nil, err
	}
	p.src = file
	return p, nil
}

// ParseBoxHeaders performs a header-only traversal of the top-level box
// sequence: no box is descended into, so nested udta boxes are invisible
// to this mode (spec §4.5 #1). It still captures a top-level mdat's range.
func (p *FileParser) ParseBoxHeaders() (*ParseResult, error) {
	return p.parse(ModeHeadersOnly)
}

// ParseTag descends moov->trak->mdia->minf->stbl and moov->udta, and
// materialises every udta box encountered together with its parent chain
// (spec §4.5 #2). It does not decode stsd's sample entries.
func (p *FileParser) ParseTag() (*ParseResult, error) {
	return p.parse(ModeTag)
}

// ParseTagAndProperties is ParseTag plus mvhd, hdlr, and stsd/sample-entry
// decoding (spec §4.5 #3).
func (p *FileParser) ParseTagAndProperties() (*ParseResult, error) {
	return p.parse(ModeTagAndProperties)
}

// ParseChunkOffsets collects every stco and co64 box reachable through the
// structural container chain, without materialising tag or codec data
// (spec §4.5 #4).
func (p *FileParser) ParseChunkOffsets() (*ParseResult, error) {
	return p.parse(ModeChunkOffsets)
}

func (p *FileParser) parse(mode ParseMode) (res *ParseResult, err error) {
	defer recoverToCorrupt(p.src, &err)

	boxes, err := decodeTree(p.buf, 0, 0, p.fileLen, p.fileLen, BoxType{}, BoxType{}, mode)
	if err != nil {
		return nil, err
	}
	res = &ParseResult{TopLevel: boxes}

	for _, b := range boxes {
		if b.Type() == TypeMdat && !res.Mdat.Found {
			res.Mdat = MdatRange{Start: b.DataPos, End: b.Header.End(), Found: true}
		}
		if b.Type() == TypeMoov && res.Moov == nil {
			res.Moov = b
		}
	}

	if mode == ModeTag || mode == ModeTagAndProperties {
		collectUdtas(boxes, nil, res)
	}
	if mode == ModeTagAndProperties {
		collectMvhdAndHdlr(boxes, res)
	}
	if mode == ModeChunkOffsets {
		collectChunkOffsets(boxes, res)
	}
	return res, nil
}

// collectUdtas walks box recursively, recording every udta box found with
// the chain of ancestor boxes leading to it.
func collectUdtas(boxes []*Box, parents []*Box, res *ParseResult) {
	for _, b := range boxes {
		if b.Type() == TypeUdta {
			chain := append([]*Box(nil), parents...)
			res.Udtas = append(res.Udtas, UdtaEntry{Box: b, Parents: chain})
			continue // a udta's own children are meta/ilst, not nested udta
		}
		if len(b.Children) > 0 {
			collectUdtas(b.Children, append(parents, b), res)
		}
	}
}

func collectMvhdAndHdlr(boxes []*Box, res *ParseResult) {
	for _, b := range boxes {
		if b.Type() == TypeMvhd && res.Mvhd == nil {
			res.Mvhd = b
		}
		if b.Type() == TypeHdlr && res.Hdlr == nil {
			res.Hdlr = b
		}
		if len(b.Children) > 0 {
			collectMvhdAndHdlr(b.Children, res)
		}
	}
}

func collectChunkOffsets(boxes []*Box, res *ParseResult) {
	for _, b := range boxes {
		if b.Type() == TypeStco || b.Type() == TypeCo64 {
			res.ChunkOffsetBoxes = append(res.ChunkOffsetBoxes, b)
		}
		if len(b.Children) > 0 {
			collectChunkOffsets(b.Children, res)
		}
	}
}
