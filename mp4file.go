package mp4

import "github.com/pkg/errors"

// Mp4File binds a MediaFile to a FileParser result and exposes the Apple
// tag façade, per spec §4.7. Construction selects (or creates) the
// udta/meta/ilst chain; Save rewrites that subtree in place and patches
// every chunk-offset table whose entries point past the rewritten region.
type Mp4File struct {
	file    *MediaFile
	udta    *Box
	parents []*Box // ancestor chain, moov first, down to udta's immediate parent
	meta    *Box
	tag     *AppleTag
	mdat    MdatRange
}

// OpenMp4File parses file (which must already be open for reading) and
// assembles the tag façade. It registers every udta box discovered,
// guaranteeing at least one empty placeholder, and selects the udta whose
// subtree carries an ilst, preferring the shallowest when more than one
// qualifies (spec §4.7).
func OpenMp4File(file *MediaFile) (*Mp4File, error) {
	parser, err := NewFileParserFromFile(file)
	if err != nil {
		return nil, err
	}
	res, err := parser.ParseTagAndProperties()
	if err != nil {
		return nil, err
	}

	udta, parents := selectOrCreateUdta(res)
	meta := ensureMeta(udta)
	ensureHdlr(meta)
	ilst := meta.FindChild(TypeIlst)
	if ilst == nil {
		ilst = &Box{Header: Header{Type: TypeIlst}}
		meta.Children = append(meta.Children, ilst)
	}

	return &Mp4File{
		file:    file,
		udta:    udta,
		parents: parents,
		meta:    meta,
		tag:     NewAppleTag(ilst),
		mdat:    res.Mdat,
	}, nil
}

// Tag returns the Apple tag façade bound to this file's ilst box.
func (f *Mp4File) Tag() *AppleTag { return f.tag }

// selectOrCreateUdta picks the udta box whose subtree already carries an
// ilst (shallowest wins on a tie), falling back to any existing udta, and
// finally to a freshly created empty one attached under moov.
func selectOrCreateUdta(res *ParseResult) (udta *Box, parents []*Box) {
	var best *UdtaEntry
	for i := range res.Udtas {
		e := &res.Udtas[i]
		meta := e.Box.FindChild(TypeMeta)
		if meta == nil || meta.FindChild(TypeIlst) == nil {
			continue
		}
		if best == nil || len(e.Parents) < len(best.Parents) {
			best = e
		}
	}
	if best != nil {
		return best.Box, best.Parents
	}
	if len(res.Udtas) > 0 {
		best = &res.Udtas[0]
		for i := range res.Udtas[1:] {
			e := &res.Udtas[1:][i]
			if len(e.Parents) < len(best.Parents) {
				best = e
			}
		}
		return best.Box, best.Parents
	}
	// No udta anywhere: create one under moov.
	newUdta := &Box{Header: Header{Type: TypeUdta}}
	if res.Moov != nil {
		res.Moov.Children = append(res.Moov.Children, newUdta)
		return newUdta, []*Box{res.Moov}
	}
	return newUdta, nil
}

// ensureMeta returns udta's meta child, creating an empty one if absent.
func ensureMeta(udta *Box) *Box {
	if m := udta.FindChild(TypeMeta); m != nil {
		return m
	}
	meta := &Box{Header: Header{Type: TypeMeta}}
	udta.Children = append(udta.Children, meta)
	return meta
}

// ensureHdlr repairs a meta box missing its hdlr child by inserting one
// with handler type mdir (spec §8 boundary behaviour: "A meta with
// missing hdlr is repaired ... when the tag is first written").
func ensureHdlr(meta *Box) {
	if meta.FindChild(TypeHdlr) != nil {
		return
	}
	hdlr := &Box{Header: Header{Type: TypeHdlr}, Hdlr: &Hdlr{HandlerType: HandlerMeta}}
	meta.Children = append([]*Box{hdlr}, meta.Children...)
}

// Save serialises the udta->meta->ilst subtree, patches every chunk-offset
// table entry that pointed at or past mdat's start, splices the new
// metadata into the file, and restores ModeClosed (spec §4.7).
func (f *Mp4File) Save() error {
	if err := f.file.BeginWrite(); err != nil {
		return err
	}

	newBytes := RenderBox(f.udta)
	oldLen := f.udta.Header.TotalBoxSize
	if oldLen == 0 && len(f.parents) > 0 {
		// A udta created on open has no bytes in the file yet: splice it
		// in at the end of its parent (moov).
		f.udta.Header.Position = f.parents[len(f.parents)-1].Header.End()
	}
	delta := int64(len(newBytes)) - oldLen

	rewriteEndsBeforeMdat := f.mdat.Found && f.udta.Header.End() <= f.mdat.Start
	if delta != 0 && rewriteEndsBeforeMdat {
		if err := f.patchChunkOffsets(delta); err != nil {
			f.file.Close()
			return err
		}
	}

	if err := f.file.Insert(newBytes, f.udta.Header.Position, oldLen); err != nil {
		f.file.Close()
		return err
	}

	if delta != 0 {
		if err := f.patchAncestorSizes(delta); err != nil {
			f.file.Close()
			return err
		}
		f.udta.Header.TotalBoxSize += delta
		if rewriteEndsBeforeMdat {
			f.mdat.Start += delta
			f.mdat.End += delta
		}
	}

	if err := f.file.Flush(); err != nil {
		f.file.Close()
		return err
	}
	f.file.Close()
	return nil
}

// patchChunkOffsets re-parses the (still pre-splice) file for every
// stco/co64 box, shifts each entry >= mdat.Start by delta, and writes the
// patched box back in place. The array's entry count never changes, so
// the rendered box is always exactly as long as the original (spec §4.7
// step 3: "no cascading adjustment is needed").
func (f *Mp4File) patchChunkOffsets(delta int64) error {
	parser, err := NewFileParserFromFile(f.file)
	if err != nil {
		return err
	}
	res, err := parser.ParseChunkOffsets()
	if err != nil {
		return err
	}
	for _, cb := range res.ChunkOffsetBoxes {
		changed := false
		switch {
		case cb.Stco != nil:
			for i, e := range cb.Stco.Entries {
				if int64(e) >= f.mdat.Start {
					cb.Stco.Entries[i] = uint32(int64(e) + delta)
					changed = true
				}
			}
		case cb.Co64 != nil:
			for i, e := range cb.Co64.Entries {
				if e >= uint64(f.mdat.Start) {
					cb.Co64.Entries[i] = uint64(int64(e) + delta)
					changed = true
				}
			}
		}
		if !changed {
			continue
		}
		rendered := RenderBox(cb)
		if int64(len(rendered)) != cb.Header.TotalBoxSize {
			return errors.Errorf("mp4: %s box re-rendered to a different size", cb.Type().String())
		}
		if err := f.file.Insert(rendered, cb.Header.Position, cb.Header.TotalBoxSize); err != nil {
			return err
		}
	}
	return nil
}

// patchAncestorSizes grows every ancestor of the rewritten udta (moov,
// and trak for a track-level udta) by delta.
func (f *Mp4File) patchAncestorSizes(delta int64) error {
	for _, p := range f.parents {
		if err := patchBoxSize(f.file, p.Header, delta); err != nil {
			return err
		}
		p.Header.TotalBoxSize += delta
	}
	return nil
}

// patchBoxSize overwrites h's 4-byte size field in place. Ancestors of a
// udta box in practice always use the plain 8-byte header (a moov or trak
// large enough to need the 64-bit largesize form does not occur with
// iTunes-style metadata); an extended header here is treated as a defect
// rather than guessed at.
func patchBoxSize(file *MediaFile, h Header, delta int64) error {
	if h.HeaderSize != 8 {
		return errors.Errorf("mp4: cannot patch size of %q: unsupported extended header", h.Type.String())
	}
	w := NewBuilder()
	w.WriteUint32(uint32(h.TotalBoxSize + delta))
	return file.Insert(w.Bytes(), h.Position, 4)
}
