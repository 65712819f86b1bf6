package mp4

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Mode is the access mode a MediaFile is currently held under.
type Mode int

const (
	ModeClosed Mode = iota
	ModeRead
	ModeReadWrite
)

// MediaFile is a random-access handle over a path or an in-memory buffer,
// per spec §4.2. It holds the entire file content in memory: m4a metadata
// edits always rewrite a prefix of the file, so random-access reads over a
// plain []byte are simpler and no less correct than seeking a live
// descriptor, and they make Insert's splice a pure in-memory operation.
type MediaFile struct {
	path          string
	data          []byte
	mode          Mode
	corrupt       bool
	corruptReason string
}

// OpenFile opens path for reading, loading its entire content into memory.
func OpenFile(path string) (*MediaFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return &MediaFile{path: path, data: b, mode: ModeRead}, nil
}

// NewMemoryFile wraps an in-memory buffer as a MediaFile, for tests and for
// callers that already hold file content (e.g. downloaded bytes).
func NewMemoryFile(data []byte) *MediaFile {
	return &MediaFile{data: data, mode: ModeRead}
}

func (f *MediaFile) Mode() Mode { return f.mode }

func (f *MediaFile) Length() int64 { return int64(len(f.data)) }

func (f *MediaFile) Path() string { return f.path }

func (f *MediaFile) IsCorrupt() bool { return f.corrupt }

// MarkCorrupt flags the file as corrupt; every subsequent read on it
// returns ErrCorrupt rather than attempting to interpret the bytes.
func (f *MediaFile) MarkCorrupt(reason string) {
	f.corrupt = true
	f.corruptReason = reason
}

// Buffer returns a read-only Buffer view over the whole file, for parsing.
func (f *MediaFile) Buffer() (*Buffer, error) {
	if f.corrupt {
		return nil, errors.Wrapf(ErrCorrupt, "%s", f.corruptReason)
	}
	return NewBuffer(f.data).ReadOnly(), nil
}

// ReadBlock reads n bytes starting at pos.
func (f *MediaFile) ReadBlock(pos int64, n int) ([]byte, error) {
	if f.corrupt {
		return nil, errors.Wrapf(ErrCorrupt, "%s", f.corruptReason)
	}
	if pos < 0 || n < 0 || pos+int64(n) > int64(len(f.data)) {
		return nil, errors.Wrapf(ErrTruncated, "read [%d:%d) out of bounds (len=%d)", pos, pos+int64(n), len(f.data))
	}
	return f.data[pos : pos+int64(n)], nil
}

// BeginWrite escalates the file to ModeReadWrite. It is an error to call
// Insert or Save while in any other mode.
func (f *MediaFile) BeginWrite() error {
	if f.mode == ModeClosed {
		return ErrClosed
	}
	f.mode = ModeReadWrite
	return nil
}

// Close restores ModeClosed. Further reads or writes fail until the file
// is reopened.
func (f *MediaFile) Close() {
	f.mode = ModeClosed
}

// Insert atomically splices b into the file at byte offset at, replacing
// replaceLen existing bytes there: bytes [at+replaceLen, end) shift by
// len(b)-replaceLen. It either fully replaces f.data or leaves it
// untouched on error, per spec §4.2's atomicity requirement.
func (f *MediaFile) Insert(b []byte, at int64, replaceLen int64) error {
	if f.mode != ModeReadWrite {
		return ErrNotWritable
	}
	if at < 0 || replaceLen < 0 || at+replaceLen > int64(len(f.data)) {
		return errors.Wrapf(ErrTruncated, "insert at [%d:%d) out of bounds (len=%d)", at, at+replaceLen, len(f.data))
	}
	out := make([]byte, 0, int64(len(f.data))-replaceLen+int64(len(b)))
	out = append(out, f.data[:at]...)
	out = append(out, b...)
	out = append(out, f.data[at+replaceLen:]...)
	f.data = out
	return nil
}

// Flush writes the in-memory content back to Path atomically (temp file +
// rename), the same idiom the example corpus's MP4 rewriters use so a
// crash mid-write never leaves a half-written file on disk.
func (f *MediaFile) Flush() error {
	if f.path == "" {
		return nil // memory-backed file: nothing to persist
	}
	tmp := f.path + ".tmp"
	fh, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrapf(err, "creating %s", tmp)
	}
	if _, err := fh.Write(f.data); err != nil {
		fh.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "writing %s", tmp)
	}
	if err := fh.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "closing %s", tmp)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "renaming %s to %s", tmp, f.path)
	}
	return nil
}

// Bytes returns the current in-memory content. Callers must not mutate the
// returned slice.
func (f *MediaFile) Bytes() []byte { return f.data }

// io.ReaderAt-shaped helper kept for callers that want stdlib-style access
// (e.g. a future streaming decoder); unused by this package's own parser,
// which reads the whole buffer via Buffer().
func (f *MediaFile) ReadAt(p []byte, off int64) (int, error) {
	if f.corrupt {
		return 0, errors.Wrapf(ErrCorrupt, "%s", f.corruptReason)
	}
	if off < 0 || off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
