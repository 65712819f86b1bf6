package mp4

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorruptErrorIsAndUnwrap(t *testing.T) {
	cause := ErrTruncated
	err := &corruptError{reason: "bad offset", cause: cause}

	assert.True(t, errors.Is(err, ErrCorrupt))
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "bad offset")
}

func TestCorruptErrorWithoutCause(t *testing.T) {
	err := &corruptError{reason: "panic during parse: index out of range"}
	assert.Nil(t, err.Unwrap())
	assert.Contains(t, err.Error(), "panic during parse")
}

func panicDuringDecode() (err error) {
	f := NewMemoryFile([]byte("x"))
	defer recoverToCorrupt(f, &err)
	var b []byte
	_ = b[5] // deliberate out-of-range access, mimics a malformed decode path
	return nil
}

func TestRecoverToCorruptConvertsPanic(t *testing.T) {
	err := panicDuringDecode()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestRecoverToCorruptMarksMediaFileCorrupt(t *testing.T) {
	f := NewMemoryFile([]byte("x"))
	func() (err error) {
		defer recoverToCorrupt(f, &err)
		panic("simulated decode fault")
	}()
	assert.True(t, f.IsCorrupt())

	_, err := f.Buffer()
	assert.ErrorIs(t, err, ErrCorrupt)
}
