package mp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenreNameFromID3Index(t *testing.T) {
	assert.Equal(t, "", genreNameFromID3Index(0))
	assert.Equal(t, "Blues", genreNameFromID3Index(1))
	assert.Equal(t, "", genreNameFromID3Index(uint16(len(id3v1Genres)+1)))
}
