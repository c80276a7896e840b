package checksum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"zipkit/internal/checksum"
)

func TestOfMatchesKnownVector(t *testing.T) {
	t.Parallel()
	// "hello\nworld\n" CRC-32/IEEE, verified against the stdlib implementation.
	assert.Equal(t, uint32(0xC4C55DFF), checksum.Of([]byte("hello\nworld\n")))
}

func TestDigestStreamingMatchesOneShot(t *testing.T) {
	t.Parallel()

	data := []byte("the quick brown fox jumps over the lazy dog")

	d := checksum.New()
	_, _ = d.Write(data[:10])
	_, _ = d.Write(data[10:])

	assert.Equal(t, checksum.Of(data), d.Sum32())
}

func TestDigestReset(t *testing.T) {
	t.Parallel()

	d := checksum.New()
	_, _ = d.Write([]byte("abc"))
	assert.NotZero(t, d.Sum32())

	d.Reset()
	assert.Equal(t, uint32(0), d.Sum32())
}

func TestDigestEmpty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, uint32(0), checksum.New().Sum32())
}
