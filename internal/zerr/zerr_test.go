package zerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"zipkit/internal/zerr"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"file exists", zerr.New(zerr.FileExists, "exists"), 2},
		{"unsupported option", zerr.New(zerr.UnsupportedOption, "-C"), 10},
		{"nothing to do", zerr.New(zerr.NothingToDo, "no match"), 12},
		{"usage", zerr.New(zerr.Usage, "bad flag"), 16},
		{"bare io error", errors.New("disk full"), 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, zerr.ExitCode(tc.err))
		})
	}
}

func TestCodeOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zerr.OK, zerr.CodeOf(nil))
	assert.Equal(t, zerr.BadCRC, zerr.CodeOf(zerr.New(zerr.BadCRC, "mismatch")))
	assert.Equal(t, zerr.IO, zerr.CodeOf(errors.New("plain")))
}

func TestWrapUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	wrapped := zerr.Wrap(zerr.IO, "/tmp/out.zip", cause)

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, zerr.IO, zerr.CodeOf(wrapped))
	assert.Contains(t, wrapped.Error(), "/tmp/out.zip")
}

func TestWrapNil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, zerr.Wrap(zerr.IO, "path", nil))
}
