package cli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"zipkit/internal/cli"
)

func TestPadLabelAlignsColonAcrossWidths(t *testing.T) {
	assert.Equal(t, "  adding:", cli.PadLabel("adding", 9))
	assert.Equal(t, "updating:", cli.PadLabel("updating", 9))
	assert.Equal(t, "deleting:", cli.PadLabel("deleting", 9))
	assert.Equal(t, "  inflating:", cli.PadLabel("inflating", 12))
}

func TestPadLabelLongerThanWidthIsNotTruncated(t *testing.T) {
	assert.Equal(t, "extracting:", cli.PadLabel("extracting", 9))
}

func TestStartProgressStopsCleanly(t *testing.T) {
	p := cli.StartProgress("testing", 3)
	p.Advance()
	p.Stop()
}
