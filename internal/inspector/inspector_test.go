package inspector_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zipkit/internal/inspector"
	"zipkit/internal/model"
)

func sampleArchive() *model.Archive {
	a := &model.Entry{
		Name:       "a.txt",
		Method:     model.MethodDeflate,
		CompSize:   40,
		UncompSize: 100,
	}
	a.SetModTime(time.Date(2026, time.July, 31, 14, 23, 0, 0, time.Local))

	dir := &model.Entry{Name: "dir/"}
	dir.SetModTime(time.Date(2026, time.July, 31, 14, 0, 0, 0, time.Local))

	return &model.Archive{Entries: []*model.Entry{a, dir}}
}

func TestRenderShortListsNamesOnlyNoHeader(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	err := inspector.Render(&buf, "test.zip", 1234, sampleArchive(), inspector.Options{Format: inspector.FormatShort})
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, "a.txt\ndir/\n", out)
}

func TestRenderShortWithForcedHeaderAndFooter(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	err := inspector.Render(&buf, "test.zip", 1234, sampleArchive(), inspector.Options{
		Format:      inspector.FormatShort,
		ForceHeader: true,
		ForceFooter: true,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Archive:  test.zip   1234 bytes   2 files", lines[0])
	assert.Equal(t, "a.txt", lines[1])
	assert.Equal(t, "dir/", lines[2])
	assert.Contains(t, lines[3], "2 files, 100 bytes uncompressed, 40 bytes compressed:")
}

func TestRenderLongIncludesHeaderAndFooterByDefault(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	err := inspector.Render(&buf, "test.zip", 1234, sampleArchive(), inspector.Options{Format: inspector.FormatLong})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Archive:  test.zip   1234 bytes   2 files\n"))
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "defN")
	assert.Contains(t, out, "26-07-31 14:23")
	assert.Contains(t, out, "files, 100 bytes uncompressed, 40 bytes compressed:  60%")
}

func TestRenderLongMarksDirectoryTypeFlag(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	err := inspector.Render(&buf, "test.zip", 1234, sampleArchive(), inspector.Options{Format: inspector.FormatLong})
	require.NoError(t, err)

	lines := strings.Split(buf.String(), "\n")
	var dirLine string
	for _, l := range lines {
		if strings.Contains(l, "dir/") {
			dirLine = l
		}
	}
	require.NotEmpty(t, dirLine)
	assert.True(t, strings.HasPrefix(dirLine, "drwxr-xr-x"))
}

func TestRenderMediumIncludesPerEntryRatio(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	err := inspector.Render(&buf, "test.zip", 1234, sampleArchive(), inspector.Options{Format: inspector.FormatMedium})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), " 60%")
}

func TestRenderVerboseAddsPerEntryDetailBlock(t *testing.T) {
	t.Parallel()

	arc := sampleArchive()
	arc.Entries[0].VersionNeeded = 20
	arc.Entries[0].CRC32 = 0xDEADBEEF

	var buf strings.Builder
	err := inspector.Render(&buf, "test.zip", 1234, arc, inspector.Options{Format: inspector.FormatVerbose})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "version needed to extract: 2.0")
	assert.Contains(t, out, "crc-32:                    0xdeadbeef")
}

func TestRenderDecimalTimeFormatsAsYYMMDDHHMMSS(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	err := inspector.Render(&buf, "test.zip", 1234, sampleArchive(), inspector.Options{
		Format:      inspector.FormatLong,
		DecimalTime: true,
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "260731.142300")
}

func TestRenderShowCommentAppendsArchiveComment(t *testing.T) {
	t.Parallel()

	arc := sampleArchive()
	arc.ArchiveComment = []byte("a note about this archive")

	var buf strings.Builder
	err := inspector.Render(&buf, "test.zip", 1234, arc, inspector.Options{
		Format:      inspector.FormatLong,
		ShowComment: true,
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "a note about this archive")
}

func TestRenderSkipsDeletedEntries(t *testing.T) {
	t.Parallel()

	arc := sampleArchive()
	arc.Entries[0].Action = model.ActionDelete

	var buf strings.Builder
	err := inspector.Render(&buf, "test.zip", 1234, arc, inspector.Options{Format: inspector.FormatShort})
	require.NoError(t, err)

	assert.Equal(t, "dir/\n", buf.String())
}
