package reader_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zipkit/internal/model"
	"zipkit/internal/reader"
	"zipkit/internal/session"
	"zipkit/internal/writer"
	"zipkit/internal/zerr"
)

func memEntry(name string, content []byte) *model.Entry {
	return &model.Entry{
		Name:   name,
		Origin: model.OriginNew,
		Action: model.ActionAdd,
		Source: model.Source{Kind: model.SourceFromMemory, Bytes: content},
	}
}

func buildArchive(t *testing.T, entries ...*model.Entry) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "fixture.zip")
	_, err := writer.Write(&model.Archive{Entries: entries}, out, writer.Options{Level: -1})
	require.NoError(t, err)
	return out
}

func repeatedText() []byte {
	var buf bytes.Buffer
	for i := 0; i < 200; i++ {
		buf.WriteString("the quick brown fox jumps over the lazy dog\n")
	}
	return buf.Bytes()
}

func TestOpenLoadsEntriesInOrder(t *testing.T) {
	t.Parallel()

	path := buildArchive(t, memEntry("a.txt", []byte("hello")), memEntry("b.bin", []byte{1, 2, 3}))

	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	require.Len(t, r.Archive.Entries, 2)
	assert.Equal(t, "a.txt", r.Archive.Entries[0].Name)
	assert.Equal(t, "b.bin", r.Archive.Entries[1].Name)
}

func TestInflateReturnsOriginalBytes(t *testing.T) {
	t.Parallel()

	content := repeatedText()
	path := buildArchive(t, memEntry("a.txt", content))

	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Inflate(r.Archive.Entries[0])
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestInflateDetectsCorruption(t *testing.T) {
	t.Parallel()

	path := buildArchive(t, memEntry("b.bin", []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	idx := bytes.LastIndex(raw, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02})
	require.GreaterOrEqual(t, idx, 0)
	raw[idx] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Inflate(r.Archive.Entries[0])
	assert.Equal(t, zerr.BadCRC, zerr.CodeOf(err))
}

func TestExtractWritesFilesAndDirectories(t *testing.T) {
	t.Parallel()

	path := buildArchive(t, memEntry("dir/", nil), memEntry("dir/a.txt", []byte("hi")))
	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	dest := t.TempDir()
	reports, err := r.Extract(reader.ExtractOptions{TargetDir: dest, MatchCase: true})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	got, err := os.ReadFile(filepath.Join(dest, "dir", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))

	info, err := os.Stat(filepath.Join(dest, "dir"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestExtractOverwriteNeverSkipsExisting(t *testing.T) {
	t.Parallel()

	path := buildArchive(t, memEntry("a.txt", []byte("new content")))
	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "a.txt"), []byte("original"), 0o644))

	reports, err := r.Extract(reader.ExtractOptions{
		TargetDir: dest,
		Overwrite: session.OverwriteNever,
		MatchCase: true,
	})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, reader.ActionSkipping, reports[0].Action)

	got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(got), "never-overwrite must leave the existing file untouched")
}

func TestExtractPromptNonInteractiveFailsWithFileExists(t *testing.T) {
	t.Parallel()

	path := buildArchive(t, memEntry("a.txt", repeatedText()))
	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "a.txt"), []byte("original"), 0o644))

	reports, err := r.Extract(reader.ExtractOptions{TargetDir: dest, MatchCase: true})
	require.Error(t, err)
	assert.Equal(t, zerr.FileExists, zerr.CodeOf(err))
	assert.Equal(t, 2, zerr.ExitCode(err))
	require.Len(t, reports, 1, "the attempted entry is still reported before the collision aborts extraction")
	assert.Equal(t, reader.ActionInflating, reports[0].Action)
}

func TestExtractOverwriteAlwaysReplacesExisting(t *testing.T) {
	t.Parallel()

	path := buildArchive(t, memEntry("a.txt", []byte("new content")))
	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "a.txt"), []byte("original"), 0o644))

	_, err = r.Extract(reader.ExtractOptions{
		TargetDir: dest,
		Overwrite: session.OverwriteAlways,
		MatchCase: true,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new content", string(got))
}

func TestExtractJunkPathsDropsDirectoryComponents(t *testing.T) {
	t.Parallel()

	path := buildArchive(t, memEntry("dir/sub/a.txt", []byte("x")))
	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	dest := t.TempDir()
	_, err = r.Extract(reader.ExtractOptions{TargetDir: dest, JunkPaths: true, MatchCase: true})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dest, "a.txt"))
	assert.NoError(t, statErr)
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	t.Parallel()

	path := buildArchive(t, memEntry("../escape.txt", []byte("evil")))
	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	dest := t.TempDir()
	_, err = r.Extract(reader.ExtractOptions{TargetDir: dest, MatchCase: true})
	require.Error(t, err)
	assert.Equal(t, zerr.NameUnsafe, zerr.CodeOf(err))

	_, statErr := os.Stat(filepath.Join(filepath.Dir(dest), "escape.txt"))
	assert.True(t, os.IsNotExist(statErr), "a path-traversal entry must never be written outside the target directory")
}

func TestPipeWritesMatchingEntriesToWriter(t *testing.T) {
	t.Parallel()

	path := buildArchive(t, memEntry("a.txt", []byte("hello ")), memEntry("b.txt", []byte("world")))
	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	var buf bytes.Buffer
	require.NoError(t, r.Pipe(&buf, nil))
	assert.Equal(t, "hello world", buf.String())
}

func TestPipeFiltersByName(t *testing.T) {
	t.Parallel()

	path := buildArchive(t, memEntry("a.txt", []byte("hello ")), memEntry("b.txt", []byte("world")))
	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	var buf bytes.Buffer
	require.NoError(t, r.Pipe(&buf, []string{"b.txt"}))
	assert.Equal(t, "world", buf.String())
}

func TestTestModeReportsAllEntriesOK(t *testing.T) {
	t.Parallel()

	path := buildArchive(t, memEntry("a.txt", []byte("hello")), memEntry("b.bin", repeatedText()))
	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	res := r.Test()
	assert.Equal(t, 2, res.Tested)
	assert.Equal(t, 2, res.OK)
	assert.Empty(t, res.Failures)
}
