package planner_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zipkit/internal/model"
	"zipkit/internal/planner"
	"zipkit/internal/session"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestPlanCreateAddsNewFiles(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "a.txt", "hello")
	chdir(t, tmp)

	res, err := planner.Plan(model.New(), planner.Options{
		Mode:      session.ModeCreate,
		Operands:  []string{"a.txt"},
		MatchCase: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Plan, 1)
	assert.Equal(t, model.ActionAdd, res.Plan[0].Action)
	assert.Equal(t, "a.txt", res.Plan[0].Entry.Name)
}

func TestPlanUpdateSkipsUnchanged(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "a.txt", "hello")
	chdir(t, tmp)

	info, err := os.Stat(path)
	require.NoError(t, err)

	existing := model.New()
	existing.Entries = []*model.Entry{
		{Name: "a.txt", Origin: model.OriginExisting},
	}
	existing.Entries[0].SetModTime(info.ModTime())

	_, err = planner.Plan(existing, planner.Options{
		Mode:      session.ModeUpdate,
		Operands:  []string{"a.txt"},
		MatchCase: true,
	})
	assert.Error(t, err, "unchanged source under -u must report nothing to do")
}

func TestPlanUpdateReplacesNewer(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "a.txt", "hello")
	chdir(t, tmp)

	old := time.Now().Add(-time.Hour)
	existing := model.New()
	existing.Entries = []*model.Entry{{Name: "a.txt", Origin: model.OriginExisting}}
	existing.Entries[0].SetModTime(old)

	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	res, err := planner.Plan(existing, planner.Options{
		Mode:      session.ModeUpdate,
		Operands:  []string{"a.txt"},
		MatchCase: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Plan, 1)
	assert.Equal(t, model.ActionReplace, res.Plan[0].Action)
}

func TestPlanFreshenNeverAdds(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "new.txt", "content")
	chdir(t, tmp)

	res, err := planner.Plan(model.New(), planner.Options{
		Mode:      session.ModeFreshen,
		Operands:  []string{"new.txt"},
		MatchCase: true,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Plan, "freshen must never add entries missing from the archive")
}

func TestPlanFilesyncDeletesMissing(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "a.txt", "hello")
	chdir(t, tmp)

	existing := model.New()
	existing.Entries = []*model.Entry{
		{Name: "a.txt", Origin: model.OriginExisting},
		{Name: "gone.txt", Origin: model.OriginExisting},
	}

	res, err := planner.Plan(existing, planner.Options{
		Mode:      session.ModeFilesync,
		Operands:  []string{"a.txt"},
		MatchCase: true,
	})
	require.NoError(t, err)

	var sawDelete bool
	for _, item := range res.Plan {
		if item.Entry.Name == "gone.txt" {
			assert.Equal(t, model.ActionDelete, item.Action)
			sawDelete = true
		}
	}
	assert.True(t, sawDelete, "filesync must mark entries with no surviving filesystem source for deletion")
}

func TestPlanDeleteByGlob(t *testing.T) {
	existing := model.New()
	existing.Entries = []*model.Entry{
		{Name: "a.txt", Origin: model.OriginExisting},
		{Name: "dir/c.txt", Origin: model.OriginExisting},
	}

	res, err := planner.Plan(existing, planner.Options{
		Mode:      session.ModeDelete,
		Operands:  []string{"dir/*"},
		MatchCase: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Plan, 1)
	assert.Equal(t, "dir/c.txt", res.Plan[0].Entry.Name)
	assert.Equal(t, model.ActionDelete, res.Plan[0].Action)
}

func TestPlanCopyAllWhenNoOperands(t *testing.T) {
	existing := model.New()
	existing.Entries = []*model.Entry{
		{Name: "a.txt", Origin: model.OriginExisting},
		{Name: "b.txt", Origin: model.OriginExisting},
	}

	res, err := planner.Plan(existing, planner.Options{Mode: session.ModeCopy, MatchCase: true})
	require.NoError(t, err)
	assert.Len(t, res.Plan, 2)
	for _, item := range res.Plan {
		assert.Equal(t, model.ActionCopyThrough, item.Action)
	}
}

func TestPlanRecursiveRequiresFlagForDirectories(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "dir/c.txt", "x")
	chdir(t, tmp)

	_, err := planner.Plan(model.New(), planner.Options{
		Mode:      session.ModeCreate,
		Operands:  []string{"dir"},
		MatchCase: true,
	})
	assert.Error(t, err)
}

func TestPlanRecursiveAddsWholeDirectory(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "dir/c.txt", "x")
	writeFile(t, tmp, "dir/sub/d.txt", "y")
	chdir(t, tmp)

	res, err := planner.Plan(model.New(), planner.Options{
		Mode:      session.ModeCreate,
		Operands:  []string{"dir"},
		Recursive: true,
		MatchCase: true,
	})
	require.NoError(t, err)

	var names []string
	for _, item := range res.Plan {
		names = append(names, item.Entry.Name)
	}
	assert.Contains(t, names, "dir/c.txt")
	assert.Contains(t, names, "dir/sub/d.txt")
}

func TestPlanRecursiveAddsDirectoryEntriesIncludingEmpty(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "dir/b.txt", "x")
	writeFile(t, tmp, "dir/sub/c.dat", "y")
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "dir", "deep"), 0o755))
	chdir(t, tmp)

	res, err := planner.Plan(model.New(), planner.Options{
		Mode:      session.ModeCreate,
		Operands:  []string{"dir"},
		Recursive: true,
		MatchCase: true,
	})
	require.NoError(t, err)

	var names []string
	for _, item := range res.Plan {
		names = append(names, item.Entry.Name)
	}
	assert.Contains(t, names, "dir/")
	assert.Contains(t, names, "dir/sub/")
	assert.Contains(t, names, "dir/deep/")

	for _, item := range res.Plan {
		if item.Entry.Name == "dir/deep/" {
			assert.True(t, item.Entry.IsDir())
		}
	}
}

func TestPlanNoDirEntriesDropsDirectories(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "dir/c.txt", "x")
	chdir(t, tmp)

	res, err := planner.Plan(model.New(), planner.Options{
		Mode:         session.ModeCreate,
		Operands:     []string{"dir"},
		Recursive:    true,
		NoDirEntries: true,
		MatchCase:    true,
	})
	require.NoError(t, err)

	for _, item := range res.Plan {
		assert.False(t, item.Entry.IsDir())
	}
}

func TestPlanJunkPathsUsesBasename(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "dir/c.txt", "x")
	chdir(t, tmp)

	res, err := planner.Plan(model.New(), planner.Options{
		Mode:      session.ModeCreate,
		Operands:  []string{"dir"},
		Recursive: true,
		JunkPaths: true,
		MatchCase: true,
	})
	require.NoError(t, err)

	require.Len(t, res.Plan, 1)
	assert.Equal(t, "c.txt", res.Plan[0].Entry.Name)
}

func TestPlanExcludeFilter(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "keep.txt", "x")
	writeFile(t, tmp, "skip.log", "y")
	chdir(t, tmp)

	res, err := planner.Plan(model.New(), planner.Options{
		Mode:      session.ModeCreate,
		Operands:  []string{"keep.txt", "skip.log"},
		Exclude:   []string{"*.log"},
		MatchCase: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Plan, 1)
	assert.Equal(t, "keep.txt", res.Plan[0].Entry.Name)
}
