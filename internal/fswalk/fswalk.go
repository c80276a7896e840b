// Package fswalk collects filesystem entries for glob expansion during
// archive planning. It walks a directory tree once and returns every
// file and directory found, relative to the walk root, for the
// planner to match against include/exclude patterns.
package fswalk

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Entry describes one filesystem object discovered during a walk.
type Entry struct {
	// Path is the filesystem path as walked: root joined with the
	// entry's relative path, absolute only when root is.
	Path string
	// RelPath is Path relative to the walk root, using forward
	// slashes regardless of platform, with a trailing slash for
	// directories.
	RelPath string
	// Dir reports whether this entry is a directory.
	Dir bool
	// Size is the size in bytes the filesystem reports, for
	// directories as well as files.
	Size int64
	// ModTime is the entry's last modification time.
	ModTime time.Time
	// Mode carries the entry's permission and type bits.
	Mode fs.FileMode
}

// Options configures a walk.
type Options struct {
	// SkipDirs lists directory base names pruned entirely from the
	// walk (their contents are never visited).
	SkipDirs []string
}

// Walk walks the directory tree rooted at root and returns every file
// and directory found, including root's immediate children but not
// root itself. Entries are returned in directory order (parents
// before children, siblings in lexical order).
func Walk(root string, opts Options) ([]Entry, error) {
	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		skip[d] = true
	}

	var entries []Entry

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		if info.IsDir() && skip[info.Name()] {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			rel += "/"
		}

		entries = append(entries, Entry{
			Path:    path,
			RelPath: rel,
			Dir:     info.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// WalkFiles is a convenience wrapper around [Walk] that filters out
// directory entries, returning only regular files.
func WalkFiles(root string, opts Options) ([]Entry, error) {
	all, err := Walk(root, opts)
	if err != nil {
		return nil, err
	}

	files := make([]Entry, 0, len(all))
	for _, e := range all {
		if !e.Dir {
			files = append(files, e)
		}
	}

	return files, nil
}
