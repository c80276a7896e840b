// Package cli holds the small pieces of front-end plumbing the three
// command binaries (zip, unzip, zipinfo) share: opening an archive
// that may or may not already exist, the Info-Zip-style label-padding
// convention for per-entry progress lines, and the config-file-then-
// flags layering the zip front end applies.
package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"zipkit/internal/config"
	"zipkit/internal/model"
	"zipkit/internal/progress"
	"zipkit/internal/reader"
	"zipkit/internal/session"
	"zipkit/internal/zerr"
)

// PadLabel left-pads label+":" with spaces until it is exactly width
// characters wide, reproducing the aligned-colon convention zip and
// unzip progress lines share ("  adding:", "updating:", "deleting:"
// all end their colon in the same column).
func PadLabel(label string, width int) string {
	full := label + ":"
	if len(full) >= width {
		return full
	}
	return strings.Repeat(" ", width-len(full)) + full
}

// OpenExisting opens path as an archive for reading, used by unzip and
// zipinfo, both of which require the archive to already exist.
func OpenExisting(path string) (*reader.Reader, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, zerr.Wrap(zerr.IO, path, err)
		}
		return nil, zerr.Wrap(zerr.IO, path, err)
	}
	return reader.Open(path)
}

// LoadForWrite opens path's existing entries for the zip front end, or
// returns a fresh empty archive if path does not yet exist. The
// returned close func is a no-op for a fresh archive.
func LoadForWrite(path string) (*model.Archive, func() error, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return model.New(), func() error { return nil }, nil
		}
		return nil, nil, zerr.Wrap(zerr.IO, path, err)
	}

	r, err := reader.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return r.Archive, r.Close, nil
}

// Progress reports how many of a known total entries have been
// processed for a long-running zip/unzip pass, printed to stderr
// every five seconds so a large recursive add or extract doesn't sit
// silent. Separate from the per-entry "adding:"/"inflating:" lines,
// which already fire once per file.
type Progress struct {
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
	label    string
	total    int
	done     int64 // atomic
}

// StartProgress begins reporting under label against a known total
// entry count; call Advance as each entry finishes and Stop when the
// operation completes.
func StartProgress(label string, total int) *Progress {
	p := &Progress{stopCh: make(chan struct{}), doneCh: make(chan struct{}), label: label, total: total}
	start := time.Now()
	ticker := time.NewTicker(5 * time.Second)

	go func() {
		defer close(p.doneCh)
		for {
			select {
			case <-ticker.C:
				progress.Emit(func(processed, total int) {
					fmt.Fprintf(os.Stderr, "%s: %d/%d, %s elapsed\n", p.label, processed, total, time.Since(start).Round(time.Second))
				}, int(atomic.LoadInt64(&p.done)), p.total)
			case <-p.stopCh:
				ticker.Stop()
				return
			}
		}
	}()

	return p
}

// Advance records that one more entry finished.
func (p *Progress) Advance() {
	atomic.AddInt64(&p.done, 1)
}

// Stop ends progress reporting and waits for its goroutine to exit.
func (p *Progress) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		<-p.doneCh
	})
}

// EmitWarnings prints each warning sess accumulated, once per
// deduplicated message, to stderr as "<prefix> warning: <msg>" — the
// teardown-time emission every front end performs unless quiet
// suppresses it.
func EmitWarnings(sess *session.Session, prefix string, quiet bool) {
	if quiet {
		return
	}
	for _, w := range sess.Warnings {
		fmt.Fprintf(os.Stderr, "%s warning: %s\n", prefix, w)
	}
}

// LoadSessionConfig applies zipkit.yaml (if present in the current
// directory) as defaults under cfg's explicit flag values, following
// config.ApplyDefaults' "flags win, file fills the rest" rule. Only
// the zip front end calls it; unzip and zipinfo do not read the file.
func LoadSessionConfig(cfg session.Config) (session.Config, error) {
	f, err := config.Load("zipkit.yaml")
	if err != nil {
		return cfg, err
	}
	return config.ApplyDefaults(cfg, f), nil
}
