// Package session splits the engine's former god-object context into
// three explicit pieces: an immutable Config built once from CLI
// parsing, a mutable Session holding the shared logger and
// accumulated warnings, and the model.Archive the Session operates on.
package session

import (
	"log/slog"
	"os"
)

// LineMode selects the writer's text translation pass, applied before
// CRC and compression.
type LineMode int

const (
	LineModeNone LineMode = iota
	LineModeLFToCRLF
	LineModeCRLFToLF
)

// Mode selects the planner's state machine, one per zip/unzip verb.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
	ModeFreshen
	ModeFilesync
	ModeDelete
	ModeCopy
)

// Overwrite selects the extractor's collision policy.
type Overwrite int

const (
	OverwritePrompt Overwrite = iota
	OverwriteNever
	OverwriteAlways
)

// Config is the immutable set of options built once from CLI parsing
// (or programmatic construction in tests) and never mutated once a
// Session starts using it.
type Config struct {
	ArchivePath string

	Mode Mode

	Level             int // -1 (unset, use DefaultLevel) or 0-9
	Method            *uint16
	Recursive         bool // -r
	RecursiveAnywhere bool // -R
	JunkPaths         bool // -j
	NoDirEntries      bool // -D
	StoreSymlinks     bool // -y
	MoveAfterAdd      bool // -m
	SetArchiveMTime   bool // -o (zip's archive-mtime flag, distinct from extractor's overwrite -o)
	StripExtra        bool // -X
	NoCompressSuffix  []string
	TempDir           string
	LineMode          LineMode

	Include []string
	Exclude []string

	TimeAfter  *int64 // unix seconds, -t
	TimeBefore *int64 // unix seconds, -tt

	MatchCase bool

	ReadNamesFromStdin bool // -@
	Quiet              bool // -q

	// Extractor-only fields.
	TargetDir    string
	Overwrite    Overwrite
	Pipe         bool // -p
	TestOnly     bool // -t (unzip)
	ShowComment  bool // -z
	Interactive  bool

	// Inspector-only fields.
	DecimalTime bool // -T
	ForceHeader bool
	ForceFooter bool
}

// DefaultConfig returns a Config with the engine's baseline defaults:
// create mode, codec-default level, case-sensitive matching,
// interactive prompting.
func DefaultConfig() Config {
	return Config{
		Mode:        ModeCreate,
		Level:       -1,
		MatchCase:   true,
		Overwrite:   OverwritePrompt,
		Interactive: true,
	}
}

// Session holds everything that changes while one archive operation
// runs: the warning log (deduplicated per message) and the shared
// structured logger every package writes through.
type Session struct {
	Config Config
	Logger *slog.Logger

	warningsSeen map[string]bool
	Warnings     []string
}

// New returns a Session bound to cfg, logging at the given level to
// stderr in a compact text format (the ambient logging convention
// every front end shares).
func New(cfg Config, level slog.Level) *Session {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return &Session{
		Config:       cfg,
		Logger:       logger,
		warningsSeen: make(map[string]bool),
	}
}

// Warn records msg at most once per session, per the "a warning seen
// once per session is printed at most once" deduplication rule, and
// logs it at debug level regardless of whether it was a duplicate.
func (s *Session) Warn(msg string) {
	s.Logger.Debug("warning", "msg", msg)
	if s.warningsSeen[msg] {
		return
	}
	s.warningsSeen[msg] = true
	s.Warnings = append(s.Warnings, msg)
}
