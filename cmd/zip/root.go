package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"zipkit/internal/cli"
	"zipkit/internal/deflate"
	"zipkit/internal/model"
	"zipkit/internal/planner"
	"zipkit/internal/session"
	"zipkit/internal/writer"
	"zipkit/internal/zerr"
)

var version = "dev"

var (
	levelFlags  [10]bool
	method      string
	recursive   bool
	recurseAny  bool
	junkPaths   bool
	noDirs      bool
	storeSyms   bool
	moveAfter   bool
	setArcMTime bool
	stripExtra  bool
	noCompress  []string
	tempDir     string
	lfToCRLF    bool
	crlfToLF    bool
	update      bool
	freshen     bool
	filesync    bool
	deleteMode  bool
	copyMode    bool
	testAfter   bool
	testCommand string
	timeAfter   string
	timeBefore  string
	include     []string
	exclude     []string
	namesStdin  bool
	quiet       bool
)

func buildRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "zip archive.zip [file...]",
		Version: version,
		Short:   "Create and update zip archives",
		Long: `zip builds and updates PKZIP-format archives: add files, update
changed ones, freshen existing entries, delete by pattern, or copy an
archive's entries through unchanged.

The archive path is always the first operand; files and patterns
follow it. When no mode flag (-u, -f, -FS, -d, -U) is given, zip runs
in create mode: new entries are added and existing ones with the same
name are replaced.`,
		Args:          cobra.MinimumNArgs(1),
		RunE:          runZip,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	for i := 0; i <= 9; i++ {
		cmd.Flags().BoolVarP(&levelFlags[i], fmt.Sprintf("level%d", i), fmt.Sprintf("%d", i), false, fmt.Sprintf("compression level %d", i))
	}
	cmd.Flags().StringVarP(&method, "method", "Z", "", "compression method: store|deflate")
	cmd.Flags().BoolVarP(&recursive, "recurse", "r", false, "recurse into named directories")
	cmd.Flags().BoolVarP(&recurseAny, "recurse-anywhere", "R", false, "match patterns recursively from the current directory")
	cmd.Flags().BoolVarP(&junkPaths, "junk-paths", "j", false, "store just the file name, not its directory")
	cmd.Flags().BoolVarP(&noDirs, "no-dir-entries", "D", false, "do not add directory entries")
	cmd.Flags().BoolVarP(&storeSyms, "symlinks", "y", false, "store symbolic links as such")
	cmd.Flags().BoolVarP(&moveAfter, "move", "m", false, "delete source files after adding them")
	cmd.Flags().BoolVarP(&setArcMTime, "archive-mtime", "o", false, "set the archive's own mtime to that of the newest entry")
	cmd.Flags().BoolVarP(&stripExtra, "strip-extra", "X", false, "strip extra file attributes")
	cmd.Flags().StringSliceVarP(&noCompress, "no-compress-suffix", "n", nil, "suffixes to store rather than compress")
	cmd.Flags().StringVarP(&tempDir, "temp-dir", "b", "", "directory for the temporary file written before the atomic rename")
	cmd.Flags().BoolVarP(&lfToCRLF, "lf-to-crlf", "l", false, "translate LF to CRLF on add")
	cmd.Flags().BoolVar(&crlfToLF, "crlf-to-lf", false, "translate CRLF to LF on add (the doubled -ll flag)")
	cmd.Flags().BoolVarP(&update, "update", "u", false, "update: replace entries older than their filesystem source, add new ones")
	cmd.Flags().BoolVarP(&freshen, "freshen", "f", false, "freshen: replace entries older than their filesystem source, never add")
	cmd.Flags().BoolVar(&filesync, "FS", false, "filesync: make the archive's contents match the filesystem exactly")
	cmd.Flags().BoolVarP(&deleteMode, "delete", "d", false, "delete entries matching the given patterns")
	cmd.Flags().BoolVarP(&copyMode, "copy", "U", false, "copy entries through unchanged (optionally filtered by pattern)")
	cmd.Flags().BoolVarP(&testAfter, "test", "T", false, "accepted for compatibility; no test pass runs after writing")
	cmd.Flags().StringVar(&testCommand, "TT", "", "accepted for compatibility; the given test command is not run")
	cmd.Flags().StringVarP(&timeAfter, "time-after", "t", "", "only include sources modified after DATE (YYYY-MM-DD)")
	cmd.Flags().StringVar(&timeBefore, "tt", "", "only include sources modified before DATE (YYYY-MM-DD)")
	cmd.Flags().StringSliceVarP(&include, "include", "i", nil, "accepted for compatibility; the patterns do not filter which files are added")
	cmd.Flags().StringSliceVarP(&exclude, "exclude", "x", nil, "exclude names matching these patterns")
	cmd.Flags().BoolVarP(&namesStdin, "names-stdin", "@", false, "read operand names from standard input")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress per-entry progress lines")

	return cmd
}

func selectedLevel() int {
	for i := 9; i >= 0; i-- {
		if levelFlags[i] {
			return i
		}
	}
	return -1
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return nil, zerr.Wrap(zerr.Usage, s, err)
	}
	return &t, nil
}

func resolveMode() session.Mode {
	switch {
	case update:
		return session.ModeUpdate
	case freshen:
		return session.ModeFreshen
	case filesync:
		return session.ModeFilesync
	case deleteMode:
		return session.ModeDelete
	case copyMode:
		return session.ModeCopy
	default:
		return session.ModeCreate
	}
}

func readOperandsFromStdin() ([]string, error) {
	scanner := bufio.NewScanner(os.Stdin)
	var names []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			names = append(names, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.Wrap(zerr.IO, "<stdin>", err)
	}
	if len(names) == 0 {
		return nil, zerr.New(zerr.Usage, "-@ given but no names were read from standard input")
	}
	return names, nil
}

func runZip(cmd *cobra.Command, args []string) error {
	archivePath := args[0]
	operands := args[1:]

	if namesStdin {
		names, err := readOperandsFromStdin()
		if err != nil {
			return err
		}
		operands = append(operands, names...)
	}

	var methodFlag *uint16
	switch strings.ToLower(method) {
	case "":
	case "store":
		v := uint16(model.MethodStore)
		methodFlag = &v
	case "deflate":
		v := uint16(model.MethodDeflate)
		methodFlag = &v
	default:
		return zerr.Newf(zerr.Usage, "unknown -Z method %q", method)
	}

	after, err := parseDate(timeAfter)
	if err != nil {
		return err
	}
	before, err := parseDate(timeBefore)
	if err != nil {
		return err
	}

	lineMode := session.LineModeNone
	switch {
	case lfToCRLF:
		lineMode = session.LineModeLFToCRLF
	case crlfToLF:
		lineMode = session.LineModeCRLFToLF
	}

	cfg := session.DefaultConfig()
	cfg.ArchivePath = archivePath
	cfg.Mode = resolveMode()
	cfg.Level = selectedLevel()
	cfg.Method = methodFlag
	cfg.Recursive = recursive
	cfg.RecursiveAnywhere = recurseAny
	cfg.JunkPaths = junkPaths
	cfg.NoDirEntries = noDirs
	cfg.StoreSymlinks = storeSyms
	cfg.MoveAfterAdd = moveAfter
	cfg.SetArchiveMTime = setArcMTime
	cfg.StripExtra = stripExtra
	cfg.NoCompressSuffix = noCompress
	cfg.TempDir = tempDir
	cfg.LineMode = lineMode
	cfg.Include = include
	cfg.Exclude = exclude
	cfg.Quiet = quiet

	cfg, err = cli.LoadSessionConfig(cfg)
	if err != nil {
		return err
	}

	sess := session.New(cfg, slog.LevelWarn)
	defer cli.EmitWarnings(sess, "zip", cfg.Quiet)

	arc, closeExisting, err := cli.LoadForWrite(archivePath)
	if err != nil {
		return err
	}

	res, err := planner.Plan(arc, planner.Options{
		Mode:              cfg.Mode,
		Operands:          operands,
		Exclude:           cfg.Exclude,
		Recursive:         cfg.Recursive,
		RecursiveAnywhere: cfg.RecursiveAnywhere,
		JunkPaths:         cfg.JunkPaths,
		NoDirEntries:      cfg.NoDirEntries,
		StoreSymlinks:     cfg.StoreSymlinks,
		TimeAfter:         after,
		TimeBefore:        before,
		MatchCase:         cfg.MatchCase,
		Warn:              sess.Warn,
	})
	if err != nil {
		_ = closeExisting()
		return err
	}

	// The archive's own entries are already materialized in memory by
	// this point; the writer opens its own independent handle on
	// archivePath for any copy-through reads, so this reader's handle
	// is no longer needed once planning has produced res.Archive.
	if err := closeExisting(); err != nil {
		return err
	}

	if cfg.Mode == session.ModeDelete || cfg.Mode == session.ModeCopy {
		printPlanOnly(res.Plan)
	}

	level := deflate.DefaultLevel
	if cfg.Level >= 0 {
		level = cfg.Level
	}

	liveTotal := 0
	for _, e := range res.Archive.Entries {
		if e.Action != model.ActionDelete {
			liveTotal++
		}
	}
	prog := cli.StartProgress("zipping", liveTotal)
	defer prog.Stop()

	reports, err := writer.Write(res.Archive, archivePath, writer.Options{
		TempDir:          cfg.TempDir,
		NoCompressSuffix: cfg.NoCompressSuffix,
		Level:            level,
		ForceStore:       methodFlag != nil && *methodFlag == uint16(model.MethodStore),
		LineMode:         cfg.LineMode,
		StripExtra:       cfg.StripExtra,
		OnEntry:          prog.Advance,
		InputArchivePath: archivePath,
	})
	if err != nil {
		return err
	}

	if cfg.SetArchiveMTime {
		setArchiveMTime(sess, archivePath, res.Archive)
	}
	if cfg.MoveAfterAdd {
		removeAddedSources(sess, res.Archive)
	}

	if cfg.Mode != session.ModeDelete && cfg.Mode != session.ModeCopy {
		printWriteReports(reports)
	}

	return nil
}

// setArchiveMTime sets the archive file's own mtime to that of its
// newest live entry, the -o convenience that lets a build's output
// archive carry a meaningful timestamp instead of "now".
func setArchiveMTime(sess *session.Session, archivePath string, arc *model.Archive) {
	var newest time.Time
	for _, e := range arc.Entries {
		if e.Action == model.ActionDelete {
			continue
		}
		if t := e.ModTime(); t.After(newest) {
			newest = t
		}
	}
	if newest.IsZero() {
		return
	}
	if err := os.Chtimes(archivePath, time.Now(), newest); err != nil {
		sess.Warn(fmt.Sprintf("could not set archive mtime: %v", err))
	}
}

// removeAddedSources deletes each filesystem source that was
// successfully added or replaced this pass, the -m "move" behavior.
func removeAddedSources(sess *session.Session, arc *model.Archive) {
	for _, e := range arc.Entries {
		if e.Action != model.ActionAdd && e.Action != model.ActionReplace {
			continue
		}
		if e.Source.Kind != model.SourceFromDisk || e.IsDir() {
			continue
		}
		if err := os.Remove(e.Source.Path); err != nil {
			sess.Warn(fmt.Sprintf("could not remove %s after adding: %v", e.Source.Path, err))
		}
	}
}

// printPlanOnly reports delete/copy actions, which writer.Write never
// surfaces a Report for (copy-through entries print nothing per entry
// in create/update modes, and deletions never reach the writer's live
// entry list at all).
func printPlanOnly(plan []planner.PlanItem) {
	if quiet {
		return
	}
	for _, item := range plan {
		switch item.Action {
		case model.ActionDelete:
			fmt.Printf("%s %s\n", cli.PadLabel("deleting", 9), item.Entry.Name)
		case model.ActionCopyThrough:
			fmt.Printf("%s %s\n", cli.PadLabel("copying", 9), item.Entry.Name)
		}
	}
}

func printWriteReports(reports []writer.Report) {
	if quiet {
		return
	}
	for _, rep := range reports {
		label := actionLabel(rep.Action)
		if label == "" {
			continue
		}
		fmt.Printf("%s %s (%s %d%%)\n", cli.PadLabel(label, 9), rep.Name, methodWord(rep.Method), rep.Ratio)
	}
}

func actionLabel(a model.Action) string {
	switch a {
	case model.ActionAdd:
		return "adding"
	case model.ActionReplace:
		return "updating"
	default:
		return ""
	}
}

func methodWord(m model.Method) string {
	if m == model.MethodDeflate {
		return "deflated"
	}
	return "stored"
}
