package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"zipkit/internal/cli"
	"zipkit/internal/inspector"
	"zipkit/internal/reader"
	"zipkit/internal/session"
	"zipkit/internal/zerr"
)

var version = "dev"

var (
	listMode     bool
	testMode     bool
	showComment  bool
	pipeMode     bool
	exdir        string
	junkPaths    bool
	neverOver    bool
	alwaysOver   bool
	exclude      []string
	zipinfoMode  bool
	rejectedC    bool
	rejectedL    bool
	rejectedXopt bool

	ziShort       bool
	ziNames       bool
	ziMedium      bool
	ziVerbose     bool
	ziHeaderOnly  bool
	ziDecimalTime bool
)

func buildRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "unzip archive.zip [member...]",
		Version:       version,
		Short:         "Extract or inspect zip archives",
		Args:          cobra.MinimumNArgs(1),
		RunE:          runUnzip,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().BoolVarP(&listMode, "list", "l", false, "list archive contents instead of extracting")
	cmd.Flags().BoolVarP(&testMode, "test", "t", false, "test archive contents without writing to disk")
	cmd.Flags().BoolVarP(&showComment, "comment", "z", false, "show the archive comment")
	cmd.Flags().BoolVarP(&pipeMode, "pipe", "p", false, "extract to standard output")
	cmd.Flags().StringVarP(&exdir, "exdir", "d", "", "directory to extract into")
	cmd.Flags().BoolVarP(&junkPaths, "junk-paths", "j", false, "discard directory components on extraction")
	cmd.Flags().BoolVarP(&neverOver, "never-overwrite", "n", false, "never overwrite existing files")
	cmd.Flags().BoolVarP(&alwaysOver, "always-overwrite", "o", false, "always overwrite existing files")
	cmd.Flags().StringSliceVarP(&exclude, "exclude", "x", nil, "exclude names matching these patterns")
	cmd.Flags().BoolVarP(&zipinfoMode, "zipinfo", "Z", false, "switch to zipinfo-style listing")
	cmd.Flags().BoolVarP(&ziShort, "zi-short", "1", false, "with -Z, one name per line, no header or footer")
	cmd.Flags().BoolVarP(&ziNames, "zi-names", "2", false, "with -Z, one name per line, header suppressed")
	cmd.Flags().BoolVarP(&ziMedium, "zi-medium", "m", false, "with -Z, one line per entry with a compression ratio")
	cmd.Flags().BoolVarP(&ziVerbose, "zi-verbose", "v", false, "with -Z, one line per entry plus a detail block")
	cmd.Flags().BoolVarP(&ziHeaderOnly, "zi-header-only", "h", false, "with -Z, print only the archive header line")
	cmd.Flags().BoolVarP(&ziDecimalTime, "zi-decimal-time", "T", false, "with -Z, print entry times as YYMMDD.HHMMSS")
	cmd.Flags().BoolVarP(&rejectedC, "C", "C", false, "")
	cmd.Flags().BoolVarP(&rejectedL, "L", "L", false, "")
	cmd.Flags().BoolVarP(&rejectedXopt, "X", "X", false, "")
	_ = cmd.Flags().MarkHidden("C")
	_ = cmd.Flags().MarkHidden("L")
	_ = cmd.Flags().MarkHidden("X")

	return cmd
}

func rejectUnsupported(cmd *cobra.Command) error {
	for _, name := range []string{"C", "L", "X"} {
		if cmd.Flags().Changed(name) {
			return zerr.Newf(zerr.UnsupportedOption, "-%s is not supported", name)
		}
	}
	return nil
}

// zipinfoFormat maps unzip -Z's modifier flags to the listing format,
// defaulting to the short name-only list (-Z with no modifier behaves
// like zipinfo -1 for a quick member check).
func zipinfoFormat() inspector.Format {
	switch {
	case ziMedium:
		return inspector.FormatMedium
	case ziVerbose:
		return inspector.FormatVerbose
	case ziNames:
		return inspector.FormatNames
	default:
		return inspector.FormatShort
	}
}

// zipinfoFormatConflict reports whether more than one -Z modifier
// flag was given, so the caller can warn that only the most specific
// one wins instead of silently dropping the rest.
func zipinfoFormatConflict(cmd *cobra.Command) bool {
	changed := 0
	for _, name := range []string{"zi-names", "zi-medium", "zi-verbose"} {
		if cmd.Flags().Changed(name) {
			changed++
		}
	}
	return changed > 1
}

func resolveOverwrite() session.Overwrite {
	switch {
	case neverOver:
		return session.OverwriteNever
	case alwaysOver:
		return session.OverwriteAlways
	default:
		return session.OverwritePrompt
	}
}

func runUnzip(cmd *cobra.Command, args []string) error {
	if err := rejectUnsupported(cmd); err != nil {
		return err
	}

	archivePath := args[0]
	members := args[1:]

	sess := session.New(session.DefaultConfig(), slog.LevelWarn)
	defer cli.EmitWarnings(sess, "unzip", false)

	r, err := cli.OpenExisting(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	switch {
	case zipinfoMode:
		if zipinfoFormatConflict(cmd) {
			sess.Warn("multiple -Z listing-format flags given; using the most specific")
		}
		opts := inspector.Options{
			Format:      zipinfoFormat(),
			DecimalTime: ziDecimalTime,
			ShowComment: showComment,
		}
		if ziHeaderOnly {
			opts.Format = inspector.FormatNames
			opts.ForceHeader = true
			opts.SkipEntries = true
		}
		return inspector.Render(os.Stdout, archivePath, archiveSize(archivePath), r.Archive, opts)
	case listMode:
		return inspector.Render(os.Stdout, archivePath, archiveSize(archivePath), r.Archive, inspector.Options{
			Format:      inspector.FormatLong,
			ShowComment: showComment,
		})
	case testMode:
		return runTest(r, archivePath)
	case pipeMode:
		return r.Pipe(os.Stdout, members)
	default:
		return runExtract(sess, r, members)
	}
}

func runTest(r *reader.Reader, archivePath string) error {
	fmt.Printf("Archive:  %s\n", archivePath)
	res := r.Test()
	for _, f := range res.Failures {
		fmt.Printf("%s %s\n", cli.PadLabel("bad", 12), f)
	}
	if len(res.Failures) == 0 {
		fmt.Printf("No errors detected in compressed data of %s.\n", archivePath)
		return nil
	}
	return zerr.Newf(zerr.BadCRC, "%d of %d entries failed verification", len(res.Failures), res.Tested)
}

func runExtract(sess *session.Session, r *reader.Reader, members []string) error {
	prog := cli.StartProgress("extracting", len(r.Archive.Entries))
	defer prog.Stop()

	_, err := r.Extract(reader.ExtractOptions{
		TargetDir: exdir,
		Overwrite: resolveOverwrite(),
		JunkPaths: junkPaths,
		Include:   members,
		Exclude:   exclude,
		MatchCase: true,
		OnReport: func(rep reader.Report) {
			prog.Advance()
			if rep.Action == reader.ActionSkipping {
				sess.Warn(fmt.Sprintf("%s already exists; skipping", rep.Name))
				return
			}
			fmt.Printf("%s %s\n", cli.PadLabel(string(rep.Action), 12), rep.Name)
		},
	})
	return err
}

func archiveSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
