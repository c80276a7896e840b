package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"zipkit/internal/cli"
	"zipkit/internal/inspector"
	"zipkit/internal/session"
)

var version = "dev"

var (
	shortMode   bool
	twoColumn   bool
	mediumMode  bool
	verboseMode bool
	headerOnly  bool
	decimalTime bool
	totalsOnly  bool
	pagerMode   bool
	showComment bool
)

func buildRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "zipinfo archive.zip",
		Version:       version,
		Short:         "List the contents of a zip archive",
		Args:          cobra.ExactArgs(1),
		RunE:          runZipinfo,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().BoolVarP(&shortMode, "short", "1", false, "one name per line, no header or footer")
	cmd.Flags().BoolVarP(&twoColumn, "names", "2", false, "one name per line, header suppressed, footer on request")
	cmd.Flags().BoolVarP(&mediumMode, "medium", "m", false, "one line per entry with a compression ratio")
	cmd.Flags().BoolVarP(&verboseMode, "verbose", "v", false, "one line per entry plus a detail block")
	cmd.Flags().BoolVarP(&headerOnly, "header-only", "h", false, "print only the archive header line")
	cmd.Flags().BoolVarP(&decimalTime, "decimal-time", "T", false, "print entry times as YYMMDD.HHMMSS")
	cmd.Flags().BoolVarP(&totalsOnly, "totals-only", "t", false, "print only the summary footer line")
	cmd.Flags().BoolVarP(&pagerMode, "pager", "M", false, "page output through a pager (no-op here)")
	cmd.Flags().BoolVarP(&showComment, "comment", "z", false, "append the archive comment")

	return cmd
}

func selectedFormat() inspector.Format {
	switch {
	case shortMode:
		return inspector.FormatShort
	case twoColumn:
		return inspector.FormatNames
	case mediumMode:
		return inspector.FormatMedium
	case verboseMode:
		return inspector.FormatVerbose
	default:
		return inspector.FormatLong
	}
}

// formatFlagConflict reports whether more than one listing-format flag
// was given, so the caller can warn that only the most specific one
// actually takes effect.
func formatFlagConflict(cmd *cobra.Command) bool {
	changed := 0
	for _, name := range []string{"short", "names", "medium", "verbose"} {
		if cmd.Flags().Changed(name) {
			changed++
		}
	}
	return changed > 1
}

func runZipinfo(cmd *cobra.Command, args []string) error {
	archivePath := args[0]

	sess := session.New(session.DefaultConfig(), slog.LevelWarn)
	defer cli.EmitWarnings(sess, "zipinfo", false)

	if formatFlagConflict(cmd) {
		sess.Warn("multiple listing-format flags given; using the most specific")
	}

	r, err := cli.OpenExisting(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	opts := inspector.Options{
		Format:      selectedFormat(),
		DecimalTime: decimalTime,
		ShowComment: showComment,
	}

	switch {
	case headerOnly:
		opts.Format = inspector.FormatNames
		opts.ForceHeader = true
		opts.SkipEntries = true
	case totalsOnly:
		opts.Format = inspector.FormatNames
		opts.ForceFooter = true
		opts.SkipEntries = true
	}

	return inspector.Render(os.Stdout, archivePath, archiveSize(archivePath), r.Archive, opts)
}

func archiveSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
