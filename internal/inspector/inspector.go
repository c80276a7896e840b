// Package inspector renders an already-loaded archive's central
// directory in the zipinfo-style listing formats: a bare name list, a
// one-line-per-entry table at two levels of detail, and a verbose dump
// that adds the low-level fields a diagnostic session needs.
package inspector

import (
	"fmt"
	"io"

	"zipkit/internal/model"
)

// unixSymlinkMode mirrors the reader package's own check: the S_IFLNK
// bits as stored in the upper 16 bits of external file attributes.
const unixSymlinkMode = 0xA000

// Format selects one of the five listing layouts spec.md §4.7 names.
type Format int

const (
	// FormatLong is the default: one line per entry with permissions,
	// made-by version, size, type flag, method, and mtime.
	FormatLong Format = iota
	// FormatShort (-1) prints only the entry name.
	FormatShort
	// FormatNames behaves exactly like FormatShort; it exists as a
	// distinct value so a front end can tell "no flags given" apart
	// from an explicit -1 when deciding header/footer defaults.
	FormatNames
	// FormatMedium (-m) is FormatLong plus a per-entry compression ratio.
	FormatMedium
	// FormatVerbose (-v) is FormatLong plus an indented block of
	// low-level fields for every entry.
	FormatVerbose
)

// Options configures one Render call.
type Options struct {
	Format Format

	// DecimalTime switches the mtime column to YYMMDD.HHMMSS (-T).
	DecimalTime bool
	// ShowComment appends the archive comment after the footer (-z).
	ShowComment bool

	// ForceHeader and ForceFooter print the header/footer even for the
	// formats that omit them by default (FormatShort, FormatNames).
	ForceHeader bool
	ForceFooter bool

	// SkipEntries suppresses the per-entry lines entirely, for zipinfo's
	// -h (header only) and -t (totals only) modes; sizes are still
	// accumulated for the footer even when this is set.
	SkipEntries bool
}

func showsHeaderByDefault(f Format) bool {
	return f != FormatShort && f != FormatNames
}

// Render writes arc's listing to w in the layout opts.Format selects.
// archivePath and archiveSize are the values the header line reports;
// they are passed in rather than read from disk so Render never
// touches the filesystem itself.
func Render(w io.Writer, archivePath string, archiveSize int64, arc *model.Archive, opts Options) error {
	showHeader := opts.ForceHeader || showsHeaderByDefault(opts.Format)
	showFooter := opts.ForceFooter || showsHeaderByDefault(opts.Format)

	if showHeader {
		if _, err := fmt.Fprintf(w, "Archive:  %s   %d bytes   %d files\n", archivePath, archiveSize, arc.TotalEntries()); err != nil {
			return err
		}
	}

	var totalUncomp, totalComp uint64
	for _, e := range arc.Entries {
		if e.Action == model.ActionDelete {
			continue
		}
		totalUncomp += e.UncompSize
		totalComp += e.CompSize

		if opts.SkipEntries {
			continue
		}

		line, err := renderEntry(e, opts)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		if opts.Format == FormatVerbose {
			if err := renderVerboseDetail(w, e); err != nil {
				return err
			}
		}
	}

	if showFooter {
		ratio := overallRatio(totalUncomp, totalComp)
		if _, err := fmt.Fprintf(w, "%d files, %d bytes uncompressed, %d bytes compressed:  %d%%\n",
			arc.TotalEntries(), totalUncomp, totalComp, ratio); err != nil {
			return err
		}
	}

	if opts.ShowComment && len(arc.ArchiveComment) > 0 {
		if _, err := fmt.Fprintln(w, string(arc.ArchiveComment)); err != nil {
			return err
		}
	}

	return nil
}

func renderEntry(e *model.Entry, opts Options) (string, error) {
	switch opts.Format {
	case FormatShort, FormatNames:
		return e.Name, nil
	case FormatMedium:
		return fmt.Sprintf("%s  %s  %8d  %s  %3d%%  %s  %s  %s",
			permString(e), versionString(e.VersionMadeBy), e.UncompSize, typeFlag(e),
			entryRatio(e), methodAbbrev(e.Method), mtimeString(e, opts.DecimalTime), e.Name), nil
	case FormatLong, FormatVerbose:
		return fmt.Sprintf("%s  %s  %8d  %s  %s  %s  %s",
			permString(e), versionString(e.VersionMadeBy), e.UncompSize, typeFlag(e),
			methodAbbrev(e.Method), mtimeString(e, opts.DecimalTime), e.Name), nil
	default:
		return "", fmt.Errorf("inspector: unknown format %d", opts.Format)
	}
}

// renderVerboseDetail prints the extra indented block FormatVerbose
// adds under each entry's summary line: the fields a reader debugging
// a malformed archive needs that the one-line formats leave out.
func renderVerboseDetail(w io.Writer, e *model.Entry) error {
	_, err := fmt.Fprintf(w,
		"    version needed to extract: %s\n"+
			"    general purpose flag:      0x%04x\n"+
			"    compression method:        %d (%s)\n"+
			"    local header offset:       %d\n"+
			"    compressed size:           %d\n"+
			"    uncompressed size:         %d\n"+
			"    crc-32:                    0x%08x\n"+
			"    extra field length:        %d\n",
		versionString(e.VersionNeeded), e.Flags, int(e.Method), methodAbbrev(e.Method),
		e.LHOOffset, e.CompSize, e.UncompSize, e.CRC32, len(e.Extra))
	return err
}

func entryRatio(e *model.Entry) int {
	if e.UncompSize == 0 {
		return 0
	}
	return int(100 - (float64(e.CompSize)/float64(e.UncompSize))*100)
}

func overallRatio(uncomp, comp uint64) int {
	if uncomp == 0 {
		return 0
	}
	return int(100 - (float64(comp)/float64(uncomp))*100)
}

func versionString(v uint16) string {
	spec := v % 100
	return fmt.Sprintf("%d.%d", spec/10, spec%10)
}

func methodAbbrev(m model.Method) string {
	switch m {
	case model.MethodStore:
		return "stor"
	case model.MethodDeflate:
		return "defN"
	default:
		return fmt.Sprintf("u%03d", int(m))
	}
}

// typeFlag reports a single-character entry kind, the inspector's
// analogue of ls's leading type character: directory, symlink, or
// plain file.
func typeFlag(e *model.Entry) string {
	switch {
	case e.IsDir():
		return "d"
	case isSymlink(e):
		return "l"
	default:
		return "-"
	}
}

func isSymlink(e *model.Entry) bool {
	return (e.ExternalAttrs>>16)&0xF000 == unixSymlinkMode
}

// permString renders a unix-style permission string from the entry's
// external attributes. Archives with no unix mode recorded (the upper
// 16 bits are zero, as zip tools on non-unix hosts leave them) fall
// back to a conservative default inferred from the DOS read-only bit.
func permString(e *model.Entry) string {
	mode := (e.ExternalAttrs >> 16) & 0xFFFF
	if mode == 0 {
		if e.IsDir() {
			return "drwxr-xr-x"
		}
		if e.ExternalAttrs&0x01 != 0 {
			return "-r--r--r--"
		}
		return "-rw-r--r--"
	}

	leading := byte('-')
	switch mode & 0xF000 {
	case 0x4000:
		leading = 'd'
	case unixSymlinkMode:
		leading = 'l'
	}

	const rwx = "rwxrwxrwx"
	buf := make([]byte, 10)
	buf[0] = leading
	for i := 0; i < 9; i++ {
		if mode&(1<<uint(8-i)) != 0 {
			buf[i+1] = rwx[i]
		} else {
			buf[i+1] = '-'
		}
	}
	return string(buf)
}

func mtimeString(e *model.Entry, decimal bool) string {
	t := e.ModTime()
	if decimal {
		return t.Format("060102.150405")
	}
	return t.Format("06-01-02 15:04")
}
