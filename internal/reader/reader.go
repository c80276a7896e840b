// Package reader loads an archive's central directory into a
// model.Archive, then extracts, pipes, or tests entries on demand,
// re-reading each entry's local file header lazily at the moment its
// payload is needed rather than up front.
package reader

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"zipkit/internal/byteio"
	"zipkit/internal/checksum"
	"zipkit/internal/deflate"
	"zipkit/internal/glob"
	"zipkit/internal/model"
	"zipkit/internal/pathsafe"
	"zipkit/internal/record"
	"zipkit/internal/session"
	"zipkit/internal/zerr"
)

// unixSymlinkMode is the S_IFLNK bit of a unix mode, as stored in the
// upper 16 bits of an entry's external file attributes by archivers
// that set the "made by" host to unix.
const unixSymlinkMode = 0xA000

// Reader holds an open archive handle and its materialized entry
// table. The underlying file stays open for the Reader's lifetime
// since extraction re-reads each entry's LFH lazily.
type Reader struct {
	file    *byteio.Reader
	Archive *model.Archive
}

// Open locates path's EOCD, decodes its central directory into a
// model.Archive, and validates the result's invariants. The entries'
// Source is tagged SourceFromArchive so a subsequent writer pass can
// copy them through without re-reading this Reader.
func Open(path string) (*Reader, error) {
	f, err := byteio.OpenInput(path)
	if err != nil {
		return nil, err
	}

	size, err := f.Size()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	loc, err := record.Find(fileReaderAt{f}, size)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	cdBuf, err := readSection(f, int64(loc.CentralDirOffset), int64(loc.CentralDirSize))
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	arc := model.New()
	arc.ArchiveComment = loc.EOCD.Comment
	arc.CentralDirOffset = loc.CentralDirOffset
	arc.CentralDirSize = loc.CentralDirSize

	for off := 0; off < len(cdBuf); {
		h, n, err := record.DecodeCDH(cdBuf[off:])
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		off += n

		e, err := entryFromCDH(h)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		arc.Entries = append(arc.Entries, e)
	}

	arc.RecomputeZip64Need()
	if err := arc.CheckInvariants(); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Reader{file: f, Archive: arc}, nil
}

// Close releases the underlying archive handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

func entryFromCDH(h record.CDH) (*model.Entry, error) {
	needComp := h.CompSize == 0xFFFFFFFF
	needUncomp := h.UncompSize == 0xFFFFFFFF
	needOffset := h.LHOOffset == 0xFFFFFFFF

	compSize := uint64(h.CompSize)
	uncompSize := uint64(h.UncompSize)
	lhoOffset := uint64(h.LHOOffset)

	if needComp || needUncomp || needOffset {
		fields, err := record.WalkExtra(h.Extra)
		if err != nil {
			return nil, err
		}
		zf, ok := record.FindZip64(fields)
		if !ok {
			return nil, zerr.Newf(zerr.BadExtra, "entry %q promotes a field but carries no zip64 extra", h.Name)
		}
		z64, err := record.DecodeZip64Extra(zf.Data, needUncomp, needComp, needOffset)
		if err != nil {
			return nil, err
		}
		if needUncomp {
			uncompSize = *z64.UncompSize
		}
		if needComp {
			compSize = *z64.CompSize
		}
		if needOffset {
			lhoOffset = *z64.LHOOffset
		}
	}

	return &model.Entry{
		Name:          h.Name,
		Method:        model.Method(h.Method),
		Flags:         h.Flags,
		VersionMadeBy: h.VersionMadeBy,
		VersionNeeded: h.VersionNeeded,
		CRC32:         h.CRC32,
		CompSize:      compSize,
		UncompSize:    uncompSize,
		MTimeDOS:      h.MTimeDOS,
		ExternalAttrs: h.ExternalAttrs,
		Extra:         h.Extra,
		Comment:       h.Comment,
		LHOOffset:     lhoOffset,
		Origin:        model.OriginExisting,
		Action:        model.ActionKeep,
		Source: model.Source{
			Kind:            model.SourceFromArchive,
			ArchiveOffset:   int64(lhoOffset),
			ArchiveCompSize: int64(compSize),
		},
	}, nil
}

// fileReaderAt adapts *byteio.Reader to io.ReaderAt for record.Find,
// which needs random access into the archive's tail without
// disturbing the reader's own sequential cursor.
type fileReaderAt struct{ r *byteio.Reader }

func (a fileReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if err := a.r.ReadExactAt(p, off); err != nil {
		if zerr.CodeOf(err) == zerr.Truncated {
			return 0, io.EOF
		}
		return 0, err
	}
	return len(p), nil
}

func readSection(f *byteio.Reader, off, size int64) ([]byte, error) {
	buf := make([]byte, size)
	if size == 0 {
		return buf, nil
	}
	if err := f.ReadExactAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

// payload re-reads e's local file header and returns its raw
// (possibly still-compressed) bytes plus the method the LFH itself
// declares, since the LFH is the source of truth for where the
// payload begins, per the on-disk format's own documented quirk that
// its extra-field length may differ from the central directory's.
func (r *Reader) payload(e *model.Entry) ([]byte, model.Method, error) {
	if _, err := r.file.Seek(int64(e.LHOOffset), io.SeekStart); err != nil {
		return nil, 0, err
	}
	hdrBuf, err := r.file.ReadExact(record.LFHFixedSize)
	if err != nil {
		return nil, 0, err
	}
	nameLen := int(binary.LittleEndian.Uint16(hdrBuf[26:28]))
	extraLen := int(binary.LittleEndian.Uint16(hdrBuf[28:30]))
	rest, err := r.file.ReadExact(nameLen + extraLen)
	if err != nil {
		return nil, 0, err
	}
	lfh, err := record.DecodeLFH(append(hdrBuf, rest...))
	if err != nil {
		return nil, 0, err
	}
	raw, err := r.file.ReadExact(int(e.CompSize))
	if err != nil {
		return nil, 0, err
	}
	return raw, model.Method(lfh.Method), nil
}

// Inflate returns e's fully decompressed bytes, verifying the result
// against the entry's recorded CRC-32.
func (r *Reader) Inflate(e *model.Entry) ([]byte, error) {
	raw, method, err := r.payload(e)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch method {
	case model.MethodStore:
		data = raw
	case model.MethodDeflate:
		data, err = deflate.DecompressBuffer(raw)
		if err != nil {
			return nil, err
		}
	default:
		return nil, zerr.Newf(zerr.UnsupportedMethod, "entry %q uses unsupported compression method %d", e.Name, method)
	}

	if checksum.Of(data) != e.CRC32 {
		return nil, zerr.Newf(zerr.BadCRC, "entry %q failed crc-32 verification", e.Name)
	}
	return data, nil
}

// Action labels what Extract did with one entry, matching the
// distinct per-entry stdout prefixes the extractor reports.
type Action string

const (
	ActionInflating  Action = "inflating"
	ActionExtracting Action = "extracting"
	ActionCreating   Action = "creating"
	ActionSkipping   Action = "skipping"
	ActionLinking    Action = "linking"
)

// Report is one line of extractor progress.
type Report struct {
	Name   string
	Action Action
}

// ExtractOptions configures one extraction pass.
type ExtractOptions struct {
	TargetDir     string
	Overwrite     session.Overwrite
	Confirm       func(name string) bool // interactive prompt; nil means non-interactive
	StoreSymlinks bool
	JunkPaths     bool
	Include       []string
	Exclude       []string
	MatchCase     bool
	OnReport      func(Report) // invoked once per attempted entry after its attempt returns, including an attempt that failed
}

// Extract writes arc's entries under opts.TargetDir (default the
// current directory), honoring the overwrite policy, glob
// include/exclude filters, and symlink recreation. It stops at the
// first unrecoverable error — a non-interactive collision under the
// default prompt policy, an I/O failure, or a CRC mismatch — and
// returns the reports emitted for entries attempted up to that point.
func (r *Reader) Extract(opts ExtractOptions) ([]Report, error) {
	targetDir := opts.TargetDir
	if targetDir == "" {
		targetDir = "."
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, zerr.Wrap(zerr.IO, targetDir, err)
	}
	validator, err := pathsafe.New(targetDir)
	if err != nil {
		return nil, zerr.Wrap(zerr.Usage, targetDir, err)
	}

	incl, err := glob.New(opts.Include, opts.MatchCase)
	if err != nil {
		return nil, err
	}
	excl, err := glob.New(opts.Exclude, opts.MatchCase)
	if err != nil {
		return nil, err
	}

	var reports []Report
	for _, e := range r.Archive.Entries {
		if e.Action == model.ActionDelete {
			continue
		}
		if !incl.Empty() && !incl.Match(e.Name) {
			continue
		}
		if !excl.Empty() && excl.Match(e.Name) {
			continue
		}

		rep, err := r.extractOne(e, targetDir, validator, opts)
		if rep.Name != "" {
			reports = append(reports, rep)
		}
		if opts.OnReport != nil && rep.Name != "" {
			opts.OnReport(rep)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (r *Reader) extractOne(e *model.Entry, targetDir string, validator *pathsafe.Validator, opts ExtractOptions) (Report, error) {
	name := e.Name
	if opts.JunkPaths && !e.IsDir() {
		name = filepath.Base(name)
	}
	targetPath := filepath.Join(targetDir, filepath.FromSlash(name))
	if err := validator.ValidatePathForWrite(targetPath); err != nil {
		return Report{}, zerr.Wrap(zerr.NameUnsafe, e.Name, err)
	}

	if e.IsDir() {
		if err := validator.MkdirAllWithin(targetPath); err != nil {
			return Report{Name: e.Name, Action: ActionCreating}, zerr.Wrap(zerr.IO, targetPath, err)
		}
		return Report{Name: e.Name, Action: ActionCreating}, nil
	}

	isSymlink := opts.StoreSymlinks && (e.ExternalAttrs>>16)&0xF000 == unixSymlinkMode
	action := ActionInflating
	if isSymlink {
		action = ActionLinking
	} else if e.Method == model.MethodStore {
		action = ActionExtracting
	}
	report := Report{Name: e.Name, Action: action}

	if _, statErr := os.Lstat(targetPath); statErr == nil {
		switch opts.Overwrite {
		case session.OverwriteNever:
			return Report{Name: e.Name, Action: ActionSkipping}, nil
		case session.OverwriteAlways:
			// fall through to write, truncating the existing target.
		default: // OverwritePrompt
			if opts.Confirm == nil {
				return report, zerr.New(zerr.FileExists, "file exists (non-interactive)")
			}
			if !opts.Confirm(e.Name) {
				return Report{Name: e.Name, Action: ActionSkipping}, nil
			}
		}
	}

	if err := validator.MkdirAllWithin(filepath.Dir(targetPath)); err != nil {
		return report, zerr.Wrap(zerr.IO, filepath.Dir(targetPath), err)
	}

	data, err := r.Inflate(e)
	if err != nil {
		return report, err
	}

	if isSymlink {
		_ = os.Remove(targetPath)
		if err := os.Symlink(string(data), targetPath); err != nil {
			return report, zerr.Wrap(zerr.IO, targetPath, err)
		}
		return report, nil
	}

	if err := os.WriteFile(targetPath, data, 0o644); err != nil {
		return report, zerr.Wrap(zerr.IO, targetPath, err)
	}
	return report, nil
}

// Pipe decompresses the entries whose name matches names (all
// entries when names is empty) to w, in archive order, writing
// nothing to the filesystem.
func (r *Reader) Pipe(w io.Writer, names []string) error {
	matcher, err := glob.New(names, true)
	if err != nil {
		return err
	}
	for _, e := range r.Archive.Entries {
		if e.Action == model.ActionDelete || e.IsDir() {
			continue
		}
		if !matcher.Empty() && !matcher.Match(e.Name) {
			continue
		}
		data, err := r.Inflate(e)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return zerr.Wrap(zerr.IO, "<stdout>", err)
		}
	}
	return nil
}

// TestResult summarizes a Test pass over every entry in the archive.
type TestResult struct {
	Tested   int
	OK       int
	Failures []string
}

// Test decompresses and discards every entry, verifying its CRC-32,
// without touching the filesystem.
func (r *Reader) Test() TestResult {
	var res TestResult
	for _, e := range r.Archive.Entries {
		if e.Action == model.ActionDelete || e.IsDir() {
			continue
		}
		res.Tested++
		if _, err := r.Inflate(e); err != nil {
			res.Failures = append(res.Failures, e.Name+": "+err.Error())
			continue
		}
		res.OK++
	}
	return res
}

// Comment returns the archive-level comment, decoded as a string for
// the inspector's -z flag.
func (r *Reader) Comment() string {
	return string(r.Archive.ArchiveComment)
}
