// Package writer streams a planner.Result to a temp file, compresses
// each entry, writes the central directory and EOCD records, then
// atomically replaces the target archive — never leaving it in a
// torn state.
package writer

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"zipkit/internal/byteio"
	"zipkit/internal/checksum"
	"zipkit/internal/deflate"
	"zipkit/internal/model"
	"zipkit/internal/record"
	"zipkit/internal/session"
	"zipkit/internal/zerr"
)

// versionNeeded is the "version needed to extract" value this
// package writes into every LFH and CDH: 2.0, the lowest version
// covering DEFLATE and non-ZIP64 records. Entries carrying a ZIP64
// extra field are not promoted; versionNeededZip64 (4.5) is written
// only into the ZIP64 EOCD record.
const versionNeeded = 20
const versionNeededZip64 = 45
const versionMadeByUnix = 3<<8 | 20 // "made by" upper byte 3 = unix, lower = spec version 2.0

// unixSymlinkMode is the S_IFLNK type nibble of a unix mode, as stored
// in the upper 16 bits of ExternalAttrs for an entry the planner
// staged as a stored symlink target.
const unixSymlinkMode = 0xA000

// smallEntryThreshold is the point below which the store-fallback
// comparison is skipped entirely: below roughly one local file
// header's worth of bytes, DEFLATE's own framing overhead routinely
// outweighs any savings, and the original Info-ZIP never bothered
// comparing at this scale either — it reports whatever DEFLATE
// produced, negative ratio and all. Above the threshold the normal
// "use whichever is smaller" rule applies.
const smallEntryThreshold = record.LFHFixedSize

// Options configures one writer pass.
type Options struct {
	TempDir          string
	NoCompressSuffix []string
	Level            int // -1 for deflate.DefaultLevel
	ForceStore       bool // -0 / -Z store
	FastWrite        bool // skip the store-fallback comparison when true
	LineMode         session.LineMode
	StripExtra       bool // -X: omit carried-over extra fields from the CDH
	// OnEntry, if set, is called once after each live entry (added,
	// replaced, or copied through) is fully written, so a caller can
	// drive a processed/total progress indicator.
	OnEntry func()
	// InputArchivePath is the path copy-through entries are read from,
	// distinct from the output path so the writer never reads and
	// writes the same file handle.
	InputArchivePath string
}

// Report is one line of writer progress, matching the per-entry
// "adding:" / "updating:" stdout convention. Write returns one Report
// per added or replaced entry; copied-through and deleted entries get
// none.
type Report struct {
	Name   string
	Action model.Action
	Method model.Method
	Ratio  int // percent; negative when the compressed form is larger
}

// Write streams arc's live entries (everything not Action ==
// ActionDelete) to a temp file beside targetPath, then renames the
// temp file over targetPath. On any failure after the temp file is
// created, the temp file is removed and targetPath is left untouched.
func Write(arc *model.Archive, targetPath string, opts Options) ([]Report, error) {
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = filepath.Dir(targetPath)
	}

	tmp, err := os.CreateTemp(tempDir, ".zipkit-*.tmp")
	if err != nil {
		return nil, zerr.Wrap(zerr.IO, tempDir, err)
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		if !succeeded {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	var inputReader *byteio.Reader
	if opts.InputArchivePath != "" {
		inputReader, err = byteio.OpenInput(opts.InputArchivePath)
		if err != nil {
			return nil, err
		}
		defer inputReader.Close()
	}

	w := byteio.NewWriter(tmp)

	live := make([]*model.Entry, 0, len(arc.Entries))
	for _, e := range arc.Entries {
		if e.Action != model.ActionDelete {
			live = append(live, e)
		}
	}

	reports := make([]Report, 0, len(live))
	for _, e := range live {
		rep, err := writeEntry(w, e, inputReader, opts)
		if err != nil {
			return nil, err
		}
		if rep.Action != model.ActionCopyThrough {
			reports = append(reports, rep)
		}
		if opts.OnEntry != nil {
			opts.OnEntry()
		}
	}

	cdOffset := w.Tell()
	for _, e := range live {
		if err := writeCDH(w, e, opts); err != nil {
			return nil, err
		}
	}
	cdSize := w.Tell() - cdOffset

	arc.CentralDirOffset = uint64(cdOffset)
	arc.CentralDirSize = uint64(cdSize)
	arc.RecomputeZip64Need()

	if arc.NeedsZip64 {
		z64Offset := w.Tell()
		z64 := record.Zip64EOCD{
			VersionMadeBy:    versionMadeByUnix,
			VersionNeeded:    versionNeededZip64,
			EntriesThisDisk:  uint64(len(live)),
			EntriesTotal:     uint64(len(live)),
			CentralDirSize:   arc.CentralDirSize,
			CentralDirOffset: arc.CentralDirOffset,
		}
		if _, err := w.Write(record.EncodeZip64EOCD(z64)); err != nil {
			return nil, err
		}
		loc := record.Zip64Locator{Zip64EOCDOffset: uint64(z64Offset), TotalDisks: 1}
		if _, err := w.Write(record.EncodeZip64Locator(loc)); err != nil {
			return nil, err
		}
	}

	eocd := record.EOCD{
		EntriesThisDisk:  entriesField(len(live), arc.NeedsZip64),
		EntriesTotal:     entriesField(len(live), arc.NeedsZip64),
		CentralDirSize:   sizeField32(arc.CentralDirSize, arc.NeedsZip64),
		CentralDirOffset: sizeField32(arc.CentralDirOffset, arc.NeedsZip64),
		Comment:          arc.ArchiveComment,
	}
	if _, err := w.Write(record.EncodeEOCD(eocd)); err != nil {
		return nil, err
	}

	if err := w.Sync(); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	if err := atomic.ReplaceFile(tmpPath, targetPath); err != nil {
		return nil, zerr.Wrap(zerr.IO, targetPath, err)
	}
	succeeded = true

	return reports, nil
}

func entriesField(n int, needsZip64 bool) uint16 {
	if needsZip64 && n >= model.MaxClassicEntries {
		return 0xFFFF
	}
	return uint16(n)
}

func sizeField32(v uint64, needsZip64 bool) uint32 {
	if needsZip64 && v >= model.Zip64Threshold {
		return 0xFFFFFFFF
	}
	return uint32(v)
}

func writeEntry(w *byteio.Writer, e *model.Entry, input *byteio.Reader, opts Options) (Report, error) {
	// An entry loaded from an existing archive that the planner left
	// untouched still carries Action == ActionKeep, not
	// ActionCopyThrough (only planCopy's -U mode sets that explicitly);
	// both cases share the same on-disk source, so both copy through.
	if e.Action == model.ActionCopyThrough || e.Source.Kind == model.SourceFromArchive {
		return copyThroughEntry(w, e, input)
	}
	return compressAndWriteEntry(w, e, opts)
}

// copyThroughEntry copies an existing entry's LFH and compressed
// bytes verbatim from the input archive, re-based to the new output
// offset, without touching its CRC.
func copyThroughEntry(w *byteio.Writer, e *model.Entry, input *byteio.Reader) (Report, error) {
	if input == nil {
		return Report{}, zerr.New(zerr.Invariant, "copy-through entry with no input archive bound")
	}

	if _, err := input.Seek(int64(e.LHOOffset), io.SeekStart); err != nil {
		return Report{}, err
	}

	hdrBuf, err := input.ReadExact(record.LFHFixedSize)
	if err != nil {
		return Report{}, err
	}
	nameLen := int(binary.LittleEndian.Uint16(hdrBuf[26:28]))
	extraLen := int(binary.LittleEndian.Uint16(hdrBuf[28:30]))
	rest, err := input.ReadExact(nameLen + extraLen)
	if err != nil {
		return Report{}, err
	}
	if _, err := record.DecodeLFH(append(append([]byte(nil), hdrBuf...), rest...)); err != nil {
		return Report{}, err
	}

	e.LHOOffset = uint64(w.Tell())
	if _, err := w.Write(hdrBuf); err != nil {
		return Report{}, err
	}
	if _, err := w.Write(rest); err != nil {
		return Report{}, err
	}

	payload, err := input.ReadExact(int(e.CompSize))
	if err != nil {
		return Report{}, err
	}
	if _, err := w.Write(payload); err != nil {
		return Report{}, err
	}

	return Report{Name: e.Name, Action: model.ActionCopyThrough, Method: e.Method}, nil
}

func compressAndWriteEntry(w *byteio.Writer, e *model.Entry, opts Options) (Report, error) {
	raw, err := readSource(e)
	if err != nil {
		return Report{}, err
	}
	raw = translateLines(raw, opts.LineMode)

	isSymlink := (e.ExternalAttrs>>16)&0xF000 == unixSymlinkMode

	method := model.MethodDeflate
	if opts.ForceStore || e.IsDir() || isSymlink || len(raw) == 0 || matchesNoCompressSuffix(e.Name, opts.NoCompressSuffix) {
		method = model.MethodStore
	}

	var compressed []byte
	if method == model.MethodDeflate {
		level := opts.Level
		if level < 0 || level > 9 {
			level = deflate.DefaultLevel
		}
		compressed, err = deflate.CompressBuffer(raw, level)
		if err != nil {
			return Report{}, err
		}
		if !opts.FastWrite && len(raw) >= smallEntryThreshold && len(compressed) >= len(raw) {
			method = model.MethodStore
		}
	}
	if method == model.MethodStore {
		compressed = raw
	}

	crc := checksum.Of(raw)

	e.Method = model.Method(method)
	e.CRC32 = crc
	e.CompSize = uint64(len(compressed))
	e.UncompSize = uint64(len(raw))
	e.LHOOffset = uint64(w.Tell())

	lfh := record.LFH{
		VersionNeeded: versionNeeded,
		Flags:         e.Flags | model.FlagUTF8Name,
		Method:        uint16(method),
		MTimeDOS:      e.MTimeDOS,
		CRC32:         crc,
		CompSize:      sizeField32(e.CompSize, e.NeedsZip64()),
		UncompSize:    sizeField32(e.UncompSize, e.NeedsZip64()),
		Name:          e.Name,
		Extra:         lfhExtra(e),
	}
	e.Flags = lfh.Flags

	if _, err := w.Write(record.EncodeLFH(lfh)); err != nil {
		return Report{}, err
	}
	if _, err := w.Write(compressed); err != nil {
		return Report{}, err
	}

	ratio := 0
	if len(raw) > 0 {
		ratio = int(100 - (float64(len(compressed))/float64(len(raw)))*100)
	}

	return Report{Name: e.Name, Action: e.Action, Method: e.Method, Ratio: ratio}, nil
}

func lfhExtra(e *model.Entry) []byte {
	if !e.NeedsZip64() {
		return nil
	}
	z := record.Zip64Extra{}
	uc, cs, off := e.UncompSize, e.CompSize, e.LHOOffset
	z.UncompSize = &uc
	z.CompSize = &cs
	_ = off // LHOOffset promotion belongs to the CDH extra, not the LFH extra
	data := record.EncodeZip64Extra(z)
	return record.EncodeExtra([]record.ExtraField{{ID: record.ExtraZip64ID, Data: data}})
}

func writeCDH(w *byteio.Writer, e *model.Entry, opts Options) error {
	extra := e.Extra
	if opts.StripExtra {
		extra = nil
	}
	if e.NeedsZip64() {
		z := record.Zip64Extra{}
		uc, cs, off := e.UncompSize, e.CompSize, e.LHOOffset
		z.UncompSize = &uc
		z.CompSize = &cs
		z.LHOOffset = &off
		extra = record.EncodeExtra([]record.ExtraField{{ID: record.ExtraZip64ID, Data: record.EncodeZip64Extra(z)}})
	}

	cdh := record.CDH{
		VersionMadeBy:   versionMadeByUnix,
		VersionNeeded:   versionNeeded,
		Flags:           e.Flags,
		Method:          uint16(e.Method),
		MTimeDOS:        e.MTimeDOS,
		CRC32:           e.CRC32,
		CompSize:        sizeField32(e.CompSize, e.NeedsZip64()),
		UncompSize:      sizeField32(e.UncompSize, e.NeedsZip64()),
		ExternalAttrs:   e.ExternalAttrs,
		LHOOffset:       sizeField32(e.LHOOffset, e.NeedsZip64()),
		Name:            e.Name,
		Extra:           extra,
		Comment:         e.Comment,
	}
	_, err := w.Write(record.EncodeCDH(cdh))
	return err
}

func readSource(e *model.Entry) ([]byte, error) {
	switch e.Source.Kind {
	case model.SourceFromMemory:
		return e.Source.Bytes, nil
	case model.SourceFromDisk:
		if e.IsDir() {
			return nil, nil
		}
		data, err := os.ReadFile(e.Source.Path)
		if err != nil {
			return nil, zerr.Wrap(zerr.IO, e.Source.Path, err)
		}
		return data, nil
	case model.SourceFromStdin:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, zerr.Wrap(zerr.IO, "<stdin>", err)
		}
		return data, nil
	default:
		return nil, zerr.Newf(zerr.Invariant, "entry %q has no readable source", e.Name)
	}
}

func matchesNoCompressSuffix(name string, suffixes []string) bool {
	for _, sfx := range suffixes {
		if len(name) >= len(sfx) && name[len(name)-len(sfx):] == sfx {
			return true
		}
	}
	return false
}

// translateLines applies the writer's LF_TO_CRLF or CRLF_TO_LF pass
// before CRC and compression, so the stored uncompressed size is the
// post-translation length.
func translateLines(data []byte, mode session.LineMode) []byte {
	switch mode {
	case session.LineModeLFToCRLF:
		var buf bytes.Buffer
		buf.Grow(len(data))
		for i := 0; i < len(data); i++ {
			if data[i] == '\n' && (i == 0 || data[i-1] != '\r') {
				buf.WriteByte('\r')
			}
			buf.WriteByte(data[i])
		}
		return buf.Bytes()
	case session.LineModeCRLFToLF:
		out := make([]byte, 0, len(data))
		for i := 0; i < len(data); i++ {
			if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
				continue
			}
			out = append(out, data[i])
		}
		return out
	default:
		return data
	}
}
