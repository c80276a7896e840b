// Package byteio provides the low-level, little-endian byte plumbing
// that every ZIP record reader and writer is built on: opening input
// and output handles, exact-length reads, positioned seeks, and a
// reusable scratch buffer so fixed-size record fields don't churn the
// allocator on every entry.
package byteio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"zipkit/internal/zerr"
)

// Reader wraps a seekable input handle with exact-read and
// little-endian field helpers.
type Reader struct {
	f    *os.File
	name string
}

// OpenInput opens path for reading. The caller must Close it.
func OpenInput(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, zerr.Wrap(zerr.IO, path, err)
	}
	return &Reader{f: f, name: path}, nil
}

// NewReader adapts an already-open file, used by callers that manage
// the handle's lifetime themselves (e.g. stdin pipes cannot be opened
// by path).
func NewReader(f *os.File) *Reader {
	return &Reader{f: f, name: f.Name()}
}

// Name returns the path the reader was opened from.
func (r *Reader) Name() string { return r.name }

// Close closes the underlying handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Size reports the input's total byte length.
func (r *Reader) Size() (int64, error) {
	info, err := r.f.Stat()
	if err != nil {
		return 0, zerr.Wrap(zerr.IO, r.name, err)
	}
	return info.Size(), nil
}

// Seek repositions the read cursor, mirroring io.Seeker.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.f.Seek(offset, whence)
	if err != nil {
		return 0, zerr.Wrap(zerr.IO, r.name, err)
	}
	return pos, nil
}

// Tell returns the current read cursor position.
func (r *Reader) Tell() (int64, error) {
	return r.Seek(0, io.SeekCurrent)
}

// ReadExact reads exactly n bytes from the current position, failing
// with zerr.Truncated if fewer are available.
func (r *Reader) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.f, buf); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, zerr.Wrap(zerr.Truncated, r.name, err)
		}
		return nil, zerr.Wrap(zerr.IO, r.name, err)
	}
	return buf, nil
}

// ReadExactAt reads exactly len(buf) bytes starting at off, without
// disturbing the reader's sequential cursor.
func (r *Reader) ReadExactAt(buf []byte, off int64) error {
	if _, err := r.f.ReadAt(buf, off); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return zerr.Wrap(zerr.Truncated, r.name, err)
		}
		return zerr.Wrap(zerr.IO, r.name, err)
	}
	return nil
}

// ReadU16 reads a little-endian uint16 from the current position.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.ReadExact(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian uint32 from the current position.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.ReadExact(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian uint64 from the current position.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.ReadExact(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Writer wraps a seekable output handle with little-endian field
// helpers and a running position counter, since archive records embed
// their own byte offsets as they are written.
type Writer struct {
	f    *os.File
	name string
	pos  int64
}

// OpenOutput creates (or truncates) path for writing.
func OpenOutput(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, zerr.Wrap(zerr.IO, path, err)
	}
	return &Writer{f: f, name: path}, nil
}

// NewWriter adapts an already-open file.
func NewWriter(f *os.File) *Writer {
	return &Writer{f: f, name: f.Name()}
}

// Name returns the path the writer was opened from.
func (w *Writer) Name() string { return w.name }

// Tell returns the number of bytes written so far, which doubles as
// the byte offset the next write will land at.
func (w *Writer) Tell() int64 { return w.pos }

// Write implements io.Writer, tracking position as a side effect.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	w.pos += int64(n)
	if err != nil {
		return n, zerr.Wrap(zerr.IO, w.name, err)
	}
	return n, nil
}

// WriteAt writes p at an absolute offset without disturbing pos,
// used to patch a record's length fields in after its body is known.
func (w *Writer) WriteAt(p []byte, off int64) error {
	if _, err := w.f.WriteAt(p, off); err != nil {
		return zerr.Wrap(zerr.IO, w.name, err)
	}
	return nil
}

// WriteU16 appends a little-endian uint16.
func (w *Writer) WriteU16(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteU32 appends a little-endian uint32.
func (w *Writer) WriteU32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteU64 appends a little-endian uint64.
func (w *Writer) WriteU64(v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// Sync flushes the output to stable storage. Callers rewriting an
// archive must Sync before rename so a crash never exposes a
// zero-length or partially-flushed temp file under the final name.
func (w *Writer) Sync() error {
	if err := w.f.Sync(); err != nil {
		return zerr.Wrap(zerr.IO, w.name, err)
	}
	return nil
}

// Close closes the underlying handle.
func (w *Writer) Close() error {
	return w.f.Close()
}

// Scratch is a reusable byte buffer sized to the largest record or
// chunk seen so far, avoiding an allocation per entry in the hot
// compress/extract loops.
type Scratch struct {
	buf []byte
}

// NewScratch returns a Scratch pre-sized to at least min bytes.
func NewScratch(min int) *Scratch {
	if min < 0 {
		min = 0
	}
	return &Scratch{buf: make([]byte, min)}
}

// Get returns a slice of exactly n bytes backed by the scratch
// buffer, growing it first if necessary. The returned slice is only
// valid until the next Get call.
func (s *Scratch) Get(n int) []byte {
	if n < 0 {
		panic(fmt.Sprintf("byteio: negative scratch length %d", n))
	}
	if cap(s.buf) < n {
		s.buf = make([]byte, n)
	}
	return s.buf[:n]
}
