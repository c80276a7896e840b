// Package deflate adapts klauspost/compress/flate's raw (headerless)
// DEFLATE implementation to the streaming compress/decompress calls
// the writer and reader packages need, plus single-shot helpers for
// data held entirely in memory.
package deflate

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"

	"zipkit/internal/zerr"
)

// Method names the ZIP method field value a codec corresponds to.
type Method uint16

const (
	// Store writes bytes unchanged.
	Store Method = 0
	// Deflate compresses with raw DEFLATE.
	Deflate Method = 8
)

// DefaultLevel mirrors flate's "general purpose" compromise between
// ratio and speed, used whenever a caller does not pin a level.
const DefaultLevel = flate.DefaultCompression

// Writer streams raw-DEFLATE-compressed bytes to an underlying
// io.Writer.
type Writer struct {
	fw *flate.Writer
}

// NewWriter returns a Writer at the given compression level (1-9, or
// DefaultLevel). An invalid level falls back to DefaultLevel rather
// than failing, where flate.NewWriter itself returns an error.
func NewWriter(dst io.Writer, level int) (*Writer, error) {
	fw, err := flate.NewWriter(dst, level)
	if err != nil {
		fw, _ = flate.NewWriter(dst, DefaultLevel)
	}
	return &Writer{fw: fw}, nil
}

// Write compresses p into the underlying writer.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.fw.Write(p)
	if err != nil {
		return n, zerr.Wrap(zerr.IO, "", err)
	}
	return n, nil
}

// Close flushes any buffered output and finalizes the DEFLATE stream.
// It does not close the underlying writer.
func (w *Writer) Close() error {
	if err := w.fw.Close(); err != nil {
		return zerr.Wrap(zerr.IO, "", err)
	}
	return nil
}

// Reader streams raw-DEFLATE-decompressed bytes from an underlying
// io.Reader.
type Reader struct {
	fr io.ReadCloser
}

// NewReader wraps src for raw DEFLATE decompression.
func NewReader(src io.Reader) *Reader {
	return &Reader{fr: flate.NewReader(src)}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.fr.Read(p)
	if err != nil && err != io.EOF {
		return n, zerr.Wrap(zerr.IO, "", err)
	}
	return n, err
}

// Close releases the decompressor's resources.
func (r *Reader) Close() error {
	return r.fr.Close()
}

// CompressBuffer deflates src in one shot. The writer uses it for
// every added or replaced entry, whose source it holds entirely in
// memory.
func CompressBuffer(src []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressBuffer inflates src, which must hold a complete raw
// DEFLATE stream, into a single buffer.
func DecompressBuffer(src []byte) ([]byte, error) {
	r := NewReader(bytes.NewReader(src))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, zerr.Wrap(zerr.Truncated, "", err)
	}
	return out, nil
}
