package record

import (
	"encoding/binary"
	"io"

	"zipkit/internal/zerr"
)

// Locate holds the fully-resolved result of scanning an archive's
// tail for its End-of-Central-Directory record, promoted to its
// ZIP64 form when present.
type Locate struct {
	EOCD           EOCD
	EOCDOffset     int64
	Zip64EOCD      *Zip64EOCD
	Zip64EOCDOffset int64

	// CentralDirOffset and CentralDirSize are the effective values to
	// use for reading the central directory: the ZIP64 record's
	// values when Zip64EOCD != nil, otherwise the classic EOCD's.
	CentralDirOffset uint64
	CentralDirSize   uint64
	TotalEntries     uint64
}

// Find scans backward from the end of an archive of the given size
// for the EOCD signature, over at most the last min(65557, size)
// bytes, then promotes to the ZIP64 records when the locator that
// should immediately precede it is present.
//
// Fails with NotAnArchive if no EOCD signature is found, and with
// MultiDisk if the classic EOCD's disk fields name a real spanned
// archive (a ZIP64 locator's own disk-count field of 0 is tolerated
// as a known single-disk anomaly; see DecodeZip64Locator).
func Find(r io.ReaderAt, size int64) (Locate, error) {
	eocdOff, found, err := scanForEOCD(r, size)
	if err != nil {
		return Locate{}, err
	}
	if !found {
		return Locate{}, zerr.New(zerr.NotAnArchive, "end-of-central-directory record not found")
	}

	tail := make([]byte, size-eocdOff)
	if _, err := r.ReadAt(tail, eocdOff); err != nil && err != io.EOF {
		return Locate{}, zerr.Wrap(zerr.IO, "", err)
	}

	eocd, err := DecodeEOCD(tail)
	if err != nil {
		return Locate{}, err
	}

	result := Locate{
		EOCD:             eocd,
		EOCDOffset:       eocdOff,
		CentralDirOffset: uint64(eocd.CentralDirOffset),
		CentralDirSize:   uint64(eocd.CentralDirSize),
		TotalEntries:     uint64(eocd.EntriesTotal),
	}

	if !eocd.RequiresZip64() {
		if eocd.DiskNumber != 0 || eocd.CDStartDisk != 0 {
			return Locate{}, zerr.New(zerr.MultiDisk, "archive spans multiple disks")
		}
		return result, nil
	}

	locOff := eocdOff - Zip64LocatorSize
	if locOff < 0 {
		return Locate{}, zerr.New(zerr.BadSignature, "zip64 eocd required but locator missing")
	}

	locBuf := make([]byte, Zip64LocatorSize)
	if _, err := r.ReadAt(locBuf, locOff); err != nil {
		return Locate{}, zerr.Wrap(zerr.IO, "", err)
	}
	loc, err := DecodeZip64Locator(locBuf)
	if err != nil {
		return Locate{}, err
	}
	if loc.TotalDisks != 1 || loc.CDStartDisk != 0 {
		return Locate{}, zerr.New(zerr.MultiDisk, "archive spans multiple disks")
	}

	z64Buf := make([]byte, Zip64EOCDFixedSize)
	if _, err := r.ReadAt(z64Buf, int64(loc.Zip64EOCDOffset)); err != nil {
		return Locate{}, zerr.Wrap(zerr.IO, "", err)
	}
	z64, err := DecodeZip64EOCD(z64Buf)
	if err != nil {
		return Locate{}, err
	}

	result.Zip64EOCD = &z64
	result.Zip64EOCDOffset = int64(loc.Zip64EOCDOffset)
	result.CentralDirOffset = z64.CentralDirOffset
	result.CentralDirSize = z64.CentralDirSize
	result.TotalEntries = z64.EntriesTotal

	return result, nil
}

// scanForEOCD reads the trailing search window once and scans it
// backward for the EOCD signature, validating each candidate by
// checking its declared comment length accounts for exactly the
// remaining window bytes (so an entry whose compressed payload
// happens to contain the signature bytes is not mistaken for it).
func scanForEOCD(r io.ReaderAt, size int64) (int64, bool, error) {
	if size < EOCDFixedSize {
		return 0, false, nil
	}

	window := size
	if window > eocdSearchWindow {
		window = eocdSearchWindow
	}

	buf := make([]byte, window)
	if _, err := r.ReadAt(buf, size-window); err != nil && err != io.EOF {
		return 0, false, zerr.Wrap(zerr.IO, "", err)
	}

	idx := scanBufferForEOCD(buf)
	if idx < 0 {
		return 0, false, nil
	}

	return size - window + int64(idx), true, nil
}

func scanBufferForEOCD(buf []byte) int {
	for i := len(buf) - EOCDFixedSize; i >= 0; i-- {
		if binary.LittleEndian.Uint32(buf[i:i+4]) != SigEOCD {
			continue
		}

		commentLen := int(binary.LittleEndian.Uint16(buf[i+EOCDFixedSize-2 : i+EOCDFixedSize]))
		if i+EOCDFixedSize+commentLen != len(buf) {
			continue
		}

		return i
	}

	return -1
}
