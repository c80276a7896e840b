package record

import (
	"encoding/binary"

	"zipkit/internal/zerr"
)

// EOCD is the classic End-of-Central-Directory record.
type EOCD struct {
	DiskNumber          uint16
	CDStartDisk         uint16
	EntriesThisDisk      uint16
	EntriesTotal        uint16
	CentralDirSize      uint32
	CentralDirOffset    uint32
	Comment             []byte
}

// EncodeEOCD serializes e into its 22-byte fixed record plus comment.
func EncodeEOCD(e EOCD) []byte {
	buf := make([]byte, EOCDFixedSize+len(e.Comment))
	binary.LittleEndian.PutUint32(buf[0:4], SigEOCD)
	binary.LittleEndian.PutUint16(buf[4:6], e.DiskNumber)
	binary.LittleEndian.PutUint16(buf[6:8], e.CDStartDisk)
	binary.LittleEndian.PutUint16(buf[8:10], e.EntriesThisDisk)
	binary.LittleEndian.PutUint16(buf[10:12], e.EntriesTotal)
	binary.LittleEndian.PutUint32(buf[12:16], e.CentralDirSize)
	binary.LittleEndian.PutUint32(buf[16:20], e.CentralDirOffset)
	binary.LittleEndian.PutUint16(buf[20:22], uint16(len(e.Comment)))
	copy(buf[22:], e.Comment)
	return buf
}

// DecodeEOCD parses an EOCD record starting at buf[0]; buf must
// include the full comment trailer.
func DecodeEOCD(buf []byte) (EOCD, error) {
	if len(buf) < EOCDFixedSize {
		return EOCD{}, zerr.New(zerr.Truncated, "short end-of-central-directory record")
	}
	if sig := binary.LittleEndian.Uint32(buf[0:4]); sig != SigEOCD {
		return EOCD{}, zerr.Newf(zerr.BadSignature, "end-of-central-directory signature 0x%08x", sig)
	}

	commentLen := int(binary.LittleEndian.Uint16(buf[20:22]))
	if len(buf) < EOCDFixedSize+commentLen {
		return EOCD{}, zerr.New(zerr.Truncated, "end-of-central-directory comment truncated")
	}

	return EOCD{
		DiskNumber:       binary.LittleEndian.Uint16(buf[4:6]),
		CDStartDisk:      binary.LittleEndian.Uint16(buf[6:8]),
		EntriesThisDisk:  binary.LittleEndian.Uint16(buf[8:10]),
		EntriesTotal:     binary.LittleEndian.Uint16(buf[10:12]),
		CentralDirSize:   binary.LittleEndian.Uint32(buf[12:16]),
		CentralDirOffset: binary.LittleEndian.Uint32(buf[16:20]),
		Comment:          append([]byte(nil), buf[EOCDFixedSize:EOCDFixedSize+commentLen]...),
	}, nil
}

// RequiresZip64 reports whether any of e's fields carry the sentinel
// values meaning "see the ZIP64 EOCD for the real value".
func (e EOCD) RequiresZip64() bool {
	return e.EntriesThisDisk == zip16Marker ||
		e.EntriesTotal == zip16Marker ||
		e.CentralDirSize == zip32Marker ||
		e.CentralDirOffset == zip32Marker
}

// Zip64EOCD is the ZIP64 End-of-Central-Directory record, the 64-bit
// escape for the classic EOCD's fields.
type Zip64EOCD struct {
	VersionMadeBy    uint16
	VersionNeeded    uint16
	DiskNumber       uint32
	CDStartDisk      uint32
	EntriesThisDisk  uint64
	EntriesTotal     uint64
	CentralDirSize   uint64
	CentralDirOffset uint64
}

// EncodeZip64EOCD serializes e into the fixed 56-byte record,
// including its 8-byte "size of remaining record" field, which holds
// the record size minus the 12 bytes of signature and that field.
func EncodeZip64EOCD(e Zip64EOCD) []byte {
	buf := make([]byte, Zip64EOCDFixedSize)
	binary.LittleEndian.PutUint32(buf[0:4], SigZip64EOCD)
	binary.LittleEndian.PutUint64(buf[4:12], Zip64EOCDFixedSize-12)
	binary.LittleEndian.PutUint16(buf[12:14], e.VersionMadeBy)
	binary.LittleEndian.PutUint16(buf[14:16], e.VersionNeeded)
	binary.LittleEndian.PutUint32(buf[16:20], e.DiskNumber)
	binary.LittleEndian.PutUint32(buf[20:24], e.CDStartDisk)
	binary.LittleEndian.PutUint64(buf[24:32], e.EntriesThisDisk)
	binary.LittleEndian.PutUint64(buf[32:40], e.EntriesTotal)
	binary.LittleEndian.PutUint64(buf[40:48], e.CentralDirSize)
	binary.LittleEndian.PutUint64(buf[48:56], e.CentralDirOffset)
	return buf
}

// DecodeZip64EOCD parses the fixed 56-byte ZIP64 EOCD record. Any
// extensible data beyond the fixed fields (rare; vendor-specific) is
// ignored, matching this package's subset of APPNOTE 6.3.4.
func DecodeZip64EOCD(buf []byte) (Zip64EOCD, error) {
	if len(buf) < Zip64EOCDFixedSize {
		return Zip64EOCD{}, zerr.New(zerr.Truncated, "short zip64 end-of-central-directory record")
	}
	if sig := binary.LittleEndian.Uint32(buf[0:4]); sig != SigZip64EOCD {
		return Zip64EOCD{}, zerr.Newf(zerr.BadSignature, "zip64 end-of-central-directory signature 0x%08x", sig)
	}

	return Zip64EOCD{
		VersionMadeBy:    binary.LittleEndian.Uint16(buf[12:14]),
		VersionNeeded:    binary.LittleEndian.Uint16(buf[14:16]),
		DiskNumber:       binary.LittleEndian.Uint32(buf[16:20]),
		CDStartDisk:      binary.LittleEndian.Uint32(buf[20:24]),
		EntriesThisDisk:  binary.LittleEndian.Uint64(buf[24:32]),
		EntriesTotal:     binary.LittleEndian.Uint64(buf[32:40]),
		CentralDirSize:   binary.LittleEndian.Uint64(buf[40:48]),
		CentralDirOffset: binary.LittleEndian.Uint64(buf[48:56]),
	}, nil
}

// Zip64Locator is the ZIP64 End-of-Central-Directory Locator, the
// fixed-offset pointer from the classic EOCD back to the ZIP64 EOCD.
type Zip64Locator struct {
	CDStartDisk      uint32
	Zip64EOCDOffset  uint64
	TotalDisks       uint32
}

// EncodeZip64Locator serializes loc into its fixed 20-byte record.
func EncodeZip64Locator(loc Zip64Locator) []byte {
	buf := make([]byte, Zip64LocatorSize)
	binary.LittleEndian.PutUint32(buf[0:4], SigZip64Locator)
	binary.LittleEndian.PutUint32(buf[4:8], loc.CDStartDisk)
	binary.LittleEndian.PutUint64(buf[8:16], loc.Zip64EOCDOffset)
	binary.LittleEndian.PutUint32(buf[16:20], loc.TotalDisks)
	return buf
}

// DecodeZip64Locator parses the fixed 20-byte ZIP64 locator record.
// Per the known OneDrive/Windows compatibility anomaly, a totalDisks
// value of 0 is tolerated and treated as 1 rather than rejected as
// MULTI_DISK, since that field is informational here and the archive
// is otherwise single-disk.
func DecodeZip64Locator(buf []byte) (Zip64Locator, error) {
	if len(buf) < Zip64LocatorSize {
		return Zip64Locator{}, zerr.New(zerr.Truncated, "short zip64 locator record")
	}
	if sig := binary.LittleEndian.Uint32(buf[0:4]); sig != SigZip64Locator {
		return Zip64Locator{}, zerr.Newf(zerr.BadSignature, "zip64 locator signature 0x%08x", sig)
	}

	loc := Zip64Locator{
		CDStartDisk:     binary.LittleEndian.Uint32(buf[4:8]),
		Zip64EOCDOffset: binary.LittleEndian.Uint64(buf[8:16]),
		TotalDisks:      binary.LittleEndian.Uint32(buf[16:20]),
	}
	if loc.TotalDisks == 0 {
		loc.TotalDisks = 1
	}
	return loc, nil
}
