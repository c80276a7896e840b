package record

import (
	"encoding/binary"

	"zipkit/internal/zerr"
)

// CDH is the Central Directory Header: one per entry, stored
// consecutively in the archive's central directory index.
type CDH struct {
	VersionMadeBy   uint16
	VersionNeeded   uint16
	Flags           uint16
	Method          uint16
	MTimeDOS        uint32
	CRC32           uint32
	CompSize        uint32 // classic field; zip32Marker when promoted
	UncompSize      uint32
	DiskNumberStart uint16
	InternalAttrs   uint16
	ExternalAttrs   uint32
	LHOOffset       uint32 // classic field; zip32Marker when promoted
	Name            string
	Extra           []byte
	Comment         []byte
}

// EncodeCDH serializes h into its 46-byte fixed header plus name,
// extra, and comment.
func EncodeCDH(h CDH) []byte {
	nameBytes := []byte(h.Name)
	buf := make([]byte, CDHFixedSize+len(nameBytes)+len(h.Extra)+len(h.Comment))

	binary.LittleEndian.PutUint32(buf[0:4], SigCDH)
	binary.LittleEndian.PutUint16(buf[4:6], h.VersionMadeBy)
	binary.LittleEndian.PutUint16(buf[6:8], h.VersionNeeded)
	binary.LittleEndian.PutUint16(buf[8:10], h.Flags)
	binary.LittleEndian.PutUint16(buf[10:12], h.Method)
	binary.LittleEndian.PutUint16(buf[12:14], uint16(h.MTimeDOS))
	binary.LittleEndian.PutUint16(buf[14:16], uint16(h.MTimeDOS>>16))
	binary.LittleEndian.PutUint32(buf[16:20], h.CRC32)
	binary.LittleEndian.PutUint32(buf[20:24], h.CompSize)
	binary.LittleEndian.PutUint32(buf[24:28], h.UncompSize)
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(nameBytes)))
	binary.LittleEndian.PutUint16(buf[30:32], uint16(len(h.Extra)))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(len(h.Comment)))
	binary.LittleEndian.PutUint16(buf[34:36], h.DiskNumberStart)
	binary.LittleEndian.PutUint16(buf[36:38], h.InternalAttrs)
	binary.LittleEndian.PutUint32(buf[38:42], h.ExternalAttrs)
	binary.LittleEndian.PutUint32(buf[42:46], h.LHOOffset)

	off := CDHFixedSize
	copy(buf[off:off+len(nameBytes)], nameBytes)
	off += len(nameBytes)
	copy(buf[off:off+len(h.Extra)], h.Extra)
	off += len(h.Extra)
	copy(buf[off:off+len(h.Comment)], h.Comment)

	return buf
}

// DecodeCDH parses one Central Directory Header starting at buf[0],
// returning the header and the number of bytes it consumed.
func DecodeCDH(buf []byte) (CDH, int, error) {
	if len(buf) < CDHFixedSize {
		return CDH{}, 0, zerr.New(zerr.Truncated, "short central directory header")
	}
	if sig := binary.LittleEndian.Uint32(buf[0:4]); sig != SigCDH {
		return CDH{}, 0, zerr.Newf(zerr.BadSignature, "central directory header signature 0x%08x", sig)
	}

	nameLen := int(binary.LittleEndian.Uint16(buf[28:30]))
	extraLen := int(binary.LittleEndian.Uint16(buf[30:32]))
	commentLen := int(binary.LittleEndian.Uint16(buf[32:34]))
	total := CDHFixedSize + nameLen + extraLen + commentLen
	if len(buf) < total {
		return CDH{}, 0, zerr.New(zerr.Truncated, "central directory header name/extra/comment truncated")
	}

	mtime := uint32(binary.LittleEndian.Uint16(buf[12:14])) | uint32(binary.LittleEndian.Uint16(buf[14:16]))<<16

	off := CDHFixedSize
	name := string(buf[off : off+nameLen])
	off += nameLen
	extra := append([]byte(nil), buf[off:off+extraLen]...)
	off += extraLen
	comment := append([]byte(nil), buf[off:off+commentLen]...)

	h := CDH{
		VersionMadeBy:   binary.LittleEndian.Uint16(buf[4:6]),
		VersionNeeded:   binary.LittleEndian.Uint16(buf[6:8]),
		Flags:           binary.LittleEndian.Uint16(buf[8:10]),
		Method:          binary.LittleEndian.Uint16(buf[10:12]),
		MTimeDOS:        mtime,
		CRC32:           binary.LittleEndian.Uint32(buf[16:20]),
		CompSize:        binary.LittleEndian.Uint32(buf[20:24]),
		UncompSize:      binary.LittleEndian.Uint32(buf[24:28]),
		DiskNumberStart: binary.LittleEndian.Uint16(buf[34:36]),
		InternalAttrs:   binary.LittleEndian.Uint16(buf[36:38]),
		ExternalAttrs:   binary.LittleEndian.Uint32(buf[38:42]),
		LHOOffset:       binary.LittleEndian.Uint32(buf[42:46]),
		Name:            name,
		Extra:           extra,
		Comment:         comment,
	}
	return h, total, nil
}

// Size returns the total on-disk size of the header.
func (h CDH) Size() int {
	return CDHFixedSize + len(h.Name) + len(h.Extra) + len(h.Comment)
}
