package record

import (
	"encoding/binary"

	"zipkit/internal/zerr"
)

// ExtraField is one decoded TLV record from an entry's extra-field blob.
type ExtraField struct {
	ID   uint16
	Data []byte
}

// WalkExtra parses buf as a sequence of (id uint16, size uint16,
// data) TLV records, as found in both LFH and CDH extra fields.
// Malformed trailing bytes (a declared size overrunning the buffer)
// fail with BadExtra; unknown ids are returned verbatim for the
// caller to preserve on copy-through.
func WalkExtra(buf []byte) ([]ExtraField, error) {
	var fields []ExtraField
	for off := 0; off < len(buf); {
		if off+4 > len(buf) {
			return nil, zerr.New(zerr.BadExtra, "extra field header truncated")
		}
		id := binary.LittleEndian.Uint16(buf[off : off+2])
		size := int(binary.LittleEndian.Uint16(buf[off+2 : off+4]))
		off += 4
		if off+size > len(buf) {
			return nil, zerr.New(zerr.BadExtra, "extra field data truncated")
		}
		fields = append(fields, ExtraField{ID: id, Data: append([]byte(nil), buf[off:off+size]...)})
		off += size
	}
	return fields, nil
}

// EncodeExtra serializes fields back into a TLV blob in the given order.
func EncodeExtra(fields []ExtraField) []byte {
	size := 0
	for _, f := range fields {
		size += 4 + len(f.Data)
	}
	buf := make([]byte, size)
	off := 0
	for _, f := range fields {
		binary.LittleEndian.PutUint16(buf[off:off+2], f.ID)
		binary.LittleEndian.PutUint16(buf[off+2:off+4], uint16(len(f.Data)))
		copy(buf[off+4:off+4+len(f.Data)], f.Data)
		off += 4 + len(f.Data)
	}
	return buf
}

// Zip64Extra holds the subset of ZIP64 extended-information fields
// this package reads or writes. Which fields are present is driven
// entirely by which classic-record fields carried the sentinel
// values; order is fixed by APPNOTE: uncompressed size, compressed
// size, then LFH offset, then disk-start (never emitted here, since
// this package never writes multi-disk archives).
type Zip64Extra struct {
	UncompSize *uint64
	CompSize   *uint64
	LHOOffset  *uint64
}

// DecodeZip64Extra reads the ZIP64 extended-information fields out of
// data in their fixed order, consuming only as many 8-byte fields as
// the caller declares present via wantUncomp/wantComp/wantOffset —
// the classic record tells the caller which of its own fields were
// sentinels, and only those fields exist in the ZIP64 extra.
func DecodeZip64Extra(data []byte, wantUncomp, wantComp, wantOffset bool) (Zip64Extra, error) {
	var out Zip64Extra
	off := 0

	read := func() (uint64, error) {
		if off+8 > len(data) {
			return 0, zerr.New(zerr.BadExtra, "zip64 extra field truncated")
		}
		v := binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
		return v, nil
	}

	if wantUncomp {
		v, err := read()
		if err != nil {
			return out, err
		}
		out.UncompSize = &v
	}
	if wantComp {
		v, err := read()
		if err != nil {
			return out, err
		}
		out.CompSize = &v
	}
	if wantOffset {
		v, err := read()
		if err != nil {
			return out, err
		}
		out.LHOOffset = &v
	}

	return out, nil
}

// EncodeZip64Extra serializes the present fields of z, in the fixed
// uncompressed/compressed/offset order, as the data portion of an
// ExtraField with ID ExtraZip64ID.
func EncodeZip64Extra(z Zip64Extra) []byte {
	var buf []byte
	put := func(v uint64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf = append(buf, b[:]...)
	}
	if z.UncompSize != nil {
		put(*z.UncompSize)
	}
	if z.CompSize != nil {
		put(*z.CompSize)
	}
	if z.LHOOffset != nil {
		put(*z.LHOOffset)
	}
	return buf
}

// FindZip64 locates the ZIP64 extended-information field among
// fields, if any.
func FindZip64(fields []ExtraField) (ExtraField, bool) {
	for _, f := range fields {
		if f.ID == ExtraZip64ID {
			return f, true
		}
	}
	return ExtraField{}, false
}
