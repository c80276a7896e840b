package record

import (
	"encoding/binary"

	"zipkit/internal/zerr"
)

// LFH is the Local File Header: the record a compressed entry's
// bytes immediately follow.
type LFH struct {
	VersionNeeded   uint16
	Flags           uint16
	Method          uint16
	MTimeDOS        uint32 // date<<16 | time
	CRC32           uint32
	CompSize        uint32 // classic field; may be zip32Marker when ZIP64 extra present
	UncompSize      uint32
	Name            string
	Extra           []byte
}

// EncodeLFH serializes h into its 30-byte fixed header plus name and
// extra field.
func EncodeLFH(h LFH) []byte {
	nameBytes := []byte(h.Name)
	buf := make([]byte, LFHFixedSize+len(nameBytes)+len(h.Extra))

	binary.LittleEndian.PutUint32(buf[0:4], SigLFH)
	binary.LittleEndian.PutUint16(buf[4:6], h.VersionNeeded)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint16(buf[8:10], h.Method)
	binary.LittleEndian.PutUint16(buf[10:12], uint16(h.MTimeDOS))
	binary.LittleEndian.PutUint16(buf[12:14], uint16(h.MTimeDOS>>16))
	binary.LittleEndian.PutUint32(buf[14:18], h.CRC32)
	binary.LittleEndian.PutUint32(buf[18:22], h.CompSize)
	binary.LittleEndian.PutUint32(buf[22:26], h.UncompSize)
	binary.LittleEndian.PutUint16(buf[26:28], uint16(len(nameBytes)))
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(h.Extra)))
	copy(buf[30:30+len(nameBytes)], nameBytes)
	copy(buf[30+len(nameBytes):], h.Extra)

	return buf
}

// DecodeLFH parses the fixed 30-byte header starting at buf[0] plus
// the trailing name and extra bytes; buf must be at least
// LFHFixedSize+nameLen+extraLen long.
func DecodeLFH(buf []byte) (LFH, error) {
	if len(buf) < LFHFixedSize {
		return LFH{}, zerr.New(zerr.Truncated, "short local file header")
	}
	if sig := binary.LittleEndian.Uint32(buf[0:4]); sig != SigLFH {
		return LFH{}, zerr.Newf(zerr.BadSignature, "local file header signature 0x%08x", sig)
	}

	nameLen := int(binary.LittleEndian.Uint16(buf[26:28]))
	extraLen := int(binary.LittleEndian.Uint16(buf[28:30]))
	need := LFHFixedSize + nameLen + extraLen
	if len(buf) < need {
		return LFH{}, zerr.New(zerr.Truncated, "local file header name/extra truncated")
	}

	mtime := uint32(binary.LittleEndian.Uint16(buf[10:12])) | uint32(binary.LittleEndian.Uint16(buf[12:14]))<<16

	h := LFH{
		VersionNeeded: binary.LittleEndian.Uint16(buf[4:6]),
		Flags:         binary.LittleEndian.Uint16(buf[6:8]),
		Method:        binary.LittleEndian.Uint16(buf[8:10]),
		MTimeDOS:      mtime,
		CRC32:         binary.LittleEndian.Uint32(buf[14:18]),
		CompSize:      binary.LittleEndian.Uint32(buf[18:22]),
		UncompSize:    binary.LittleEndian.Uint32(buf[22:26]),
		Name:          string(buf[LFHFixedSize : LFHFixedSize+nameLen]),
		Extra:         append([]byte(nil), buf[LFHFixedSize+nameLen:need]...),
	}
	return h, nil
}

// Size returns the total on-disk size of the header (fixed part plus
// name and extra).
func (h LFH) Size() int {
	return LFHFixedSize + len(h.Name) + len(h.Extra)
}

// DataDescriptor is the optional trailer carrying CRC/sizes when they
// were unknown when the LFH was written (streaming sources).
type DataDescriptor struct {
	CRC32      uint32
	CompSize   uint64
	UncompSize uint64
	// Zip64 selects the 8-byte (true) or 4-byte (false) size field width.
	Zip64 bool
}

// EncodeDataDescriptor serializes d, including the optional leading
// signature word that most writers emit for tool compatibility even
// though APPNOTE marks it optional.
func EncodeDataDescriptor(d DataDescriptor) []byte {
	if d.Zip64 {
		buf := make([]byte, DataDescriptorSize64WithSig)
		binary.LittleEndian.PutUint32(buf[0:4], SigDataDescriptor)
		binary.LittleEndian.PutUint32(buf[4:8], d.CRC32)
		binary.LittleEndian.PutUint64(buf[8:16], d.CompSize)
		binary.LittleEndian.PutUint64(buf[16:24], d.UncompSize)
		return buf
	}
	buf := make([]byte, DataDescriptorSize32WithSig)
	binary.LittleEndian.PutUint32(buf[0:4], SigDataDescriptor)
	binary.LittleEndian.PutUint32(buf[4:8], d.CRC32)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(d.CompSize))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(d.UncompSize))
	return buf
}

// DecodeDataDescriptor parses a data descriptor from buf. zip64
// selects the field width the caller expects (known from the
// governing entry's flags/extra); the optional leading signature
// word is detected and skipped automatically.
func DecodeDataDescriptor(buf []byte, zip64 bool) (DataDescriptor, int, error) {
	off := 0
	if len(buf) >= 4 && binary.LittleEndian.Uint32(buf[0:4]) == SigDataDescriptor {
		off = 4
	}

	if zip64 {
		need := off + 4 + 8 + 8
		if len(buf) < need {
			return DataDescriptor{}, 0, zerr.New(zerr.Truncated, "short data descriptor")
		}
		return DataDescriptor{
			CRC32:      binary.LittleEndian.Uint32(buf[off : off+4]),
			CompSize:   binary.LittleEndian.Uint64(buf[off+4 : off+12]),
			UncompSize: binary.LittleEndian.Uint64(buf[off+12 : off+20]),
			Zip64:      true,
		}, need, nil
	}

	need := off + 4 + 4 + 4
	if len(buf) < need {
		return DataDescriptor{}, 0, zerr.New(zerr.Truncated, "short data descriptor")
	}
	return DataDescriptor{
		CRC32:      binary.LittleEndian.Uint32(buf[off : off+4]),
		CompSize:   uint64(binary.LittleEndian.Uint32(buf[off+4 : off+8])),
		UncompSize: uint64(binary.LittleEndian.Uint32(buf[off+8 : off+12])),
	}, need, nil
}
