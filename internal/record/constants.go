// Package record encodes and decodes the five ZIP binary records —
// Local File Header, Data Descriptor, Central Directory Header,
// End-of-Central-Directory, and their ZIP64 counterparts — per PKZIP
// APPNOTE 6.3.4. Every function here operates on already-read or
// about-to-be-written byte slices; callers own positioning via
// zipkit/internal/byteio.
package record

const (
	// SigLFH is the Local File Header signature.
	SigLFH uint32 = 0x04034B50
	// SigDataDescriptor is the optional Data Descriptor signature.
	SigDataDescriptor uint32 = 0x08074B50
	// SigCDH is the Central Directory Header signature.
	SigCDH uint32 = 0x02014B50
	// SigEOCD is the End-of-Central-Directory signature.
	SigEOCD uint32 = 0x06054B50
	// SigZip64EOCD is the ZIP64 End-of-Central-Directory signature.
	SigZip64EOCD uint32 = 0x06064B50
	// SigZip64Locator is the ZIP64 End-of-Central-Directory Locator signature.
	SigZip64Locator uint32 = 0x07064B50

	// LFHFixedSize is the Local File Header's fixed portion, before
	// the variable-length name and extra field.
	LFHFixedSize = 30
	// CDHFixedSize is the Central Directory Header's fixed portion,
	// before the variable-length name, extra field, and comment.
	CDHFixedSize = 46
	// EOCDFixedSize is the End-of-Central-Directory record's fixed
	// portion, before the variable-length comment.
	EOCDFixedSize = 22
	// Zip64EOCDFixedSize is the ZIP64 EOCD record's fixed size (it has
	// no variable trailer in the subset this package writes).
	Zip64EOCDFixedSize = 56
	// Zip64LocatorSize is the fixed, whole size of the ZIP64 locator record.
	Zip64LocatorSize = 20
	// DataDescriptorSize32 is the Data Descriptor size when sizes are 32-bit.
	DataDescriptorSize32 = 12
	// DataDescriptorSize32WithSig is DataDescriptorSize32 plus the
	// optional leading signature word most writers emit.
	DataDescriptorSize32WithSig = 16
	// DataDescriptorSize64WithSig is the Data Descriptor size when
	// sizes are promoted to 64-bit, signature included.
	DataDescriptorSize64WithSig = 24

	// ExtraZip64ID is the extra-field TLV id for ZIP64 extended information.
	ExtraZip64ID uint16 = 0x0001

	// zip16Marker is the sentinel 16-bit field value meaning "see ZIP64 extra".
	zip16Marker = 0xFFFF
	// zip32Marker is the sentinel 32-bit field value meaning "see ZIP64 extra".
	zip32Marker = 0xFFFFFFFF

	// eocdSearchWindow bounds the backward EOCD scan to the maximum
	// comment length plus the fixed record size.
	eocdSearchWindow = EOCDFixedSize + 0xFFFF
)
