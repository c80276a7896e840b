// Package checksum computes the CRC-32 (IEEE 802.3) values that every
// ZIP local and central directory header carries for its entry's
// uncompressed bytes.
package checksum

import "hash/crc32"

// Digest accumulates a CRC-32/IEEE checksum across one or more Write
// calls, matching the incremental hashing every entry's compression
// pipeline needs as data streams through it.
type Digest struct {
	h uint32
}

// New returns a Digest starting from the initial CRC-32 state.
func New() *Digest {
	return &Digest{}
}

// Write folds p into the running checksum. It never returns an error.
func (d *Digest) Write(p []byte) (int, error) {
	d.h = crc32.Update(d.h, crc32.IEEETable, p)
	return len(p), nil
}

// Sum32 returns the checksum accumulated so far.
func (d *Digest) Sum32() uint32 {
	return d.h
}

// Reset restores the Digest to its zero state for reuse across entries.
func (d *Digest) Reset() {
	d.h = 0
}

// Of is a convenience one-shot CRC-32/IEEE of p, used for small
// buffers where streaming would be overkill.
func Of(p []byte) uint32 {
	return crc32.ChecksumIEEE(p)
}
