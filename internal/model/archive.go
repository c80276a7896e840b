package model

import "zipkit/internal/zerr"

// Zip64Threshold is the classic-format limit whose crossing, in any
// of the dimensions Archive.RecomputeZip64Need checks, forces ZIP64
// records.
const Zip64Threshold = 0xFFFFFFFF

// MaxClassicEntries is the classic central-directory entry-count
// limit (0xFFFF is reserved as the ZIP64 escape value).
const MaxClassicEntries = 0xFFFF

// Archive is the ordered in-memory model of one archive under
// construction or inspection: existing entries loaded from a
// pre-existing file plus new entries staged by the planner.
type Archive struct {
	Entries []*Entry

	ArchiveComment []byte

	CentralDirOffset uint64
	CentralDirSize   uint64

	// NeedsZip64 is derived; call RecomputeZip64Need after mutating
	// Entries rather than setting it directly.
	NeedsZip64 bool
}

// New returns an empty Archive ready to receive staged entries.
func New() *Archive {
	return &Archive{}
}

// TotalEntries is the number of live (non-deleted) entries, the value
// written to the EOCD/ZIP64-EOCD entry-count fields.
func (a *Archive) TotalEntries() int {
	n := 0
	for _, e := range a.Entries {
		if e.Action != ActionDelete {
			n++
		}
	}
	return n
}

// RecomputeZip64Need updates NeedsZip64 from the current entry list
// and central directory extent, per the archive-level ZIP64 trigger
// conditions: entry count, central directory offset/size, or any
// individual entry's sizes crossing the 32-bit limit.
func (a *Archive) RecomputeZip64Need() {
	if a.TotalEntries() >= MaxClassicEntries {
		a.NeedsZip64 = true
		return
	}
	if a.CentralDirOffset >= Zip64Threshold || a.CentralDirSize >= Zip64Threshold {
		a.NeedsZip64 = true
		return
	}
	for _, e := range a.Entries {
		if e.Action == ActionDelete {
			continue
		}
		if e.NeedsZip64() {
			a.NeedsZip64 = true
			return
		}
	}
	a.NeedsZip64 = false
}

// ByName returns the entry named name, or nil if no live entry
// carries that name.
func (a *Archive) ByName(name string) *Entry {
	for _, e := range a.Entries {
		if e.Name == name && e.Action != ActionDelete {
			return e
		}
	}
	return nil
}

// CheckInvariants validates the structural invariants an Archive must
// hold after every planner/writer pass: every live (not deleted) entry
// name is unique. The recorded central directory offset and size are
// not checked.
func (a *Archive) CheckInvariants() error {
	seen := make(map[string]bool, len(a.Entries))
	for _, e := range a.Entries {
		if e.Action == ActionDelete {
			continue
		}
		if seen[e.Name] {
			return zerr.Newf(zerr.Invariant, "duplicate entry name %q", e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}
