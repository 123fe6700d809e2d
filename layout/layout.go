// Package layout supplies the OS-build-dependent byte offsets of guest
// kernel structure fields. The translation engine never hardcodes a
// layout; it asks a field resolver, and this package is the table behind
// it.
package layout

import "github.com/Skyrano/icebox/nt"

// A Table maps structure field names to their byte offsets for one guest
// OS build. Build it once when the guest is identified and treat it as
// read-only afterwards.
type Table struct {
	build   string
	offsets map[string]uint64
}

// NewTable creates an empty Table for the named build.
func NewTable(build string) *Table {
	return &Table{
		build:   build,
		offsets: make(map[string]uint64),
	}
}

// Build returns the guest OS build the table describes.
func (t *Table) Build() string {
	return t.build
}

// Set records the offset of one field.
func (t *Table) Set(field string, offset uint64) {
	t.offsets[field] = offset
}

// FieldOffset returns the byte offset of the named field.
func (t *Table) FieldOffset(field string) (uint64, bool) {
	off, ok := t.offsets[field]
	return off, ok
}

// Known build profiles. The offsets come from the public symbol files of
// the respective kernels.
var profiles = map[string]map[string]uint64{
	"win10-1809": {
		nt.FieldVADFirstPrototypePTE: 0x48,
	},
	"win10-21h2": {
		nt.FieldVADFirstPrototypePTE: 0x48,
	},
	"win11-22h2": {
		nt.FieldVADFirstPrototypePTE: 0x48,
	},
}

// Profile returns the offset table for a known guest build.
func Profile(build string) (*Table, bool) {
	fields, ok := profiles[build]
	if !ok {
		return nil, false
	}

	t := NewTable(build)
	for field, off := range fields {
		t.Set(field, off)
	}

	return t, true
}

// Builds lists the guest builds with a bundled profile.
func Builds() []string {
	res := make([]string, 0, len(profiles))
	for b := range profiles {
		res = append(res, b)
	}

	return res
}
