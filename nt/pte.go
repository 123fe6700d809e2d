package nt

import "encoding/binary"

// A PTE is one 64-bit page table entry, at any of the four levels of the
// hierarchy. The same raw value carries several mutually exclusive
// layouts; which one applies is decided by Decode, never by aliasing the
// bits through more than one interpretation at a time.
type PTE uint64

func pteFromBytes(data []byte) PTE {
	return PTE(binary.LittleEndian.Uint64(data))
}

// Valid reports whether the entry is in its hardware form, directly
// understood by the MMU.
func (p PTE) Valid() bool {
	return p&1 != 0
}

// LargePage reports whether a valid directory-level entry maps a large
// page instead of pointing at a lower-level table.
func (p PTE) LargePage() bool {
	return p&(1<<7) != 0
}

// PageFrameNumber returns the physical frame number of a valid entry.
func (p PTE) PageFrameNumber() uint64 {
	return (uint64(p) >> 12) & mask(40)
}

// SwizzleBit reports whether the software entry escaped the truncation the
// hypervisor applies when a physical memory limit is recorded. Entries
// with the bit clear must be unswizzled before interpretation.
func (p PTE) SwizzleBit() bool {
	return p&(1<<4) != 0
}

// Prototype reports whether the software entry redirects to a prototype
// entry kept elsewhere.
func (p PTE) Prototype() bool {
	return p&(1<<10) != 0
}

// Transition reports whether the software entry is in transition: the page
// is still physically resident but removed from the active mapping.
func (p PTE) Transition() bool {
	return p&(1<<11) != 0
}

// TransitionFrame returns the physical frame number recorded in the
// transition form. The field is narrower than the hardware frame field.
func (p PTE) TransitionFrame() uint64 {
	return (uint64(p) >> 12) & mask(36)
}

// PageFileHigh returns the pagefile offset field of the software form. A
// zero value means the page was never written out: its content is defined
// to be all zero.
func (p PTE) PageFileHigh() uint64 {
	return uint64(p) >> 32
}

// PrototypeTarget returns the virtual address of the prototype entry this
// entry redirects to. The on-disk field is a signed 48-bit value, so it is
// sign-extended the way the guest kernel reads it.
func (p PTE) PrototypeTarget() uint64 {
	return uint64(int64(p) >> 16)
}

// inProcessSentinel marks prototype targets that must be resolved through
// the owning process' address-space descriptors instead of kernel pool.
const inProcessSentinel = 0xFFFFFFFF00000000

// TargetIsInProcess reports whether the prototype target carries the
// reserved sentinel in its upper 32 bits.
func (p PTE) TargetIsInProcess() bool {
	return p.PrototypeTarget()&inProcessSentinel == inProcessSentinel
}

// PTEState is the decoded interpretation of a page table entry.
type PTEState int

const (
	// PTEPresent marks a hardware-form entry holding a physical frame.
	PTEPresent PTEState = iota
	// PTEPrototype marks an entry whose real state lives in a prototype
	// entry elsewhere.
	PTEPrototype
	// PTETransition marks a physically resident page removed from the
	// active mapping.
	PTETransition
	// PTEEmpty marks an all-zero entry. The page state is recorded only
	// in the address-space descriptors.
	PTEEmpty
	// PTEDemandZero marks a page without backing whose content is
	// defined as all zero.
	PTEDemandZero
	// PTEPagedOut marks a page resident only in the pagefile.
	PTEPagedOut
)

var pteStateNames = map[PTEState]string{
	PTEPresent:    "present",
	PTEPrototype:  "prototype",
	PTETransition: "transition",
	PTEEmpty:      "empty",
	PTEDemandZero: "demand-zero",
	PTEPagedOut:   "paged-out",
}

func (s PTEState) String() string {
	return pteStateNames[s]
}

// Decode classifies the entry into exactly one interpretation, in the
// priority order the guest kernel itself applies. Callers must unswizzle
// non-valid entries first.
func (p PTE) Decode() PTEState {
	switch {
	case p.Valid():
		return PTEPresent
	case p.Prototype():
		return PTEPrototype
	case p.Transition():
		return PTETransition
	case p == 0:
		return PTEEmpty
	case p.PageFileHigh() == 0:
		return PTEDemandZero
	default:
		return PTEPagedOut
	}
}
