package nt

// PhysicalMemory is the raw guest physical memory access channel,
// typically backed by a hypervisor or by a loaded snapshot. Reads and
// writes are uncached; a failed access returns an error.
type PhysicalMemory interface {
	Read(addr, n uint64) ([]byte, error)
	Write(addr uint64, data []byte) error
}

// VirtualMemory reads guest virtual memory under an explicitly supplied
// directory table base rather than an ambient one. The engine uses it to
// fetch prototype entries from kernel pool and to read address-space
// descriptor fields. When no implementation is injected, the engine
// self-backs these reads through its own walker.
type VirtualMemory interface {
	ReadWithDTB(addr, n uint64, dtb DTB) ([]byte, error)
}

// A RegionID identifies one address-space descriptor record. It carries
// the guest virtual address of the record so descriptor fields can be
// read from guest memory.
type RegionID uint64

// A Span is the contiguous virtual address range one descriptor covers.
type Span struct {
	Start uint64
	Size  uint64
}

// RegionLookup finds the address-space descriptor covering a virtual
// address. The engine only ever consults it read-only; the descriptor
// tree owns the records and their lifetime.
type RegionLookup interface {
	FindRegion(proc *Process, addr VirtualAddress) (RegionID, bool)
	RegionSpan(proc *Process, id RegionID) (Span, bool)
}

// FieldVADFirstPrototypePTE names the byte offset of the first-prototype-
// entry pointer within an address-space descriptor record. The offset
// depends on the guest OS build and is supplied by a FieldResolver.
const FieldVADFirstPrototypePTE = "MMVAD.FirstPrototypePte"

// FieldResolver maps OS-version-dependent structure fields to their byte
// offsets within guest records.
type FieldResolver interface {
	FieldOffset(field string) (uint64, bool)
}
