// Package nt translates guest virtual addresses of a Windows guest into
// physical addresses by replaying the NT memory manager's paging logic
// from outside the guest.
package nt

const (
	// PageSize is the base page size of the guest. All page-granular
	// operations in this package work on 4 KiB pages.
	PageSize = 4096

	// pteSize is the size of one page table entry at any level.
	pteSize = 8
)

// A DTB is the physical address of the root page table of an address-space
// context (the value the guest keeps in CR3).
type DTB uint64

// tableBase strips the control bits from the register value and keeps the
// physical address of the top-level table.
func (d DTB) tableBase() uint64 {
	return uint64(d) & (mask(40) << 12)
}

// A Process identifies the guest process whose address space is being
// inspected. The engine never mutates it; it only needs the kernel DTB the
// guest recorded for the process, under which the process' address-space
// descriptors are reachable.
type Process struct {
	PID       uint64
	KernelDTB DTB
}

// A VirtualAddress is a 64-bit guest virtual address. Its accessors expose
// the four 9-bit table indices and the 12-bit page offset of the 4-level
// paging layout.
type VirtualAddress uint64

func mask(bits uint) uint64 {
	return ^(^uint64(0) << bits)
}

// Offset returns the offset of the address within its 4 KiB page.
func (a VirtualAddress) Offset() uint64 {
	return uint64(a) & mask(12)
}

// PTIndex returns the index into the leaf-level page table.
func (a VirtualAddress) PTIndex() uint64 {
	return (uint64(a) >> 12) & mask(9)
}

// PDIndex returns the index into the page directory.
func (a VirtualAddress) PDIndex() uint64 {
	return (uint64(a) >> 21) & mask(9)
}

// PDPIndex returns the index into the page directory pointer table.
func (a VirtualAddress) PDPIndex() uint64 {
	return (uint64(a) >> 30) & mask(9)
}

// PML4Index returns the index into the top-level table.
func (a VirtualAddress) PML4Index() uint64 {
	return (uint64(a) >> 39) & mask(9)
}

// IsKernel reports whether the address lies in the kernel half of the
// guest address space. Bits 52-63 must all be set.
func (a VirtualAddress) IsKernel() bool {
	return uint64(a)>>52 == mask(12)
}
