package nt

// A Session describes one observed guest OS instance. It is built once
// when the guest is attached and treated as read-only afterwards, so it
// can be shared by concurrent translations without locking.
type Session struct {
	// KernelDTB is the directory table base of the guest kernel address
	// space. Prototype entries resolved from kernel pool are always read
	// under this DTB, regardless of the calling process.
	KernelDTB DTB

	// PhysicalMemoryLimitMask is the truncation mask the hypervisor
	// recorded when it capped the guest's physical memory at snapshot
	// time. Zero when no limit applies.
	PhysicalMemoryLimitMask uint64
}

// unswizzle reverses the hypervisor-applied truncation on software
// entries. Entries carrying the swizzle bit escaped the truncation and
// are kept as-is.
func (s *Session) unswizzle(p PTE) PTE {
	if s.PhysicalMemoryLimitMask != 0 && !p.SwizzleBit() {
		return p &^ PTE(s.PhysicalMemoryLimitMask)
	}

	return p
}
