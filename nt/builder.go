package nt

// A Builder can build translators.
type Builder struct {
	physMem     PhysicalMemory
	virtMem     VirtualMemory
	regions     RegionLookup
	layout      FieldResolver
	tracer      Tracer
	maxPoolHops int
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		maxPoolHops: 1,
	}
}

// WithPhysicalMemory sets the raw physical memory access channel. It is
// the only mandatory collaborator.
func (b Builder) WithPhysicalMemory(m PhysicalMemory) Builder {
	b.physMem = m
	return b
}

// WithVirtualMemory sets the collaborator used for DTB-explicit virtual
// reads. Without one, the translator self-backs these reads through its
// own walker.
func (b Builder) WithVirtualMemory(m VirtualMemory) Builder {
	b.virtMem = m
	return b
}

// WithRegionLookup sets the address-space descriptor lookup. Without one,
// pages recorded only in descriptors resolve as unmapped.
func (b Builder) WithRegionLookup(l RegionLookup) Builder {
	b.regions = l
	return b
}

// WithFieldResolver sets the OS-version-dependent field offset table.
func (b Builder) WithFieldResolver(r FieldResolver) Builder {
	b.layout = r
	return b
}

// WithTracer sets a tracer notified once per top-level operation.
func (b Builder) WithTracer(tr Tracer) Builder {
	b.tracer = tr
	return b
}

// WithMaxPoolHops sets how many pool-resident prototype redirections one
// translation may follow. Real entry chains need one.
func (b Builder) WithMaxPoolHops(n int) Builder {
	b.maxPoolHops = n
	return b
}

// Build creates the translator.
func (b Builder) Build(name string) *Translator {
	if b.physMem == nil {
		panic("translator requires a physical memory channel")
	}

	return &Translator{
		name:        name,
		physMem:     b.physMem,
		virtMem:     b.virtMem,
		regions:     b.regions,
		layout:      b.layout,
		tracer:      b.tracer,
		maxPoolHops: b.maxPoolHops,
	}
}
