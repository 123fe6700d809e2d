package nt

import (
	"encoding/binary"
	"errors"
)

// Errors reported by the page-level operations. Unmapped and
// fault-required are deliberately distinct values: both fail the
// operation, but callers can tell a hole in the address space from a page
// that only a page-in the engine cannot perform would materialize.
var (
	// ErrUnmapped means an intermediate table entry was absent or the
	// descriptor lookup found no region covering the address.
	ErrUnmapped = errors.New("virtual address is not mapped")

	// ErrFaultRequired means the page is pagefile-resident or its
	// prototype entry could not be fetched; resolving it would need a
	// page-fault-equivalent operation.
	ErrFaultRequired = errors.New("page requires a fault to be resolved")

	// ErrZeroPageWrite means non-zero data was written to a demand-zero
	// page, which has no physical backing to receive it.
	ErrZeroPageWrite = errors.New("cannot write non-zero data to a demand-zero page")
)

// TranslationState is the outcome of translating one virtual address.
type TranslationState int

const (
	// TranslationUnmapped means no table entry or descriptor covers the
	// address.
	TranslationUnmapped TranslationState = iota
	// TranslationMapped means the address resolves to a physical
	// address.
	TranslationMapped
	// TranslationZeroFilled means the page has no physical backing and
	// its content is defined as all zero.
	TranslationZeroFilled
	// TranslationFaultRequired means the page exists but only a
	// page-fault-equivalent operation could materialize it.
	TranslationFaultRequired
)

var translationStateNames = map[TranslationState]string{
	TranslationUnmapped:      "unmapped",
	TranslationMapped:        "mapped",
	TranslationZeroFilled:    "zero-filled",
	TranslationFaultRequired: "fault-required",
}

func (s TranslationState) String() string {
	return translationStateNames[s]
}

// A Translation is the result of one address translation. Exactly one
// state holds; PAddr is meaningful only when the state is
// TranslationMapped.
type Translation struct {
	PAddr uint64
	State TranslationState
}

var (
	unmapped      = Translation{State: TranslationUnmapped}
	zeroFilled    = Translation{State: TranslationZeroFilled}
	faultRequired = Translation{State: TranslationFaultRequired}
)

func mappedAt(base, offset uint64) Translation {
	return Translation{PAddr: base + offset, State: TranslationMapped}
}

// maxNestedWalks bounds how deep self-backed virtual reads may nest walks
// inside one translation. Well-formed guests need at most one level;
// malformed memory must not drive the engine into unbounded recursion.
const maxNestedWalks = 4

// A Translator replays the guest memory manager's translation logic
// against injected memory access collaborators. It keeps no per-call
// state and no cache: every call is a fresh walk, valid only for the
// instant the underlying memory was read.
type Translator struct {
	name string

	physMem PhysicalMemory
	virtMem VirtualMemory
	regions RegionLookup
	layout  FieldResolver
	tracer  Tracer

	maxPoolHops int
}

// Name returns the name of the translator.
func (t *Translator) Name() string {
	return t.name
}

// Translate resolves one virtual address under the given directory table
// base. The process context is optional; without it, only resolution
// paths that do not need address-space descriptors are reachable.
func (t *Translator) Translate(
	s *Session,
	proc *Process,
	dtb DTB,
	addr VirtualAddress,
) Translation {
	res := t.walk(s, proc, dtb, addr, 0)

	t.trace("translate", proc, dtb, addr, res)

	return res
}

// VirtualToPhysical returns the physical address backing addr. Both
// zero-filled and unresolvable pages report no physical address; callers
// that need to distinguish them must use ReadPage.
func (t *Translator) VirtualToPhysical(
	s *Session,
	proc *Process,
	dtb DTB,
	addr VirtualAddress,
) (uint64, bool) {
	res := t.walk(s, proc, dtb, addr, 0)

	t.trace("virtual-to-physical", proc, dtb, addr, res)

	if res.State == TranslationMapped {
		return res.PAddr, true
	}

	return 0, false
}

// ReadPage reads one page starting at addr. A demand-zero page reads as
// 4096 zero bytes without touching physical memory.
func (t *Translator) ReadPage(
	s *Session,
	proc *Process,
	dtb DTB,
	addr VirtualAddress,
) ([]byte, error) {
	res := t.walk(s, proc, dtb, addr, 0)

	t.trace("read-page", proc, dtb, addr, res)

	switch res.State {
	case TranslationMapped:
		return t.physMem.Read(res.PAddr, PageSize)
	case TranslationZeroFilled:
		return make([]byte, PageSize), nil
	case TranslationFaultRequired:
		return nil, ErrFaultRequired
	default:
		return nil, ErrUnmapped
	}
}

// WritePage writes one page of data at addr. Writing to a demand-zero
// page succeeds only when every byte of data is zero; there is no
// physical backing to receive anything else, and discarding the data
// silently is not acceptable.
func (t *Translator) WritePage(
	s *Session,
	proc *Process,
	dtb DTB,
	addr VirtualAddress,
	data []byte,
) error {
	if len(data) != PageSize {
		panic("write must cover exactly one page")
	}

	res := t.walk(s, proc, dtb, addr, 0)

	t.trace("write-page", proc, dtb, addr, res)

	switch res.State {
	case TranslationMapped:
		return t.physMem.Write(res.PAddr, data)
	case TranslationZeroFilled:
		if isZero(data) {
			return nil
		}
		return ErrZeroPageWrite
	case TranslationFaultRequired:
		return ErrFaultRequired
	default:
		return ErrUnmapped
	}
}

func isZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}

	return true
}

// readTableEntry reads one entry of a hardware table. The bool return
// reports whether the entry could be read at all; validity is the
// caller's concern.
func (t *Translator) readTableEntry(base, index uint64) (PTE, bool) {
	data, err := t.physMem.Read(base+index*pteSize, pteSize)
	if err != nil {
		return 0, false
	}

	return pteFromBytes(data), true
}

// walk drives the four-level table walk. Absent top or upper-mid entries
// end the walk unmapped; the two lower levels fall through to the
// software classifier, because the guest kernel records non-resident
// state in those entries.
func (t *Translator) walk(
	s *Session,
	proc *Process,
	dtb DTB,
	addr VirtualAddress,
	depth int,
) Translation {
	if depth > maxNestedWalks {
		return unmapped
	}

	pml4e, ok := t.readTableEntry(dtb.tableBase(), addr.PML4Index())
	if !ok || !pml4e.Valid() {
		return unmapped
	}

	pdpe, ok := t.readTableEntry(pml4e.PageFrameNumber()*PageSize, addr.PDPIndex())
	if !ok || !pdpe.Valid() {
		return unmapped
	}

	// 1 GiB page
	if pdpe.LargePage() {
		base := uint64(pdpe) & (mask(22) << 30)
		return mappedAt(base, uint64(addr)&mask(30))
	}

	pde, ok := t.readTableEntry(pdpe.PageFrameNumber()*PageSize, addr.PDIndex())
	if !ok {
		return unmapped
	}

	if !pde.Valid() {
		return t.softEntryToPhysical(s, proc, addr, pde, depth)
	}

	// 2 MiB page
	if pde.LargePage() {
		base := uint64(pde) & (mask(31) << 21)
		return mappedAt(base, uint64(addr)&mask(21))
	}

	pte, ok := t.readTableEntry(pde.PageFrameNumber()*PageSize, addr.PTIndex())
	if !ok {
		return unmapped
	}

	return t.softEntryToPhysical(s, proc, addr, pte, depth)
}

// softEntryToPhysical interprets a leaf entry the hardware cannot use.
// The prototype chase through kernel pool is an explicit loop bounded by
// maxPoolHops, so malformed or adversarial guest memory cannot keep the
// engine chasing redirections.
func (t *Translator) softEntryToPhysical(
	s *Session,
	proc *Process,
	addr VirtualAddress,
	pte PTE,
	depth int,
) Translation {
	for hop := 0; ; hop++ {
		if !pte.Valid() {
			pte = s.unswizzle(pte)
		}

		switch pte.Decode() {
		case PTEPresent:
			return mappedAt(pte.PageFrameNumber()*PageSize, addr.Offset())

		case PTEPrototype:
			if pte.TargetIsInProcess() {
				return t.regionEntryToPhysical(s, proc, addr, depth)
			}

			if hop >= t.maxPoolHops {
				return faultRequired
			}

			raw, err := t.readVirtual(
				s, pte.PrototypeTarget(), pteSize, s.KernelDTB, depth)
			if err != nil {
				return faultRequired
			}

			pte = pteFromBytes(raw)

		case PTETransition:
			return mappedAt(pte.TransitionFrame()*PageSize, addr.Offset())

		case PTEEmpty:
			// The walker found no hint at all. Only the address-space
			// descriptors know the page's state.
			return t.regionEntryToPhysical(s, proc, addr, depth)

		case PTEDemandZero:
			return zeroFilled

		default: // PTEPagedOut
			return faultRequired
		}
	}
}

// regionEntryToPhysical resolves a page through the address-space
// descriptor covering it: it locates the region, reads the region's
// first-prototype-entry pointer from guest memory, and classifies the
// prototype entry for this page. The classification is terminal; it never
// re-enters this path.
func (t *Translator) regionEntryToPhysical(
	s *Session,
	proc *Process,
	addr VirtualAddress,
	depth int,
) Translation {
	if proc == nil {
		// A kernel address reaching this point is an invalid access.
		if addr.IsKernel() {
			return unmapped
		}

		// A user address cannot be decided without the process.
		return faultRequired
	}

	if t.regions == nil || t.layout == nil {
		return unmapped
	}

	id, ok := t.regions.FindRegion(proc, addr)
	if !ok {
		return unmapped
	}

	span, ok := t.regions.RegionSpan(proc, id)
	if !ok {
		return unmapped
	}

	fieldOff, ok := t.layout.FieldOffset(FieldVADFirstPrototypePTE)
	if !ok {
		return unmapped
	}

	raw, err := t.readVirtual(
		s, uint64(id)+fieldOff, pteSize, proc.KernelDTB, depth)
	if err != nil {
		return unmapped
	}
	firstEntry := binary.LittleEndian.Uint64(raw)

	entryAddr := firstEntry + ((uint64(addr)-span.Start)/PageSize)*pteSize

	raw, err = t.readVirtual(s, entryAddr, pteSize, proc.KernelDTB, depth)
	if err != nil {
		return unmapped
	}

	return t.prototypeEntryToPhysical(s, addr, pteFromBytes(raw))
}

// prototypeEntryToPhysical classifies a fetched prototype entry. A
// prototype redirection at this point means the page belongs to a
// file-backed subsection, which only a fault can materialize.
func (t *Translator) prototypeEntryToPhysical(
	s *Session,
	addr VirtualAddress,
	pte PTE,
) Translation {
	if !pte.Valid() {
		pte = s.unswizzle(pte)
	}

	switch pte.Decode() {
	case PTEPresent:
		return mappedAt(pte.PageFrameNumber()*PageSize, addr.Offset())
	case PTEPrototype:
		return faultRequired
	case PTETransition:
		return mappedAt(pte.TransitionFrame()*PageSize, addr.Offset())
	case PTEEmpty, PTEDemandZero:
		return zeroFilled
	default: // PTEPagedOut
		return faultRequired
	}
}

// readVirtual reads guest virtual memory under an explicit DTB. It
// prefers the injected VirtualMemory collaborator and otherwise
// self-backs the read by walking without a process context, the way the
// surrounding memory layer would.
func (t *Translator) readVirtual(
	s *Session,
	addr, n uint64,
	dtb DTB,
	depth int,
) ([]byte, error) {
	if t.virtMem != nil {
		return t.virtMem.ReadWithDTB(addr, n, dtb)
	}

	res := make([]byte, 0, n)
	cursor := addr

	for cursor < addr+n {
		pageOff := cursor & mask(12)

		chunk := PageSize - pageOff
		if left := addr + n - cursor; left < chunk {
			chunk = left
		}

		tr := t.walk(s, nil, dtb, VirtualAddress(cursor), depth+1)
		switch tr.State {
		case TranslationMapped:
			data, err := t.physMem.Read(tr.PAddr, chunk)
			if err != nil {
				return nil, err
			}
			res = append(res, data...)
		case TranslationZeroFilled:
			res = append(res, make([]byte, chunk)...)
		case TranslationFaultRequired:
			return nil, ErrFaultRequired
		default:
			return nil, ErrUnmapped
		}

		cursor += chunk
	}

	return res, nil
}
