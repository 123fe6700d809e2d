// Package vad keeps per-process address-space region records and serves
// the region lookups the translation engine needs. The records mirror the
// guest's own descriptors: each region remembers the guest virtual
// address of its descriptor record so descriptor fields can be read back
// from guest memory.
package vad

import (
	"sync"

	"github.com/Skyrano/icebox/nt"
)

// A Region describes one contiguous mapping of a process address space.
type Region struct {
	PID   uint64
	ID    nt.RegionID
	Start uint64
	Size  uint64
}

// Contains reports whether the region covers the given address.
func (r Region) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.Start+r.Size
}

// A RegionTable holds the regions of all observed processes. It
// implements the engine's region lookup and is safe for concurrent use.
type RegionTable struct {
	sync.Mutex
	tables map[uint64]*processRegions
}

// NewRegionTable creates an empty RegionTable.
func NewRegionTable() *RegionTable {
	return &RegionTable{
		tables: make(map[uint64]*processRegions),
	}
}

func (t *RegionTable) getTable(pid uint64) *processRegions {
	t.Lock()
	defer t.Unlock()

	table, found := t.tables[pid]
	if !found {
		table = &processRegions{
			byID: make(map[nt.RegionID]Region),
		}
		t.tables[pid] = table
	}

	return table
}

// Insert puts a new region into the table.
func (t *RegionTable) Insert(r Region) {
	t.getTable(r.PID).insert(r)
}

// Remove removes a region from the table.
func (t *RegionTable) Remove(pid uint64, id nt.RegionID) {
	t.getTable(pid).remove(id)
}

// Regions returns a copy of all regions recorded for a process.
func (t *RegionTable) Regions(pid uint64) []Region {
	return t.getTable(pid).list()
}

// FindRegion returns the region containing the given virtual address.
func (t *RegionTable) FindRegion(
	proc *nt.Process,
	addr nt.VirtualAddress,
) (nt.RegionID, bool) {
	return t.getTable(proc.PID).find(uint64(addr))
}

// RegionSpan returns the address range the region covers.
func (t *RegionTable) RegionSpan(
	proc *nt.Process,
	id nt.RegionID,
) (nt.Span, bool) {
	return t.getTable(proc.PID).span(id)
}

type processRegions struct {
	sync.Mutex
	byID map[nt.RegionID]Region
}

func (p *processRegions) insert(r Region) {
	p.Lock()
	defer p.Unlock()

	if _, found := p.byID[r.ID]; found {
		panic("region already exists")
	}

	p.byID[r.ID] = r
}

func (p *processRegions) remove(id nt.RegionID) {
	p.Lock()
	defer p.Unlock()

	if _, found := p.byID[id]; !found {
		panic("region does not exist")
	}

	delete(p.byID, id)
}

func (p *processRegions) list() []Region {
	p.Lock()
	defer p.Unlock()

	res := make([]Region, 0, len(p.byID))
	for _, r := range p.byID {
		res = append(res, r)
	}

	return res
}

func (p *processRegions) find(addr uint64) (nt.RegionID, bool) {
	p.Lock()
	defer p.Unlock()

	for id, r := range p.byID {
		if r.Contains(addr) {
			return id, true
		}
	}

	return 0, false
}

func (p *processRegions) span(id nt.RegionID) (nt.Span, bool) {
	p.Lock()
	defer p.Unlock()

	r, found := p.byID[id]
	if !found {
		return nt.Span{}, false
	}

	return nt.Span{Start: r.Start, Size: r.Size}, true
}
