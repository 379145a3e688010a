package ecs

import "sync"

// ObjectID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on free so a stale ID never
// matches a recycled slot.
type ObjectID uint64

func NewObjectID(index uint32, generation uint32) ObjectID {
	return ObjectID(uint64(generation)<<32 | uint64(index))
}

func (id ObjectID) Index() uint32      { return uint32(id) }
func (id ObjectID) Generation() uint32 { return uint32(id >> 32) }
func (id ObjectID) IsZero() bool       { return id == 0 }

// Pool allocates object identities from a generational free list.
//
// Objects of owning event categories are allocated on the simulation
// goroutine and freed on the render goroutine, so the pool is guarded by a
// mutex. Slot generations start at 1 so no live ID is zero.
type Pool struct {
	mu          sync.Mutex
	generations []uint32
	freeList    []uint32
	live        int
}

func NewPool() *Pool {
	return &Pool{
		generations: make([]uint32, 0, 1024),
		freeList:    make([]uint32, 0, 256),
	}
}

// Alloc returns a fresh identity.
func (p *Pool) Alloc() ObjectID {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live++
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return NewObjectID(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 1)
	return NewObjectID(idx, 1)
}

// Alive reports whether id has been allocated and not freed since.
func (p *Pool) Alive(id ObjectID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aliveLocked(id)
}

func (p *Pool) aliveLocked(id ObjectID) bool {
	idx := id.Index()
	return int(idx) < len(p.generations) && p.generations[idx] == id.Generation()
}

// Free releases id. It returns false for a stale or unknown ID, which
// indicates a double free by the caller.
func (p *Pool) Free(id ObjectID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.aliveLocked(id) {
		return false
	}
	idx := id.Index()
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
	p.live--
	return true
}

// Live returns the number of allocated identities.
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}
