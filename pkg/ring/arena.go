package ring

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

type Result struct {
	N   int
	Err error
}

const (
	slotWaiting int32 = iota
	slotDelivered
	slotAbandoned
)

// slot
// is one in-flight request. Everything the kernel may touch is pinned and
// referenced here until the completion for id is observed.
type slot struct {
	id      uint64
	pinner  runtime.Pinner
	refs    []unsafe.Pointer
	ch      chan Result
	state   atomic.Int32
	abandon func(Result)
}

// deliver
// hands r to the awaiting caller, or to the abandon hook once the caller
// has given up on the request.
func (s *slot) deliver(r Result) {
	if s.state.CompareAndSwap(slotWaiting, slotDelivered) {
		s.ch <- r
		return
	}
	if s.abandon != nil {
		s.abandon(r)
	}
}

func (s *slot) pin(pointers []unsafe.Pointer) {
	for _, p := range pointers {
		if p == nil {
			continue
		}
		s.pinner.Pin(p)
		s.refs = append(s.refs, p)
	}
}

func (s *slot) unpin() {
	s.pinner.Unpin()
	s.refs = nil
}

// arena
// maps request ids to slots. A slot leaves the arena only through take.
type arena struct {
	mu    sync.Mutex
	slots map[uint64]*slot
}

func newArena(capacity int) *arena {
	return &arena{
		slots: make(map[uint64]*slot, capacity),
	}
}

func (a *arena) put(s *slot) {
	a.mu.Lock()
	a.slots[s.id] = s
	a.mu.Unlock()
}

func (a *arena) take(id uint64) (s *slot, ok bool) {
	a.mu.Lock()
	s, ok = a.slots[id]
	if ok {
		delete(a.slots, id)
	}
	a.mu.Unlock()
	return
}

func (a *arena) len() int {
	a.mu.Lock()
	n := len(a.slots)
	a.mu.Unlock()
	return n
}

// drain
// empties the arena and returns what was left.
func (a *arena) drain() []*slot {
	a.mu.Lock()
	remains := make([]*slot, 0, len(a.slots))
	for id, s := range a.slots {
		remains = append(remains, s)
		delete(a.slots, id)
	}
	a.mu.Unlock()
	return remains
}

// orphans keeps slots whose completion was never observed before the ring
// was torn down. Their memory stays pinned for the life of the process.
var orphans struct {
	mu    sync.Mutex
	slots []*slot
}

func orphan(slots []*slot) {
	if len(slots) == 0 {
		return
	}
	orphans.mu.Lock()
	orphans.slots = append(orphans.slots, slots...)
	orphans.mu.Unlock()
}
