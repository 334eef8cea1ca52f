// Package hazard implements a hazard-pointer reclamation scheme for the
// intrusive linked lists in harrier/queue. It is the memory-safety layer
// that lets the Michael-Scott queue unlink nodes while another goroutine
// may still be mid-dereference of them.
//
// The scheme follows the classic publish-then-revalidate protocol: before
// a goroutine follows a pointer it read from shared state, it publishes
// that pointer into a Slot, then re-reads the shared location. If the
// value changed, the node may already be retired, so the goroutine
// discards the read and retries. Once published and validated, the
// pointer is safe to dereference until the goroutine clears the slot.
//
// Go gives goroutines no stable, queryable identity, so unlike a classic
// C++ hazard-pointer library this package cannot cache one Slot per
// thread for the thread's lifetime. Instead a Slot is acquired for the
// duration of a single TryPop call (Push dereferences no node it needs
// to protect and takes no slot) and released before it returns — functionally equivalent, since the
// protocol only needs the slot's address to stay stable while the
// pointer is published, not across calls.
package hazard

import (
	"sync"
	"sync/atomic"
)

// Slot is a reclamation anchor. Slots are allocated lazily, linked into
// their Domain's slot list, and never freed — their
// addresses must stay stable so a Scan can walk the list without
// synchronizing on its shape.
type Slot struct {
	ptr    atomic.Pointer[any]
	active atomic.Bool
	next   *Slot
}

// retired is one node awaiting reclamation. drop is invoked once no
// published hazard references addr and is what actually lets the node
// become garbage — typically by nilling out the last live reference so
// the GC can collect it (Go has no explicit free).
type retired struct {
	addr any
	drop func()
}

// Domain is one reclamation domain: one free list of hazard Slots and one
// pending-retirement list. A harrier/queue.Queue[T] owns exactly one
// Domain so that reclamation never confuses nodes belonging to different
// queues.
type Domain struct {
	slots atomic.Pointer[Slot]

	// mu guards pending only. Push never takes it, and TryPop takes it
	// only through Retire after a successful dequeue; it is touched solely
	// by Retire/scan bookkeeping.
	mu      sync.Mutex
	pending []retired
}

// NewDomain creates a fresh, ready-to-use reclamation domain.
func NewDomain() *Domain {
	return &Domain{}
}

// Acquire claims a free Slot for the duration of one queue operation,
// reusing a Slot left behind by a prior operation when possible and
// otherwise allocating and linking a new one. Callers must Release the
// slot when done (typically via defer).
func (d *Domain) Acquire() *Slot {
	for s := d.slots.Load(); s != nil; s = s.next {
		if !s.active.Load() && s.active.CompareAndSwap(false, true) {
			s.ptr.Store(nil)
			return s
		}
	}

	s := &Slot{}
	s.active.Store(true)
	for {
		head := d.slots.Load()
		s.next = head
		if d.slots.CompareAndSwap(head, s) {
			return s
		}
	}
}

// Release marks the slot free for reuse by a later operation.
func (d *Domain) Release(s *Slot) {
	s.ptr.Store(nil)
	s.active.Store(false)
}

// Protect publishes ptr as a hazard in the given slot. The caller must
// re-read the same shared location afterward and retry (re-Protect) if
// the reread disagrees with ptr — Protect cannot perform the reread
// itself since the source of truth is a generic atomic.Pointer[node[T]]
// this package has no visibility into.
func Protect[T any](s *Slot, ptr *T) {
	var boxed any = ptr
	s.ptr.Store(&boxed)
}

// Clear removes the slot's published hazard, signalling the caller is no
// longer dereferencing any node through it.
func Clear(s *Slot) { s.ptr.Store(nil) }

// slotCount walks the domain's slot list. Used only to size the retire
// threshold; O(live slots), which is bounded by peak concurrency.
func (d *Domain) slotCount() int {
	n := 0
	for s := d.slots.Load(); s != nil; s = s.next {
		n++
	}
	return n
}

// retireThreshold is 2x the number of currently-known slots, floored at
// 8 so a domain with few or no active slots still reclaims in bounded
// batches instead of letting the pending list grow unbounded.
func (d *Domain) retireThreshold() int {
	n := 2 * d.slotCount()
	if n < 8 {
		return 8
	}
	return n
}

// Retire hands addr to the reclamation scheme. Once the pending list
// crosses the threshold, every live hazard is snapshotted and any
// retired node not referenced by one is freed; survivors stay pending.
func (d *Domain) Retire(addr any, drop func()) {
	d.mu.Lock()
	d.pending = append(d.pending, retired{addr: addr, drop: drop})
	shouldScan := len(d.pending) >= d.retireThreshold()
	d.mu.Unlock()

	if shouldScan {
		d.scan()
	}
}

func (d *Domain) scan() {
	hazards := make(map[any]struct{})
	for s := d.slots.Load(); s != nil; s = s.next {
		if p := s.ptr.Load(); p != nil {
			hazards[*p] = struct{}{}
		}
	}

	d.mu.Lock()
	survivors := d.pending[:0]
	toFree := make([]retired, 0, len(d.pending))
	for _, r := range d.pending {
		if _, hazarded := hazards[r.addr]; hazarded {
			survivors = append(survivors, r)
			continue
		}
		toFree = append(toFree, r)
	}
	d.pending = survivors
	d.mu.Unlock()

	for _, r := range toFree {
		r.drop()
	}
}

// FlushAll forces an immediate scan regardless of the pending count. Used
// by Queue.Clear, where the caller's documented
// precondition (all poppers quiesced) makes an immediate full reclamation
// both safe and desirable instead of waiting for the threshold.
func (d *Domain) FlushAll() { d.scan() }
