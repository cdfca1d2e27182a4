// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ring

// SimRing reproduces the RxRing slot state machine over plain Go slices
// instead of a kernel mmap, so the release-order invariant and the
// forwarding engine's drain loop can be tested without root or a real
// network namespace.
type SimRing struct {
	slots   [][]byte
	status  []bool // true == USER (ready for consumer)
	cursor  int
	pending int // number of Feed'd frames not yet consumed
}

// NewSimRing builds a SimRing with numSlots empty slots, all initially
// owned by the "kernel" producer.
func NewSimRing(numSlots int) *SimRing {
	return &SimRing{
		slots:  make([][]byte, numSlots),
		status: make([]bool, numSlots),
	}
}

// Feed writes frame into the next slot past the highest slot fed so far
// and marks it USER, simulating the kernel producing a frame. It panics
// if the ring is full, mirroring a test setup error rather than a
// runtime condition (a real RxRing has no equivalent operation: the
// kernel never blocks on ring space the way this helper must).
func (r *SimRing) Feed(frame []byte) {
	idx := (r.cursor + r.pending) % len(r.slots)
	if r.pending >= len(r.slots) {
		panic("ring: SimRing has no free slots for Feed")
	}
	cp := append([]byte(nil), frame...)
	r.slots[idx] = cp
	r.status[idx] = true
	r.pending++
}

// NextReady mirrors RxRing.NextReady.
func (r *SimRing) NextReady() ([]byte, bool) {
	if !r.status[r.cursor] {
		return nil, false
	}
	return r.slots[r.cursor], true
}

// Release mirrors RxRing.Release.
func (r *SimRing) Release() {
	r.status[r.cursor] = false
	r.slots[r.cursor] = nil
	r.cursor = (r.cursor + 1) % len(r.slots)
	if r.pending > 0 {
		r.pending--
	}
}

func (r *SimRing) Close() error { return nil }
