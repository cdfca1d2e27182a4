// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package shaper

// Sender is the minimal surface the shaper needs from a transmit sink:
// a non-blocking send that reports how many bytes the kernel accepted.
type Sender interface {
	Send(frame []byte) (int, error)
}

// Shaper composes one TokenBucket and one BoundedFrameQueue into the
// Normal-priority path: strict FIFO, rate-limited, tail-drop on
// overflow.
type Shaper struct {
	bucket *TokenBucket
	queue  *BoundedFrameQueue
	onDrop func()
}

// NewShaper builds a Shaper. onDrop, if non-nil, is called exactly once
// per frame that EnqueueNormal fails to admit and once per frame whose
// send fails in Drain (used to drive the telemetry drop counter).
func NewShaper(bucket *TokenBucket, queue *BoundedFrameQueue, onDrop func()) *Shaper {
	return &Shaper{bucket: bucket, queue: queue, onDrop: onDrop}
}

// EnqueueNormal attempts to admit frame. On overflow it invokes onDrop
// and otherwise does nothing — the frame is never observed again.
func (s *Shaper) EnqueueNormal(frame []byte) {
	if !s.queue.Push(frame) {
		if s.onDrop != nil {
			s.onDrop()
		}
	}
}

// Drain sends as many queued frames as the token bucket currently
// permits, in FIFO order, stopping at the first frame it cannot afford.
// It never blocks and may drain zero, one, or many frames.
func (s *Shaper) Drain(tx Sender) {
	for !s.queue.Empty() {
		front, ok := s.queue.Front()
		if !ok {
			return
		}
		if !s.bucket.TryConsume(len(front)) {
			return
		}
		if n, err := tx.Send(front); err != nil || n == 0 {
			if s.onDrop != nil {
				s.onDrop()
			}
		}
		s.queue.Pop()
	}
}

// Len reports the number of frames currently queued.
func (s *Shaper) Len() int { return s.queue.Len() }
