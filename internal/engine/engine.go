// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package engine implements the per-direction forwarding loop: drain
// the receive ring, classify, fast-path or shape, release the slot.
package engine

import (
	"runtime"
	"sync/atomic"
	"time"

	"grimm.is/scalpel/internal/classifier"
	"grimm.is/scalpel/internal/shaper"
	"grimm.is/scalpel/internal/telemetry"
)

// heartbeatFlushInterval is the number of processed frames between
// telemetry flushes and heartbeat updates.
const heartbeatFlushInterval = 32

// Rx is the subset of RxRing the engine depends on.
type Rx interface {
	NextReady() ([]byte, bool)
	Release()
}

// Classifier is the subset of classifier.Classifier the engine depends
// on.
type Classifier interface {
	Classify(frame []byte) classifier.Priority
}

// Shaper is the subset of shaper.Shaper the engine depends on.
type Shaper interface {
	EnqueueNormal(frame []byte)
	Drain(tx shaper.Sender)
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Engine is one direction's forwarding loop: RxRing -> Classifier ->
// {TxSink | Shaper -> TxSink}.
type Engine struct {
	rx  Rx
	tx  shaper.Sender
	sh  Shaper
	cl  Classifier
	tel *telemetry.Telemetry
	dir telemetry.Direction

	clock Clock

	stop    chan struct{}
	stopped atomic.Bool

	localPkts  uint64
	localBytes uint64
}

// New builds an Engine. clock may be nil to use time.Now.
func New(rx Rx, tx shaper.Sender, sh Shaper, cl Classifier, tel *telemetry.Telemetry, dir telemetry.Direction, clock Clock) *Engine {
	if clock == nil {
		clock = realClock{}
	}
	return &Engine{
		rx:    rx,
		tx:    tx,
		sh:    sh,
		cl:    cl,
		tel:   tel,
		dir:   dir,
		clock: clock,
		stop:  make(chan struct{}),
	}
}

// Stop requests cooperative shutdown. Run observes it at the top of its
// next iteration and returns.
func (e *Engine) Stop() {
	if e.stopped.CompareAndSwap(false, true) {
		close(e.stop)
	}
}

// Run executes the forwarding loop until Stop is called. It never
// blocks on the data path; an empty ring yields the goroutine instead
// of spinning hot.
func (e *Engine) Run() {
	for {
		select {
		case <-e.stop:
			return
		default:
		}

		frame, ok := e.rx.NextReady()
		if ok {
			e.handleFrame(frame)
			e.rx.Release()
		} else {
			runtime.Gosched()
		}

		// The drain step runs on every iteration, including iterations
		// with no RX activity: a shaper that only flushes while traffic
		// arrives would defeat the point of rate limiting.
		e.sh.Drain(e.tx)
	}
}

func (e *Engine) handleFrame(frame []byte) {
	switch e.cl.Classify(frame) {
	case classifier.Critical, classifier.High:
		if n, err := e.tx.Send(frame); err != nil || n == 0 {
			e.tel.AddDropped(1)
		}
	default:
		e.sh.EnqueueNormal(frame)
	}

	e.localPkts++
	e.localBytes += uint64(len(frame))
	if e.localPkts == heartbeatFlushInterval {
		e.tel.AddForwarded(e.localPkts, e.localBytes)
		e.tel.TouchHeartbeat(e.dir, e.clock.Now())
		e.localPkts = 0
		e.localBytes = 0
	}
}
