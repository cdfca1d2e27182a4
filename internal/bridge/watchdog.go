// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package bridge

import (
	"time"

	"grimm.is/scalpel/internal/logging"
	"grimm.is/scalpel/internal/telemetry"
)

// StallThreshold is how long a heartbeat may go unrefreshed before the
// watchdog logs a stall.
const StallThreshold = 5 * time.Second

// WatchdogTick is the watchdog's polling cadence.
const WatchdogTick = 500 * time.Millisecond

// Clock abstracts time.Now for deterministic watchdog tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Indicator is the subset of indicator.Indicator the watchdog drives:
// one color per tick, reflecting the healthiest state that still
// applies (yellow while a bandwidth probe is running, red on any
// stale heartbeat, green otherwise).
type Indicator interface {
	Green()
	Yellow()
	Red()
}

type noopIndicator struct{}

func (noopIndicator) Green()  {}
func (noopIndicator) Yellow() {}
func (noopIndicator) Red()    {}

// Watchdog polls both engines' heartbeats on a fixed cadence, logs a
// stall when one goes older than StallThreshold, and drives an
// Indicator's color to match. It runs on an unpinned goroutine; it
// never touches the data path.
type Watchdog struct {
	tel   *telemetry.Telemetry
	log   *logging.Logger
	clock Clock
	ind   Indicator
	tick  time.Duration
	stale time.Duration
	stop  chan struct{}
}

// NewWatchdog builds a Watchdog at the default cadence and stall
// threshold. clock may be nil to use time.Now; ind may be nil to drive
// no indicator at all.
func NewWatchdog(tel *telemetry.Telemetry, log *logging.Logger, clock Clock, ind Indicator) *Watchdog {
	return NewWatchdogWithTick(tel, log, clock, WatchdogTick, StallThreshold, ind)
}

// NewWatchdogWithTick builds a Watchdog with an explicit cadence and
// stall threshold, for tests that can't wait on the production cadence.
func NewWatchdogWithTick(tel *telemetry.Telemetry, log *logging.Logger, clock Clock, tick, stale time.Duration, ind Indicator) *Watchdog {
	if clock == nil {
		clock = realClock{}
	}
	if ind == nil {
		ind = noopIndicator{}
	}
	return &Watchdog{
		tel:   tel,
		log:   log,
		clock: clock,
		ind:   ind,
		tick:  tick,
		stale: stale,
		stop:  make(chan struct{}),
	}
}

// Run polls until Stop is called. Call it inside its own goroutine.
func (w *Watchdog) Run() {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.checkOnce()
		}
	}
}

func (w *Watchdog) checkOnce() {
	now := w.clock.Now()
	staleA := w.checkDirection(telemetry.DirectionA, now)
	staleB := w.checkDirection(telemetry.DirectionB, now)

	switch {
	case w.tel.IsProbing():
		w.ind.Yellow()
	case staleA || staleB:
		w.ind.Red()
	default:
		w.ind.Green()
	}
}

// checkDirection logs a stall when dir's heartbeat is older than
// w.stale, and reports whether it was stale.
func (w *Watchdog) checkDirection(dir telemetry.Direction, now time.Time) bool {
	hb := w.tel.Heartbeat(dir)
	if hb.IsZero() {
		// The engine hasn't flushed its first heartbeat batch yet.
		return false
	}
	age := now.Sub(hb)
	if age <= w.stale {
		return false
	}
	w.log.Warn("forwarding engine heartbeat stalled",
		"direction", directionName(dir), "age", age.String())
	return true
}

func directionName(dir telemetry.Direction) string {
	if dir == telemetry.DirectionA {
		return "a"
	}
	return "b"
}

// Stop requests the watchdog loop to exit after its current tick.
func (w *Watchdog) Stop() {
	close(w.stop)
}
