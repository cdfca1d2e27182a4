// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package telemetry holds the process-wide atomic counters the
// forwarding engines write and the watchdog, the status API and the
// Prometheus collector read. Writes are relaxed-ordered; readers see
// approximate values.
package telemetry

import (
	"math"
	"sync/atomic"
	"time"
)

// Direction distinguishes the two forwarding engines' heartbeats.
type Direction int

const (
	DirectionA Direction = iota
	DirectionB
)

// Telemetry is a single process-wide value, constructed once before any
// engine starts and handed to each by reference.
type Telemetry struct {
	packetsForwarded atomic.Uint64
	bytesForwarded   atomic.Uint64
	packetsDropped   atomic.Uint64

	heartbeatA atomic.Int64
	heartbeatB atomic.Int64

	isProbing atomic.Bool

	internalLimitMbpsBits atomic.Uint64
	ispLimitMbpsBits      atomic.Uint64
}

// New returns a zeroed Telemetry.
func New() *Telemetry {
	return &Telemetry{}
}

// AddForwarded accumulates packets and bytes the forwarding engine has
// dispatched, either to a TxSink or to a Shaper. A frame that is later
// dropped is counted here as well as in AddDropped.
func (t *Telemetry) AddForwarded(packets, bytes uint64) {
	t.packetsForwarded.Add(packets)
	t.bytesForwarded.Add(bytes)
}

// AddDropped accumulates frames lost to WOULD_BLOCK sends or queue
// overflow.
func (t *Telemetry) AddDropped(n uint64) {
	t.packetsDropped.Add(n)
}

func (t *Telemetry) PacketsForwarded() uint64 { return t.packetsForwarded.Load() }
func (t *Telemetry) BytesForwarded() uint64   { return t.bytesForwarded.Load() }
func (t *Telemetry) PacketsDropped() uint64   { return t.packetsDropped.Load() }

// TouchHeartbeat records now as the most recent liveness signal for dir.
func (t *Telemetry) TouchHeartbeat(dir Direction, now time.Time) {
	switch dir {
	case DirectionA:
		t.heartbeatA.Store(now.UnixNano())
	case DirectionB:
		t.heartbeatB.Store(now.UnixNano())
	}
}

// Heartbeat returns the last-recorded liveness timestamp for dir, or the
// zero time if none has been recorded yet.
func (t *Telemetry) Heartbeat(dir Direction) time.Time {
	var nanos int64
	switch dir {
	case DirectionA:
		nanos = t.heartbeatA.Load()
	case DirectionB:
		nanos = t.heartbeatB.Load()
	}
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// SetProbing flags whether a bandwidth probe is currently running, so
// the watchdog can drive the indicator's yellow state.
func (t *Telemetry) SetProbing(v bool) { t.isProbing.Store(v) }

// IsProbing reports the current probing flag.
func (t *Telemetry) IsProbing() bool { return t.isProbing.Load() }

// SetInternalLimitMbps records the most recent internal capacity probe
// result, for operator display.
func (t *Telemetry) SetInternalLimitMbps(v float64) {
	t.internalLimitMbpsBits.Store(math.Float64bits(v))
}

// InternalLimitMbps returns the most recent internal capacity estimate.
func (t *Telemetry) InternalLimitMbps() float64 {
	return math.Float64frombits(t.internalLimitMbpsBits.Load())
}

// SetISPLimitMbps records the most recent upstream bandwidth probe
// result.
func (t *Telemetry) SetISPLimitMbps(v float64) {
	t.ispLimitMbpsBits.Store(math.Float64bits(v))
}

// ISPLimitMbps returns the most recent upstream bandwidth estimate.
func (t *Telemetry) ISPLimitMbps() float64 {
	return math.Float64frombits(t.ispLimitMbpsBits.Load())
}
