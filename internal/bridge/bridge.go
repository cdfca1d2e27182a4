// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

// Package bridge wires the two per-direction ForwardingEngines onto
// pinned, realtime-scheduled OS threads and runs the watchdog that
// reads their heartbeats.
package bridge

import (
	"runtime"

	"golang.org/x/sys/unix"

	"grimm.is/scalpel/internal/logging"
)

// Worker pins one ForwardingEngine to a CPU core under realtime FIFO
// scheduling. Affinity and priority failures are logged once as
// degraded warnings; the engine still runs, just not pinned.
type Worker struct {
	Name     string
	Core     int
	Priority int // SCHED_FIFO priority; 0 disables realtime scheduling
	Engine   interface{ Run() }
}

// Run locks the calling goroutine to its OS thread, attempts affinity
// and realtime-priority pinning, then blocks running the engine.
// Call it inside its own goroutine.
func (w Worker) Run(log *logging.Logger) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := pinAffinity(w.Core); err != nil {
		log.WithError(err).Warn("cpu affinity pin failed, running unpinned",
			"worker", w.Name, "core", w.Core)
	}
	if w.Priority > 0 {
		if err := pinRealtimeFIFO(w.Priority); err != nil {
			log.WithError(err).Warn("realtime priority request refused, running at default policy",
				"worker", w.Name, "priority", w.Priority)
		}
	}

	w.Engine.Run()
}

func pinAffinity(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}

func pinRealtimeFIFO(priority int) error {
	return unix.SchedSetAttr(0, &unix.SchedAttr{
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}, 0)
}
