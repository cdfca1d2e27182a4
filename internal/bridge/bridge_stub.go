// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package bridge

import (
	"runtime"

	scalpelerrors "grimm.is/scalpel/internal/errors"
	"grimm.is/scalpel/internal/logging"
)

// Worker pins one ForwardingEngine to a CPU core under realtime FIFO
// scheduling. Outside Linux neither affinity nor realtime scheduling
// exist, so Run degrades immediately and logs once.
type Worker struct {
	Name     string
	Core     int
	Priority int
	Engine   interface{ Run() }
}

// Run locks the OS thread (the one portable half of pinning) and runs
// the engine unpinned, at the default scheduling policy.
func (w Worker) Run(log *logging.Logger) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	err := scalpelerrors.New(scalpelerrors.KindDegraded, "cpu affinity and realtime scheduling are linux-only")
	log.WithError(err).Warn("running unpinned", "worker", w.Name, "core", w.Core)

	w.Engine.Run()
}
