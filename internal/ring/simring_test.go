// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ring_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/scalpel/internal/ring"
)

// TestRingReleaseOrder feeds a 16-slot ring with 40 frames in batches
// that fit within the slot count, and checks the consumer observes
// them in exact write order with exactly one release per frame.
func TestRingReleaseOrder(t *testing.T) {
	const numSlots = 16
	r := ring.NewSimRing(numSlots)

	const totalFrames = 40
	written := make([]string, 0, totalFrames)
	observed := make([]string, 0, totalFrames)

	fed := 0
	for fed < totalFrames {
		batch := numSlots
		if totalFrames-fed < batch {
			batch = totalFrames - fed
		}
		for i := 0; i < batch; i++ {
			frame := []byte(fmt.Sprintf("frame-%d", fed+i))
			written = append(written, string(frame))
			r.Feed(frame)
		}
		for i := 0; i < batch; i++ {
			view, ok := r.NextReady()
			require.True(t, ok, "expected a ready frame")
			observed = append(observed, string(view))
			r.Release()

			// Release advances the cursor: the next slot is ready only if
			// this batch fed it.
			next, ok := r.NextReady()
			if i < batch-1 {
				require.True(t, ok, "next fed slot must be ready after Release")
				require.Equal(t, fmt.Sprintf("frame-%d", fed+i+1), string(next))
			} else {
				require.False(t, ok, "slot must not be ready again until Feed writes it")
			}
		}
		fed += batch
	}

	require.Equal(t, written, observed)
}
