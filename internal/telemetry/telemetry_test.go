// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package telemetry_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"grimm.is/scalpel/internal/telemetry"
)

func TestAddForwardedAndDropped(t *testing.T) {
	tel := telemetry.New()

	tel.AddForwarded(10, 1500)
	tel.AddForwarded(5, 750)
	tel.AddDropped(2)

	require.Equal(t, uint64(15), tel.PacketsForwarded())
	require.Equal(t, uint64(2250), tel.BytesForwarded())
	require.Equal(t, uint64(2), tel.PacketsDropped())
}

func TestHeartbeatsAreIndependentPerDirection(t *testing.T) {
	tel := telemetry.New()
	now := time.Now()

	tel.TouchHeartbeat(telemetry.DirectionA, now)
	require.WithinDuration(t, now, tel.Heartbeat(telemetry.DirectionA), time.Millisecond)
	require.True(t, tel.Heartbeat(telemetry.DirectionB).IsZero())
}

func TestProbingFlag(t *testing.T) {
	tel := telemetry.New()
	require.False(t, tel.IsProbing())
	tel.SetProbing(true)
	require.True(t, tel.IsProbing())
}

func TestCollectorExportsCounters(t *testing.T) {
	tel := telemetry.New()
	tel.AddForwarded(3, 300)
	tel.AddDropped(1)

	reg := prometheus.NewRegistry()
	require.NoError(t, telemetry.RegisterMetrics(reg, tel))

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, fam := range families {
		if fam.GetName() == "scalpel_packets_forwarded_total" {
			found = true
			require.Equal(t, float64(3), fam.Metric[0].GetCounter().GetValue())
		}
	}
	require.True(t, found, "expected scalpel_packets_forwarded_total in gathered metrics")
}
