// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/scalpel/internal/config"
)

const sampleHCL = `
schema_version = "1.0"

interface_a {
  name = "eth0"
  core = 2
}

interface_b {
  name = "eth1"
  core = 3
}

classifier {
  large_threshold  = 1000
  punish_trigger   = 20
  cleanup_interval = 5000
  game_ports       = [3074, 27015]
  game_port_range {
    from = 12000
    to   = 12999
  }
}

shaper {
  mbps_override   = 0
  capacity_frames = 1024
}

watchdog {
  heartbeat_timeout = "5s"
  tick_interval     = "500ms"
}

log_dir   = "/var/log/scalpel"

syslog {
  enabled  = false
  host     = ""
  port     = 514
  protocol = "udp"
  tag      = "scalpel"
}

metrics {
  enabled = true
  listen  = "127.0.0.1:9112"
}

qos_backstop {
  enabled       = false
  interface     = "eth0"
  download_mbps = 0
  upload_mbps   = 0
}
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadHCL(t *testing.T) {
	path := writeTemp(t, "bridge.hcl", sampleHCL)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "eth0", cfg.InterfaceA.Name)
	require.Equal(t, 2, cfg.InterfaceA.Core)
	require.Equal(t, "eth1", cfg.InterfaceB.Name)
	require.Equal(t, []int{3074, 27015}, cfg.Classifier.GamePorts)
	require.True(t, cfg.Classifier.IsGamePort(3074))
	require.True(t, cfg.Classifier.IsGamePort(12500))
	require.False(t, cfg.Classifier.IsGamePort(80))
}

func TestCanonicalizeFillsDefaults(t *testing.T) {
	cfg := &config.Config{
		InterfaceA: config.InterfaceConfig{Name: "eth0", Core: 2},
		InterfaceB: config.InterfaceConfig{Name: "eth1", Core: 3},
	}
	cfg.Canonicalize()

	require.Equal(t, 1000, cfg.Classifier.LargeThreshold)
	require.Equal(t, 20, cfg.Classifier.PunishTrigger)
	require.Equal(t, 5000, cfg.Classifier.CleanupInterval)
	require.Equal(t, []int{3074, 27015}, cfg.Classifier.GamePorts)
	require.Equal(t, 1024, cfg.Shaper.CapacityFrames)
	require.Equal(t, "5s", cfg.Watchdog.HeartbeatTimeout)
	require.Equal(t, "udp", cfg.Syslog.Protocol)
}

func TestValidateRejectsSharedInterfaceName(t *testing.T) {
	cfg := &config.Config{
		InterfaceA: config.InterfaceConfig{Name: "eth0", Core: 2},
		InterfaceB: config.InterfaceConfig{Name: "eth0", Core: 3},
	}
	cfg.Canonicalize()
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsSharedCore(t *testing.T) {
	cfg := &config.Config{
		InterfaceA: config.InterfaceConfig{Name: "eth0", Core: 2},
		InterfaceB: config.InterfaceConfig{Name: "eth1", Core: 2},
	}
	cfg.Canonicalize()
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroCapacity(t *testing.T) {
	cfg := &config.Config{
		InterfaceA: config.InterfaceConfig{Name: "eth0", Core: 2},
		InterfaceB: config.InterfaceConfig{Name: "eth1", Core: 3},
		Shaper:     config.ShaperConfig{CapacityFrames: 0},
	}
	cfg.Canonicalize()
	cfg.Shaper.CapacityFrames = 0
	require.Error(t, cfg.Validate())
}

func TestSaveHCLRoundTrips(t *testing.T) {
	cfg := &config.Config{
		InterfaceA: config.InterfaceConfig{Name: "eth0", Core: 2},
		InterfaceB: config.InterfaceConfig{Name: "eth1", Core: 3},
	}
	cfg.Canonicalize()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.hcl")
	require.NoError(t, config.SaveHCL(cfg, path))

	reloaded, err := config.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, cfg.InterfaceA.Name, reloaded.InterfaceA.Name)
	require.Equal(t, cfg.Classifier.GamePorts, reloaded.Classifier.GamePorts)
}
