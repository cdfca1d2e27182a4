// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

// Config is the top-level bridge configuration, decoded from HCL or JSON.
type Config struct {
	SchemaVersion string `hcl:"schema_version" json:"schema_version"`

	InterfaceA InterfaceConfig `hcl:"interface_a,block" json:"interface_a"`
	InterfaceB InterfaceConfig `hcl:"interface_b,block" json:"interface_b"`

	Classifier ClassifierConfig `hcl:"classifier,block" json:"classifier"`
	Shaper     ShaperConfig     `hcl:"shaper,block" json:"shaper"`
	Watchdog   WatchdogConfig   `hcl:"watchdog,block" json:"watchdog"`

	LogDir string `hcl:"log_dir,optional" json:"log_dir,omitempty"`

	Syslog      SyslogConfig      `hcl:"syslog,block" json:"syslog"`
	Metrics     MetricsConfig     `hcl:"metrics,block" json:"metrics"`
	QoSBackstop QoSBackstopConfig `hcl:"qos_backstop,block" json:"qos_backstop"`
}

// InterfaceConfig names a bridge port and the CPU core its forwarding
// thread should be pinned to.
type InterfaceConfig struct {
	Name string `hcl:"name" json:"name"`
	Core int    `hcl:"core" json:"core"`
}

// GamePortRange is an inclusive port range treated as game traffic.
type GamePortRange struct {
	From int `hcl:"from" json:"from"`
	To   int `hcl:"to" json:"to"`
}

// ClassifierConfig configures flow classification thresholds.
type ClassifierConfig struct {
	LargeThreshold  int             `hcl:"large_threshold,optional" json:"large_threshold,omitempty"`
	PunishTrigger   int             `hcl:"punish_trigger,optional" json:"punish_trigger,omitempty"`
	CleanupInterval int             `hcl:"cleanup_interval,optional" json:"cleanup_interval,omitempty"`
	GamePorts       []int           `hcl:"game_ports,optional" json:"game_ports,omitempty"`
	GamePortRange   *GamePortRange  `hcl:"game_port_range,block" json:"game_port_range,omitempty"`
}

// ShaperConfig configures the per-interface token-bucket shaper.
type ShaperConfig struct {
	// MbpsOverride, when non-zero, skips bandwidth probing and uses this
	// rate directly.
	MbpsOverride   float64 `hcl:"mbps_override,optional" json:"mbps_override,omitempty"`
	CapacityFrames int     `hcl:"capacity_frames,optional" json:"capacity_frames,omitempty"`
}

// WatchdogConfig configures the watchdog's stall detection cadence.
type WatchdogConfig struct {
	HeartbeatTimeout string `hcl:"heartbeat_timeout,optional" json:"heartbeat_timeout,omitempty"`
	TickInterval     string `hcl:"tick_interval,optional" json:"tick_interval,omitempty"`
}

// SyslogConfig mirrors logging.SyslogConfig in HCL-decodable form.
type SyslogConfig struct {
	Enabled  bool   `hcl:"enabled,optional" json:"enabled,omitempty"`
	Host     string `hcl:"host,optional" json:"host,omitempty"`
	Port     int    `hcl:"port,optional" json:"port,omitempty"`
	Protocol string `hcl:"protocol,optional" json:"protocol,omitempty"`
	Tag      string `hcl:"tag,optional" json:"tag,omitempty"`
}

// MetricsConfig configures the Prometheus exposition server.
type MetricsConfig struct {
	Enabled bool   `hcl:"enabled,optional" json:"enabled,omitempty"`
	Listen  string `hcl:"listen,optional" json:"listen,omitempty"`
}

// QoSBackstopConfig configures the optional kernel-side HTB backstop.
type QoSBackstopConfig struct {
	Enabled      bool   `hcl:"enabled,optional" json:"enabled,omitempty"`
	Interface    string `hcl:"interface,optional" json:"interface,omitempty"`
	DownloadMbps int    `hcl:"download_mbps,optional" json:"download_mbps,omitempty"`
	UploadMbps   int    `hcl:"upload_mbps,optional" json:"upload_mbps,omitempty"`
}
