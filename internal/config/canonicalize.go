// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"fmt"

	scalpelerrors "grimm.is/scalpel/internal/errors"
)

const (
	defaultLargeThreshold  = 1000
	defaultPunishTrigger   = 20
	defaultCleanupInterval = 5000
	defaultShaperCapacity  = 1024
	defaultGamePortFrom    = 12000
	defaultGamePortTo      = 12999
	defaultHeartbeatTimeout = "5s"
	defaultTickInterval     = "500ms"
	defaultSyslogPort       = 514
	defaultSyslogProtocol   = "udp"
	defaultSyslogTag        = "scalpel"
	defaultMetricsListen    = "127.0.0.1:9112"
)

var defaultGamePorts = []int{3074, 27015}

// Canonicalize fills in every optional field left zero-valued by the
// decoder with its documented default, so the rest of the bridge never
// has to special-case "unset".
func (c *Config) Canonicalize() {
	if c.Classifier.LargeThreshold == 0 {
		c.Classifier.LargeThreshold = defaultLargeThreshold
	}
	if c.Classifier.PunishTrigger == 0 {
		c.Classifier.PunishTrigger = defaultPunishTrigger
	}
	if c.Classifier.CleanupInterval == 0 {
		c.Classifier.CleanupInterval = defaultCleanupInterval
	}
	if len(c.Classifier.GamePorts) == 0 {
		c.Classifier.GamePorts = append([]int(nil), defaultGamePorts...)
	}
	if c.Classifier.GamePortRange == nil {
		c.Classifier.GamePortRange = &GamePortRange{From: defaultGamePortFrom, To: defaultGamePortTo}
	}

	if c.Shaper.CapacityFrames == 0 {
		c.Shaper.CapacityFrames = defaultShaperCapacity
	}

	if c.Watchdog.HeartbeatTimeout == "" {
		c.Watchdog.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Watchdog.TickInterval == "" {
		c.Watchdog.TickInterval = defaultTickInterval
	}

	if c.Syslog.Port == 0 {
		c.Syslog.Port = defaultSyslogPort
	}
	if c.Syslog.Protocol == "" {
		c.Syslog.Protocol = defaultSyslogProtocol
	}
	if c.Syslog.Tag == "" {
		c.Syslog.Tag = defaultSyslogTag
	}

	if c.Metrics.Listen == "" {
		c.Metrics.Listen = defaultMetricsListen
	}

	if c.LogDir == "" {
		c.LogDir = "/var/log/scalpel"
	}
}

// Validate checks cross-field invariants that Canonicalize cannot fix on
// its own, returning a *errors.Error with KindConfig on the first failure.
func (c *Config) Validate() error {
	if c.InterfaceA.Name == "" {
		return scalpelerrors.New(scalpelerrors.KindConfig, "interface_a.name is required")
	}
	if c.InterfaceB.Name == "" {
		return scalpelerrors.New(scalpelerrors.KindConfig, "interface_b.name is required")
	}
	if c.InterfaceA.Name == c.InterfaceB.Name {
		return scalpelerrors.Errorf(scalpelerrors.KindConfig, "interface_a and interface_b both name %q", c.InterfaceA.Name)
	}
	if c.InterfaceA.Core < 0 {
		return scalpelerrors.New(scalpelerrors.KindConfig, "interface_a.core must be >= 0")
	}
	if c.InterfaceB.Core < 0 {
		return scalpelerrors.New(scalpelerrors.KindConfig, "interface_b.core must be >= 0")
	}
	if c.InterfaceA.Core == c.InterfaceB.Core {
		return scalpelerrors.Errorf(scalpelerrors.KindConfig, "interface_a and interface_b cannot share core %d", c.InterfaceA.Core)
	}
	if c.Shaper.CapacityFrames <= 0 {
		return scalpelerrors.New(scalpelerrors.KindConfig, "shaper.capacity_frames must be positive")
	}
	if c.Shaper.MbpsOverride < 0 {
		return scalpelerrors.New(scalpelerrors.KindConfig, "shaper.mbps_override cannot be negative")
	}
	if c.Classifier.GamePortRange != nil && c.Classifier.GamePortRange.From > c.Classifier.GamePortRange.To {
		return scalpelerrors.Errorf(scalpelerrors.KindConfig, "classifier.game_port_range.from (%d) > to (%d)",
			c.Classifier.GamePortRange.From, c.Classifier.GamePortRange.To)
	}
	if c.Syslog.Enabled && c.Syslog.Host == "" {
		return scalpelerrors.New(scalpelerrors.KindConfig, "syslog.host is required when syslog.enabled is true")
	}
	if c.QoSBackstop.Enabled && c.QoSBackstop.Interface == "" {
		return scalpelerrors.New(scalpelerrors.KindConfig, "qos_backstop.interface is required when qos_backstop.enabled is true")
	}
	return nil
}

// IsGamePort reports whether port falls in the configured game port set
// or range.
func (c *ClassifierConfig) IsGamePort(port int) bool {
	for _, p := range c.GamePorts {
		if p == port {
			return true
		}
	}
	if c.GamePortRange != nil && port >= c.GamePortRange.From && port <= c.GamePortRange.To {
		return true
	}
	return false
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{%s<->%s}", c.InterfaceA.Name, c.InterfaceB.Name)
}
