// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package classifier assigns each bridged frame a forwarding priority
// using a per-thread, lock-free flow table and a small set of ordered
// L3/L4 heuristics.
package classifier

import (
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// Priority is the outcome of classification.
type Priority int

const (
	// Normal traffic passes through the shaper.
	Normal Priority = iota
	// High traffic (QUIC, games, small unclassified datagrams) takes
	// the fast path.
	High
	// Critical traffic (DNS, small TCP control segments) takes the
	// same fast path as High.
	Critical
)

func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case High:
		return "high"
	default:
		return "normal"
	}
}

const flowExpiry = 30 * time.Second

// FlowKey identifies a UDP flow. TCP is classified statelessly and never
// produces a FlowKey.
type FlowKey struct {
	SAddr [4]byte
	DAddr [4]byte
	SPort uint16
	DPort uint16
}

// FlowStats is the per-FlowKey record the classifier maintains.
type FlowStats struct {
	TotalPkts   uint64
	LargePkts   uint64
	IsDisguised bool
	LastSeen    time.Time
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config carries the tunables the classifier needs; it is a narrow view
// over config.ClassifierConfig so this package doesn't import config.
type Config struct {
	LargeThreshold  int
	PunishTrigger   int
	CleanupInterval int
	GamePorts       []int
	GamePortFrom    int
	GamePortTo      int
}

// Classifier holds one direction's flow table. It must never be shared
// across goroutines: the data model depends on thread-local state.
type Classifier struct {
	flows   map[FlowKey]*FlowStats
	counter uint64
	clock   Clock

	largeThreshold  int
	punishTrigger   int
	cleanupInterval int
	gamePorts       map[int]struct{}
	gamePortFrom    int
	gamePortTo      int

	eth    layers.Ethernet
	ip4    layers.IPv4
	tcp    layers.TCP
	udp    layers.UDP
	parser *gopacket.DecodingLayerParser

	decoded []gopacket.LayerType
}

// New builds a Classifier from cfg. clock may be nil, in which case
// time.Now is used.
func New(cfg Config, clock Clock) *Classifier {
	if clock == nil {
		clock = realClock{}
	}

	c := &Classifier{
		flows:           make(map[FlowKey]*FlowStats),
		clock:           clock,
		largeThreshold:  cfg.LargeThreshold,
		punishTrigger:   cfg.PunishTrigger,
		cleanupInterval: cfg.CleanupInterval,
		gamePorts:       make(map[int]struct{}, len(cfg.GamePorts)),
		gamePortFrom:    cfg.GamePortFrom,
		gamePortTo:      cfg.GamePortTo,
		decoded:         make([]gopacket.LayerType, 0, 4),
	}
	for _, p := range cfg.GamePorts {
		c.gamePorts[p] = struct{}{}
	}

	c.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &c.eth, &c.ip4, &c.tcp, &c.udp)
	c.parser.IgnoreUnsupported = true

	return c
}

// Classify implements the ordered rules of the classification heuristic.
// It never returns an error: malformed or truncated frames fall through
// to Normal via the length and layer-presence guards.
func (c *Classifier) Classify(frame []byte) Priority {
	c.counter++
	if c.cleanupInterval > 0 && c.counter%uint64(c.cleanupInterval) == 0 {
		c.cleanup()
	}

	if len(frame) < 14 {
		return Normal
	}

	c.decoded = c.decoded[:0]
	_ = c.parser.DecodeLayers(frame, &c.decoded)

	var haveIPv4, haveTCP, haveUDP bool
	for _, lt := range c.decoded {
		switch lt {
		case layers.LayerTypeIPv4:
			haveIPv4 = true
		case layers.LayerTypeTCP:
			haveTCP = true
		case layers.LayerTypeUDP:
			haveUDP = true
		}
	}
	if !haveIPv4 {
		return Normal
	}

	switch c.ip4.Protocol {
	case layers.IPProtocolTCP:
		if !haveTCP {
			return Normal
		}
		if len(frame) < 64 {
			return Critical
		}
		return Normal

	case layers.IPProtocolUDP:
		if !haveUDP {
			return Normal
		}
		sport := uint16(c.udp.SrcPort)
		dport := uint16(c.udp.DstPort)

		if sport == 53 || dport == 53 {
			return Critical
		}
		if sport == 443 || dport == 443 {
			return High
		}

		key := FlowKey{SPort: sport, DPort: dport}
		copy(key.SAddr[:], c.ip4.SrcIP.To4())
		copy(key.DAddr[:], c.ip4.DstIP.To4())

		fs := c.upsert(key, len(frame))

		if fs.TotalPkts < 50 && !fs.IsDisguised {
			if fs.LargePkts > uint64(c.punishTrigger) {
				fs.IsDisguised = true
			}
		}
		if fs.IsDisguised {
			return Normal
		}
		if c.isGamePort(int(sport)) || c.isGamePort(int(dport)) {
			return High
		}
		if len(frame) < 256 {
			return High
		}
		return Normal

	default:
		return Normal
	}
}

func (c *Classifier) upsert(key FlowKey, frameLen int) *FlowStats {
	fs, ok := c.flows[key]
	if !ok {
		fs = &FlowStats{}
		c.flows[key] = fs
	}
	fs.TotalPkts++
	fs.LastSeen = c.clock.Now()
	if frameLen > c.largeThreshold {
		fs.LargePkts++
	}
	return fs
}

func (c *Classifier) isGamePort(port int) bool {
	if _, ok := c.gamePorts[port]; ok {
		return true
	}
	return port >= c.gamePortFrom && port <= c.gamePortTo
}

// cleanup removes every FlowStats entry whose LastSeen is older than
// flowExpiry. It runs inline on the classifying goroutine; there is no
// background timer.
func (c *Classifier) cleanup() {
	now := c.clock.Now()
	for k, fs := range c.flows {
		if now.Sub(fs.LastSeen) > flowExpiry {
			delete(c.flows, k)
		}
	}
}

// Lookup returns the FlowStats for key, if any, for tests and telemetry.
func (c *Classifier) Lookup(key FlowKey) (FlowStats, bool) {
	fs, ok := c.flows[key]
	if !ok {
		return FlowStats{}, false
	}
	return *fs, true
}

// FlowCount reports the number of live entries in the flow table.
func (c *Classifier) FlowCount() int {
	return len(c.flows)
}
