// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package probe estimates two capacity ceilings the shaper needs at
// startup: how fast this CPU can classify frames, and how much the
// uplink actually carries. Neither runs on the data path; both are
// one-shot measurements a Supervisor takes before constructing the
// token bucket.
package probe

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"grimm.is/scalpel/internal/classifier"
	scalpelerrors "grimm.is/scalpel/internal/errors"
)

// Sender is the minimal transmit surface a probe needs.
type Sender interface {
	Send(frame []byte) (int, error)
}

// Classifier is the minimal classification surface ProbeInternal drives
// against synthetic frames; only the per-call cost is measured.
type Classifier interface {
	Classify(frame []byte) classifier.Priority
}

// Prober runs the three bandwidth/capacity estimation modes the
// Supervisor may consult before sizing the shaper's token bucket.
type Prober interface {
	// ProbeInternal benchmarks raw classification throughput for a fixed
	// window and reports it as an equivalent Mbps at minimum frame size.
	ProbeInternal(ctx context.Context) (mbps float64, err error)
	// ProbeISP floods minimum-size frames at a target PPS for a fixed
	// window and reports achieved throughput.
	ProbeISP(ctx context.Context, tx Sender) (mbps float64, err error)
	// ProbeRealISP steps through a PPS ladder sending real
	// Ethernet+IPv4+UDP frames addressed through the gateway to
	// targetIP, and reports the last step's achieved throughput.
	ProbeRealISP(ctx context.Context, tx Sender, gatewayMAC net.HardwareAddr, localIP, targetIP netip.Addr) (mbps float64, err error)
}

// ErrNoMeasurement is returned by NullProber: no probe ran, the caller
// should fall back to its configured or default capacity estimate.
var ErrNoMeasurement = scalpelerrors.New(scalpelerrors.KindDegraded, "probe: no measurement available")

// NullProber never measures anything; it is the default when probing is
// disabled or unsupported on the current platform.
type NullProber struct{}

func (NullProber) ProbeInternal(ctx context.Context) (float64, error) { return 0, ErrNoMeasurement }
func (NullProber) ProbeISP(ctx context.Context, tx Sender) (float64, error) {
	return 0, ErrNoMeasurement
}
func (NullProber) ProbeRealISP(ctx context.Context, tx Sender, gatewayMAC net.HardwareAddr, localIP, targetIP netip.Addr) (float64, error) {
	return 0, ErrNoMeasurement
}

const probeFrameSize = 64

// WindowProber is the real Prober: ProbeInternal and ProbeISP run for a
// configurable window instead of the 5-second windows the original
// hardcodes, so tests can shrink it. ProbeRealISP ignores Window; its
// ladder always uses one-second steps.
type WindowProber struct {
	Classifier Classifier
	Window     time.Duration
}

// NewWindowProber builds a WindowProber with the 5-second measurement
// window the original implementation uses.
func NewWindowProber(cl Classifier) *WindowProber {
	return &WindowProber{Classifier: cl, Window: 5 * time.Second}
}

// ProbeInternal hammers Classify with a synthetic minimum-size IPv4
// frame and reports classifications-per-second as an equivalent Mbps.
func (p *WindowProber) ProbeInternal(ctx context.Context) (float64, error) {
	frame := syntheticIPv4Frame()
	deadline := time.Now().Add(p.Window)

	var count uint64
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		p.Classifier.Classify(frame)
		count++
	}

	pps := float64(count) / p.Window.Seconds()
	return (pps * probeFrameSize * 8) / 1e6, nil
}

// ProbeISP sends minimum-size frames at a fixed target rate for the
// measurement window and reports what actually got sent.
func (p *WindowProber) ProbeISP(ctx context.Context, tx Sender) (float64, error) {
	const targetPPS = 450000
	interval := time.Second / time.Duration(targetPPS)

	frame := make([]byte, probeFrameSize)
	for i := range frame {
		frame[i] = 0xEE
	}

	deadline := time.Now().Add(p.Window)
	var sent uint64
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		loopStart := time.Now()
		if _, err := tx.Send(frame); err == nil {
			sent++
		}
		if wait := interval - time.Since(loopStart); wait > 0 {
			time.Sleep(wait)
		}
	}

	// Halved against a full-duplex link's nominal capacity: a one-way
	// flood only exercises one direction of the uplink.
	return (float64(sent) * probeFrameSize * 8) / (2 * 1e6), nil
}

// ProbeRealISP steps a real Ethernet+IPv4+UDP probe frame addressed at
// targetIP through gatewayMAC across a PPS ladder from 100k to 500k in
// 50k steps, one second per step, and returns the last step's Mbps.
func (p *WindowProber) ProbeRealISP(ctx context.Context, tx Sender, gatewayMAC net.HardwareAddr, localIP, targetIP netip.Addr) (float64, error) {
	frame, err := buildProbeFrame(gatewayMAC, localIP, targetIP)
	if err != nil {
		return 0, scalpelerrors.Wrap(err, scalpelerrors.KindInternal, "probe: build probe frame")
	}

	var lastMbps float64
	for stepPPS := 100000; stepPPS <= 500000; stepPPS += 50000 {
		select {
		case <-ctx.Done():
			return lastMbps, ctx.Err()
		default:
		}

		interval := time.Second / time.Duration(stepPPS)
		stepDeadline := time.Now().Add(time.Second)
		var sent uint64
	stepLoop:
		for time.Now().Before(stepDeadline) {
			select {
			case <-ctx.Done():
				break stepLoop
			default:
			}
			loopStart := time.Now()
			if _, err := tx.Send(frame); err == nil {
				sent++
			}
			if wait := interval - time.Since(loopStart); wait > 0 {
				time.Sleep(wait)
			}
		}
		lastMbps = (float64(sent) * probeFrameSize * 8) / 1e6
		if ctx.Err() != nil {
			return lastMbps, ctx.Err()
		}
	}

	return lastMbps, nil
}

// syntheticIPv4Frame builds a minimum-viable Ethernet+IPv4 frame that
// survives classifier parsing without representing any real traffic.
func syntheticIPv4Frame() []byte {
	frame := make([]byte, probeFrameSize)
	frame[12] = 0x08 // EtherType high byte: IPv4
	frame[13] = 0x00
	frame[14] = 0x45 // IP version 4, IHL 5
	return frame
}

// buildProbeFrame constructs a real Ethernet+IPv4+UDP frame to targetIP
// via gatewayMAC, sourced from localIP and a fixed probe port pair.
func buildProbeFrame(gatewayMAC net.HardwareAddr, localIP, targetIP netip.Addr) ([]byte, error) {
	eth := layers.Ethernet{
		DstMAC:       gatewayMAC,
		SrcMAC:       net.HardwareAddr{0, 0, 0, 0, 0, 0},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(localIP.AsSlice()),
		DstIP:    net.IP(targetIP.AsSlice()),
	}
	udp := layers.UDP{
		SrcPort: 12345,
		DstPort: 53, // DNS port lowers the odds of upstream filtering
	}
	if err := udp.SetNetworkLayerForChecksum(&ip); err != nil {
		return nil, err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, &ip, &udp, gopacket.Payload(make([]byte, 10))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
