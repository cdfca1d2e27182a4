// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classifier_test

import (
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/require"

	"grimm.is/scalpel/internal/classifier"
)

func defaultConfig() classifier.Config {
	return classifier.Config{
		LargeThreshold:  1000,
		PunishTrigger:   20,
		CleanupInterval: 5000,
		GamePorts:       []int{3074, 27015},
		GamePortFrom:    12000,
		GamePortTo:      12999,
	}
}

func buildUDP(t *testing.T, sport, dport uint16, totalLen int) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(10, 0, 0, 1).To4(),
		DstIP:    net.IPv4(10, 0, 0, 2).To4(),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(sport),
		DstPort: layers.UDPPort(dport),
	}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	const headerLen = 14 + 20 + 8
	payloadLen := totalLen - headerLen
	if payloadLen < 0 {
		payloadLen = 0
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(make([]byte, payloadLen))))
	return buf.Bytes()
}

func buildTCP(t *testing.T, totalLen int) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(10, 0, 0, 1).To4(),
		DstIP:    net.IPv4(10, 0, 0, 2).To4(),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(51000),
		DstPort: layers.TCPPort(443),
		ACK:     true,
		Ack:     1,
		Seq:     1,
		Window:  1024,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	const headerLen = 14 + 20 + 20
	payloadLen := totalLen - headerLen
	if payloadLen < 0 {
		payloadLen = 0
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(make([]byte, payloadLen))))
	return buf.Bytes()
}

func TestDNSFastPath(t *testing.T) {
	c := classifier.New(defaultConfig(), nil)
	frame := buildUDP(t, 54321, 53, 74)

	require.Equal(t, classifier.Critical, c.Classify(frame))
	require.Equal(t, 0, c.FlowCount())
}

func TestTCPAckFastPath(t *testing.T) {
	c := classifier.New(defaultConfig(), nil)
	frame := buildTCP(t, 60)

	require.Equal(t, classifier.Critical, c.Classify(frame))
}

func TestQUICFastPathWithoutDisguiseCounting(t *testing.T) {
	c := classifier.New(defaultConfig(), nil)
	frame := buildUDP(t, 443, 55000, 1400)

	require.Equal(t, classifier.High, c.Classify(frame))
	require.Equal(t, 0, c.FlowCount())
}

func TestDisguiseDetection(t *testing.T) {
	c := classifier.New(defaultConfig(), nil)

	const sport, dport = 40000, 40001
	var last classifier.Priority
	for i := 1; i <= 21; i++ {
		frame := buildUDP(t, sport, dport, 1200)
		last = c.Classify(frame)
	}
	require.Equal(t, classifier.Normal, last)

	key := classifier.FlowKey{SPort: sport, DPort: dport}
	copy(key.SAddr[:], net.IPv4(10, 0, 0, 1).To4())
	copy(key.DAddr[:], net.IPv4(10, 0, 0, 2).To4())
	fs, ok := c.Lookup(key)
	require.True(t, ok)
	require.True(t, fs.IsDisguised)

	frame22 := buildUDP(t, sport, dport, 100)
	require.Equal(t, classifier.Normal, c.Classify(frame22))
}

func TestGamePortAllowlist(t *testing.T) {
	c := classifier.New(defaultConfig(), nil)

	first := buildUDP(t, 3074, 50000, 120)
	require.Equal(t, classifier.High, c.Classify(first))

	var last classifier.Priority
	for i := 1; i <= 21; i++ {
		frame := buildUDP(t, 3074, 50000, 1200)
		last = c.Classify(frame)
	}
	require.Equal(t, classifier.Normal, last)
}

func TestShortFrameIsNormal(t *testing.T) {
	c := classifier.New(defaultConfig(), nil)
	require.Equal(t, classifier.Normal, c.Classify(make([]byte, 10)))
}

func TestNonIPv4IsNormal(t *testing.T) {
	c := classifier.New(defaultConfig(), nil)
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeARP,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(make([]byte, 32))))

	require.Equal(t, classifier.Normal, c.Classify(buf.Bytes()))
}

func TestClassifyIsIdempotentForRepeatedIdenticalFrame(t *testing.T) {
	c := classifier.New(defaultConfig(), nil)
	frame := buildUDP(t, 443, 55000, 1400)

	require.Equal(t, c.Classify(frame), c.Classify(frame))
}
