// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package netenv discovers the local network environment (interface
// address, default gateway, gateway MAC) by parsing the same kernel
// tables a shell session would: /proc/net/route and /proc/net/arp.
// It is never on the data path — cmd/scalpel-bridge consults it once,
// at startup, to log the default gateway for the operator.
package netenv

import (
	"bufio"
	"context"
	"encoding/binary"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"

	scalpelerrors "grimm.is/scalpel/internal/errors"
)

// Resolver discovers local addressing and gateway information.
type Resolver interface {
	LocalIP(iface string) (netip.Addr, error)
	GatewayIP() (netip.Addr, error)
	GatewayMAC(ctx context.Context, gatewayIP netip.Addr) (net.HardwareAddr, error)
}

// ProcResolver implements Resolver by reading /proc/net on a Linux host.
type ProcResolver struct{}

// LocalIP returns iface's first IPv4 address.
func (ProcResolver) LocalIP(iface string) (netip.Addr, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return netip.Addr{}, scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "netenv: lookup interface %s", iface)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return netip.Addr{}, scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "netenv: addresses for %s", iface)
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			addr, ok := netip.AddrFromSlice(v4)
			if ok {
				return addr.Unmap(), nil
			}
		}
	}
	return netip.Addr{}, scalpelerrors.Errorf(scalpelerrors.KindInit, "netenv: %s has no IPv4 address", iface)
}

// GatewayIP reads the default route's gateway from /proc/net/route.
func (ProcResolver) GatewayIP() (netip.Addr, error) {
	f, err := os.Open("/proc/net/route")
	if err != nil {
		return netip.Addr{}, scalpelerrors.Wrap(err, scalpelerrors.KindInit, "netenv: open /proc/net/route")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Scan() // header line
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		// Destination 00000000 is the default route.
		if fields[1] == "00000000" {
			return parseLittleEndianHexIP(fields[2])
		}
	}
	return netip.Addr{}, scalpelerrors.New(scalpelerrors.KindInit, "netenv: no default route found")
}

// GatewayMAC looks up gatewayIP's hardware address in /proc/net/arp.
// The ARP cache may need a prior packet to gatewayIP to be populated.
func (ProcResolver) GatewayMAC(ctx context.Context, gatewayIP netip.Addr) (net.HardwareAddr, error) {
	f, err := os.Open("/proc/net/arp")
	if err != nil {
		return nil, scalpelerrors.Wrap(err, scalpelerrors.KindInit, "netenv: open /proc/net/arp")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Scan() // header line
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		if fields[0] == gatewayIP.String() {
			return net.ParseMAC(fields[3])
		}
	}
	return nil, scalpelerrors.Errorf(scalpelerrors.KindInit, "netenv: no ARP entry for %s", gatewayIP)
}

func parseLittleEndianHexIP(hexStr string) (netip.Addr, error) {
	v, err := strconv.ParseUint(hexStr, 16, 32)
	if err != nil {
		return netip.Addr{}, scalpelerrors.Wrap(err, scalpelerrors.KindInit, "netenv: parse route gateway field")
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return netip.AddrFrom4(b), nil
}
