// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

// Package txsink wraps a raw socket bound to one interface with
// non-blocking send semantics: WOULD_BLOCK is a silent drop, never an
// error the caller has to handle specially.
package txsink

import (
	"net"

	"golang.org/x/sys/unix"

	scalpelerrors "grimm.is/scalpel/internal/errors"
)

func htons(v uint16) uint16 {
	return (v << 8 & 0xff00) | (v >> 8 & 0x00ff)
}

// TxSink submits frames to one named interface at the link layer.
type TxSink struct {
	fd    int
	ifidx int
	iface string
}

// Open binds a raw AF_PACKET socket to iface for transmit.
func Open(iface string) (*TxSink, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "lookup interface %s", iface)
	}

	proto := htons(unix.ETH_P_ALL)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(proto))
	if err != nil {
		return nil, scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "open tx socket on %s", iface)
	}

	sll := unix.SockaddrLinklayer{
		Protocol: proto,
		Ifindex:  ifi.Index,
	}
	if err := unix.Bind(fd, &sll); err != nil {
		unix.Close(fd)
		return nil, scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "bind tx socket to %s", iface)
	}

	return &TxSink{fd: fd, ifidx: ifi.Index, iface: iface}, nil
}

// Send submits frame with a non-blocking sendto. WOULD_BLOCK and any
// other kernel-side refusal are reported as (0, nil): the caller counts
// the drop in telemetry and moves on, it never treats this as an error
// to propagate.
func (s *TxSink) Send(frame []byte) (int, error) {
	sll := unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  s.ifidx,
	}
	err := unix.Sendto(s.fd, frame, unix.MSG_DONTWAIT, &sll)
	if err != nil {
		if err == unix.EWOULDBLOCK || err == unix.EAGAIN {
			return 0, nil
		}
		return 0, nil
	}
	return len(frame), nil
}

// Interface returns the name of the bound interface.
func (s *TxSink) Interface() string { return s.iface }

// Close releases the underlying socket.
func (s *TxSink) Close() error {
	if err := unix.Close(s.fd); err != nil {
		return scalpelerrors.Wrap(err, scalpelerrors.KindInternal, "close tx socket")
	}
	return nil
}
