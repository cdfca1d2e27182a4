// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

// Package ring implements the kernel-mapped zero-copy receive ring: one
// PACKET_RX_RING mapping per bridged interface, exposed as a
// release-back-to-producer sequence of frame slots.
package ring

import (
	"net"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	scalpelerrors "grimm.is/scalpel/internal/errors"
)

const (
	// DefaultBlockSize is the per-block byte size of the shared mapping.
	DefaultBlockSize = 32 * 1024
	// DefaultBlockCount is the number of blocks in the mapping.
	DefaultBlockCount = 64
	// DefaultFrameSize is the fixed per-slot size, header included.
	DefaultFrameSize = 2048
)

// Slot status words, matching TP_STATUS_KERNEL / TP_STATUS_USER.
const (
	statusKernel uint64 = 0
	statusUser   uint64 = 1
)

// tpacketHdr mirrors struct tpacket_hdr on a 64-bit Linux host: the
// kernel writes tp_status, tp_len, tp_mac (and the rest) before handing
// a slot to user space; user space only ever writes tp_status back.
type tpacketHdr struct {
	Status  uint64
	Len     uint32
	Snaplen uint32
	Mac     uint16
	Net     uint16
	Sec     uint32
	Usec    uint32
	_       uint32 // pad to TPACKET_ALIGN(sizeof(tpacket_hdr))
}

// Config parameterizes an RxRing's kernel-shared mapping.
type Config struct {
	Interface  string
	BlockSize  int
	BlockCount int
	FrameSize  int
}

// DefaultConfig returns the default ring geometry for iface.
func DefaultConfig(iface string) Config {
	return Config{
		Interface:  iface,
		BlockSize:  DefaultBlockSize,
		BlockCount: DefaultBlockCount,
		FrameSize:  DefaultFrameSize,
	}
}

// RxRing maps a PACKET_RX_RING shared region on one interface and walks
// it in monotonic slot order.
type RxRing struct {
	fd       int
	mapping  []byte
	frameLen int
	numSlots int
	cursor   int
	iface    string
}

func htons(v uint16) uint16 {
	return (v << 8 & 0xff00) | (v >> 8 & 0x00ff)
}

// Open constructs an RxRing for cfg.Interface: socket, bind, set the
// PACKET_RX_RING socket option, and mmap the resulting shared region.
// Any failure here is a fatal init error; the caller must not spawn
// worker threads if Open returns an error.
func Open(cfg Config) (*RxRing, error) {
	ifi, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		return nil, scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "lookup interface %s", cfg.Interface)
	}

	proto := htons(unix.ETH_P_ALL)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(proto))
	if err != nil {
		return nil, scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "open packet socket on %s", cfg.Interface)
	}

	numFrames := (cfg.BlockSize * cfg.BlockCount) / cfg.FrameSize
	req := tpacketReq{
		BlockSize: uint32(cfg.BlockSize),
		BlockNr:   uint32(cfg.BlockCount),
		FrameSize: uint32(cfg.FrameSize),
		FrameNr:   uint32(numFrames),
	}
	if err := setPacketRxRing(fd, req); err != nil {
		unix.Close(fd)
		return nil, scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "setsockopt PACKET_RX_RING on %s", cfg.Interface)
	}

	mapLen := cfg.BlockSize * cfg.BlockCount
	mapping, err := unix.Mmap(fd, 0, mapLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "mmap rx ring on %s", cfg.Interface)
	}

	sll := unix.SockaddrLinklayer{
		Protocol: proto,
		Ifindex:  ifi.Index,
	}
	if err := unix.Bind(fd, &sll); err != nil {
		unix.Munmap(mapping)
		unix.Close(fd)
		return nil, scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "bind to interface %s", cfg.Interface)
	}

	return &RxRing{
		fd:       fd,
		mapping:  mapping,
		frameLen: cfg.FrameSize,
		numSlots: numFrames,
		iface:    cfg.Interface,
	}, nil
}

type tpacketReq struct {
	BlockSize uint32
	BlockNr   uint32
	FrameSize uint32
	FrameNr   uint32
}

func setPacketRxRing(fd int, req tpacketReq) error {
	_, _, errno := unix.Syscall6(unix.SYS_SETSOCKOPT, uintptr(fd), uintptr(unix.SOL_PACKET), uintptr(unix.PACKET_RX_RING),
		uintptr(unsafe.Pointer(&req)), unsafe.Sizeof(req), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func (r *RxRing) header(slot int) *tpacketHdr {
	offset := slot * r.frameLen
	return (*tpacketHdr)(unsafe.Pointer(&r.mapping[offset]))
}

// NextReady inspects the slot at the current cursor without advancing
// it. It never blocks: an empty ring is a normal "no frame" result.
func (r *RxRing) NextReady() ([]byte, bool) {
	hdr := r.header(r.cursor)
	if atomic.LoadUint64(&hdr.Status)&statusUser == 0 {
		return nil, false
	}
	base := r.cursor * r.frameLen
	start := base + int(hdr.Mac)
	end := start + int(hdr.Len)
	return r.mapping[start:end], true
}

// Release hands the current slot back to the kernel and advances the
// cursor. Precondition: the most recent NextReady returned a frame.
func (r *RxRing) Release() {
	hdr := r.header(r.cursor)
	atomic.StoreUint64(&hdr.Status, statusKernel)
	r.cursor = (r.cursor + 1) % r.numSlots
}

// Interface returns the name of the bound interface.
func (r *RxRing) Interface() string { return r.iface }

// Close unmaps the shared region and closes the socket.
func (r *RxRing) Close() error {
	if err := unix.Munmap(r.mapping); err != nil {
		unix.Close(r.fd)
		return scalpelerrors.Wrap(err, scalpelerrors.KindInternal, "munmap rx ring")
	}
	if err := unix.Close(r.fd); err != nil {
		return scalpelerrors.Wrap(err, scalpelerrors.KindInternal, "close rx ring socket")
	}
	return nil
}
