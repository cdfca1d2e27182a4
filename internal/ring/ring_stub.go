// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package ring

import scalpelerrors "grimm.is/scalpel/internal/errors"

// DefaultBlockSize, DefaultBlockCount and DefaultFrameSize mirror the
// Linux defaults so callers can reference them on any platform.
const (
	DefaultBlockSize  = 32 * 1024
	DefaultBlockCount = 64
	DefaultFrameSize  = 2048
)

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

// RxRing is unavailable outside Linux; PACKET_RX_RING is a Linux-only
// facility.
type RxRing struct{}

// Open always fails on non-Linux platforms.
func Open(cfg Config) (*RxRing, error) {
	return nil, scalpelerrors.New(scalpelerrors.KindInit, "ring: PACKET_RX_RING requires linux")
}

func (r *RxRing) NextReady() ([]byte, bool) { return nil, false }
func (r *RxRing) Release()                  {}
func (r *RxRing) Interface() string         { return "" }
func (r *RxRing) Close() error              { return nil }
