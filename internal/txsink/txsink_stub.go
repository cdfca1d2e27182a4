// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package txsink

import scalpelerrors "grimm.is/scalpel/internal/errors"

// TxSink is unavailable outside Linux.
type TxSink struct{}

// Open always fails on non-Linux platforms.
func Open(iface string) (*TxSink, error) {
	return nil, scalpelerrors.New(scalpelerrors.KindInit, "txsink: AF_PACKET send requires linux")
}

func (s *TxSink) Send(frame []byte) (int, error) { return 0, nil }
func (s *TxSink) Interface() string              { return "" }
func (s *TxSink) Close() error                   { return nil }
