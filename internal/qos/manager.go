// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

// Package qos applies an optional kernel-side HTB ceiling to one
// interface as defense-in-depth underneath the userspace shaper: if the
// token-bucket shaper's estimate of available bandwidth is wrong, the
// kernel qdisc still caps egress at the configured backstop rate.
package qos

import (
	"fmt"

	"github.com/vishvananda/netlink"

	"grimm.is/scalpel/internal/config"
	scalpelerrors "grimm.is/scalpel/internal/errors"
	"grimm.is/scalpel/internal/logging"
)

// rootQdiscMinor and rootClassMinor are the minor numbers of the fixed
// qdisc/class handles this backstop always uses: one interface, one
// ceiling, no child classes.
const (
	rootQdiscMinor = 0
	rootClassMinor = 1
	htbDefaultBuf  = 1514 // one MTU-sized frame, enough burst for a single ceiling class
)

// Manager applies or removes the HTB backstop qdisc.
type Manager struct {
	logger *logging.Logger
}

// NewManager builds a Manager. logger may be nil to use the default.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	return &Manager{logger: logger}
}

// ApplyConfig installs the backstop qdisc described by cfg.QoSBackstop,
// or does nothing if it is disabled. The ceiling rate is UploadMbps, or
// DownloadMbps when UploadMbps is not positive: this backstop shapes
// egress only, matching where HTB can enforce a ceiling without an
// ingress redirect.
func (m *Manager) ApplyConfig(cfg *config.Config) error {
	b := cfg.QoSBackstop
	if !b.Enabled {
		return nil
	}
	if b.Interface == "" {
		return scalpelerrors.New(scalpelerrors.KindConfig, "qos: backstop enabled with no interface")
	}

	rateMbps := b.UploadMbps
	if rateMbps <= 0 {
		rateMbps = b.DownloadMbps
	}
	if rateMbps <= 0 {
		return scalpelerrors.New(scalpelerrors.KindConfig, "qos: backstop enabled with no positive rate")
	}

	return m.applyCeiling(b.Interface, rateMbps)
}

func (m *Manager) applyCeiling(iface string, rateMbps int) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "qos: interface %s not found", iface)
	}

	if err := clearRootQdiscs(link); err != nil {
		return scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "qos: clear existing qdiscs on %s", iface)
	}

	rootHandle := netlink.MakeHandle(1, rootQdiscMinor)
	qdisc := netlink.NewHtb(netlink.QdiscAttrs{
		LinkIndex: link.Attrs().Index,
		Parent:    netlink.HANDLE_ROOT,
		Handle:    rootHandle,
	})
	if err := netlink.QdiscAdd(qdisc); err != nil {
		return scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "qos: add root HTB qdisc on %s", iface)
	}

	rate := mbpsToBytesPerSec(rateMbps)
	class := netlink.NewHtbClass(netlink.ClassAttrs{
		LinkIndex: link.Attrs().Index,
		Parent:    rootHandle,
		Handle:    netlink.MakeHandle(1, rootClassMinor),
	}, netlink.HtbClassAttrs{
		Rate:    rate,
		Ceil:    rate,
		Buffer:  htbDefaultBuf,
		Cbuffer: htbDefaultBuf,
	})
	if err := netlink.ClassAdd(class); err != nil {
		return scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "qos: add backstop HTB class on %s", iface)
	}

	m.logger.Info("qos backstop applied", "interface", iface, "rate_mbps", rateMbps)
	return nil
}

func clearRootQdiscs(link netlink.Link) error {
	qdiscs, err := netlink.QdiscList(link)
	if err != nil {
		return fmt.Errorf("list qdiscs: %w", err)
	}
	for _, q := range qdiscs {
		if q.Attrs().Parent == netlink.HANDLE_ROOT {
			if err := netlink.QdiscDel(q); err != nil {
				return fmt.Errorf("delete existing root qdisc: %w", err)
			}
		}
	}
	return nil
}

func mbpsToBytesPerSec(mbps int) uint64 {
	return uint64(mbps) * 125000
}
