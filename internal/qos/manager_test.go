// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package qos

import (
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/scalpel/internal/config"
	"grimm.is/scalpel/internal/testutil"
)

func TestApplyConfigNoopWhenDisabled(t *testing.T) {
	m := NewManager(nil)
	cfg := &config.Config{}
	cfg.QoSBackstop.Enabled = false

	require.NoError(t, m.ApplyConfig(cfg))
}

func TestApplyConfigRejectsMissingInterface(t *testing.T) {
	m := NewManager(nil)
	cfg := &config.Config{}
	cfg.QoSBackstop.Enabled = true
	cfg.QoSBackstop.UploadMbps = 100

	err := m.ApplyConfig(cfg)
	require.Error(t, err)
}

func TestApplyConfigRejectsZeroRate(t *testing.T) {
	m := NewManager(nil)
	cfg := &config.Config{}
	cfg.QoSBackstop.Enabled = true
	cfg.QoSBackstop.Interface = "eth0"

	err := m.ApplyConfig(cfg)
	require.Error(t, err)
}

// TestApplyConfigInstallsHTBCeiling exercises the real netlink path and
// needs a routable interface and CAP_NET_ADMIN, so it only runs under
// SCALPEL_VM_TEST.
func TestApplyConfigInstallsHTBCeiling(t *testing.T) {
	testutil.RequireVM(t)

	m := NewManager(nil)
	cfg := &config.Config{}
	cfg.QoSBackstop.Enabled = true
	cfg.QoSBackstop.Interface = "lo"
	cfg.QoSBackstop.UploadMbps = 100

	require.NoError(t, m.ApplyConfig(cfg))
}
