// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package qos

import (
	"grimm.is/scalpel/internal/config"
	"grimm.is/scalpel/internal/logging"
)

// Manager is a no-op outside Linux: HTB qdiscs don't exist there.
type Manager struct{}

// NewManager builds a stub Manager.
func NewManager(logger *logging.Logger) *Manager {
	return &Manager{}
}

// ApplyConfig always succeeds without doing anything.
func (m *Manager) ApplyConfig(cfg *config.Config) error {
	return nil
}
