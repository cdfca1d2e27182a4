// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package indicator drives the status LED the watchdog uses to surface
// liveness state to an operator standing next to the hardware.
package indicator

import (
	"fmt"
	"os"
)

// BCM GPIO pin numbers wired to the status LED.
const (
	gpioRed   = "17"
	gpioGreen = "27"
)

// Indicator is the tri-state status light: green (healthy), yellow
// (probing/degraded), red (stalled), or off.
type Indicator interface {
	Green()
	Yellow()
	Red()
	Off()
}

// SysfsIndicator drives a red/green LED pair through the kernel's GPIO
// sysfs interface. Writes are best-effort: a board with no LED wired up
// should never fail a watchdog tick over it.
type SysfsIndicator struct{}

// Green indicates normal operation.
func (SysfsIndicator) Green() { writeSysfs(gpioRed, "0"); writeSysfs(gpioGreen, "1") }

// Yellow indicates a bandwidth probe is running.
func (SysfsIndicator) Yellow() { writeSysfs(gpioRed, "1"); writeSysfs(gpioGreen, "1") }

// Red indicates a stalled heartbeat.
func (SysfsIndicator) Red() { writeSysfs(gpioRed, "1"); writeSysfs(gpioGreen, "0") }

// Off turns both LEDs off.
func (SysfsIndicator) Off() { writeSysfs(gpioRed, "0"); writeSysfs(gpioGreen, "0") }

func writeSysfs(pin, val string) {
	path := fmt.Sprintf("/sys/class/gpio/gpio%s/value", pin)
	_ = os.WriteFile(path, []byte(val), 0o644)
}

// NoopIndicator drives no LED at all.
type NoopIndicator struct{}

func (NoopIndicator) Green()  {}
func (NoopIndicator) Yellow() {}
func (NoopIndicator) Red()    {}
func (NoopIndicator) Off()    {}
