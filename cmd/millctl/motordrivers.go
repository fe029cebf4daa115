package main

import (
	"fmt"
	"io"

	"github.com/tarm/serial"

	"mezzomill.com/driver/tmc2209"
)

// TMC2209 UART runs at a fixed baud rate regardless of the step rate
// it ends up driving.
const tmc2209Baud = 57600

// Typical NEMA17 driving current and sense-resistor values for the
// axis motors; a real build would read these from settings rather
// than hardcode them, but nothing in the settings table has a home
// for them yet.
const (
	axisMotorCurrentMA  = 800
	axisMotorSenseMilli = 110
	axisStallThreshold  = 80
	axisMinStallSpeed   = 200 // steps/second
)

// axisDriverAddr is the TMC2209 hardware address (set via the
// driver's MS1/MS2 pins) for each of the three axis motors sharing
// one UART bus.
var axisDriverAddr = [3]uint8{0, 1, 2}

// configureAxisDrivers brings up the three TMC2209 stepper drivers
// wired to path, setting a shared-bus SENDDELAY before reading any of
// them back, then enabling each at axisMotorCurrentMA with
// StallGuard configured for homing-by-stall. A real deployment's
// planner talks to the same drivers' STEP/DIR lines directly; this
// just takes care of the UART-configurable side (current, microstep
// resolution, stall detection) once at startup.
func configureAxisDrivers(path string) error {
	bus, err := serial.OpenPort(&serial.Config{Name: path, Baud: tmc2209Baud})
	if err != nil {
		return fmt.Errorf("configureAxisDrivers: open %s: %w", path, err)
	}
	defer bus.Close()
	return configureAxisDriversOn(bus)
}

func configureAxisDriversOn(bus io.ReadWriter) error {
	drivers := make([]*tmc2209.Device, len(axisDriverAddr))
	for i, addr := range axisDriverAddr {
		drivers[i] = &tmc2209.Device{Bus: bus, Addr: addr, Sense: axisMotorSenseMilli}
	}
	for _, d := range drivers {
		if err := d.SetupSharedUART(); err != nil {
			return fmt.Errorf("configureAxisDrivers: axis %d: shared UART setup: %w", d.Addr, err)
		}
	}
	for _, d := range drivers {
		if err := d.Configure(); err != nil {
			return fmt.Errorf("configureAxisDrivers: axis %d: configure: %w", d.Addr, err)
		}
		if err := d.Enable(axisMotorCurrentMA); err != nil {
			return fmt.Errorf("configureAxisDrivers: axis %d: enable: %w", d.Addr, err)
		}
		if err := d.SetMinimumStallVelocity(axisMinStallSpeed); err != nil {
			return fmt.Errorf("configureAxisDrivers: axis %d: stall velocity: %w", d.Addr, err)
		}
		if err := d.SetStallThreshold(axisStallThreshold); err != nil {
			return fmt.Errorf("configureAxisDrivers: axis %d: stall threshold: %w", d.Addr, err)
		}
	}
	return nil
}
