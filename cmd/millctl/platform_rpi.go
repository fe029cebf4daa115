//go:build linux && (arm || arm64)

package main

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/bcm283x"

	"mezzomill.com/capsense"
	"mezzomill.com/spindle"
)

// newHardware binds the capacitive sensor and spindle enable line to
// the Raspberry Pi's BCM283x GPIO: host.Init once, then hand out
// bcm283x.GPIOn pins directly as the small capability interfaces each
// package declares.
func newHardware(cpuHz float64) (*capsense.Sensor, *spindle.Controller, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("newHardware: %w", err)
	}

	axes := [3]capsense.Channel{
		{Send: bcm283x.GPIO5, Recv: bcm283x.GPIO6},
		{Send: bcm283x.GPIO12, Recv: bcm283x.GPIO13},
		{Send: bcm283x.GPIO16, Recv: bcm283x.GPIO17},
	}
	endMill := capsense.Channel{Send: bcm283x.GPIO19, Recv: bcm283x.GPIO20}
	sensor := capsense.NewSensor(cpuHz, axes, endMill)

	if err := bcm283x.GPIO21.Out(gpio.Low); err != nil {
		return nil, nil, fmt.Errorf("newHardware: spindle enable: %w", err)
	}
	spin := spindle.New(bcm283x.GPIO21)

	return sensor, spin, nil
}
