//go:build tinygo

// Package pins samples the fourteen button inputs. Buttons short the pin to
// ground, so a low level means asserted.
package pins

import (
	"machine"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
)

// Wiring order: Input 0 is GPIO2 through Input 13 on GPIO15.
// GPIO0 and GPIO1 carry the display's I2C bus.
var wiring = [button.InputCount]machine.Pin{
	machine.GPIO2, machine.GPIO3, machine.GPIO4, machine.GPIO5,
	machine.GPIO6, machine.GPIO7, machine.GPIO8, machine.GPIO9,
	machine.GPIO10, machine.GPIO11, machine.GPIO12, machine.GPIO13,
	machine.GPIO14, machine.GPIO15,
}

// Bank reads the wired inputs. It implements debounce.Sampler.
type Bank struct {
	pins [button.InputCount]machine.Pin
}

// New configures every input pin with its pull-up.
func New() *Bank {
	b := &Bank{pins: wiring}
	for _, p := range b.pins {
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	return b
}

func (b *Bank) IsAsserted(in button.Input) bool {
	if !in.Valid() {
		return false
	}
	return !b.pins[in].Get()
}
