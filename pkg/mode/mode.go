// Package mode decides, once per boot, which operating mode the controller
// runs in.
package mode

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/binding"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/debounce"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/logging"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/poll"
)

// Mode is the operating mode chosen at boot.
type Mode uint8

const (
	NormalPlay Mode = iota
	Calibration
	NetworkConfiguration
)

func (m Mode) String() string {
	switch m {
	case NormalPlay:
		return "NormalPlay"
	case Calibration:
		return "Calibration"
	case NetworkConfiguration:
		return "NetworkConfiguration"
	default:
		return "Unknown"
	}
}

// Selector runs the boot observation window.
//
// A press of the input bound to Start selects NetworkConfiguration. Any other
// press requests calibration, and any release withdraws the request, so only a
// button still held when the window closes leads to Calibration.
type Selector struct {
	Bank   *debounce.Bank
	Table  *binding.Table
	Clock  clock.Clock
	Pacer  poll.Pacer
	Window time.Duration
	Logger *slog.Logger
}

// Select polls the inputs until the window closes and returns the chosen mode.
// A bounded pacer that runs out closes the window early.
func (s *Selector) Select() Mode {
	logger := logging.Discard(s.Logger)

	start := s.Table.Resolve(button.Start)
	network := false
	calibrate := false

	begin := s.Clock.Now()
	for s.Clock.Since(begin) < s.Window {
		s.Bank.Update()

		// NetworkConfiguration is sticky; the rest of the window only keeps
		// the debouncers current.
		if !network {
			for i := 0; i < button.InputCount; i++ {
				in := button.Input(i)
				switch s.Bank.Edge(in) {
				case debounce.EdgeFell:
					if in == start {
						network = true
						logger.Debug("start pressed during boot window", "input", in)
					} else {
						calibrate = true
						logger.Debug("calibration requested", "input", in)
					}
				case debounce.EdgeRose:
					if calibrate {
						logger.Debug("calibration request withdrawn", "input", in)
					}
					calibrate = false
				}
				if network {
					break
				}
			}
		}

		if !s.Pacer.Next() {
			break
		}
	}

	m := NormalPlay
	switch {
	case network:
		m = NetworkConfiguration
	case calibrate:
		m = Calibration
	}
	logger.Info("boot mode selected", "mode", m)
	return m
}
