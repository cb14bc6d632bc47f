// Package gamepad implements the USB HID gamepad: action buttons 1-8, Select,
// Start and a hat switch. It is designed to work with the composite descriptor.
package gamepad

import (
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
)

// ReportID is the HID report ID of the gamepad input report.
const ReportID = 1

// Button bits in the 16-bit button field. Bits 0-7 are actions 1-8.
const (
	bitSelect = 8
	bitStart  = 9
)

// hatNull is outside the hat switch's logical range, which hosts read as centered.
const hatNull = 0x0F

// State is the content of one gamepad input report.
type State struct {
	buttons uint16
	hat     button.Hat
}

// Press sets action button n (1-8). Other values are ignored.
func (s *State) Press(n uint8) {
	if n < 1 || n > 8 {
		return
	}
	s.buttons |= 1 << (n - 1)
}

// Release clears action button n (1-8).
func (s *State) Release(n uint8) {
	if n < 1 || n > 8 {
		return
	}
	s.buttons &^= 1 << (n - 1)
}

func (s *State) PressStart()    { s.buttons |= 1 << bitStart }
func (s *State) ReleaseStart()  { s.buttons &^= 1 << bitStart }
func (s *State) PressSelect()   { s.buttons |= 1 << bitSelect }
func (s *State) ReleaseSelect() { s.buttons &^= 1 << bitSelect }

func (s *State) SetHat(h button.Hat) { s.hat = h }

// IsPressed reports whether action button n is set.
func (s *State) IsPressed(n uint8) bool {
	if n < 1 || n > 8 {
		return false
	}
	return s.buttons&(1<<(n-1)) != 0
}

// Reset releases every button and centers the hat.
func (s *State) Reset() {
	*s = State{}
}

// Bytes encodes the report:
//
//	Byte 0: Report ID
//	Byte 1: Buttons 1-8 (actions)
//	Byte 2: Buttons 9-16 (Select, Start, padding)
//	Byte 3: Hat switch in the low nibble, 0=Up clockwise to 7=UpLeft
func (s *State) Bytes() []byte {
	return []byte{
		ReportID,
		byte(s.buttons),
		byte(s.buttons >> 8),
		hatValue(s.hat),
	}
}

func hatValue(h button.Hat) byte {
	if h == button.Centered || h > button.HatUpLeft {
		return hatNull
	}
	return byte(h - button.HatUp)
}
