// Package button defines the fixed button sets of the controller: the 14 logical
// roles reported to the host, the 14 physical inputs wired to the board, and the
// 9 states of the hat switch.
package button

import (
	"errors"
	"strconv"
	"strings"
)

// Logical is a controller role, independent of wiring.
// The ordering is part of the report format and must not change.
type Logical uint8

const (
	Left Logical = iota
	Down
	Right
	Up
	Start
	Select
	A
	B
	X
	Y
	L1
	R1
	L2
	R2

	// Count is the number of logical buttons.
	Count = 14
)

// ActionCount is the number of numbered action buttons (A through R2).
const ActionCount = 8

var logicalNames = [Count]string{"Left", "Down", "Right", "Up", "Start", "Select", "A", "B", "X", "Y", "L1", "R1", "L2", "R2"}

var (
	ErrUnknownButton = errors.New("unknown logical button")
	ErrUnknownInput  = errors.New("unknown physical input")
)

// String returns the button name, which is also its settings key.
func (l Logical) String() string {
	if !l.Valid() {
		return "Logical(" + strconv.Itoa(int(l)) + ")"
	}
	return logicalNames[l]
}

// Valid reports whether l is one of the 14 logical buttons.
func (l Logical) Valid() bool {
	return l < Count
}

// IsDirection reports whether l feeds the hat switch.
func (l Logical) IsDirection() bool {
	return l <= Up
}

// IsAction reports whether l is one of the numbered action buttons.
func (l Logical) IsAction() bool {
	return l >= A && l < Count
}

// ActionNumber returns the 1-based HID button number of an action button,
// or 0 when l is not an action button.
func (l Logical) ActionNumber() uint8 {
	if !l.IsAction() {
		return 0
	}
	return uint8(l) - 5
}

// ParseLogical looks up a logical button by name (case-insensitive).
func ParseLogical(name string) (Logical, error) {
	for i, n := range logicalNames {
		if strings.EqualFold(n, name) {
			return Logical(i), nil
		}
	}
	return 0, ErrUnknownButton
}

// Input identifies a physical input by its wiring position.
// The value is used for equality only.
type Input uint8

// InputCount is the number of physical inputs.
const InputCount = 14

// Valid reports whether in is one of the wired inputs.
func (in Input) Valid() bool {
	return in < InputCount
}

func (in Input) String() string {
	return "IN" + strconv.Itoa(int(in))
}

// InputFromInt converts a stored integer into an Input.
func InputFromInt(v int) (Input, error) {
	if v < 0 || v >= InputCount {
		return 0, ErrUnknownInput
	}
	return Input(v), nil
}

// ParseInput accepts either a bare index ("7") or the String form ("IN7").
func ParseInput(s string) (Input, error) {
	s = strings.TrimPrefix(strings.ToUpper(s), "IN")
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrUnknownInput
	}
	return InputFromInt(v)
}

// Hat is the state of the directional pad.
// Values follow the common BLE gamepad convention, with Centered as zero.
type Hat uint8

const (
	Centered Hat = iota
	HatUp
	HatUpRight
	HatRight
	HatDownRight
	HatDown
	HatDownLeft
	HatLeft
	HatUpLeft
)

var hatNames = [...]string{"Centered", "Up", "UpRight", "Right", "DownRight", "Down", "DownLeft", "Left", "UpLeft"}

func (h Hat) String() string {
	if int(h) >= len(hatNames) {
		return "Hat(" + strconv.Itoa(int(h)) + ")"
	}
	return hatNames[h]
}
