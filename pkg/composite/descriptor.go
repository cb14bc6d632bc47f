//go:build tinygo

package composite

import (
	"machine/usb"
	"machine/usb/descriptor"
)

// Items the descriptor package has no helper for.
var (
	hidUsageDesktopHatSwitch = []byte{0x09, 0x39}
	hidInputDataVarAbsNull   = []byte{0x81, 0x42}
)

// GamepadReportDescriptor describes the 4-byte gamepad report
// (1 ID + 2 buttons + 1 hat).
var GamepadReportDescriptor = descriptor.Append([][]byte{
	descriptor.HIDUsagePageGenericDesktop,
	descriptor.HIDUsageDesktopGamepad,
	descriptor.HIDCollectionApplication,
	descriptor.HIDReportID(1),
	// Buttons 1-8 are actions, 9 Select, 10 Start
	descriptor.HIDUsagePageButton,
	descriptor.HIDUsageMinimum(1),
	descriptor.HIDUsageMaximum(10),
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(1),
	descriptor.HIDReportSize(1),
	descriptor.HIDReportCount(10),
	descriptor.HIDInputDataVarAbs,
	// Pad to 16 bits
	descriptor.HIDReportSize(1),
	descriptor.HIDReportCount(6),
	descriptor.HIDInputConstVarAbs,
	// Hat switch: 0-7 clockwise from Up, anything else is centered
	descriptor.HIDUsagePageGenericDesktop,
	hidUsageDesktopHatSwitch,
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(7),
	descriptor.HIDReportSize(4),
	descriptor.HIDReportCount(1),
	hidInputDataVarAbsNull,
	// Pad the hat byte
	descriptor.HIDReportSize(4),
	descriptor.HIDReportCount(1),
	descriptor.HIDInputConstVarAbs,
	descriptor.HIDCollectionEnd,
})

func init() {
	descriptor.CDCHID.HID[usb.HID_INTERFACE] = GamepadReportDescriptor
	PatchReportLength(descriptor.CDCHID.Configuration, len(GamepadReportDescriptor))
}
