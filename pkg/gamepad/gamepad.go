//go:build tinygo

package gamepad

import (
	"machine"
	"machine/usb/hid"
)

// Gamepad represents a USB HID Gamepad device
type Gamepad struct {
	State
	buf     *hid.RingBuffer
	waitTxc bool
}

var gamepadInstance *Gamepad

// init registers the gamepad with the HID subsystem
func init() {
	if gamepadInstance == nil {
		gamepadInstance = &Gamepad{
			buf: hid.NewRingBuffer(),
		}
		hid.SetHandler(gamepadInstance)
	}
}

// Port returns the gamepad instance
func Port() *Gamepad {
	return gamepadInstance
}

// Connected reports whether the host has configured the HID endpoints.
func (g *Gamepad) Connected() bool {
	return machine.USBDev.InitEndpointComplete
}

// TxHandler is called by the USB interrupt when the endpoint is ready to transmit
func (g *Gamepad) TxHandler() bool {
	g.waitTxc = false
	if b, ok := g.buf.Get(); ok {
		g.waitTxc = true
		hid.SendUSBPacket(b)
		return true
	}
	return false
}

// RxHandler ignores output reports; the gamepad has none.
func (g *Gamepad) RxHandler(b []byte) bool {
	return false
}

// tx sends a report packet, queuing if the endpoint is busy
func (g *Gamepad) tx(b []byte) {
	if !g.Connected() {
		return
	}
	if g.waitTxc {
		g.buf.Put(b)
	} else {
		g.waitTxc = true
		hid.SendUSBPacket(b)
	}
}

// SendReport sends the current state to the host.
func (g *Gamepad) SendReport() {
	g.tx(g.Bytes())
}
