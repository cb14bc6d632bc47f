//go:build !tinygo || nodebug

// Package display provides a no-op stub when built with the nodebug tag or
// for the host. This saves memory by excluding the SSD1306 driver.
//
// To build without display support, use:
//
//	tinygo build -tags=nodebug -target=pico -o firmware.uf2 .
package display

// Manager is a no-op stub.
type Manager struct{}

// NewManager returns nil; every method accepts a nil receiver.
func NewManager() *Manager {
	return nil
}

// Clear is a no-op.
func (m *Manager) Clear() {}

// Print is a no-op.
func (m *Manager) Print(row int, text string) {}

// ShowIncomingFrame is a no-op.
func (m *Manager) ShowIncomingFrame(bytesStr, parsedStr string) {}

// ShowOutgoingResponse is a no-op.
func (m *Manager) ShowOutgoingResponse(bytesStr, parsedStr string) {}

// ShowError is a no-op.
func (m *Manager) ShowError(msg string) {}
