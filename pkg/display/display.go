//go:build tinygo && !nodebug

// Package display drives the SSD1306 OLED: boot and calibration prompts, and
// in config mode the serial traffic, with incoming frames on the yellow rows
// (0-1) and outgoing responses on the blue rows (2-3).
//
// To build without display support (saves ~1KB RAM and flash), use:
//
//	tinygo build -tags=nodebug -target=pico -o firmware.uf2 .
package display

import (
	"image/color"
	"machine"
	"time"

	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	// I2C configuration
	i2cAddress = 0x3C
	sclPin     = machine.GPIO1
	sdaPin     = machine.GPIO0

	// Display dimensions
	screenWidth  = 128
	screenHeight = 64
	lineHeight   = 10
	baseline     = 8
	cols         = 21 // proggy TinySZ is 6px wide
	rows         = screenHeight / lineHeight

	// Row assignments in config mode
	rowInBytes   = 0 // Yellow - incoming raw bytes
	rowInParsed  = 1 // Yellow - incoming parsed
	rowOutBytes  = 2 // Blue - outgoing raw bytes
	rowOutParsed = 3 // Blue - outgoing parsed
)

var (
	black = color.RGBA{0, 0, 0, 0}
	white = color.RGBA{255, 255, 255, 255}
	font  = &proggy.TinySZ8pt7b
)

// Manager handles the SSD1306 display. A nil *Manager is valid and draws nothing.
type Manager struct {
	device *ssd1306.Device
}

// NewManager initializes the display.
// Returns nil if display initialization fails (non-fatal).
func NewManager() *Manager {
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400000, // 400kHz fast mode
		SCL:       sclPin,
		SDA:       sdaPin,
	}); err != nil {
		return nil
	}

	// Small delay for bus stabilization
	time.Sleep(10 * time.Millisecond)

	dev := ssd1306.NewI2C(i2c)
	dev.Configure(ssd1306.Config{
		Address: i2cAddress,
		Width:   screenWidth,
		Height:  screenHeight,
	})
	dev.ClearDisplay()

	return &Manager{device: dev}
}

// Clear blanks the whole screen.
func (m *Manager) Clear() {
	if m == nil {
		return
	}
	m.device.ClearBuffer()
	m.device.Display()
}

// Print replaces the text of one row.
func (m *Manager) Print(row int, text string) {
	if m == nil {
		return
	}
	m.drawRow(row, text)
	m.device.Display()
}

// ShowIncomingFrame displays an incoming serial frame on the yellow rows.
func (m *Manager) ShowIncomingFrame(bytesStr, parsedStr string) {
	if m == nil {
		return
	}
	m.drawRow(rowInBytes, "I:"+bytesStr)
	m.drawRow(rowInParsed, " "+parsedStr)
	m.device.Display()
}

// ShowOutgoingResponse displays an outgoing serial response on the blue rows.
func (m *Manager) ShowOutgoingResponse(bytesStr, parsedStr string) {
	if m == nil {
		return
	}
	m.drawRow(rowOutBytes, "O:"+bytesStr)
	m.drawRow(rowOutParsed, " "+parsedStr)
	m.device.Display()
}

// ShowError displays an error message on the blue rows.
func (m *Manager) ShowError(msg string) {
	if m == nil {
		return
	}
	m.drawRow(rowOutBytes, "ERR:")
	m.drawRow(rowOutParsed, msg)
	m.device.Display()
}

// drawRow clears a row and writes s into it.
func (m *Manager) drawRow(row int, s string) {
	if row < 0 || row >= rows {
		return
	}
	yStart := int16(row * lineHeight)
	for y := yStart; y < yStart+lineHeight; y++ {
		for x := int16(0); x < screenWidth; x++ {
			m.device.SetPixel(x, y, black)
		}
	}
	tinyfont.WriteLine(m.device, font, 0, yStart+baseline, truncate(s, cols), white)
}
