// Package protocol implements a binary serial protocol for PC app communication.
// The protocol is designed to be simple, efficient, and suitable for TinyGo.
//
// Frame format:
//
//	[SYNC:1][CMD:1][LEN:2][PAYLOAD:LEN][CRC:2]
//	- SYNC: 0xAA (frame start marker)
//	- CMD: Command byte
//	- LEN: Payload length (uint16, little-endian)
//	- PAYLOAD: Variable length data
//	- CRC: CRC16-CCITT of [CMD][LEN][PAYLOAD]
//
// Response format is identical, with a status byte in place of CMD.
package protocol

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/binding"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/storage"
)

const (
	SyncByte = 0xAA

	// MaxPayload is the largest payload accepted in either direction.
	MaxPayload = 4096

	// Command codes (PC → Device)
	CmdGetSetting      = 0x01
	CmdSetSetting      = 0x02
	CmdDeleteSetting   = 0x03
	CmdListSettings    = 0x04
	CmdGetBindings     = 0x05
	CmdSetBinding      = 0x06
	CmdGetStorageStats = 0x07
	CmdPing            = 0x08
	CmdFactoryReset    = 0x09
	CmdGetVersion      = 0x10
	CmdConsole         = 0x11
	CmdReboot          = 0x12
	CmdDiscover        = 0x13

	// Response status codes (Device → PC)
	StatusOK              = 0x00
	StatusError           = 0x01
	StatusInvalidCmd      = 0x02
	StatusInvalidData     = 0x03
	StatusNotFound        = 0x04
	StatusNoSpace         = 0x05
	StatusVersionMismatch = 0x06
	StatusCRCError        = 0x07
)

// Firmware version reported by CmdGetVersion.
const (
	FirmwareMajor = 0
	FirmwareMinor = 2
)

// DeviceName is the CmdDiscover reply.
const DeviceName = "hitbox"

var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrCRCMismatch  = errors.New("CRC mismatch")
)

// Handler processes protocol commands against the settings storage.
type Handler struct {
	storage *storage.Manager
	table   *binding.Table
	reboot  bool
}

// NewHandler creates a new protocol handler.
func NewHandler(sm *storage.Manager) *Handler {
	return &Handler{
		storage: sm,
		table:   binding.New(sm),
	}
}

// RebootRequested reports whether a CmdReboot has been handled.
// The caller reboots after the response has been written.
func (h *Handler) RebootRequested() bool {
	return h.reboot
}

// Frame represents a protocol frame.
type Frame struct {
	Cmd     uint8
	Payload []byte
}

// Response represents a protocol response.
type Response struct {
	Status  uint8
	Payload []byte
}

// ReadFrame reads and validates a frame from the reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	cmd, payload, err := readRaw(r)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Cmd:     cmd,
		Payload: payload,
	}, nil
}

// ReadResponse reads and validates a response frame (PC side).
func ReadResponse(r io.Reader) (*Response, error) {
	status, payload, err := readRaw(r)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status:  status,
		Payload: payload,
	}, nil
}

func readRaw(r io.Reader) (uint8, []byte, error) {
	// Read sync byte
	sync := make([]byte, 1)
	if _, err := io.ReadFull(r, sync); err != nil {
		return 0, nil, err
	}
	if sync[0] != SyncByte {
		return 0, nil, ErrInvalidFrame
	}

	// Read header (cmd + len)
	header := make([]byte, 3)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	length := binary.LittleEndian.Uint16(header[1:])
	if length > MaxPayload {
		return 0, nil, ErrInvalidFrame
	}

	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, err
		}
	}

	crcBytes := make([]byte, 2)
	if _, err := io.ReadFull(r, crcBytes); err != nil {
		return 0, nil, err
	}
	receivedCRC := binary.LittleEndian.Uint16(crcBytes)

	calculatedCRC := calcCRC(append(header, payload...))
	if receivedCRC != calculatedCRC {
		return 0, nil, ErrCRCMismatch
	}

	return header[0], payload, nil
}

// WriteResponse writes a response frame to the writer.
func WriteResponse(w io.Writer, resp *Response) error {
	return writeRaw(w, resp.Status, resp.Payload)
}

// WriteFrame writes a request frame (PC side).
func WriteFrame(w io.Writer, frame *Frame) error {
	return writeRaw(w, frame.Cmd, frame.Payload)
}

func writeRaw(w io.Writer, code uint8, payload []byte) error {
	if len(payload) > MaxPayload {
		return ErrInvalidFrame
	}

	payloadLen := uint16(len(payload))
	frameLen := 1 + 1 + 2 + int(payloadLen) + 2 // sync + code + len + payload + crc

	buf := make([]byte, 0, frameLen)
	buf = append(buf, SyncByte, code)
	buf = binary.LittleEndian.AppendUint16(buf, payloadLen)
	buf = append(buf, payload...)

	// CRC of code + len + payload
	crc := calcCRC(buf[1:])
	buf = binary.LittleEndian.AppendUint16(buf, crc)

	_, err := w.Write(buf)
	return err
}

// Handle processes a command frame and returns a response.
func (h *Handler) Handle(frame *Frame) *Response {
	switch frame.Cmd {
	case CmdPing:
		return h.handlePing(frame.Payload)
	case CmdDiscover:
		return &Response{Status: StatusOK, Payload: []byte(DeviceName)}
	case CmdGetSetting:
		return h.handleGetSetting(frame.Payload)
	case CmdSetSetting:
		return h.handleSetSetting(frame.Payload)
	case CmdDeleteSetting:
		return h.handleDeleteSetting(frame.Payload)
	case CmdListSettings:
		return h.handleListSettings()
	case CmdGetBindings:
		return h.handleGetBindings()
	case CmdSetBinding:
		return h.handleSetBinding(frame.Payload)
	case CmdGetStorageStats:
		return h.handleGetStorageStats()
	case CmdFactoryReset:
		return h.handleFactoryReset()
	case CmdGetVersion:
		return h.handleGetVersion()
	case CmdConsole:
		return h.handleConsole(frame.Payload)
	case CmdReboot:
		h.reboot = true
		return &Response{Status: StatusOK}
	default:
		return &Response{Status: StatusInvalidCmd}
	}
}

// handlePing responds with the same payload (echo).
func (h *Handler) handlePing(payload []byte) *Response {
	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// statusOf maps a storage or validation error to a status byte.
func statusOf(err error) uint8 {
	switch err {
	case nil:
		return StatusOK
	case storage.ErrSettingNotFound:
		return StatusNotFound
	case storage.ErrVersionMismatch:
		return StatusVersionMismatch
	case storage.ErrFlashFull:
		return StatusNoSpace
	case config.ErrInvalidKey, config.ErrInvalidValue, button.ErrUnknownButton, button.ErrUnknownInput:
		return StatusInvalidData
	default:
		return StatusError
	}
}

// handleGetSetting returns one stored value.
// Payload: [Key]
// Response: [Value:4]
func (h *Handler) handleGetSetting(payload []byte) *Response {
	v, err := h.storage.Load(string(payload))
	if err != nil {
		return &Response{Status: statusOf(err)}
	}

	return &Response{
		Status:  StatusOK,
		Payload: binary.LittleEndian.AppendUint32(nil, uint32(int32(v))),
	}
}

// handleSetSetting stores one value.
// Payload: [Value:4][Key]
func (h *Handler) handleSetSetting(payload []byte) *Response {
	if len(payload) < 5 {
		return &Response{Status: StatusInvalidData}
	}

	value := int(int32(binary.LittleEndian.Uint32(payload)))
	key := string(payload[4:])

	return &Response{Status: statusOf(h.set(key, value))}
}

func (h *Handler) set(key string, value int) error {
	if err := config.ValidateKey(key); err != nil {
		return err
	}
	if err := config.ValidateValue(key, value); err != nil {
		return err
	}
	if !h.storage.Exists(key) && !h.storage.CanFitSetting() {
		return storage.ErrFlashFull
	}
	return h.storage.PutInt(key, value)
}

// handleDeleteSetting removes one stored value; the key reverts to its default.
// Payload: [Key]
func (h *Handler) handleDeleteSetting(payload []byte) *Response {
	return &Response{Status: statusOf(h.storage.Delete(string(payload)))}
}

// handleListSettings returns the keys of all stored values.
// Response: [Count:1]([Len:1][Key:Len])...
func (h *Handler) handleListSettings() *Response {
	keys, err := h.storage.List()
	if err != nil {
		return &Response{Status: StatusError}
	}
	if len(keys) > 255 {
		keys = keys[:255]
	}

	payload := []byte{uint8(len(keys))}
	for _, key := range keys {
		payload = append(payload, uint8(len(key)))
		payload = append(payload, key...)
	}

	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleGetBindings returns the effective binding of every logical button.
// Response: [Input:1] x 14, in logical button order
func (h *Handler) handleGetBindings() *Response {
	h.table.Load()
	inputs := h.table.Snapshot()

	payload := make([]byte, button.Count)
	for l, in := range inputs {
		payload[l] = uint8(in)
	}

	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleSetBinding binds one logical button.
// Payload: [Logical:1][Input:1]
func (h *Handler) handleSetBinding(payload []byte) *Response {
	if len(payload) != 2 {
		return &Response{Status: StatusInvalidData}
	}

	h.table.Load()
	err := h.table.Bind(button.Logical(payload[0]), button.Input(payload[1]))
	return &Response{Status: statusOf(err)}
}

// handleGetStorageStats returns storage statistics.
// Response: [Total:4][Used:4][Free:4][SettingCount:1]
func (h *Handler) handleGetStorageStats() *Response {
	stats, err := h.storage.GetStats()
	if err != nil {
		return &Response{Status: StatusError}
	}

	payload := make([]byte, 13)
	binary.LittleEndian.PutUint32(payload[0:], uint32(stats.TotalSpace))
	binary.LittleEndian.PutUint32(payload[4:], uint32(stats.UsedSpace))
	binary.LittleEndian.PutUint32(payload[8:], uint32(stats.FreeSpace))
	payload[12] = uint8(stats.SettingCount)

	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleFactoryReset wipes all settings, bindings included.
func (h *Handler) handleFactoryReset() *Response {
	if err := h.storage.ForceWipe(); err != nil {
		return &Response{Status: StatusError}
	}
	return &Response{Status: StatusOK}
}

// handleGetVersion returns firmware and config version info.
// Response: [FirmwareVersionMajor:1][FirmwareVersionMinor:1][ConfigVersion:2]
func (h *Handler) handleGetVersion() *Response {
	payload := make([]byte, 4)
	payload[0] = FirmwareMajor
	payload[1] = FirmwareMinor
	binary.LittleEndian.PutUint16(payload[2:], config.CurrentVersion)

	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// calcCRC calculates CRC16-CCITT.
// Polynomial: 0x1021, Initial: 0xFFFF
func calcCRC(data []byte) uint16 {
	var crc uint16 = 0xFFFF

	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
