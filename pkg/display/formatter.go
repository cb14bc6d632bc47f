package display

import (
	"fmt"
	"strings"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/protocol"
)

// maxPayloadBytes is how many payload bytes fit on a row.
const maxPayloadBytes = 4

// FrameFormatter formats protocol frames for display on the SSD1306.
// It creates compact string representations suitable for one display row.
type FrameFormatter struct{}

// NewFrameFormatter creates a new frame formatter.
func NewFrameFormatter() *FrameFormatter {
	return &FrameFormatter{}
}

// FormatIncoming formats an incoming request frame for display.
// Returns bytes string and parsed string.
func (f *FrameFormatter) FormatIncoming(frame *protocol.Frame) (bytesStr, parsedStr string) {
	bytesStr = formatBytes(frame.Cmd, frame.Payload)
	parsedStr = fmt.Sprintf("%s[%d]", CommandName(frame.Cmd), len(frame.Payload))
	return bytesStr, parsedStr
}

// FormatOutgoing formats an outgoing response frame for display.
// Returns bytes string and parsed string.
func (f *FrameFormatter) FormatOutgoing(resp *protocol.Response) (bytesStr, parsedStr string) {
	bytesStr = formatBytes(resp.Status, resp.Payload)
	parsedStr = fmt.Sprintf("%s[%d]", StatusName(resp.Status), len(resp.Payload))
	return bytesStr, parsedStr
}

// FormatError formats an error for display.
func (f *FrameFormatter) FormatError(err error) string {
	return truncate(err.Error(), 12)
}

// formatBytes formats the raw bytes of a frame as hex.
// Format: AA CODE LEN_LO LEN_HI [PAYLOAD] ..
// The CRC is not shown.
func formatBytes(code uint8, payload []byte) string {
	var b strings.Builder

	n := len(payload)
	fmt.Fprintf(&b, "%02X %02X %02X%02X ", protocol.SyncByte, code, uint8(n), uint8(n>>8))

	for i := 0; i < n && i < maxPayloadBytes; i++ {
		fmt.Fprintf(&b, "%02X", payload[i])
	}
	if n > maxPayloadBytes {
		b.WriteString("..")
	} else if n > 0 {
		b.WriteString(" ")
	}

	b.WriteString("..")
	return b.String()
}

// CommandName returns a short name for a command code.
func CommandName(cmd uint8) string {
	switch cmd {
	case protocol.CmdGetSetting:
		return "GetSet"
	case protocol.CmdSetSetting:
		return "SetSet"
	case protocol.CmdDeleteSetting:
		return "DelSet"
	case protocol.CmdListSettings:
		return "LstSet"
	case protocol.CmdGetBindings:
		return "GetBind"
	case protocol.CmdSetBinding:
		return "SetBind"
	case protocol.CmdGetStorageStats:
		return "GetStor"
	case protocol.CmdPing:
		return "Ping"
	case protocol.CmdFactoryReset:
		return "FctRst"
	case protocol.CmdGetVersion:
		return "GetVer"
	case protocol.CmdConsole:
		return "Console"
	case protocol.CmdReboot:
		return "Reboot"
	case protocol.CmdDiscover:
		return "Discvr"
	default:
		return fmt.Sprintf("Cmd%02X", cmd)
	}
}

// StatusName returns a short name for a status code.
func StatusName(status uint8) string {
	switch status {
	case protocol.StatusOK:
		return "OK"
	case protocol.StatusError:
		return "Err"
	case protocol.StatusInvalidCmd:
		return "InvCmd"
	case protocol.StatusInvalidData:
		return "InvData"
	case protocol.StatusNotFound:
		return "NotFnd"
	case protocol.StatusNoSpace:
		return "NoSpace"
	case protocol.StatusVersionMismatch:
		return "VerMis"
	case protocol.StatusCRCError:
		return "CRC"
	default:
		return fmt.Sprintf("Sts%02X", status)
	}
}

// truncate limits a string to maxLen characters, adding ".." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 2 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}
