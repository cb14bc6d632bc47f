// Package client talks to the controller's config mode from the host.
package client

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/display"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/protocol"
)

// ErrShortResponse is returned when a response payload is smaller than its layout.
var ErrShortResponse = errors.New("short response")

// StatusError is a non-OK response status.
type StatusError struct {
	Status uint8
	// Message is the response payload when it carries text (console replies).
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("device: %s: %s", display.StatusName(e.Status), e.Message)
	}
	return "device: " + display.StatusName(e.Status)
}

// IsNotFound reports whether err is a StatusNotFound response.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == protocol.StatusNotFound
}

// Stats mirrors the storage statistics response.
type Stats struct {
	TotalSpace   uint32
	UsedSpace    uint32
	FreeSpace    uint32
	SettingCount uint8
}

// Version mirrors the version response.
type Version struct {
	Major, Minor  uint8
	ConfigVersion uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d (config v%d)", v.Major, v.Minor, v.ConfigVersion)
}

// Client issues one request at a time over rw. It is not safe for concurrent use.
type Client struct{ rw io.ReadWriter }

func New(rw io.ReadWriter) *Client { return &Client{rw: rw} }

// Do sends one frame and returns the OK response payload.
// Any other status is returned as a *StatusError.
func (c *Client) Do(cmd uint8, payload []byte) ([]byte, error) {
	if err := protocol.WriteFrame(c.rw, &protocol.Frame{Cmd: cmd, Payload: payload}); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := protocol.ReadResponse(c.rw)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if resp.Status != protocol.StatusOK {
		se := &StatusError{Status: resp.Status}
		if cmd == protocol.CmdConsole {
			se.Message = string(resp.Payload)
		}
		return nil, se
	}
	return resp.Payload, nil
}

// Ping echoes payload through the device.
func (c *Client) Ping(payload []byte) ([]byte, error) {
	return c.Do(protocol.CmdPing, payload)
}

// Discover returns the device name.
func (c *Client) Discover() (string, error) {
	name, err := c.Do(protocol.CmdDiscover, nil)
	return string(name), err
}

// Get returns a stored setting. Unset keys give a StatusNotFound error.
func (c *Client) Get(key string) (int, error) {
	b, err := c.Do(protocol.CmdGetSetting, []byte(key))
	if err != nil {
		return 0, err
	}
	if len(b) < 4 {
		return 0, ErrShortResponse
	}
	return int(int32(binary.LittleEndian.Uint32(b))), nil
}

// Set stores value under key. Values outside int32 are rejected before sending.
func (c *Client) Set(key string, value int) error {
	if int64(value) < math.MinInt32 || int64(value) > math.MaxInt32 {
		return config.ErrInvalidValue
	}
	payload := binary.LittleEndian.AppendUint32(nil, uint32(int32(value)))
	_, err := c.Do(protocol.CmdSetSetting, append(payload, key...))
	return err
}

func (c *Client) Delete(key string) error {
	_, err := c.Do(protocol.CmdDeleteSetting, []byte(key))
	return err
}

// List returns the keys of every stored setting.
func (c *Client) List() ([]string, error) {
	b, err := c.Do(protocol.CmdListSettings, nil)
	if err != nil {
		return nil, err
	}
	if len(b) < 1 {
		return nil, ErrShortResponse
	}

	count := int(b[0])
	keys := make([]string, 0, count)
	b = b[1:]
	for i := 0; i < count; i++ {
		if len(b) < 1 || len(b) < 1+int(b[0]) {
			return nil, ErrShortResponse
		}
		n := int(b[0])
		keys = append(keys, string(b[1:1+n]))
		b = b[1+n:]
	}
	return keys, nil
}

// Bindings returns the effective input of every logical button.
func (c *Client) Bindings() ([button.Count]button.Input, error) {
	var inputs [button.Count]button.Input
	b, err := c.Do(protocol.CmdGetBindings, nil)
	if err != nil {
		return inputs, err
	}
	if len(b) < button.Count {
		return inputs, ErrShortResponse
	}
	for i := range inputs {
		inputs[i] = button.Input(b[i])
	}
	return inputs, nil
}

func (c *Client) Bind(l button.Logical, in button.Input) error {
	_, err := c.Do(protocol.CmdSetBinding, []byte{uint8(l), uint8(in)})
	return err
}

func (c *Client) Stats() (Stats, error) {
	b, err := c.Do(protocol.CmdGetStorageStats, nil)
	if err != nil {
		return Stats{}, err
	}
	if len(b) < 13 {
		return Stats{}, ErrShortResponse
	}
	return Stats{
		TotalSpace:   binary.LittleEndian.Uint32(b[0:]),
		UsedSpace:    binary.LittleEndian.Uint32(b[4:]),
		FreeSpace:    binary.LittleEndian.Uint32(b[8:]),
		SettingCount: b[12],
	}, nil
}

// FactoryReset wipes every setting, bindings included.
func (c *Client) FactoryReset() error {
	_, err := c.Do(protocol.CmdFactoryReset, nil)
	return err
}

func (c *Client) Version() (Version, error) {
	b, err := c.Do(protocol.CmdGetVersion, nil)
	if err != nil {
		return Version{}, err
	}
	if len(b) < 4 {
		return Version{}, ErrShortResponse
	}
	return Version{
		Major:         b[0],
		Minor:         b[1],
		ConfigVersion: binary.LittleEndian.Uint16(b[2:]),
	}, nil
}

// Console runs one text command and returns its output.
func (c *Client) Console(line string) (string, error) {
	b, err := c.Do(protocol.CmdConsole, []byte(line))
	return string(b), err
}

// Reboot asks the device to restart once the response is sent.
func (c *Client) Reboot() error {
	_, err := c.Do(protocol.CmdReboot, nil)
	return err
}
