// Package config defines the persisted settings of the controller and the
// fixed-size binary record each setting is stored as.
package config

import (
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
)

// CurrentVersion is the settings format version.
// Bump this when making breaking changes to the record format or key meanings.
// When firmware boots and finds a different version in flash, settings are wiped.
const CurrentVersion uint16 = 1

// RecordSize is the encoded size of a Record.
const RecordSize = 8

// MaxKeyLen is the longest settings key accepted.
const MaxKeyLen = 15

// Setting keys. Binding keys are the logical button names (button.Logical.String()).
const (
	KeyDebounceTime = "debouncetime"
	KeySettleTime   = "settletime"
	KeyBootWindow   = "bootwindow"
	KeyPollInterval = "pollinterval"
	KeySOCDMode     = "socdmode"
)

// Defaults, in milliseconds where timing.
const (
	DefaultDebounceTime = 10
	DefaultSettleTime   = 5
	DefaultBootWindow   = 2000
	DefaultPollInterval = 1
	DefaultSOCDMode     = 1
)

// Errors
var (
	ErrInvalidSize  = errors.New("invalid record size")
	ErrInvalidKey   = errors.New("invalid settings key")
	ErrInvalidValue = errors.New("invalid settings value")
)

// Record holds one stored integer.
// Total size: 8 bytes
// Layout:
//
//	[0-1]: Version (uint16)
//	[2-3]: Flags (uint16)
//	[4-7]: Value (int32)
type Record struct {
	Version uint16
	Flags   uint16
	Value   int32
}

// MarshalBinary implements encoding.BinaryMarshaler for Record.
func (r *Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint16(buf[0:], r.Version)
	binary.LittleEndian.PutUint16(buf[2:], r.Flags)
	binary.LittleEndian.PutUint32(buf[4:], uint32(r.Value))
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Record.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) < RecordSize {
		return ErrInvalidSize
	}

	r.Version = binary.LittleEndian.Uint16(data[0:])
	r.Flags = binary.LittleEndian.Uint16(data[2:])
	r.Value = int32(binary.LittleEndian.Uint32(data[4:]))
	return nil
}

// ValidateKey checks that key can be used as a file name in the settings directory.
func ValidateKey(key string) error {
	if len(key) == 0 || len(key) > MaxKeyLen {
		return ErrInvalidKey
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c <= ' ' || c > '~' || c == '/' || c == '.' {
			return ErrInvalidKey
		}
	}
	return nil
}

// SOCDMode selects the simultaneous-opposite-direction policy.
type SOCDMode uint8

const (
	// SOCDNeutral cancels both directions on either axis.
	SOCDNeutral SOCDMode = 0
	// SOCDUpPriority lets Up win the vertical axis and cancels the horizontal axis.
	SOCDUpPriority SOCDMode = 1
)

// Getter reads an integer setting with a caller-supplied default.
type Getter interface {
	GetInt(key string, def int) int
}

// Settings is the typed view of the non-binding settings.
type Settings struct {
	DebounceTime time.Duration // boot window polling cadence
	SettleTime   time.Duration // per-input debounce interval
	BootWindow   time.Duration
	PollInterval time.Duration // main loop and calibration cadence
	SOCD         SOCDMode
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		DebounceTime: DefaultDebounceTime * time.Millisecond,
		SettleTime:   DefaultSettleTime * time.Millisecond,
		BootWindow:   DefaultBootWindow * time.Millisecond,
		PollInterval: DefaultPollInterval * time.Millisecond,
		SOCD:         DefaultSOCDMode,
	}
}

// LoadSettings reads all settings from g.
// Out-of-range values, including non-positive timings, fall back to their defaults.
func LoadSettings(g Getter) Settings {
	s := Settings{
		DebounceTime: millis(g, KeyDebounceTime, DefaultDebounceTime),
		SettleTime:   millis(g, KeySettleTime, DefaultSettleTime),
		BootWindow:   millis(g, KeyBootWindow, DefaultBootWindow),
		PollInterval: millis(g, KeyPollInterval, DefaultPollInterval),
		SOCD:         DefaultSOCDMode,
	}

	switch mode := g.GetInt(KeySOCDMode, DefaultSOCDMode); mode {
	case int(SOCDNeutral), int(SOCDUpPriority):
		s.SOCD = SOCDMode(mode)
	}

	return s
}

// millis reads a positive millisecond value.
func millis(g Getter, key string, def int) time.Duration {
	v := g.GetInt(key, def)
	if v < 1 {
		v = def
	}
	return time.Duration(v) * time.Millisecond
}

// IsBindingKey reports whether key names a logical button binding.
func IsBindingKey(key string) bool {
	for l := button.Logical(0); l < button.Count; l++ {
		if l.String() == key {
			return true
		}
	}
	return false
}

// Default returns the value used when key is not stored.
func Default(key string) (int, bool) {
	if l, err := button.ParseLogical(key); err == nil && l.String() == key {
		return int(l), true
	}
	switch key {
	case KeyDebounceTime:
		return DefaultDebounceTime, true
	case KeySettleTime:
		return DefaultSettleTime, true
	case KeyBootWindow:
		return DefaultBootWindow, true
	case KeyPollInterval:
		return DefaultPollInterval, true
	case KeySOCDMode:
		return DefaultSOCDMode, true
	}
	return 0, false
}

// ValidateValue checks a value about to be stored under key.
func ValidateValue(key string, value int) error {
	// Records hold 32 bits.
	if int64(value) < math.MinInt32 || int64(value) > math.MaxInt32 {
		return ErrInvalidValue
	}

	if IsBindingKey(key) {
		if _, err := button.InputFromInt(value); err != nil {
			return err
		}
		return nil
	}

	switch key {
	case KeySOCDMode:
		if value != int(SOCDNeutral) && value != int(SOCDUpPriority) {
			return ErrInvalidValue
		}
	case KeyDebounceTime, KeySettleTime, KeyPollInterval, KeyBootWindow:
		if value < 1 {
			return ErrInvalidValue
		}
	}
	return nil
}
