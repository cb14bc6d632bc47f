// Package report turns debounced physical inputs into gamepad reports:
// Start/Select and numbered action buttons as press/release events, and the
// four directions as a single hat state after SOCD resolution.
package report

import (
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/binding"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/debounce"
)

// Transport is the HID device the report is sent on.
// Button state between ticks is held by the transport, not by the builder.
type Transport interface {
	Connected() bool
	PressStart()
	ReleaseStart()
	PressSelect()
	ReleaseSelect()
	Press(n uint8) // n in 1..8
	Release(n uint8)
	SetHat(h button.Hat)
	SendReport()
}

// Directions holds the held state of the four directional buttons.
type Directions struct {
	Up, Down, Left, Right bool
}

// Resolve applies the SOCD policy.
//
// SOCDUpPriority: Up+Down keeps Up, Left+Right cancels both.
// SOCDNeutral: opposite directions cancel on both axes.
func Resolve(mode config.SOCDMode, d Directions) Directions {
	if d.Up && d.Down {
		if mode == config.SOCDNeutral {
			d.Up = false
		}
		d.Down = false
	}
	if d.Left && d.Right {
		d.Left = false
		d.Right = false
	}
	return d
}

// Hat maps resolved directions onto the 8-way + center hat.
// At most one direction per axis may be set.
func Hat(d Directions) button.Hat {
	switch {
	case d.Up && d.Left:
		return button.HatUpLeft
	case d.Up && d.Right:
		return button.HatUpRight
	case d.Down && d.Left:
		return button.HatDownLeft
	case d.Down && d.Right:
		return button.HatDownRight
	case d.Up:
		return button.HatUp
	case d.Down:
		return button.HatDown
	case d.Left:
		return button.HatLeft
	case d.Right:
		return button.HatRight
	default:
		return button.Centered
	}
}

// Builder produces one report per tick from a debounce bank and a binding table.
type Builder struct {
	bank  *debounce.Bank
	table *binding.Table
	socd  config.SOCDMode
}

// NewBuilder creates a report builder.
func NewBuilder(bank *debounce.Bank, table *binding.Table, socd config.SOCDMode) *Builder {
	return &Builder{
		bank:  bank,
		table: table,
		socd:  socd,
	}
}

// Tick polls every input once and emits the resulting report on t.
// The caller is responsible for checking t.Connected first.
func (b *Builder) Tick(t Transport) button.Hat {
	b.bank.Update()

	for l := button.Logical(0); l < button.Count; l++ {
		edge := b.bank.Edge(b.table.Resolve(l))
		if edge == debounce.EdgeNone {
			continue
		}
		pressed := edge == debounce.EdgeFell

		switch {
		case l == button.Start:
			if pressed {
				t.PressStart()
			} else {
				t.ReleaseStart()
			}
		case l == button.Select:
			if pressed {
				t.PressSelect()
			} else {
				t.ReleaseSelect()
			}
		case l.IsAction():
			if pressed {
				t.Press(l.ActionNumber())
			} else {
				t.Release(l.ActionNumber())
			}
		}
	}

	hat := Hat(Resolve(b.socd, b.Directions()))
	t.SetHat(hat)
	t.SendReport()
	return hat
}

// Directions returns the raw held state of the directional buttons.
func (b *Builder) Directions() Directions {
	return Directions{
		Up:    b.held(button.Up),
		Down:  b.held(button.Down),
		Left:  b.held(button.Left),
		Right: b.held(button.Right),
	}
}

func (b *Builder) held(l button.Logical) bool {
	return b.bank.Asserted(b.table.Resolve(l))
}
