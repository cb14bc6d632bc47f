// Package debounce filters raw input levels into stable levels with
// single-tick edge flags.
//
// A change of level is accepted once the raw signal has held the new level for
// the settle interval. Edges are valid only until the next Update.
package debounce

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
)

// Edge is the transition observed by the last Update.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeFell      // released -> asserted (active low input fell)
	EdgeRose      // asserted -> released
)

func (e Edge) String() string {
	switch e {
	case EdgeFell:
		return "Fell"
	case EdgeRose:
		return "Rose"
	default:
		return "None"
	}
}

// Sampler reports the raw level of a physical input.
type Sampler interface {
	IsAsserted(in button.Input) bool
}

// SamplerFunc adapts a function to a Sampler.
type SamplerFunc func(in button.Input) bool

// IsAsserted calls f(in).
func (f SamplerFunc) IsAsserted(in button.Input) bool {
	return f(in)
}

// Levels is a settable in-memory Sampler.
type Levels [button.InputCount]bool

// IsAsserted returns the stored level of in.
func (l *Levels) IsAsserted(in button.Input) bool {
	if !in.Valid() {
		return false
	}
	return l[in]
}

// Debouncer tracks one input.
type Debouncer struct {
	clock    clock.Clock
	interval time.Duration

	stable  bool // debounced level, true = asserted
	raw     bool // last raw level seen
	changed time.Time
	edge    Edge
}

// NewDebouncer creates a debouncer whose stable level starts at initial.
func NewDebouncer(clk clock.Clock, interval time.Duration, initial bool) *Debouncer {
	d := &Debouncer{}
	d.init(clk, interval, initial)
	return d
}

func (d *Debouncer) init(clk clock.Clock, interval time.Duration, initial bool) {
	d.clock = clk
	d.interval = interval
	d.stable = initial
	d.raw = initial
	d.changed = clk.Now()
	d.edge = EdgeNone
}

// Update feeds one raw sample and returns the edge it produced, if any.
func (d *Debouncer) Update(asserted bool) Edge {
	d.edge = EdgeNone
	now := d.clock.Now()

	if asserted != d.raw {
		// Raw level moved; restart the settle timer.
		d.raw = asserted
		d.changed = now
		return d.edge
	}

	if asserted != d.stable && now.Sub(d.changed) >= d.interval {
		d.stable = asserted
		d.changed = now
		if asserted {
			d.edge = EdgeFell
		} else {
			d.edge = EdgeRose
		}
	}

	return d.edge
}

// Asserted returns the debounced level.
func (d *Debouncer) Asserted() bool {
	return d.stable
}

// Edge returns the edge produced by the last Update.
func (d *Debouncer) Edge() Edge {
	return d.edge
}

// Fell reports whether the last Update accepted a press.
func (d *Debouncer) Fell() bool {
	return d.edge == EdgeFell
}

// Rose reports whether the last Update accepted a release.
func (d *Debouncer) Rose() bool {
	return d.edge == EdgeRose
}

// Bank debounces all physical inputs from one Sampler.
type Bank struct {
	sampler Sampler
	inputs  [button.InputCount]Debouncer
}

// NewBank creates a bank and takes the initial stable reading of every input.
func NewBank(sampler Sampler, clk clock.Clock, interval time.Duration) *Bank {
	b := &Bank{sampler: sampler}
	for i := range b.inputs {
		in := button.Input(i)
		b.inputs[i].init(clk, interval, sampler.IsAsserted(in))
	}
	return b
}

// Reset takes a fresh stable reading of every input and clears all edges.
// Inputs held at that moment are reported as asserted without a press edge.
func (b *Bank) Reset() {
	for i := range b.inputs {
		d := &b.inputs[i]
		d.init(d.clock, d.interval, b.sampler.IsAsserted(button.Input(i)))
	}
}

// Update samples and debounces every input once.
func (b *Bank) Update() {
	for i := range b.inputs {
		b.inputs[i].Update(b.sampler.IsAsserted(button.Input(i)))
	}
}

// Asserted returns the debounced level of in.
func (b *Bank) Asserted(in button.Input) bool {
	if !in.Valid() {
		return false
	}
	return b.inputs[in].Asserted()
}

// Edge returns the edge of in from the last Update.
func (b *Bank) Edge(in button.Input) Edge {
	if !in.Valid() {
		return EdgeNone
	}
	return b.inputs[in].Edge()
}

// FirstFell returns the lowest-numbered input that fell on the last Update.
func (b *Bank) FirstFell() (button.Input, bool) {
	for i := range b.inputs {
		if b.inputs[i].Fell() {
			return button.Input(i), true
		}
	}
	return 0, false
}
