// Package poll paces the cooperative polling loops of the firmware.
//
// Every loop in the controller (boot window, calibration wait, main loop) is a
// busy poll: sample inputs, act, wait one tick. The wait is behind Pacer so the
// same loops run against a mock clock in tests.
package poll

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrExhausted is returned by a loop whose pacer ran out of ticks.
// Only bounded (simulated) pacers ever run out.
var ErrExhausted = errors.New("poll: ticks exhausted")

// Pacer waits for the next polling tick.
// Next returns false when no more ticks will be granted.
type Pacer interface {
	Next() bool
}

// Interval is a real-time pacer that sleeps a fixed cadence between ticks.
type Interval struct {
	clock    clock.Clock
	interval time.Duration
}

// Every returns a pacer ticking every d on clk. It never runs out.
func Every(clk clock.Clock, d time.Duration) *Interval {
	return &Interval{clock: clk, interval: d}
}

// Next sleeps one interval.
func (p *Interval) Next() bool {
	if p.interval > 0 {
		p.clock.Sleep(p.interval)
	}
	return true
}

// Simulated advances a mock clock by a fixed step per tick.
// A positive budget bounds the number of ticks; zero means unbounded.
type Simulated struct {
	Clock  *clock.Mock
	Step   time.Duration
	Budget int

	ticks int
}

// Next advances the mock clock by Step, unless the budget is spent.
func (s *Simulated) Next() bool {
	if s.Budget > 0 && s.ticks >= s.Budget {
		return false
	}
	s.ticks++
	s.Clock.Add(s.Step)
	return true
}

// Ticks returns the number of ticks granted so far.
func (s *Simulated) Ticks() int {
	return s.ticks
}
