// Package calibrate implements the interactive rebinding workflow: every
// logical button is prompted in order and bound to the first physical input
// pressed.
package calibrate

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/binding"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/debounce"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/logging"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/poll"
)

// Default timings.
const (
	DefaultHoldOff = 100 * time.Millisecond
	DefaultSaved   = time.Second
)

// Display shows the prompts. Nothing depends on it succeeding.
type Display interface {
	Clear()
	Print(row int, text string)
}

// Workflow binds all logical buttons, in declared order.
//
// There is no timeout and no way to cancel: Run returns only after all
// buttons are bound, or with poll.ErrExhausted when a bounded pacer runs out.
type Workflow struct {
	Bank    *debounce.Bank
	Table   *binding.Table
	Display Display
	Clock   clock.Clock
	Pacer   poll.Pacer
	Logger  *slog.Logger

	// HoldOff is waited after each bind. Saved is how long the confirmation stays up.
	HoldOff time.Duration
	Saved   time.Duration
}

// Run prompts for each logical button and persists every binding before
// moving on to the next.
func (w *Workflow) Run() error {
	logger := logging.Discard(w.Logger)

	logger.Info("calibration started")

	for l := button.Logical(0); l < button.Count; l++ {
		w.Display.Clear()
		w.Display.Print(0, "Button "+l.String())

		in, err := w.waitPress()
		if err != nil {
			return err
		}

		if err := w.Table.Bind(l, in); err != nil {
			// The binding stays in effect until restart; the write is not retried.
			logger.Error("failed to persist binding", "button", l, "input", in, "error", err)
		} else {
			logger.Info("bound", "button", l, "input", in)
		}

		if err := w.wait(w.HoldOff); err != nil {
			return err
		}
	}

	w.Display.Clear()
	w.Display.Print(0, "Config Saved")
	if err := w.wait(w.Saved); err != nil {
		return err
	}
	w.Display.Clear()

	logger.Info("calibration complete")
	return nil
}

// waitPress polls until some input falls.
func (w *Workflow) waitPress() (button.Input, error) {
	for {
		w.Bank.Update()
		if in, ok := w.Bank.FirstFell(); ok {
			return in, nil
		}
		if !w.Pacer.Next() {
			return 0, poll.ErrExhausted
		}
	}
}

// wait idles for d without sampling, so a press made meanwhile is still
// seen as an edge afterwards.
func (w *Workflow) wait(d time.Duration) error {
	begin := w.Clock.Now()
	for w.Clock.Since(begin) < d {
		if !w.Pacer.Next() {
			return poll.ErrExhausted
		}
	}
	return nil
}
