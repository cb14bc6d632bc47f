// Package controller sequences the firmware: boot window, then calibration,
// the configuration server or the play loop.
package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/binding"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/calibrate"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/debounce"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/logging"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/mode"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/poll"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/report"
)

// ConfigServer takes over the device in NetworkConfiguration mode.
// Serve is not expected to return while the device is running.
type ConfigServer interface {
	Serve() error
}

// Options wires the controller to its collaborators.
type Options struct {
	Sampler   debounce.Sampler
	Store     binding.Store
	Transport report.Transport
	Display   calibrate.Display
	Config    ConfigServer

	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Pacer returns the pacer for a polling cadence. Defaults to poll.Every.
	Pacer func(d time.Duration) poll.Pacer
	// ConfigMode is called before the config server starts.
	ConfigMode func()

	Logger *slog.Logger
}

// Controller owns the debounce bank and the binding table for the lifetime
// of the firmware.
type Controller struct {
	opts     Options
	logger   *slog.Logger
	settings config.Settings
	bank     *debounce.Bank
	table    *binding.Table
	builder  *report.Builder
	play     poll.Pacer

	// connected is the transport state seen by the previous tick.
	connected bool
}

// New reads the settings from the store and takes the initial input reading.
func New(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Pacer == nil {
		clk := opts.Clock
		opts.Pacer = func(d time.Duration) poll.Pacer {
			return poll.Every(clk, d)
		}
	}

	settings := config.LoadSettings(opts.Store)
	c := &Controller{
		opts:     opts,
		logger:   logging.Discard(opts.Logger),
		settings: settings,
		bank:     debounce.NewBank(opts.Sampler, opts.Clock, settings.SettleTime),
		table:    binding.New(opts.Store),
	}
	c.builder = report.NewBuilder(c.bank, c.table, settings.SOCD)
	c.play = opts.Pacer(settings.PollInterval)

	c.logger.Debug("settings loaded",
		"debounce", settings.DebounceTime,
		"settle", settings.SettleTime,
		"window", settings.BootWindow,
		"poll", settings.PollInterval,
		"socd", settings.SOCD)

	return c
}

// Settings returns the settings in effect.
func (c *Controller) Settings() config.Settings {
	return c.settings
}

// Table returns the binding table.
func (c *Controller) Table() *binding.Table {
	return c.table
}

// Boot loads the bindings and runs the boot window. When calibration is
// requested it runs to completion and the bindings are reloaded.
func (c *Controller) Boot() (mode.Mode, error) {
	c.table.Load()

	d := c.opts.Display
	d.Clear()
	d.Print(0, "Starting up...")
	d.Print(2, "Hold any key for key config")
	d.Print(3, "Press Start for config mode")

	selector := &mode.Selector{
		Bank:   c.bank,
		Table:  c.table,
		Clock:  c.opts.Clock,
		Pacer:  c.opts.Pacer(c.settings.DebounceTime),
		Window: c.settings.BootWindow,
		Logger: c.logger,
	}
	m := selector.Select()
	d.Clear()

	if m == mode.Calibration {
		flow := &calibrate.Workflow{
			Bank:    c.bank,
			Table:   c.table,
			Display: d,
			Clock:   c.opts.Clock,
			Pacer:   c.opts.Pacer(c.settings.PollInterval),
			Logger:  c.logger,
			HoldOff: calibrate.DefaultHoldOff,
			Saved:   calibrate.DefaultSaved,
		}
		if err := flow.Run(); err != nil {
			return m, err
		}
		c.table.Load()
	}

	return m, nil
}

// Run boots and then enters the selected mode. It returns only on error.
func (c *Controller) Run() error {
	m, err := c.Boot()
	if err != nil {
		return err
	}

	if m == mode.NetworkConfiguration {
		if c.opts.ConfigMode != nil {
			c.opts.ConfigMode()
		}
		c.opts.Display.Print(0, "Config mode")
		return c.opts.Config.Serve()
	}

	return c.Play()
}

// Play runs the main loop.
func (c *Controller) Play() error {
	c.logger.Info("entering play loop")
	for {
		c.Tick()
		if !c.play.Next() {
			return poll.ErrExhausted
		}
	}
}

// Tick runs one main loop iteration. Nothing is sampled or sent while the
// transport is disconnected; the first connected tick starts from a fresh
// reading, so nothing that happened meanwhile is reported.
func (c *Controller) Tick() bool {
	t := c.opts.Transport
	if !t.Connected() {
		if c.connected {
			c.logger.Info("transport disconnected")
		}
		c.connected = false
		return false
	}

	if !c.connected {
		c.logger.Info("transport connected")
		c.bank.Reset()
		c.connected = true
	}

	hat := c.builder.Tick(t)
	if c.logger.Enabled(context.Background(), logging.LevelTrace) {
		c.logger.Log(context.Background(), logging.LevelTrace, "report", "hat", hat)
	}
	return true
}
