//go:build tinygo

package main

import (
	"log/slog"
	"machine"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/controller"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/display"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/gamepad"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/logging"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/pins"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/protocol"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/storage"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/serial"

	_ "github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/composite" // gamepad report descriptor

	"tinygo.org/x/tinyfs"
)

// MAIN THREAD DUTIES
//

func main() {
	serialer := machine.Serial // USB CDC Serial

	// Config mode turns logging off so frames own the port.
	level := new(slog.LevelVar)
	logger := logging.New(serialer, level)

	disp := display.NewManager()

	store, err := storage.New(machine.Flash, true, storage.WithLogger(logger))
	if err != nil {
		// Play on defaults from RAM; nothing survives a reboot.
		logger.Error("flash storage unavailable", "error", err)
		disp.Print(1, "Storage error")
		store, err = storage.New(tinyfs.NewMemoryDevice(256, 4096, 8), true, storage.WithLogger(logger))
		if err != nil {
			logger.Error("memory storage unavailable", "error", err)
			select {}
		}
	}

	configServer := serial.NewServer(serialer, protocol.NewHandler(store))
	configServer.Monitor = disp
	configServer.Reboot = machine.CPUReset
	configServer.Logger = logger

	ctl := controller.New(controller.Options{
		Sampler:    pins.New(),
		Store:      store,
		Transport:  gamepad.Port(),
		Display:    disp,
		Config:     configServer,
		ConfigMode: func() { level.Set(logging.LevelOff) },
		Logger:     logger,
	})

	if err := ctl.Run(); err != nil {
		logger.Error("controller stopped", "error", err)
	}

	// Block main goroutine to keep program running
	select {}
}
