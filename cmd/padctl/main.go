// Command padctl reads and writes the controller's settings over its USB
// serial port while the controller is in config mode.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	"golang.org/x/term"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/client"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/logging"
)

type Log struct {
	Level string `help:"Log level: trace, debug, info, warn, error, off" default:"warn" env:"PADCTL_LOG_LEVEL"`
}

// CLI is the root command structure for Kong CLI parsing.
type CLI struct {
	Log `embed:"" prefix:"log."`

	Port    string        `help:"Serial device of the controller" default:"/dev/ttyACM0" env:"PADCTL_PORT"`
	Timeout time.Duration `help:"Response timeout" default:"2s" env:"PADCTL_TIMEOUT"`

	Ping     PingCmd     `cmd:"" help:"Check that the controller answers"`
	Get      GetCmd      `cmd:"" help:"Show a stored setting"`
	Set      SetCmd      `cmd:"" help:"Store a setting"`
	Del      DelCmd      `cmd:"" help:"Remove a setting so it reverts to its default"`
	List     ListCmd     `cmd:"" help:"List stored settings"`
	Bindings BindingsCmd `cmd:"" help:"Show the input bound to every button"`
	Bind     BindCmd     `cmd:"" help:"Bind a button to an input"`
	Stats    StatsCmd    `cmd:"" help:"Show storage usage"`
	Reset    ResetCmd    `cmd:"" help:"Erase every setting and binding"`
	Version  VersionCmd  `cmd:"" help:"Show firmware and config versions"`
	Console  ConsoleCmd  `cmd:"" help:"Run console commands, interactively when none is given"`
	Reboot   RebootCmd   `cmd:"" help:"Restart the controller"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("padctl"),
		kong.Description("Configure the hitbox controller over USB serial"),
		kong.UsageOnError(),
		// Flags and env override the config file.
		kong.Configuration(kongyaml.Loader, "~/.config/padctl.yaml", "padctl.yaml"),
	)

	logger := logging.SetupLogger(cli.Log.Level, term.IsTerminal(int(os.Stderr.Fd())))

	port, err := OpenPort(cli.Port, cli.Timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open port:", err)
		os.Exit(2)
	}
	logger.Debug("port open", "port", cli.Port, "timeout", cli.Timeout)

	ctx.Bind(logger)
	ctx.Bind(client.New(port))
	ctx.BindTo(os.Stdout, (*io.Writer)(nil))

	err = ctx.Run()
	// The tty must leave raw mode before a fatal exit.
	if cerr := port.Close(); cerr != nil {
		logger.Warn("failed to restore port", "port", cli.Port, "error", cerr)
	}
	ctx.FatalIfErrorf(err)
}
