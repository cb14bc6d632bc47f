package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/client"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/config"
)

var errNotConfirmed = errors.New("refusing to erase without --yes")

type PingCmd struct{}

func (p *PingCmd) Run(c *client.Client, out io.Writer) error {
	name, err := c.Discover()
	if err != nil {
		return err
	}
	if _, err := c.Ping([]byte("ping")); err != nil {
		return err
	}
	fmt.Fprintf(out, "pong from %s\n", name)
	return nil
}

type GetCmd struct {
	Key string `arg:"" help:"Setting key"`
}

func (g *GetCmd) Run(c *client.Client, out io.Writer) error {
	v, err := c.Get(g.Key)
	if client.IsNotFound(err) {
		if def, ok := config.Default(g.Key); ok {
			fmt.Fprintf(out, "%s=%d (default)\n", g.Key, def)
			return nil
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s=%d\n", g.Key, v)
	return nil
}

type SetCmd struct {
	Key   string `arg:"" help:"Setting key"`
	Value int    `arg:"" help:"Integer value"`
}

func (s *SetCmd) Run(c *client.Client, logger *slog.Logger) error {
	if err := config.ValidateKey(s.Key); err != nil {
		return fmt.Errorf("%s: %w", s.Key, err)
	}
	if err := config.ValidateValue(s.Key, s.Value); err != nil {
		return fmt.Errorf("%s=%d: %w", s.Key, s.Value, err)
	}
	if err := c.Set(s.Key, s.Value); err != nil {
		return err
	}
	logger.Info("setting stored", "key", s.Key, "value", s.Value)
	return nil
}

type DelCmd struct {
	Key string `arg:"" help:"Setting key"`
}

func (d *DelCmd) Run(c *client.Client, logger *slog.Logger) error {
	if err := c.Delete(d.Key); err != nil {
		return err
	}
	logger.Info("setting removed", "key", d.Key)
	return nil
}

type ListCmd struct{}

func (l *ListCmd) Run(c *client.Client, out io.Writer) error {
	keys, err := c.List()
	if err != nil {
		return err
	}
	sort.Strings(keys)
	for _, key := range keys {
		v, err := c.Get(key)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		fmt.Fprintf(out, "%s=%d\n", key, v)
	}
	return nil
}

type BindingsCmd struct{}

func (b *BindingsCmd) Run(c *client.Client, out io.Writer) error {
	inputs, err := c.Bindings()
	if err != nil {
		return err
	}
	for l, in := range inputs {
		fmt.Fprintf(out, "%-6s %s\n", button.Logical(l), in)
	}
	return nil
}

type BindCmd struct {
	Button string `arg:"" help:"Logical button (Left, Down, Right, Up, Start, Select, A, B, X, Y, L1, R1, L2, R2)"`
	Input  string `arg:"" help:"Physical input, 0-13 or IN0-IN13"`
}

func (b *BindCmd) Run(c *client.Client, logger *slog.Logger) error {
	l, err := button.ParseLogical(b.Button)
	if err != nil {
		return fmt.Errorf("%s: %w", b.Button, err)
	}
	in, err := button.ParseInput(b.Input)
	if err != nil {
		return fmt.Errorf("%s: %w", b.Input, err)
	}
	if err := c.Bind(l, in); err != nil {
		return err
	}
	logger.Info("button bound", "button", l, "input", in)
	return nil
}

type StatsCmd struct{}

func (s *StatsCmd) Run(c *client.Client, out io.Writer) error {
	stats, err := c.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "total:    %d bytes\n", stats.TotalSpace)
	fmt.Fprintf(out, "used:     %d bytes\n", stats.UsedSpace)
	fmt.Fprintf(out, "free:     %d bytes\n", stats.FreeSpace)
	fmt.Fprintf(out, "settings: %d\n", stats.SettingCount)
	return nil
}

type ResetCmd struct {
	Yes bool `help:"Confirm the erase"`
}

func (r *ResetCmd) Run(c *client.Client, logger *slog.Logger) error {
	if !r.Yes {
		return errNotConfirmed
	}
	if err := c.FactoryReset(); err != nil {
		return err
	}
	logger.Info("settings erased")
	return nil
}

type VersionCmd struct{}

func (v *VersionCmd) Run(c *client.Client, out io.Writer) error {
	ver, err := c.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "firmware %s\n", ver)
	return nil
}

type ConsoleCmd struct {
	Line []string `arg:"" optional:"" help:"Command to run; omit for an interactive session"`

	in io.Reader
}

func (cc *ConsoleCmd) Run(c *client.Client, out io.Writer) error {
	if len(cc.Line) > 0 {
		return console(c, out, joinArgs(cc.Line))
	}

	in := cc.in
	if in == nil {
		in = os.Stdin
	}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := console(c, out, line); err != nil {
			var se *client.StatusError
			if !errors.As(err, &se) {
				return err
			}
			// The device already explained; keep the session open.
			fmt.Fprintln(out, se.Message)
		}
	}
}

func console(c *client.Client, out io.Writer, line string) error {
	text, err := c.Console(line)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text)
	return nil
}

// joinArgs rebuilds a command line the device tokenizer splits back into args.
func joinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'\\") {
			a = strconv.Quote(a)
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}

type RebootCmd struct{}

func (r *RebootCmd) Run(c *client.Client, logger *slog.Logger) error {
	if err := c.Reboot(); err != nil {
		return err
	}
	logger.Info("controller rebooting")
	return nil
}
