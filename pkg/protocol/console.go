package protocol

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/config"
)

const consoleHelp = `get KEY          show a setting
set KEY VALUE    store a setting
del KEY          remove a setting
list             show stored settings
bindings         show all bindings
bind NAME INPUT  bind a button (INPUT is 0-13 or IN0-IN13)
help             this text`

// handleConsole runs one text command line.
// Payload: [Line]
// Response: [Text]
func (h *Handler) handleConsole(payload []byte) *Response {
	args, err := shlex.Split(string(payload))
	if err != nil {
		return text(StatusInvalidData, err.Error())
	}
	if len(args) == 0 {
		return text(StatusInvalidData, "empty command")
	}

	cmd, args := strings.ToLower(args[0]), args[1:]
	switch {
	case cmd == "help":
		return text(StatusOK, consoleHelp)
	case cmd == "get" && len(args) == 1:
		return h.consoleGet(args[0])
	case cmd == "set" && len(args) == 2:
		v, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return text(StatusInvalidData, "value must be a 32-bit integer")
		}
		return h.consoleResult(h.set(args[0], int(v)))
	case cmd == "del" && len(args) == 1:
		return h.consoleResult(h.storage.Delete(args[0]))
	case cmd == "list" && len(args) == 0:
		return h.consoleList()
	case cmd == "bindings" && len(args) == 0:
		return h.consoleBindings()
	case cmd == "bind" && len(args) == 2:
		l, err := button.ParseLogical(args[0])
		if err != nil {
			return h.consoleResult(err)
		}
		in, err := button.ParseInput(args[1])
		if err != nil {
			return h.consoleResult(err)
		}
		h.table.Load()
		return h.consoleResult(h.table.Bind(l, in))
	}

	return text(StatusInvalidCmd, "usage:\n"+consoleHelp)
}

func (h *Handler) consoleGet(key string) *Response {
	v, err := h.storage.Load(key)
	if err == nil {
		return text(StatusOK, key+"="+strconv.Itoa(v))
	}
	if def, ok := config.Default(key); ok && statusOf(err) == StatusNotFound {
		return text(StatusOK, key+"="+strconv.Itoa(def)+" (default)")
	}
	return h.consoleResult(err)
}

func (h *Handler) consoleList() *Response {
	keys, err := h.storage.List()
	if err != nil {
		return h.consoleResult(err)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(h.storage.GetInt(key, 0)))
		b.WriteByte('\n')
	}
	return text(StatusOK, strings.TrimSuffix(b.String(), "\n"))
}

func (h *Handler) consoleBindings() *Response {
	h.table.Load()

	var b strings.Builder
	for l, in := range h.table.Snapshot() {
		b.WriteString(button.Logical(l).String())
		b.WriteByte('=')
		b.WriteString(in.String())
		b.WriteByte('\n')
	}
	return text(StatusOK, strings.TrimSuffix(b.String(), "\n"))
}

func (h *Handler) consoleResult(err error) *Response {
	if err != nil {
		return text(statusOf(err), err.Error())
	}
	return text(StatusOK, "ok")
}

func text(status uint8, s string) *Response {
	return &Response{Status: status, Payload: []byte(s)}
}
