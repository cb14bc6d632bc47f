// Package serial runs the configuration protocol over the USB CDC port.
package serial

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/display"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/logging"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/protocol"
)

// Port is the byte stream the server talks over. machine.Serialer satisfies it.
// ReadByte returns an error other than io.EOF when no byte is pending.
type Port interface {
	ReadByte() (byte, error)
	Write(data []byte) (int, error)
}

// Monitor mirrors traffic, typically on the display.
type Monitor interface {
	ShowIncomingFrame(bytesStr, parsedStr string)
	ShowOutgoingResponse(bytesStr, parsedStr string)
	ShowError(msg string)
}

// Server answers protocol frames until the port reaches EOF.
type Server struct {
	port      Port
	handler   *protocol.Handler
	formatter *display.FrameFormatter

	// Monitor may be nil.
	Monitor Monitor
	// Reboot is called after the response to CmdReboot has been written.
	Reboot func()
	// Idle is called while no byte is pending. Defaults to a 1ms sleep.
	Idle   func()
	Logger *slog.Logger
}

func NewServer(port Port, handler *protocol.Handler) *Server {
	return &Server{
		port:      port,
		handler:   handler,
		formatter: display.NewFrameFormatter(),
	}
}

// Serve handles frames until the port reports io.EOF.
// On the board the port never ends, so Serve does not return.
func (s *Server) Serve() error {
	logger := logging.Discard(s.Logger)
	idle := s.Idle
	if idle == nil {
		idle = func() { time.Sleep(time.Millisecond) }
	}
	r := &portReader{port: s.port, idle: idle}

	for {
		frame, err := protocol.ReadFrame(r)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		case err == protocol.ErrCRCMismatch:
			s.showError(err)
			if err := s.respond(&protocol.Response{Status: protocol.StatusCRCError}); err != nil {
				return err
			}
			continue
		default:
			// Out of sync; drop bytes until the next sync byte.
			logger.Debug("dropping frame", "error", err)
			continue
		}

		if s.Monitor != nil {
			s.Monitor.ShowIncomingFrame(s.formatter.FormatIncoming(frame))
		}

		resp := s.handler.Handle(frame)
		if err := s.respond(resp); err != nil {
			return err
		}

		if s.handler.RebootRequested() && s.Reboot != nil {
			s.Reboot()
		}
	}
}

func (s *Server) respond(resp *protocol.Response) error {
	if s.Monitor != nil {
		s.Monitor.ShowOutgoingResponse(s.formatter.FormatOutgoing(resp))
	}
	return protocol.WriteResponse(s.port, resp)
}

func (s *Server) showError(err error) {
	if s.Monitor != nil {
		s.Monitor.ShowError(s.formatter.FormatError(err))
	}
}

// portReader turns a polled byte port into a blocking io.Reader.
type portReader struct {
	port Port
	idle func()
}

func (r *portReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		b, err := r.port.ReadByte()
		if err == nil {
			p[0] = b
			return 1, nil
		}
		if err == io.EOF {
			return 0, io.EOF
		}
		r.idle()
	}
}
