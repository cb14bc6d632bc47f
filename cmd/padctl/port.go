package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

// Port is the controller's serial device in raw mode. Every read and write
// must complete within the timeout.
type Port struct {
	f       *os.File
	fd      int
	state   *term.State
	timeout time.Duration
}

func OpenPort(path string, timeout time.Duration) (*Port, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	fd, err := rawFd(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	// Frames are binary; echo and line discipline would corrupt them.
	state, err := term.MakeRaw(fd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("raw mode: %w", err)
	}

	return &Port{f: f, fd: fd, state: state, timeout: timeout}, nil
}

// rawFd returns the descriptor without f.Fd, which would switch the file to
// blocking mode and disable deadlines.
func rawFd(f *os.File) (int, error) {
	rc, err := f.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	err = rc.Control(func(u uintptr) { fd = int(u) })
	return fd, err
}

func (p *Port) Read(b []byte) (int, error) {
	p.deadline()
	return p.f.Read(b)
}

func (p *Port) Write(b []byte) (int, error) {
	p.deadline()
	return p.f.Write(b)
}

// deadline is best effort; devices without poller support block instead.
func (p *Port) deadline() {
	if p.timeout > 0 {
		_ = p.f.SetDeadline(time.Now().Add(p.timeout))
	}
}

// Close restores the terminal state and closes the device.
func (p *Port) Close() error {
	err := term.Restore(p.fd, p.state)
	if cerr := p.f.Close(); err == nil {
		err = cerr
	}
	return err
}
