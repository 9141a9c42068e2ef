// Package uart owns the serial line for the duration of one command. A
// Session holds the OS handle exclusively from Open to Close; no two
// commands share one.
package uart

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// ErrTimedOut is returned by ReceiveLine when no complete line arrives
// within the caller's timeout.
var ErrTimedOut = errors.New("serial read timed out")

// ErrDeviceUnavailable wraps open failures: the path does not exist or
// the line is already held by another process.
var ErrDeviceUnavailable = errors.New("serial device unavailable")

// Session is an exclusively owned serial connection.
type Session struct {
	port    serial.Port
	device  string
	pending []byte
	readBuf []byte
}

// Open acquires the named device at the given baud rate.
func Open(device string, baudrate int) (*Session, error) {
	if device == "" {
		return nil, fmt.Errorf("%w: no device given", ErrDeviceUnavailable)
	}
	port, err := serial.Open(device, &serial.Mode{BaudRate: baudrate})
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) {
			switch portErr.Code() {
			case serial.PortNotFound, serial.PortBusy, serial.PermissionDenied:
				return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, device, err)
			}
		}
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	return newSession(port, device), nil
}

func newSession(port serial.Port, device string) *Session {
	return &Session{
		port:    port,
		device:  device,
		readBuf: make([]byte, 512),
	}
}

// Send writes raw bytes to the line, looping until everything is out.
func (s *Session) Send(b []byte) error {
	for len(b) > 0 {
		n, err := s.port.Write(b)
		if err != nil {
			return fmt.Errorf("write %s: %w", s.device, err)
		}
		b = b[n:]
	}
	return nil
}

// ReceiveLine blocks until one complete newline-terminated line is
// available or the timeout elapses. The returned line is stripped of its
// trailing newline and carriage return. Bytes beyond the first newline
// are kept for the next call.
func (s *Session) ReceiveLine(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := bytes.TrimRight(s.pending[:i], "\r")
			out := make([]byte, len(line))
			copy(out, line)
			s.pending = s.pending[i+1:]
			return out, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimedOut
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return nil, fmt.Errorf("set read timeout on %s: %w", s.device, err)
		}
		n, err := s.port.Read(s.readBuf)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.device, err)
		}
		if n == 0 {
			// go.bug.st/serial signals an expired read timeout with a
			// zero-byte read and a nil error.
			return nil, ErrTimedOut
		}
		s.pending = append(s.pending, s.readBuf[:n]...)
	}
}

// Close releases the OS handle. Safe to call more than once.
func (s *Session) Close() error {
	if s.port == nil {
		return nil
	}
	port := s.port
	s.port = nil
	return port.Close()
}
