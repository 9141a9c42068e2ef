package config

import (
	"fmt"
	"time"
)

// Verbose enables debug output when true
var Verbose bool

// Debugf prints debug messages when Verbose is true
func Debugf(format string, args ...any) {
	if Verbose {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}

// Specs holds the per-command serial session parameters. A Specs value is
// built once from the command line and is read-only for the lifetime of
// the command that consumes it.
type Specs struct {
	// Device is the serial device path, e.g. /dev/ttyACM0.
	Device string

	// InitialTimeout applies to the first upload chunk only; the device
	// may spend that long erasing flash before it acknowledges.
	InitialTimeout time.Duration

	// SubsequentTimeout applies to every other request/response exchange.
	SubsequentTimeout time.Duration

	// NbRetry is the number of times a chunk is resent after a timeout
	// or a bad acknowledgement before the upload is aborted.
	NbRetry int

	// LineLength is the maximum number of bytes per framed wire line,
	// including the frame marker and the terminating newline.
	LineLength int

	// MTU is the maximum size in bytes of one encoded protocol request
	// (header plus body, before line framing).
	MTU int

	// Baudrate for the serial line.
	Baudrate int
}

// DefaultSpecs returns the stock session parameters. They match the
// defaults the device side is typically built with.
func DefaultSpecs() Specs {
	return Specs{
		InitialTimeout:    60 * time.Second,
		SubsequentTimeout: 200 * time.Millisecond,
		NbRetry:           4,
		LineLength:        128,
		MTU:               512,
		Baudrate:          115_200,
	}
}
