package smp

import "fmt"

// Device-reported status codes carried in the "rc" body field.
const (
	RCOk       = 0
	RCUnknown  = 1
	RCNoMem    = 2
	RCInvalid  = 3
	RCTimeout  = 4
	RCNoEntry  = 5
	RCBadState = 6
	RCTooLarge = 7
	RCNotSup   = 8
	RCCorrupt  = 9
	RCBusy     = 10
)

var rcNames = map[int]string{
	RCOk:       "ok",
	RCUnknown:  "unknown error",
	RCNoMem:    "out of memory",
	RCInvalid:  "invalid argument",
	RCTimeout:  "timeout",
	RCNoEntry:  "no such entry",
	RCBadState: "bad state",
	RCTooLarge: "message too large",
	RCNotSup:   "not supported",
	RCCorrupt:  "corrupt payload",
	RCBusy:     "busy",
}

// SequenceMismatchError reports a response whose sequence id does not
// match the request it should answer.
type SequenceMismatchError struct {
	Want uint8
	Got  uint8
}

func (e *SequenceMismatchError) Error() string {
	return fmt.Sprintf("response sequence %d does not match request sequence %d", e.Got, e.Want)
}

// UnexpectedError reports a response for a different operation, group or
// command than the one in flight.
type UnexpectedError struct {
	WantOp, GotOp       uint8
	WantGroup, GotGroup uint16
	WantID, GotID       uint8
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected response: got op=%d group=%d id=%d, want op=%d group=%d id=%d",
		e.GotOp, e.GotGroup, e.GotID, e.WantOp, e.WantGroup, e.WantID)
}

// NakError reports a non-success status returned by the device.
type NakError struct {
	RC int
}

func (e *NakError) Error() string {
	if name, ok := rcNames[e.RC]; ok {
		return fmt.Sprintf("device returned rc=%d (%s)", e.RC, name)
	}
	return fmt.Sprintf("device returned rc=%d", e.RC)
}

// MalformedError reports a packet or body that could not be parsed as the
// expected structure.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "malformed response: " + e.Reason
}
