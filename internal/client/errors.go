package client

import "fmt"

// TimeoutError reports an upload chunk that got no valid acknowledgement
// after exhausting the configured retries.
type TimeoutError struct {
	Offset   uint64
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no acknowledgement for chunk at offset %d after %d attempts", e.Offset, e.Attempts)
}

// OffsetError reports a device acknowledgement whose next-offset is
// inconsistent with the chunk just sent. It indicates desynchronization,
// not transient loss, and is never retried.
type OffsetError struct {
	Sent uint64
	Want uint64
	Got  uint64
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("device acknowledged offset %d for chunk sent at %d, expected %d", e.Got, e.Sent, e.Want)
}

// ValidationError reports caller input rejected before anything is sent.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid argument: " + e.Reason
}
