// Package frame implements the line-oriented encapsulation of the serial
// console transport. A packet is carried as base64 text split across
// newline-terminated lines bounded by the configured line length.
//
// Wire format:
//
//	[Line 1]  0x06 0x09 <base64 text...> \n
//	[Line 2+] 0x04 0x14 <base64 text...> \n
//
// The base64 text covers, in order:
//
//	bytes 0-1: big-endian length of everything that follows (packet + CRC)
//	bytes 2+:  the packet
//	last 2:    big-endian CRC-16/XMODEM over the packet only
package frame

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Frame markers, pinned by the device-side transport.
var (
	startMarker = []byte{0x06, 0x09}
	contMarker  = []byte{0x04, 0x14}
)

const markerLen = 2

// minLineLength is the smallest usable line: marker, one base64 quantum,
// newline.
const minLineLength = markerLen + 4 + 1

// Framing error kinds.

// ChecksumError reports a frame whose trailing CRC did not match its
// contents. It is never retried by this layer.
type ChecksumError struct {
	Want uint16
	Got  uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("frame checksum mismatch: computed 0x%04X, frame carries 0x%04X", e.Want, e.Got)
}

// TruncatedError reports a frame whose declared length does not match the
// bytes actually decoded.
type TruncatedError struct {
	Declared int
	Got      int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated frame: declared %d bytes, decoded %d", e.Declared, e.Got)
}

// Encode wraps a packet into wire lines. No line exceeds lineLength bytes,
// counting the marker and the trailing newline.
func Encode(packet []byte, lineLength int) ([][]byte, error) {
	if lineLength < minLineLength {
		return nil, fmt.Errorf("line length %d too small, need at least %d", lineLength, minLineLength)
	}
	if len(packet)+2 > 0xFFFF {
		return nil, fmt.Errorf("packet too large to frame: %d bytes", len(packet))
	}

	buf := make([]byte, 0, len(packet)+4)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(packet)+2))
	buf = append(buf, packet...)
	buf = binary.BigEndian.AppendUint16(buf, CRC16(packet))

	text := base64.StdEncoding.EncodeToString(buf)

	budget := lineLength - markerLen - 1
	var lines [][]byte
	marker := startMarker
	for len(text) > 0 {
		n := budget
		if n > len(text) {
			n = len(text)
		}
		line := make([]byte, 0, markerLen+n+1)
		line = append(line, marker...)
		line = append(line, text[:n]...)
		line = append(line, '\n')
		lines = append(lines, line)
		text = text[n:]
		marker = contMarker
	}
	return lines, nil
}

// Decoder reassembles one packet from incoming wire lines. Feed lines to
// it until Done reports true, then call Packet.
type Decoder struct {
	text    []byte
	started bool
	// expect is the base64 text length needed for the full frame,
	// derived from the declared length; -1 until known.
	expect int
}

// NewDecoder returns a Decoder ready for the next packet.
func NewDecoder() *Decoder {
	return &Decoder{expect: -1}
}

// Feed consumes one received line. Lines that carry neither marker are
// noise on the shared console and are skipped; continuation lines seen
// before a start line are skipped likewise.
func (d *Decoder) Feed(line []byte) error {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	switch {
	case hasMarker(line, startMarker):
		d.text = append(d.text[:0], line[markerLen:]...)
		d.started = true
		d.expect = -1
	case hasMarker(line, contMarker):
		if !d.started {
			return nil
		}
		d.text = append(d.text, line[markerLen:]...)
	default:
		return nil
	}

	if d.expect < 0 && len(d.text) >= 4 {
		// The first three decoded bytes contain the u16 length prefix.
		var head [3]byte
		if _, err := base64.StdEncoding.Decode(head[:], d.text[:4]); err != nil {
			d.reset()
			return fmt.Errorf("bad frame encoding: %w", err)
		}
		declared := int(binary.BigEndian.Uint16(head[:2]))
		d.expect = base64.StdEncoding.EncodedLen(2 + declared)
	}
	return nil
}

// Done reports whether a complete frame has been collected.
func (d *Decoder) Done() bool {
	return d.started && d.expect >= 0 && len(d.text) >= d.expect
}

// Packet decodes the collected frame, verifies its declared length and
// trailing checksum, and returns the carried packet.
func (d *Decoder) Packet() ([]byte, error) {
	if !d.Done() {
		return nil, &TruncatedError{Declared: d.expect, Got: len(d.text)}
	}
	buf, err := base64.StdEncoding.AppendDecode(nil, d.text[:d.expect])
	if err != nil {
		return nil, fmt.Errorf("bad frame encoding: %w", err)
	}
	if len(buf) < 4 {
		return nil, &TruncatedError{Declared: 4, Got: len(buf)}
	}
	declared := int(binary.BigEndian.Uint16(buf[:2]))
	if len(buf)-2 != declared {
		return nil, &TruncatedError{Declared: declared, Got: len(buf) - 2}
	}
	packet := buf[2 : len(buf)-2]
	want := CRC16(packet)
	got := binary.BigEndian.Uint16(buf[len(buf)-2:])
	if want != got {
		return nil, &ChecksumError{Want: want, Got: got}
	}
	return packet, nil
}

func (d *Decoder) reset() {
	d.text = d.text[:0]
	d.started = false
	d.expect = -1
}

func hasMarker(line, marker []byte) bool {
	return len(line) >= markerLen && line[0] == marker[0] && line[1] == marker[1]
}
