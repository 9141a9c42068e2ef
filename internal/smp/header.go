// Package smp implements the management protocol codec: the fixed 8-byte
// header and the CBOR command bodies exchanged with the device.
package smp

import (
	"encoding/binary"
	"fmt"
)

// Operation kinds.
const (
	OpReadReq  uint8 = 0
	OpReadRsp  uint8 = 1
	OpWriteReq uint8 = 2
	OpWriteRsp uint8 = 3
)

// Functional groups and command ids, pinned by the device firmware.
const (
	GroupOS    uint16 = 0
	GroupImage uint16 = 1

	CmdOSReset     uint8 = 5
	CmdImageState  uint8 = 0
	CmdImageUpload uint8 = 1
	CmdImageErase  uint8 = 5
)

// HeaderSize is the fixed encoded header length in bytes.
const HeaderSize = 8

// Header is the structured prefix of every packet.
type Header struct {
	Op    uint8
	Flags uint8
	Len   uint16
	Group uint16
	Seq   uint8
	ID    uint8
}

// Marshal encodes the header into its 8-byte wire form.
func (h Header) Marshal() []byte {
	b := make([]byte, HeaderSize)
	b[0] = h.Op
	b[1] = h.Flags
	binary.BigEndian.PutUint16(b[2:4], h.Len)
	binary.BigEndian.PutUint16(b[4:6], h.Group)
	b[6] = h.Seq
	b[7] = h.ID
	return b
}

// ParseHeader decodes the 8-byte header at the start of a packet.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, &MalformedError{Reason: fmt.Sprintf("packet too short for header: %d bytes", len(b))}
	}
	return Header{
		Op:    b[0],
		Flags: b[1],
		Len:   binary.BigEndian.Uint16(b[2:4]),
		Group: binary.BigEndian.Uint16(b[4:6]),
		Seq:   b[6],
		ID:    b[7],
	}, nil
}

// ResponseOp returns the response operation kind paired with a request
// operation kind.
func ResponseOp(reqOp uint8) uint8 {
	return reqOp + 1
}
