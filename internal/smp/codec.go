package smp

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// EncodeRequest serializes a request header and CBOR body into the flat
// packet the framer consumes.
func EncodeRequest(op uint8, group uint16, id, seq uint8, body any) ([]byte, error) {
	payload, err := cbor.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	if len(payload) > 0xFFFF {
		return nil, fmt.Errorf("body too large: %d bytes", len(payload))
	}
	hdr := Header{
		Op:    op,
		Len:   uint16(len(payload)),
		Group: group,
		Seq:   seq,
		ID:    id,
	}
	return append(hdr.Marshal(), payload...), nil
}

// rcProbe extracts the device status from a response body. A body without
// an rc field is a success.
type rcProbe struct {
	RC int `cbor:"rc"`
}

// DecodeResponse parses a response packet and validates it against the
// request in flight. The body is unmarshalled into out when out is
// non-nil. Retry policy lives entirely above this layer.
func DecodeResponse(pkt []byte, wantOp uint8, wantSeq uint8, wantGroup uint16, wantID uint8, out any) error {
	hdr, err := ParseHeader(pkt)
	if err != nil {
		return err
	}
	body := pkt[HeaderSize:]
	if int(hdr.Len) != len(body) {
		return &MalformedError{Reason: fmt.Sprintf("header declares %d body bytes, packet carries %d", hdr.Len, len(body))}
	}
	if hdr.Seq != wantSeq {
		return &SequenceMismatchError{Want: wantSeq, Got: hdr.Seq}
	}
	if hdr.Op != wantOp || hdr.Group != wantGroup || hdr.ID != wantID {
		return &UnexpectedError{
			WantOp: wantOp, GotOp: hdr.Op,
			WantGroup: wantGroup, GotGroup: hdr.Group,
			WantID: wantID, GotID: hdr.ID,
		}
	}

	var probe rcProbe
	if err := cbor.Unmarshal(body, &probe); err != nil {
		return &MalformedError{Reason: err.Error()}
	}
	if probe.RC != RCOk {
		return &NakError{RC: probe.RC}
	}
	if out != nil {
		if err := cbor.Unmarshal(body, out); err != nil {
			return &MalformedError{Reason: err.Error()}
		}
	}
	return nil
}
