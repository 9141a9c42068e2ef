package smp

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestHeaderMarshalParseRoundTrip(t *testing.T) {
	headers := []Header{
		{},
		{Op: OpWriteReq, Len: 1, Group: GroupImage, Seq: 7, ID: CmdImageUpload},
		{Op: OpReadRsp, Flags: 0x80, Len: 0xFFFF, Group: 0xBEEF, Seq: 255, ID: 255},
	}
	for _, want := range headers {
		got, err := ParseHeader(want.Marshal())
		if err != nil {
			t.Fatalf("%+v: %v", want, err)
		}
		if got != want {
			t.Errorf("round trip: got %+v, want %+v", got, want)
		}
	}
}

func TestHeaderWireLayout(t *testing.T) {
	h := Header{Op: OpWriteReq, Flags: 0, Len: 0x0102, Group: 0x0304, Seq: 0x05, ID: 0x06}
	want := []byte{0x02, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	if got := h.Marshal(); !bytes.Equal(got, want) {
		t.Errorf("layout: got % x, want % x", got, want)
	}
}

func TestParseHeaderShort(t *testing.T) {
	_, err := ParseHeader(make([]byte, HeaderSize-1))
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
}

func TestResponseOp(t *testing.T) {
	if got := ResponseOp(OpReadReq); got != OpReadRsp {
		t.Errorf("ResponseOp(read) = %d", got)
	}
	if got := ResponseOp(OpWriteReq); got != OpWriteRsp {
		t.Errorf("ResponseOp(write) = %d", got)
	}
}

// respond builds a well-formed response packet for the given request
// parameters, with body marshalled from v.
func respond(t *testing.T, op uint8, group uint16, id, seq uint8, v any) []byte {
	t.Helper()
	pkt, err := EncodeRequest(op, group, id, seq, v)
	if err != nil {
		t.Fatal(err)
	}
	return pkt
}

func TestEncodeRequestHeaderMatchesBody(t *testing.T) {
	body := ImageTestRequest{Hash: bytes.Repeat([]byte{0xAB}, 32), Confirm: true}
	pkt, err := EncodeRequest(OpWriteReq, GroupImage, CmdImageState, 42, body)
	if err != nil {
		t.Fatal(err)
	}
	hdr, err := ParseHeader(pkt)
	if err != nil {
		t.Fatal(err)
	}
	if int(hdr.Len) != len(pkt)-HeaderSize {
		t.Errorf("header len %d, body is %d bytes", hdr.Len, len(pkt)-HeaderSize)
	}
	if hdr.Op != OpWriteReq || hdr.Group != GroupImage || hdr.ID != CmdImageState || hdr.Seq != 42 {
		t.Errorf("header fields wrong: %+v", hdr)
	}

	var decoded ImageTestRequest
	if err := cbor.Unmarshal(pkt[HeaderSize:], &decoded); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded.Hash, body.Hash) || decoded.Confirm != body.Confirm {
		t.Errorf("body round trip: got %+v", decoded)
	}
}

func TestDecodeResponseSuccess(t *testing.T) {
	pkt := respond(t, OpWriteRsp, GroupImage, CmdImageUpload, 9, UploadResponse{Off: 4096})
	var rsp UploadResponse
	if err := DecodeResponse(pkt, OpWriteRsp, 9, GroupImage, CmdImageUpload, &rsp); err != nil {
		t.Fatal(err)
	}
	if rsp.Off != 4096 {
		t.Errorf("off = %d, want 4096", rsp.Off)
	}
}

func TestDecodeResponseNilOut(t *testing.T) {
	pkt := respond(t, OpWriteRsp, GroupOS, CmdOSReset, 1, struct{}{})
	if err := DecodeResponse(pkt, OpWriteRsp, 1, GroupOS, CmdOSReset, nil); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeResponseSequenceMismatch(t *testing.T) {
	pkt := respond(t, OpWriteRsp, GroupImage, CmdImageUpload, 3, UploadResponse{Off: 128})
	err := DecodeResponse(pkt, OpWriteRsp, 4, GroupImage, CmdImageUpload, nil)
	var seqErr *SequenceMismatchError
	if !errors.As(err, &seqErr) {
		t.Fatalf("expected SequenceMismatchError, got %v", err)
	}
	if seqErr.Want != 4 || seqErr.Got != 3 {
		t.Errorf("mismatch fields: %+v", seqErr)
	}
}

func TestDecodeResponseUnexpected(t *testing.T) {
	testCases := []struct {
		name  string
		op    uint8
		group uint16
		id    uint8
	}{
		{"wrong op", OpReadRsp, GroupImage, CmdImageUpload},
		{"wrong group", OpWriteRsp, GroupOS, CmdImageUpload},
		{"wrong id", OpWriteRsp, GroupImage, CmdImageErase},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pkt := respond(t, tc.op, tc.group, tc.id, 5, UploadResponse{})
			err := DecodeResponse(pkt, OpWriteRsp, 5, GroupImage, CmdImageUpload, nil)
			var unexpected *UnexpectedError
			if !errors.As(err, &unexpected) {
				t.Fatalf("expected UnexpectedError, got %v", err)
			}
		})
	}
}

func TestDecodeResponseNak(t *testing.T) {
	pkt := respond(t, OpWriteRsp, GroupImage, CmdImageErase, 2, map[string]int{"rc": RCNoEntry})
	err := DecodeResponse(pkt, OpWriteRsp, 2, GroupImage, CmdImageErase, nil)
	var nak *NakError
	if !errors.As(err, &nak) {
		t.Fatalf("expected NakError, got %v", err)
	}
	if nak.RC != RCNoEntry {
		t.Errorf("rc = %d, want %d", nak.RC, RCNoEntry)
	}
}

func TestDecodeResponseLengthMismatch(t *testing.T) {
	pkt := respond(t, OpWriteRsp, GroupImage, CmdImageUpload, 1, UploadResponse{Off: 16})
	// Claim one byte more than the packet carries.
	pkt[3]++
	err := DecodeResponse(pkt, OpWriteRsp, 1, GroupImage, CmdImageUpload, nil)
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
}

func TestDecodeResponseGarbageBody(t *testing.T) {
	hdr := Header{Op: OpWriteRsp, Len: 3, Group: GroupImage, Seq: 6, ID: CmdImageUpload}
	pkt := append(hdr.Marshal(), 0xFF, 0xFF, 0xFF)
	err := DecodeResponse(pkt, OpWriteRsp, 6, GroupImage, CmdImageUpload, nil)
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
}

func TestEraseRequestOmitsSlotWhenNil(t *testing.T) {
	data, err := cbor.Marshal(ImageEraseRequest{})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := cbor.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["slot"]; ok {
		t.Error("nil slot serialized")
	}

	slot := uint32(1)
	data, err = cbor.Marshal(ImageEraseRequest{Slot: &slot})
	if err != nil {
		t.Fatal(err)
	}
	m = nil
	if err := cbor.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["slot"]; !ok {
		t.Error("explicit slot missing from body")
	}
}
