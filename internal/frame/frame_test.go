package frame

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

// rawLine builds a single start-marker line directly from frame body bytes,
// bypassing Encode, so tests can construct malformed frames.
func rawLine(body []byte) []byte {
	line := append([]byte{0x06, 0x09}, []byte(base64.StdEncoding.EncodeToString(body))...)
	return append(line, '\n')
}

func TestCRC16KnownVectors(t *testing.T) {
	testCases := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{"empty", []byte{}, 0x0000},
		{"check string", []byte("123456789"), 0x31C3},
		{"single zero", []byte{0x00}, 0x0000},
		{"single A", []byte("A"), 0x58E5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CRC16(tc.data); got != tc.expected {
				t.Errorf("CRC16(%q) = 0x%04X, want 0x%04X", tc.data, got, tc.expected)
			}
		})
	}
}

func decodeAll(t *testing.T, lines [][]byte) ([]byte, error) {
	t.Helper()
	dec := NewDecoder()
	for _, line := range lines {
		if err := dec.Feed(line); err != nil {
			return nil, err
		}
	}
	if !dec.Done() {
		t.Fatalf("decoder not done after %d lines", len(lines))
	}
	return dec.Packet()
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sizes := []int{1, 2, 3, 64, 90, 91, 92, 127, 128, 500, 512, 4096}
	for _, size := range sizes {
		packet := make([]byte, size)
		for i := range packet {
			packet[i] = byte(i * 7)
		}

		lines, err := Encode(packet, 128)
		if err != nil {
			t.Fatalf("size %d: Encode: %v", size, err)
		}

		got, err := decodeAll(t, lines)
		if err != nil {
			t.Fatalf("size %d: decode: %v", size, err)
		}
		if !bytes.Equal(got, packet) {
			t.Errorf("size %d: round trip mismatch", size)
		}
	}
}

func TestEncodeLineLengthBound(t *testing.T) {
	packet := make([]byte, 1000)
	for _, lineLength := range []int{8, 16, 127, 128} {
		lines, err := Encode(packet, lineLength)
		if err != nil {
			t.Fatalf("linelength %d: %v", lineLength, err)
		}
		if len(lines) < 2 {
			t.Fatalf("linelength %d: expected a multi-line frame, got %d lines", lineLength, len(lines))
		}
		for i, line := range lines {
			if len(line) > lineLength {
				t.Errorf("linelength %d: line %d is %d bytes", lineLength, i, len(line))
			}
			if line[len(line)-1] != '\n' {
				t.Errorf("linelength %d: line %d not newline-terminated", lineLength, i)
			}
		}
		if lines[0][0] != 0x06 || lines[0][1] != 0x09 {
			t.Errorf("first line missing start marker: % x", lines[0][:2])
		}
		for i, line := range lines[1:] {
			if line[0] != 0x04 || line[1] != 0x14 {
				t.Errorf("continuation line %d missing marker: % x", i+1, line[:2])
			}
		}
	}
}

func TestEncodeLineLengthTooSmall(t *testing.T) {
	if _, err := Encode([]byte{1}, 4); err == nil {
		t.Fatal("expected an error for an unusable line length")
	}
}

func TestDecodeSkipsNoiseLines(t *testing.T) {
	packet := []byte("hello firmware device")
	lines, err := Encode(packet, 16)
	if err != nil {
		t.Fatal(err)
	}

	// Interleave console noise between frame lines.
	noisy := [][]byte{[]byte("boot: image ok")}
	for _, line := range lines {
		noisy = append(noisy, line, []byte("log: spurious output"))
	}

	got, err := decodeAll(t, noisy)
	if err != nil {
		t.Fatalf("decode with noise: %v", err)
	}
	if !bytes.Equal(got, packet) {
		t.Error("noise lines corrupted the packet")
	}
}

func TestDecodeContinuationBeforeStartIsSkipped(t *testing.T) {
	packet := []byte{0xAA, 0xBB, 0xCC}
	lines, err := Encode(packet, 128)
	if err != nil {
		t.Fatal(err)
	}

	dec := NewDecoder()
	if err := dec.Feed([]byte{0x04, 0x14, 'A', 'B', 'C', 'D'}); err != nil {
		t.Fatalf("stray continuation line: %v", err)
	}
	if dec.Done() {
		t.Fatal("decoder done after stray continuation line")
	}
	for _, line := range lines {
		if err := dec.Feed(line); err != nil {
			t.Fatal(err)
		}
	}
	got, err := dec.Packet()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, packet) {
		t.Error("packet mismatch after stray continuation line")
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	packet := []byte("payload under test")
	lines, err := Encode(packet, 128)
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt one base64 character in the middle of the frame, past the
	// length prefix, so the frame still completes but fails verification.
	line := make([]byte, len(lines[0]))
	copy(line, lines[0])
	pos := len(line) / 2
	if line[pos] == 'A' {
		line[pos] = 'B'
	} else {
		line[pos] = 'A'
	}
	dec := NewDecoder()
	if err := dec.Feed(line); err != nil {
		t.Fatal(err)
	}
	if !dec.Done() {
		t.Fatal("decoder should have a full frame")
	}
	if _, err := dec.Packet(); err == nil {
		t.Fatal("expected a decode failure for a corrupted frame")
	}
}

func TestDecodeChecksumMismatchTyped(t *testing.T) {
	packet := []byte("typed checksum test")
	buf := make([]byte, 0)
	buf = append(buf, byte((len(packet)+2)>>8), byte((len(packet)+2)&0xFF))
	buf = append(buf, packet...)
	crc := CRC16(packet) ^ 0x1111 // wrong on purpose
	buf = append(buf, byte(crc>>8), byte(crc&0xFF))

	dec := NewDecoder()
	if err := dec.Feed(rawLine(buf)); err != nil {
		t.Fatal(err)
	}
	_, err := dec.Packet()
	var csErr *ChecksumError
	if !errors.As(err, &csErr) {
		t.Fatalf("expected ChecksumError, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	// Declared length longer than the carried bytes.
	packet := []byte{1, 2, 3, 4}
	buf := make([]byte, 0)
	buf = append(buf, 0x00, 0x40) // declares 64 bytes to follow
	buf = append(buf, packet...)
	crc := CRC16(packet)
	buf = append(buf, byte(crc>>8), byte(crc&0xFF))

	dec := NewDecoder()
	if err := dec.Feed(rawLine(buf)); err != nil {
		t.Fatal(err)
	}
	if dec.Done() {
		// Only possible if the declared length was somehow satisfied.
		if _, err := dec.Packet(); err == nil {
			t.Fatal("expected a truncation failure")
		}
		return
	}
	_, err := dec.Packet()
	var trErr *TruncatedError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TruncatedError, got %v", err)
	}
}

func TestDecoderRestartsOnNewStartMarker(t *testing.T) {
	first, err := Encode([]byte("abandoned frame"), 16)
	if err != nil {
		t.Fatal(err)
	}
	packet := []byte("the real frame")
	second, err := Encode(packet, 128)
	if err != nil {
		t.Fatal(err)
	}

	dec := NewDecoder()
	// Start of an older frame that never completes, then a fresh one.
	if err := dec.Feed(first[0]); err != nil {
		t.Fatal(err)
	}
	for _, line := range second {
		if err := dec.Feed(line); err != nil {
			t.Fatal(err)
		}
	}
	got, err := dec.Packet()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, packet) {
		t.Error("decoder did not restart on a new start marker")
	}
}
