package util

import (
	"fmt"
	"strings"
)

// HexDump renders data in hex dump format for verbose traffic traces.
func HexDump(data []byte) string {
	var b strings.Builder
	for i := 0; i < len(data); i += 16 {
		// Address
		fmt.Fprintf(&b, "%04x  ", i)

		// Hex bytes
		for j := 0; j < 16; j++ {
			if i+j < len(data) {
				fmt.Fprintf(&b, "%02x ", data[i+j])
			} else {
				b.WriteString("   ")
			}
			if j == 7 {
				b.WriteByte(' ')
			}
		}

		// ASCII
		b.WriteString(" |")
		for j := 0; j < 16 && i+j < len(data); j++ {
			c := data[i+j]
			if c >= 32 && c < 127 {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
