package uart

import "go.bug.st/serial"

// Ports enumerates the serial devices visible to the process.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
