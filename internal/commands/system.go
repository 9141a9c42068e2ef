package commands

import (
	"fmt"

	"smpctl/internal/client"
	"smpctl/internal/uart"
)

// Reset reboots the device. The device usually resets before answering,
// which the client already treats as success.
func Reset(c *client.Client) error {
	if err := c.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	fmt.Println("Device is resetting")
	return nil
}

// Ports prints the serial devices visible to the process.
func Ports(asJSON bool) error {
	ports, err := uart.Ports()
	if err != nil {
		return fmt.Errorf("enumerate ports: %w", err)
	}
	if asJSON {
		return MarshalAndPrint(ports)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
