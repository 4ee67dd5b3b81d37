// Package serial abstracts the host's serial port so the link layer can run
// against real hardware or a scripted port in tests.
package serial

import (
	"io"
)

// Port is the byte transport under the link layer.
type Port interface {
	io.ReadWriteCloser

	// Flush discards any pending unread input.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyS0", "/dev/ttyAMA0")
	Device string

	// Baud rate. The device bit-bangs at 19200 and cannot go faster.
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration matching the device firmware.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        19200,
		ReadTimeout: 100,
	}
}
