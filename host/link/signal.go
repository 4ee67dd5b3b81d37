package link

import (
	"fmt"
	"os"
	"strings"
)

// SignalLine reports the device's receive-window handshake. The device pulls
// the line low while it is able to accept bytes.
type SignalLine interface {
	// Ready reports whether the device is currently accepting bytes.
	Ready() (bool, error)
}

// SignalFunc adapts a function to the SignalLine interface.
type SignalFunc func() (bool, error)

func (f SignalFunc) Ready() (bool, error) { return f() }

// GPIOSignal reads the handshake from a sysfs GPIO value file. The pin must
// already be exported and configured as an input.
type GPIOSignal struct {
	path string
}

// NewGPIOSignal returns a signal line backed by the given gpio number.
func NewGPIOSignal(pin int) *GPIOSignal {
	return &GPIOSignal{path: fmt.Sprintf("/sys/class/gpio/gpio%d/value", pin)}
}

// NewGPIOSignalPath returns a signal line backed by an explicit value file,
// mainly for configs that point at a different gpiochip layout.
func NewGPIOSignalPath(path string) *GPIOSignal {
	return &GPIOSignal{path: path}
}

// Ready reads the pin. Low means the device's receive window is open.
func (g *GPIOSignal) Ready() (bool, error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return false, fmt.Errorf("read signal pin %s: %w", g.path, err)
	}
	return strings.TrimSpace(string(data)) == "0", nil
}
