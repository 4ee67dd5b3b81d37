//go:build avr

// Firmware entry point for the handheld. Wires the hardware timer, the
// bit-banged serial pins, the key matrix and the LCD into the device
// runtime, then spins the cooperative main loop forever.
package main

import (
	"machine"

	"github.com/jonboulle/clockwork"

	"srxterm/device"
	"srxterm/device/softserial"
)

// Serial link pins. TX and RX cross over to the host's UART; the signal pin
// tells the host when the receive window is open.
const (
	pinTX     = machine.PD3
	pinRX     = machine.PD2
	pinSignal = machine.PD4
)

// LCD control pins; data moves over the hardware SPI bus.
const (
	pinLCDDC    = machine.PB0
	pinLCDCS    = machine.PB1
	pinLCDReset = machine.PB2
)

var keyRows = [6]machine.Pin{
	machine.PA0, machine.PA1, machine.PA2, machine.PA3, machine.PA4, machine.PA5,
}

var keyCols = [10]machine.Pin{
	machine.PC0, machine.PC1, machine.PC2, machine.PC3, machine.PC4,
	machine.PC5, machine.PC6, machine.PC7, machine.PF0, machine.PF1,
}

// debugPackets enables diagnostic packets over the link. Costly at 19200
// baud, so off in normal builds.
const debugPackets = false

func main() {
	clock := clockwork.NewRealClock()

	machine.SPI0.Configure(machine.SPIConfig{Frequency: 4_000_000})
	display := newLCD(machine.SPI0, pinLCDDC, pinLCDCS, pinLCDReset)

	port := softserial.NewPort(
		newOutPin(pinTX),
		newInPin(pinRX),
		newOutPin(pinSignal),
		initTimer1(),
		irqGuard{},
		clock,
	)

	keyboard := newMatrixKeyboard(keyRows, keyCols)

	rt := device.New(port, display, keyboard, clock, debugPackets)
	for {
		rt.Step()
	}
}
