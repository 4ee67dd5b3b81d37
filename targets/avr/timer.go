//go:build avr

package main

import (
	"device/avr"
	"machine"
	"runtime/interrupt"

	"srxterm/device/softserial"
)

// timer1 exposes the 16-bit hardware timer as the soft serial time base.
// Prescaler /8 gives 2 MHz from the 16 MHz core clock, matching
// softserial.TimerHz.
type timer1 struct{}

func initTimer1() timer1 {
	avr.TCCR1A.Set(0)
	avr.TCCR1B.Set(avr.TCCR1B_CS11) // clk/8, free running
	return timer1{}
}

func (timer1) Reset() {
	avr.TCNT1H.Set(0)
	avr.TCNT1L.Set(0)
}

func (timer1) Elapsed() uint16 {
	// 16-bit timer reads must be low byte first; the high byte is latched.
	lo := avr.TCNT1L.Get()
	hi := avr.TCNT1H.Get()
	return uint16(hi)<<8 | uint16(lo)
}

func (t timer1) WaitTicks(n uint16) {
	for t.Elapsed() < n {
	}
}

// irqGuard masks interrupts around bit-banged byte transfers.
type irqGuard struct{}

func (irqGuard) Disable() func() {
	state := interrupt.Disable()
	return func() { interrupt.Restore(state) }
}

// outPin adapts a machine.Pin to the soft serial output line.
type outPin struct {
	pin machine.Pin
}

func newOutPin(pin machine.Pin) outPin {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return outPin{pin: pin}
}

func (p outPin) Set(high bool) { p.pin.Set(high) }

// inPin adapts a machine.Pin to the soft serial input line.
type inPin struct {
	pin machine.Pin
}

func newInPin(pin machine.Pin) inPin {
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return inPin{pin: pin}
}

func (p inPin) Read() bool { return p.pin.Get() }

var _ softserial.TimeBase = timer1{}
var _ softserial.InterruptGuard = irqGuard{}
var _ softserial.OutputLine = outPin{}
var _ softserial.InputLine = inPin{}
