package softserial

// TimeBase is the free-running hardware counter that paces bit timing. On
// the reference hardware this is a 16-bit timer ticking at 2 MHz (16 MHz
// core, prescaler 8).
type TimeBase interface {
	// Reset zeroes the counter.
	Reset()
	// Elapsed returns ticks since the last Reset.
	Elapsed() uint16
	// WaitTicks busy-waits until the counter reaches n ticks past the last
	// Reset.
	WaitTicks(n uint16)
}

// InterruptGuard provides the exclusive timing section held for the duration
// of one byte transfer. A transfer must not be preempted or the bit widths
// skew.
type InterruptGuard interface {
	// Disable masks interrupts and returns the function that restores the
	// previous mask state.
	Disable() (restore func())
}

// NopGuard is an InterruptGuard for environments without interrupts, such as
// tests and simulations.
type NopGuard struct{}

func (NopGuard) Disable() func() { return func() {} }

// OutputLine drives one output pin.
type OutputLine interface {
	Set(high bool)
}

// InputLine samples one input pin. Read reports true for a high level.
type InputLine interface {
	Read() bool
}
