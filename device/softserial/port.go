// Package softserial emulates a full-duplex asynchronous serial channel over
// two data pins plus a ready/busy signal pin, paced by a hardware counter.
// No serial peripheral and no interrupts are involved: the port is serviced
// synchronously from the device main loop.
package softserial

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Link timing. One bit is held for BitTicks counter ticks; reception samples
// at bit-cell centers.
const (
	BaudRate     = 19200
	TimerHz      = 2_000_000 // 16 MHz core / prescaler 8
	BitTicks     = uint16(TimerHz / BaudRate)
	HalfBitTicks = BitTicks / 2
)

// recvWindow bounds how long one Poll holds the signal line asserted while
// hunting for a start bit. The window restarts after every received byte so
// a burst is drained in a single Poll.
const recvWindow = 10 * time.Millisecond

// bufSize is the RX/TX circular buffer capacity. Power of two keeps the
// wraparound a mask.
const bufSize = 128

// Port is the device side of the bit-banged link.
//
// Transmission runs inside the interrupt guard for the whole byte; if a
// transmit is requested while a reception is in progress the byte is queued
// and flushed when the receive window closes, preserving order on the
// half-duplex-like topology.
type Port struct {
	tx     OutputLine
	rx     InputLine
	signal OutputLine
	tb     TimeBase
	irq    InterruptGuard
	clock  clockwork.Clock

	rxBuf        [bufSize]byte
	rxHead       int
	rxTail       int
	txBuf        [bufSize]byte
	txHead       int
	txTail       int
	receiving    bool
	framingCount uint16
}

// NewPort initializes the pins to their idle states (data and signal high)
// and returns a ready port.
func NewPort(tx OutputLine, rx InputLine, signal OutputLine, tb TimeBase, irq InterruptGuard, clock clockwork.Clock) *Port {
	p := &Port{tx: tx, rx: rx, signal: signal, tb: tb, irq: irq, clock: clock}
	p.tx.Set(true)
	p.signal.Set(true)
	return p
}

// Available returns the number of buffered received bytes.
func (p *Port) Available() int {
	return (p.rxHead - p.rxTail + bufSize) & (bufSize - 1)
}

// ReadByte pops one received byte. ok is false when the buffer is empty.
func (p *Port) ReadByte() (b byte, ok bool) {
	if p.rxHead == p.rxTail {
		return 0, false
	}
	b = p.rxBuf[p.rxTail]
	p.rxTail = (p.rxTail + 1) & (bufSize - 1)
	return b, true
}

// WriteByte sends one byte. During an active receive window the byte is
// deferred into the transmit buffer instead; overflow drops it silently.
func (p *Port) WriteByte(b byte) {
	if p.receiving {
		p.txPush(b)
		return
	}
	p.transmitByte(b)
}

// Write sends every byte of data via WriteByte.
func (p *Port) Write(data []byte) {
	for _, b := range data {
		p.WriteByte(b)
	}
}

// FramingErrors returns the diagnostic count of bad stop bits. Framing
// errors never abort a packet; integrity is the checksum layer's job.
func (p *Port) FramingErrors() uint16 { return p.framingCount }

// ClearErrors resets the framing error counter.
func (p *Port) ClearErrors() { p.framingCount = 0 }

// Poll asserts the ready signal and receives for one bounded window,
// depositing complete bytes into the receive buffer. A window that sees no
// start bit simply elapses; that is "no data", not an error. Deferred
// transmit bytes are flushed once the window closes.
//
// Returns the number of bytes received.
func (p *Port) Poll() int {
	received := 0
	p.receiving = true
	p.signal.Set(false)

	deadline := p.clock.Now().Add(recvWindow)
	for p.clock.Now().Before(deadline) {
		if p.rx.Read() {
			continue
		}
		// Falling edge: a start bit. Sample the whole byte under the
		// interrupt guard so the cell timing holds.
		restore := p.irq.Disable()
		p.tb.Reset()
		p.tb.WaitTicks(HalfBitTicks)
		if p.rx.Read() {
			// False start, keep hunting.
			restore()
			continue
		}

		p.tb.Reset()
		p.tb.WaitTicks(BitTicks)

		var data byte
		for i := 0; i < 8; i++ {
			if p.rx.Read() {
				data |= 1 << i
			}
			p.tb.Reset()
			p.tb.WaitTicks(BitTicks)
		}

		if !p.rx.Read() {
			// Stop bit should be high.
			p.framingCount++
		}
		restore()

		p.rxPush(data)
		received++
		deadline = p.clock.Now().Add(recvWindow)
	}

	p.signal.Set(true)
	p.receiving = false
	p.flushTx()
	return received
}

func (p *Port) transmitByte(b byte) {
	restore := p.irq.Disable()
	defer restore()

	// Start bit.
	p.tx.Set(false)
	p.waitBit()

	// 8 data bits, LSB first.
	for i := 0; i < 8; i++ {
		p.tx.Set(b&1 != 0)
		b >>= 1
		p.waitBit()
	}

	// Stop bit.
	p.tx.Set(true)
	p.waitBit()
}

func (p *Port) waitBit() {
	p.tb.Reset()
	p.tb.WaitTicks(BitTicks)
}

func (p *Port) flushTx() {
	for p.txHead != p.txTail {
		b := p.txBuf[p.txTail]
		p.txTail = (p.txTail + 1) & (bufSize - 1)
		p.transmitByte(b)
	}
}

func (p *Port) rxPush(b byte) {
	next := (p.rxHead + 1) & (bufSize - 1)
	if next == p.rxTail {
		// Full: drop the newest byte. The handshake line throttles the
		// sender, so the reader is expected to drain faster than this.
		return
	}
	p.rxBuf[p.rxHead] = b
	p.rxHead = next
}

func (p *Port) txPush(b byte) {
	next := (p.txHead + 1) & (bufSize - 1)
	if next == p.txTail {
		return
	}
	p.txBuf[p.txHead] = b
	p.txHead = next
}
