// Package link implements the host side of the lockstep protocol: commands
// go out one at a time, each gated on the handshake line and answered by a
// ready packet before the next one is sent.
package link

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"srxterm/host/serial"
	"srxterm/protocol"
)

var (
	// ErrSignalTimeout means the device never opened its receive window.
	ErrSignalTimeout = errors.New("link: signal line never went ready")

	// ErrReadyTimeout means a sent command was not acknowledged in time.
	// Treated as advisory by callers; the device may just be busy drawing.
	ErrReadyTimeout = errors.New("link: no ready packet received")
)

const (
	// signalTimeout bounds the wait for the receive window before a send.
	signalTimeout = 100 * time.Millisecond

	// signalPollInterval is how often the handshake pin is sampled.
	signalPollInterval = time.Millisecond

	// DefaultReadyTimeout is how long Send-side callers usually wait for the
	// acknowledgement of a command.
	DefaultReadyTimeout = time.Second
)

// Conn is a lockstep connection to the device. Not safe for concurrent use;
// the host main loop is single threaded by design.
type Conn struct {
	port   serial.Port
	signal SignalLine
	parser *protocol.Parser
	clock  clockwork.Clock
	log    zerolog.Logger

	pending []protocol.Packet
	readBuf [256]byte
}

// NewConn wires a connection. signal may be nil when the handshake pin is
// not connected; sends then rely on the device's receive window alone.
func NewConn(port serial.Port, signal SignalLine, clock clockwork.Clock, log zerolog.Logger) *Conn {
	return &Conn{
		port:   port,
		signal: signal,
		parser: new(protocol.Parser),
		clock:  clock,
		log:    log,
	}
}

// Parser exposes the receive-side diagnostic counters.
func (c *Conn) Parser() *protocol.Parser { return c.parser }

// Send transmits one command, first waiting for the device's receive window
// if a handshake line is wired.
func (c *Conn) Send(cmd protocol.Command) error {
	if err := c.waitSignal(); err != nil {
		return err
	}
	frame := cmd.Append(nil)
	if _, err := c.port.Write(frame); err != nil {
		return err
	}
	c.log.Trace().Int("bytes", len(frame)).Hex("frame", frame).Msg("command sent")
	return nil
}

func (c *Conn) waitSignal() error {
	if c.signal == nil {
		return nil
	}
	deadline := c.clock.Now().Add(signalTimeout)
	for {
		ready, err := c.signal.Ready()
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		if !c.clock.Now().Before(deadline) {
			return ErrSignalTimeout
		}
		c.clock.Sleep(signalPollInterval)
	}
}

// Poll performs one read pass: whatever bytes the port yields within its
// timeout are run through the parser. Debug packets are logged and dropped;
// everything else queues for Next.
func (c *Conn) Poll() error {
	n, err := c.port.Read(c.readBuf[:])
	if err != nil {
		return err
	}
	for _, b := range c.readBuf[:n] {
		pkt := c.parser.Feed(b)
		if pkt == nil {
			continue
		}
		if dbg, ok := pkt.(protocol.Debug); ok {
			c.log.Debug().Str("device", dbg.Message).Msg("device debug")
			continue
		}
		c.pending = append(c.pending, pkt)
	}
	return nil
}

// Next pops the oldest queued packet.
func (c *Conn) Next() (protocol.Packet, bool) {
	if len(c.pending) == 0 {
		return nil, false
	}
	pkt := c.pending[0]
	c.pending = c.pending[1:]
	return pkt, true
}

// WaitForReady polls until the device acknowledges the last command. Key and
// Line packets arriving in the meantime stay queued; they belong to the main
// loop, not to the lockstep.
func (c *Conn) WaitForReady(timeout time.Duration) error {
	deadline := c.clock.Now().Add(timeout)
	for {
		if err := c.Poll(); err != nil {
			return err
		}
		if c.takeReady() {
			return nil
		}
		if !c.clock.Now().Before(deadline) {
			c.log.Warn().
				Dur("timeout", timeout).
				Int("checksum_failures", c.parser.ChecksumFailures()).
				Msg("ready packet overdue, proceeding")
			return ErrReadyTimeout
		}
	}
}

// takeReady removes the first queued Ready packet, if any.
func (c *Conn) takeReady() bool {
	for i, pkt := range c.pending {
		if _, ok := pkt.(protocol.Ready); ok {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Close releases the underlying port.
func (c *Conn) Close() error {
	return c.port.Close()
}
