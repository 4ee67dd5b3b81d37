// Package device implements the handheld side of the terminal link: one
// cooperative main loop that scans the keyboard, renders the input line,
// services the soft serial port and dispatches host commands.
//
// There is no preemption anywhere; byte transmission masks interrupts for
// its duration, so keyboard scanning and receive polling are briefly starved
// during every transmitted byte. Transmitted bytes are few and short.
package device

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"srxterm/device/input"
	"srxterm/font"
	"srxterm/protocol"
)

// LinkPort is the transport the runtime talks through. Implemented by
// *softserial.Port; tests substitute scripted ports.
type LinkPort interface {
	Poll() int
	ReadByte() (byte, bool)
	Available() int
	Write(data []byte)
}

// Display renders glyphs and drives the hardware scroll register. The pixel
// encoding itself lives in the display driver, outside this package.
type Display interface {
	WriteString(x, y int, s string, fontID, fg, bg int)
	Scroll(pixels int)
	ScrollReset()
	Fill(color int)
	WriteBlock(x, y int, data []byte)
}

// KeyEvent is one debounced keystroke from the keyboard scanner.
type KeyEvent struct {
	Key   byte
	Shift bool
	Sym   bool
}

// Keyboard is the matrix scanner boundary.
type Keyboard interface {
	// Poll returns the next key event, if any.
	Poll() (KeyEvent, bool)
}

// textWidth is the device-side text staging buffer width; incoming rows are
// truncated to it and padded with spaces.
const textWidth = 63

// cmdByteTimeout bounds how long a command handler waits for its next
// argument byte before giving up on the command.
const cmdByteTimeout = 100 * time.Millisecond

const (
	defaultFg = 3
	defaultBg = 0
)

// Runtime owns the device's process-wide state: scroll offset, diagnostic
// counters and debug flags. It runs until power-off; there is no teardown.
type Runtime struct {
	port     LinkPort
	display  Display
	keyboard Keyboard
	input    *input.LineBuffer
	clock    clockwork.Clock

	pixelsScrolled int
	lastCommand    byte
	lastKey        byte
	debugEnabled   bool

	textBuf  [textWidth]byte
	blockBuf [protocol.BlockBytes]byte
}

// New wires a runtime. The debug flag controls whether diagnostic packets
// are emitted over the link.
func New(port LinkPort, display Display, keyboard Keyboard, clock clockwork.Clock, debug bool) *Runtime {
	return &Runtime{
		port:         port,
		display:      display,
		keyboard:     keyboard,
		input:        input.New(clock, font.Normal),
		clock:        clock,
		debugEnabled: debug,
	}
}

// Input exposes the line editor, mainly for tests and diagnostics.
func (r *Runtime) Input() *input.LineBuffer { return r.input }

// PixelsScrolled returns the device's cumulative hardware scroll offset.
func (r *Runtime) PixelsScrolled() int { return r.pixelsScrolled }

// Step runs one main loop iteration: keyboard, input render, transport
// service, then at most one complete inbound command.
func (r *Runtime) Step() {
	if ev, ok := r.keyboard.Poll(); ok {
		r.handleKey(ev)
	}
	r.renderInput()
	r.port.Poll()
	r.dispatchOne()
}

func (r *Runtime) renderInput() {
	y := r.input.PromptY(r.pixelsScrolled)
	r.display.WriteString(0, y, r.input.Render(), r.input.Font(), defaultFg, defaultBg)
}

func (r *Runtime) handleKey(ev KeyEvent) {
	r.lastKey = ev.Key

	switch {
	case ev.Shift && ev.Key >= '0' && ev.Key <= '3':
		// Font switching is a host decision: forward the combo.
		r.sendKey(protocol.KeyModShift)
		r.sendKey(ev.Key)

	case ev.Sym:
		r.sendKey(protocol.KeyModSym)
		r.sendKey(ev.Key)

	default:
		if r.input.HandleKey(ev.Key, ev.Shift) {
			// Line committed. The buffer stays intact until the host re-arms
			// the prompt via Prompt or ClearScreen.
			r.port.Write(r.input.Encode())
		}
	}
}

func (r *Runtime) sendKey(key byte) {
	r.port.Write(protocol.AppendKey(nil, key))
}

// dispatchOne handles one complete inbound command, if any, and always
// answers it with a ready packet so the host's lockstep never stalls.
func (r *Runtime) dispatchOne() {
	cmd, ok := r.port.ReadByte()
	if !ok {
		return
	}
	r.lastCommand = cmd

	switch cmd {
	case protocol.CmdClearScreen:
		r.handleClearScreen()
	case protocol.CmdScrollUp:
		r.handleScrollUp()
	case protocol.CmdWriteText:
		r.handleText(false)
	case protocol.CmdPrompt:
		r.handleText(true)
	case protocol.CmdBlock:
		r.handleBlock()
	case protocol.CmdBlockRLE:
		r.handleBlockRLE()
	case protocol.Padding:
		// Filler between commands; nothing to acknowledge.
		return
	default:
		r.handleUnknown(cmd)
	}

	r.sendReady()
}

func (r *Runtime) handleClearScreen() {
	r.display.ScrollReset()
	r.pixelsScrolled = 0
	r.display.Fill(0)
}

func (r *Runtime) handleScrollUp() {
	pixels, ok := r.readByte()
	if !ok {
		return
	}
	r.pixelsScrolled = (r.pixelsScrolled + int(pixels)) % font.ScreenHeight
	r.debugf("scroll %d px, offset now %d", pixels, r.pixelsScrolled)
	r.display.Scroll(int(pixels))
}

// handleText serves both WriteText and Prompt. The prompt variant prepends
// the fixed prompt literal and receives only the user-entered suffix.
func (r *Runtime) handleText(prompt bool) {
	hdr, ok := r.readBytes(5)
	if !ok {
		return
	}
	y, fontID, fg, bg, length := hdr[0], hdr[1], hdr[2], hdr[3], hdr[4]

	offset := 0
	if prompt {
		offset = copy(r.textBuf[:], input.PromptLiteral)
	}

	for i := 0; i < int(length); i++ {
		c, ok := r.readByte()
		if !ok {
			return
		}
		if offset+i < textWidth {
			r.textBuf[offset+i] = c
		}
	}
	for i := offset + int(length); i < textWidth; i++ {
		r.textBuf[i] = ' '
	}

	drawY := (int(y) + r.pixelsScrolled) % font.ScreenHeight
	r.display.WriteString(0, drawY, string(r.textBuf[:]), int(fontID), int(fg), int(bg))

	// A redraw from the host supersedes whatever was being typed.
	r.input.SetFont(int(fontID))
	r.input.Clear()
}

func (r *Runtime) handleBlock() {
	x, ok := r.readUint16()
	if !ok {
		return
	}
	y, ok := r.readUint16()
	if !ok {
		return
	}
	for i := 0; i < len(r.blockBuf); i++ {
		b, ok := r.readByte()
		if !ok {
			return
		}
		r.blockBuf[i] = b
	}
	drawY := (int(y) + r.pixelsScrolled) % font.ScreenHeight
	r.display.WriteBlock(int(x), drawY, r.blockBuf[:])
}

func (r *Runtime) handleBlockRLE() {
	x, ok := r.readUint16()
	if !ok {
		return
	}
	y, ok := r.readUint16()
	if !ok {
		return
	}
	pos := 0
	for pos < len(r.blockBuf) {
		value, ok := r.readByte()
		if !ok {
			return
		}
		count, ok := r.readUint16()
		if !ok {
			return
		}
		n := int(count)
		if pos+n > len(r.blockBuf) {
			n = len(r.blockBuf) - pos
		}
		for i := 0; i < n; i++ {
			r.blockBuf[pos+i] = value
		}
		pos += n
	}
	drawY := (int(y) + r.pixelsScrolled) % font.ScreenHeight
	r.display.WriteBlock(int(x), drawY, r.blockBuf[:])
}

// handleUnknown drains whatever trailing bytes are immediately available.
// The exact argument length is unknown, so this is best effort; the ready
// answer that follows keeps the host's lockstep alive.
func (r *Runtime) handleUnknown(cmd byte) {
	drained := 0
	for r.port.Available() > 0 {
		r.port.ReadByte()
		drained++
	}
	r.debugf("unknown command 0x%02X, drained %d bytes", cmd, drained)
}

func (r *Runtime) sendReady() {
	r.port.Write(protocol.AppendReady(nil))
}

func (r *Runtime) debugf(format string, args ...any) {
	if !r.debugEnabled {
		return
	}
	r.port.Write(protocol.AppendDebug(nil, fmt.Sprintf(format, args...)))
}

// readByte fetches the next argument byte, re-opening the receive window
// until it arrives or the deadline passes.
func (r *Runtime) readByte() (byte, bool) {
	deadline := r.clock.Now().Add(cmdByteTimeout)
	for {
		if b, ok := r.port.ReadByte(); ok {
			return b, true
		}
		if !r.clock.Now().Before(deadline) {
			return 0, false
		}
		r.port.Poll()
	}
}

func (r *Runtime) readBytes(n int) ([]byte, bool) {
	buf := make([]byte, n)
	for i := range buf {
		b, ok := r.readByte()
		if !ok {
			return nil, false
		}
		buf[i] = b
	}
	return buf, true
}

func (r *Runtime) readUint16() (uint16, bool) {
	hi, ok := r.readByte()
	if !ok {
		return 0, false
	}
	lo, ok := r.readByte()
	if !ok {
		return 0, false
	}
	return uint16(hi)<<8 | uint16(lo), true
}
