// Package input implements the device-resident line editor. Keystrokes are
// absorbed locally with zero round trips; the host only sees the finished
// line, committed as a single Line packet.
package input

import (
	"time"

	"github.com/jonboulle/clockwork"

	"srxterm/font"
	"srxterm/protocol"
)

// Key codes delivered by the keyboard scanner.
const (
	KeyEnter     = 0x08 // Del key repurposed as Enter
	KeyBackspace = 0x7F // Shift+Del
	KeyLeft      = 0xE3
	KeyRight     = 0xE2
)

// MaxInput is the line capacity. Keystrokes past it are dropped, not wrapped.
const MaxInput = 128

// PromptLiteral is the fixed prefix of the prompt row. The host never sends
// it; the device prepends it locally.
const PromptLiteral = protocol.PromptLiteral

const (
	promptWidth   = len(PromptLiteral)
	blinkInterval = 500 * time.Millisecond
	cursorBlock   = 0xDB // cursor glyph over a character
	cursorEnd     = '_'  // cursor glyph past the end of the line
)

// LineBuffer holds one in-progress command line with a cursor and a
// horizontal viewport. Invariant: 0 <= cursor <= length <= MaxInput, and the
// view offset always keeps the cursor inside the rendered window.
type LineBuffer struct {
	buf        [MaxInput]byte
	length     int
	cursor     int
	viewOffset int
	fontID     int

	clock         clockwork.Clock
	cursorVisible bool
	lastBlink     time.Time
}

// New returns an empty buffer rendering in the given font.
func New(clock clockwork.Clock, fontID int) *LineBuffer {
	b := &LineBuffer{clock: clock, fontID: fontID}
	b.Clear()
	return b
}

// Clear empties the buffer and resets cursor, viewport and blink phase.
func (b *LineBuffer) Clear() {
	b.length = 0
	b.cursor = 0
	b.viewOffset = 0
	b.cursorVisible = true
	b.lastBlink = b.clock.Now()
}

// SetFont switches the rendering font. The viewport is recalculated since
// the visible width changed.
func (b *LineBuffer) SetFont(fontID int) {
	if fontID >= 0 && fontID < font.Count() {
		b.fontID = fontID
		b.adjustView()
	}
}

// Font returns the active font id.
func (b *LineBuffer) Font() int { return b.fontID }

// Len returns the number of buffered characters.
func (b *LineBuffer) Len() int { return b.length }

// Cursor returns the cursor index, in [0, Len()].
func (b *LineBuffer) Cursor() int { return b.cursor }

// ViewOffset returns the index of the first visible character.
func (b *LineBuffer) ViewOffset() int { return b.viewOffset }

// Bytes returns the buffered line.
func (b *LineBuffer) Bytes() []byte { return b.buf[:b.length] }

// HandleKey applies one keystroke and reports whether the line is ready to
// send. The buffer is not cleared on commit; the caller clears it once the
// host re-arms the prompt.
func (b *LineBuffer) HandleKey(key byte, shift bool) (lineReady bool) {
	// Any keypress resets the blink phase so the cursor is visible where it
	// just moved.
	b.cursorVisible = true
	b.lastBlink = b.clock.Now()

	switch {
	case key == KeyEnter && !shift:
		return true

	case key == KeyEnter && shift, key == KeyBackspace:
		if b.cursor > 0 {
			copy(b.buf[b.cursor-1:], b.buf[b.cursor:b.length])
			b.length--
			b.cursor--
			b.adjustView()
		}

	case key == KeyLeft:
		if b.cursor > 0 {
			b.cursor--
			b.adjustView()
		}

	case key == KeyRight:
		if b.cursor < b.length {
			b.cursor++
			b.adjustView()
		}

	case key >= 0x20 && key <= 0x7E:
		if b.length < MaxInput {
			copy(b.buf[b.cursor+1:], b.buf[b.cursor:b.length])
			b.buf[b.cursor] = key
			b.length++
			b.cursor++
			b.adjustView()
		}
	}
	return false
}

// Encode returns the Line packet carrying the full buffer content.
func (b *LineBuffer) Encode() []byte {
	return protocol.AppendLine(nil, b.Bytes())
}

// adjustView keeps the cursor inside the visible window. When the view is
// scrolled, two columns are reserved for the left-truncation marker.
func (b *LineBuffer) adjustView() {
	visible := b.usableWidth()
	if b.viewOffset > 0 {
		visible -= 2
	}

	if b.cursor < b.viewOffset {
		b.viewOffset = b.cursor
	}
	if b.cursor > b.viewOffset+visible {
		b.viewOffset = b.cursor - visible
	}
}

func (b *LineBuffer) usableWidth() int {
	return font.ByID(b.fontID).Cols - promptWidth
}

// PromptY returns the Y pixel position of the prompt row for the active
// font, adjusted by the device's hardware scroll offset.
func (b *LineBuffer) PromptY(pixelsScrolled int) int {
	return (font.ByID(b.fontID).PromptY() + pixelsScrolled) % font.ScreenHeight
}

// Render builds the full prompt row: the prompt literal, the visible slice
// of the buffer, truncation markers and the cursor glyph. The blink timer
// runs on the clock, not on keystrokes, so Render must be called every main
// loop iteration.
func (b *LineBuffer) Render() string {
	if b.clock.Since(b.lastBlink) >= blinkInterval {
		b.cursorVisible = !b.cursorVisible
		b.lastBlink = b.clock.Now()
	}

	cols := font.ByID(b.fontID).Cols
	row := make([]byte, cols)
	for i := range row {
		row[i] = ' '
	}
	copy(row, PromptLiteral)

	pos := promptWidth
	avail := cols - promptWidth

	leftOverflow := b.viewOffset > 0
	if leftOverflow {
		row[pos] = '<'
		row[pos+1] = '<'
		pos += 2
		avail -= 2
	}

	show := b.length - b.viewOffset
	rightOverflow := false
	if show > avail-2 { // reserve room for the marker or the end cursor
		show = avail - 2
		rightOverflow = b.viewOffset+show < b.length
	}

	for i := 0; i < show && pos < cols-2; i++ {
		idx := b.viewOffset + i
		if idx == b.cursor && b.cursorVisible {
			row[pos] = cursorBlock
		} else {
			row[pos] = b.buf[idx]
		}
		pos++
	}

	if b.cursor == b.length && b.cursorVisible && pos < cols {
		row[pos] = cursorEnd
	}

	if rightOverflow {
		row[cols-2] = '>'
		row[cols-1] = '>'
	}

	return string(row)
}
