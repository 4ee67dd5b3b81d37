//go:build avr

package main

import (
	"machine"
	"time"

	"srxterm/device"
)

const debounce = 25 * time.Millisecond

// Matrix positions of the modifier keys (row*10 + col).
const (
	posShift = 50
	posSym   = 51
)

// plainKeys maps matrix positions to key codes. 0 marks an unused position.
// Enter is delivered as 0x08 (the Del key doubles as Enter), arrows as
// 0xE0-0xE3.
var plainKeys = [60]byte{
	'1', '2', '3', '4', '5', '6', '7', '8', '9', '0',
	'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', 'o', 'p',
	'a', 's', 'd', 'f', 'g', 'h', 'j', 'k', 'l', 0x08,
	'z', 'x', 'c', 'v', 'b', 'n', 'm', ',', '.', 0x0A,
	0, 0, ' ', ' ', ' ', 0xE3, 0xE2, 0xE1, 0xE0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

var shiftedKeys = [60]byte{
	'!', '@', '#', '$', '%', '^', '&', '*', '(', ')',
	'Q', 'W', 'E', 'R', 'T', 'Y', 'U', 'I', 'O', 'P',
	'A', 'S', 'D', 'F', 'G', 'H', 'J', 'K', 'L', 0x7F,
	'Z', 'X', 'C', 'V', 'B', 'N', 'M', ';', ':', 0x0A,
	0, 0, ' ', ' ', ' ', 0xE3, 0xE2, 0xE1, 0xE0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

var symKeys = [60]byte{
	'1', '2', '3', '4', '5', '6', '7', '8', '9', '0',
	'-', '+', '=', '/', '\\', '\'', '"', '[', ']', '?',
	'_', '<', '>', '{', '}', '|', '~', '`', 0, 0x08,
	'z', 'x', 'c', 'v', 'b', 'n', 'm', ',', '.', 0x0A,
	0, 0, ' ', ' ', ' ', 0xE3, 0xE2, 0xE1, 0xE0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// badKeys lists positions that are noisy on worn hardware; their readings
// are discarded.
var badKeys = []byte{0xE0, 0xE1}

// matrixKeyboard scans the 6x10 key matrix. Rows are driven low one at a
// time; a low column means the key at that intersection is down.
type matrixKeyboard struct {
	rows [6]machine.Pin
	cols [10]machine.Pin

	lastKey  byte
	lastSeen time.Time
}

func newMatrixKeyboard(rows [6]machine.Pin, cols [10]machine.Pin) *matrixKeyboard {
	for _, r := range rows {
		r.Configure(machine.PinConfig{Mode: machine.PinOutput})
		r.High()
	}
	for _, c := range cols {
		c.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	return &matrixKeyboard{rows: rows, cols: cols}
}

// Poll scans the matrix once and returns a debounced key event.
func (k *matrixKeyboard) Poll() (device.KeyEvent, bool) {
	pos, down := k.scan()
	if !down {
		k.lastKey = 0
		return device.KeyEvent{}, false
	}

	shift := k.isDown(posShift)
	sym := k.isDown(posSym)

	var key byte
	switch {
	case shift:
		key = shiftedKeys[pos]
	case sym:
		key = symKeys[pos]
	default:
		key = plainKeys[pos]
	}
	if key == 0 || isBadKey(key) {
		return device.KeyEvent{}, false
	}

	// Same key repeats only after the debounce window.
	now := time.Now()
	if key == k.lastKey && now.Sub(k.lastSeen) < debounce {
		return device.KeyEvent{}, false
	}
	k.lastKey = key
	k.lastSeen = now

	return device.KeyEvent{Key: key, Shift: shift, Sym: sym}, true
}

// scan returns the first pressed non-modifier position.
func (k *matrixKeyboard) scan() (int, bool) {
	for r := 0; r < len(k.rows); r++ {
		k.rows[r].Low()
		for c := 0; c < len(k.cols); c++ {
			pos := r*10 + c
			if pos == posShift || pos == posSym {
				continue
			}
			if !k.cols[c].Get() {
				k.rows[r].High()
				return pos, true
			}
		}
		k.rows[r].High()
	}
	return 0, false
}

func (k *matrixKeyboard) isDown(pos int) bool {
	row, col := pos/10, pos%10
	k.rows[row].Low()
	down := !k.cols[col].Get()
	k.rows[row].High()
	return down
}

func isBadKey(key byte) bool {
	for _, b := range badKeys {
		if key == b {
			return true
		}
	}
	return false
}
