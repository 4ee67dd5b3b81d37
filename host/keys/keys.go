// Package keys turns raw key packets from the device into host actions.
// Modifier keys arrive as their own packet immediately before the key they
// modify, so the handler is a two-state machine.
package keys

import (
	"srxterm/protocol"
)

// Kind classifies a decoded key action.
type Kind int

const (
	// None means the key was a modifier or an ignorable code.
	None Kind = iota
	// Char carries one printable character.
	Char
	// Enter commits the current command line.
	Enter
	// Backspace deletes the character before the cursor.
	Backspace
	// FontChange switches the terminal font.
	FontChange
	// ClearBuffer wipes the screen and the scrollback.
	ClearBuffer
)

// Action is the decoded result of one key packet.
type Action struct {
	Kind Kind
	Char byte // valid for Char
	Font int  // valid for FontChange
}

// Handler tracks the pending modifier between packets.
type Handler struct {
	modifier byte // protocol.KeyModShift, protocol.KeyModSym or 0
}

// New returns a handler with no modifier pending.
func New() *Handler {
	return &Handler{}
}

// Process decodes one key code. Modifier codes return None and arm the next
// call; the modifier is consumed whether or not the combination is known.
func (h *Handler) Process(key byte) Action {
	switch key {
	case protocol.KeyModShift, protocol.KeyModSym:
		h.modifier = key
		return Action{}
	}

	mod := h.modifier
	h.modifier = 0

	switch mod {
	case protocol.KeyModShift:
		return shiftAction(key)
	case protocol.KeyModSym:
		return symAction(key)
	}
	return plainAction(key)
}

func shiftAction(key byte) Action {
	if key >= '0' && key <= '3' {
		return Action{Kind: FontChange, Font: int(key - '0')}
	}
	if key == 0x08 {
		return Action{Kind: Backspace}
	}
	return printable(key)
}

func symAction(key byte) Action {
	if key == 'c' {
		return Action{Kind: ClearBuffer}
	}
	return printable(key)
}

func plainAction(key byte) Action {
	switch key {
	case 0x08:
		return Action{Kind: Enter}
	case 0x7F:
		return Action{Kind: Backspace}
	}
	return printable(key)
}

func printable(key byte) Action {
	if key >= 0x20 && key <= 0x7E {
		return Action{Kind: Char, Char: key}
	}
	return Action{}
}
