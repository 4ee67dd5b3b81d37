// Package protocol implements the serial link protocol between the terminal
// host and the handheld device.
//
// The device emits framed packets (key, line, debug) and the single-byte
// ready marker; the host emits command packets (write text, scroll, clear,
// prompt, block). Framed packets carry a flat XOR checksum — the link is
// short and low-noise, so it only needs to catch transmission bit errors.
package protocol

// Command codes, host to device.
const (
	CmdWriteText   = 0x02
	CmdScrollUp    = 0x03
	CmdBlockRLE    = 0x04
	CmdBlock       = 0x05
	CmdClearScreen = 0x06
	CmdPrompt      = 0x07
	CmdBatch       = 0x08 // reserved, no consumer yet
)

// Markers, device to host. Chosen above the 7-bit payload range so a marker
// never collides with text or small integer payloads.
const (
	LineStart   = 0xF8
	LineEnd     = 0xF9
	DebugStart  = 0xFA
	DebugEnd    = 0xFB
	ReadyMarker = 0xFC
	KeyStart    = 0xFD
	KeyEnd      = 0xFE
	Padding     = 0xFF // ignorable filler between packets
)

// Modifier codes sent as a Key packet immediately before the modified key.
const (
	KeyModShift = 0x10
	KeyModSym   = 0x11
)

// MaxLineLen is the largest line payload the device will send. It matches
// the device's input buffer capacity.
const MaxLineLen = 128

// PromptLiteral is the fixed prompt prefix. The device prepends it to the
// prompt row locally; the host uses it to recognize echoed command lines.
const PromptLiteral = "CMD> "

// BlockBytes is the fixed payload size of the block commands, sized for a
// 48x34 pixel region in the display's 3-pixels-in-2-bytes encoding.
const BlockBytes = 544

// KeyChecksum computes the checksum byte of a Key packet.
func KeyChecksum(key byte) byte {
	return KeyStart ^ key
}

// LineChecksum computes the checksum of a Line packet: the XOR fold of the
// start marker, the length byte and every data byte.
func LineChecksum(data []byte) byte {
	sum := byte(LineStart) ^ byte(len(data))
	for _, b := range data {
		sum ^= b
	}
	return sum
}
