package protocol

// Packet is one decoded device-to-host message.
type Packet interface {
	packet()
}

// Ready signals the device finished the previous command and can take the
// next one.
type Ready struct{}

// Key carries a single raw key code. Modifier codes (KeyModShift, KeyModSym)
// arrive as their own Key packet right before the key they modify.
type Key struct {
	Code byte
}

// Line carries a complete user-committed input line.
type Line struct {
	Text string
}

// Debug carries free-text diagnostics from the device.
type Debug struct {
	Message string
}

func (Ready) packet() {}
func (Key) packet()   {}
func (Line) packet()  {}
func (Debug) packet() {}

// AppendReady appends a ready marker, preceded by two padding bytes so a
// host that lost framing can resynchronize before the marker.
func AppendReady(dst []byte) []byte {
	return append(dst, Padding, Padding, ReadyMarker)
}

// AppendKey appends an encoded Key packet.
func AppendKey(dst []byte, key byte) []byte {
	return append(dst, KeyStart, key, KeyChecksum(key), KeyEnd)
}

// AppendLine appends an encoded Line packet. Payloads longer than MaxLineLen
// are truncated; the length field is a single byte.
func AppendLine(dst []byte, data []byte) []byte {
	if len(data) > MaxLineLen {
		data = data[:MaxLineLen]
	}
	dst = append(dst, LineStart, byte(len(data)))
	dst = append(dst, data...)
	return append(dst, LineChecksum(data), LineEnd)
}

// AppendDebug appends an encoded Debug packet. Debug frames are delimited
// only by markers and carry no checksum.
func AppendDebug(dst []byte, msg string) []byte {
	dst = append(dst, DebugStart)
	dst = append(dst, msg...)
	return append(dst, DebugEnd)
}
