package protocol

import "encoding/binary"

// Command is one host-to-device operation. Adding a command means adding one
// type here and one handler on the device side.
type Command interface {
	// Append appends the encoded command to dst. Multi-byte integers are
	// big-endian.
	Append(dst []byte) []byte
}

// WriteText draws one padded text row at a Y pixel position. The device adds
// its hardware scroll offset to Y before drawing.
type WriteText struct {
	Y    byte
	Font byte
	Fg   byte
	Bg   byte
	Text string
}

func (c WriteText) Append(dst []byte) []byte {
	return appendTextCmd(dst, CmdWriteText, c.Y, c.Font, c.Fg, c.Bg, c.Text)
}

// Prompt draws the command prompt row. It carries only the user-entered
// suffix; the device prepends the fixed prompt literal itself, so the host
// never resends it.
type Prompt struct {
	Y    byte
	Font byte
	Fg   byte
	Bg   byte
	Text string
}

func (c Prompt) Append(dst []byte) []byte {
	return appendTextCmd(dst, CmdPrompt, c.Y, c.Font, c.Fg, c.Bg, c.Text)
}

// ScrollUp shifts the display content up via the hardware scroll register.
type ScrollUp struct {
	Pixels byte
}

func (c ScrollUp) Append(dst []byte) []byte {
	return append(dst, CmdScrollUp, c.Pixels)
}

// ClearScreen blanks the display and resets the hardware scroll register.
type ClearScreen struct{}

func (ClearScreen) Append(dst []byte) []byte {
	return append(dst, CmdClearScreen)
}

// Block writes BlockBytes of pre-encoded pixel data at a pixel position.
// Defined by the wire format but currently without a consumer on the host.
type Block struct {
	X, Y uint16
	Data []byte
}

func (c Block) Append(dst []byte) []byte {
	dst = append(dst, CmdBlock)
	dst = binary.BigEndian.AppendUint16(dst, c.X)
	dst = binary.BigEndian.AppendUint16(dst, c.Y)
	data := c.Data
	if len(data) > BlockBytes {
		data = data[:BlockBytes]
	}
	dst = append(dst, data...)
	for i := len(data); i < BlockBytes; i++ {
		dst = append(dst, 0)
	}
	return dst
}

// RLERun is one run of a run-length encoded block payload.
type RLERun struct {
	Value byte
	Count uint16
}

// BlockRLE writes a block as value/count runs. The device stops reading runs
// once BlockBytes have been produced. Reserved like Block.
type BlockRLE struct {
	X, Y uint16
	Runs []RLERun
}

func (c BlockRLE) Append(dst []byte) []byte {
	dst = append(dst, CmdBlockRLE)
	dst = binary.BigEndian.AppendUint16(dst, c.X)
	dst = binary.BigEndian.AppendUint16(dst, c.Y)
	for _, r := range c.Runs {
		dst = append(dst, r.Value)
		dst = binary.BigEndian.AppendUint16(dst, r.Count)
	}
	return dst
}

func appendTextCmd(dst []byte, cmd, y, font, fg, bg byte, text string) []byte {
	dst = append(dst, cmd, y, font, fg, bg, byte(len(text)))
	return append(dst, text...)
}
