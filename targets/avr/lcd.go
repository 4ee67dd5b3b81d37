//go:build avr

package main

import (
	"machine"

	"srxterm/font"
)

// ST7586 command bytes used by the driver.
const (
	lcdCaset       = 0x2A // column address window
	lcdRaset       = 0x2B // row address window
	lcdRamWrite    = 0x2C
	lcdScrollStart = 0x37 // vertical scroll start address
	lcdDisplayOn   = 0x29
	lcdSleepOut    = 0x11
)

// byteCols is the display width in DDRAM bytes; each byte holds 3 pixels.
const byteCols = font.ScreenWidth

// glyphs is a 5x8 cell font covering ASCII 0x20-0x7E plus the cursor block
// at 0xDB. Column-major, LSB is the top row.
var glyphs = glyphData()

// lcd drives the ST7586 controller behind the handheld's 384x136 panel.
type lcd struct {
	spi   machine.SPI
	dc    machine.Pin // low = command, high = data
	cs    machine.Pin
	reset machine.Pin

	scrolled int
	rowBuf   [byteCols]byte
}

func newLCD(spi machine.SPI, dc, cs, reset machine.Pin) *lcd {
	dc.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	reset.Configure(machine.PinConfig{Mode: machine.PinOutput})

	d := &lcd{spi: spi, dc: dc, cs: cs, reset: reset}
	d.hwReset()
	d.command(lcdSleepOut)
	d.command(lcdDisplayOn)
	d.Fill(0)
	return d
}

func (d *lcd) hwReset() {
	d.reset.Low()
	busyWait(1000)
	d.reset.High()
	busyWait(120000)
}

func (d *lcd) command(cmd byte, args ...byte) {
	d.cs.Low()
	d.dc.Low()
	d.spi.Transfer(cmd)
	if len(args) > 0 {
		d.dc.High()
		for _, a := range args {
			d.spi.Transfer(a)
		}
	}
	d.cs.High()
}

func (d *lcd) data(buf []byte) {
	d.cs.Low()
	d.dc.High()
	for _, b := range buf {
		d.spi.Transfer(b)
	}
	d.cs.High()
}

// window selects the DDRAM region for the next RAM write. x and w are in
// display bytes, y and h in pixel rows.
func (d *lcd) window(x, y, w, h int) {
	d.command(lcdCaset, 0, byte(x), 0, byte(x+w-1))
	d.command(lcdRaset, 0, byte(y), 0, byte(y+h-1))
	d.command(lcdRamWrite)
}

// pack3 folds three 2-bit pixel colors into one DDRAM byte.
func pack3(c0, c1, c2 byte) byte {
	return c0<<6 | c1<<3 | c2
}

// Fill floods the whole screen with one color.
func (d *lcd) Fill(color int) {
	b := pack3(byte(color), byte(color), byte(color))
	for i := range d.rowBuf {
		d.rowBuf[i] = b
	}
	d.window(0, 0, byteCols, font.ScreenHeight)
	for y := 0; y < font.ScreenHeight; y++ {
		d.data(d.rowBuf[:])
	}
}

// Scroll moves the vertical scroll start down by the given pixel count. The
// controller wraps at the screen height on its own.
func (d *lcd) Scroll(pixels int) {
	d.scrollTo((d.scrolled + pixels) % font.ScreenHeight)
}

// ScrollReset returns the scroll start to the top of DDRAM.
func (d *lcd) ScrollReset() {
	d.scrollTo(0)
}

func (d *lcd) scrollTo(line int) {
	d.scrolled = line
	d.command(lcdScrollStart, byte(line))
}

// WriteBlock draws pre-packed pixel data at a byte-column x and pixel row y.
// The payload is the fixed 48x34 pixel block: 16 bytes per row, 34 rows.
func (d *lcd) WriteBlock(x, y int, data []byte) {
	const rowBytes = 16
	rows := len(data) / rowBytes
	d.window(x/3, y, rowBytes, rows)
	d.data(data)
}

// WriteString renders text into the row starting at pixel y. The cell width
// follows the font geometry; the 5-pixel glyph sits left-aligned in it.
func (d *lcd) WriteString(x, y int, s string, fontID, fg, bg int) {
	g := font.ByID(fontID)
	cellBytes := byteCols / g.Cols
	if cellBytes < 2 {
		cellBytes = 2
	}

	for row := 0; row < g.PixelsPerRow && row < 8; row++ {
		pos := 0
		for _, ch := range []byte(s) {
			pos += d.renderGlyphRow(d.rowBuf[pos:], ch, row, cellBytes, byte(fg), byte(bg))
			if pos >= byteCols {
				break
			}
		}
		for ; pos < byteCols; pos++ {
			d.rowBuf[pos] = pack3(byte(bg), byte(bg), byte(bg))
		}
		d.window(x, y+row, byteCols-x, 1)
		d.data(d.rowBuf[: byteCols-x])
	}
}

// renderGlyphRow packs one pixel row of a glyph into dst and returns the
// cell width in bytes.
func (d *lcd) renderGlyphRow(dst []byte, ch byte, row, cellBytes int, fg, bg byte) int {
	cols := glyphColumns(ch)

	// Expand the 5 glyph pixels plus cell padding into colors, then pack in
	// groups of three.
	var px [16]byte
	for i := 0; i < cellBytes*3; i++ {
		c := bg
		if i < 5 && cols[i]&(1<<row) != 0 {
			c = fg
		}
		px[i] = c
	}
	n := cellBytes
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = pack3(px[i*3], px[i*3+1], px[i*3+2])
	}
	return n
}

func glyphColumns(ch byte) [5]byte {
	if ch == 0xDB {
		return [5]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	}
	if ch < 0x20 || ch > 0x7E {
		ch = ' '
	}
	i := int(ch-0x20) * 5
	return [5]byte{glyphs[i], glyphs[i+1], glyphs[i+2], glyphs[i+3], glyphs[i+4]}
}

func busyWait(cycles int) {
	for i := 0; i < cycles; i++ {
	}
}
