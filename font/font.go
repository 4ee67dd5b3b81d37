// Package font holds the display geometry tables shared by the host's
// screen synchronizer and the device's input renderer.
package font

// Physical display dimensions in pixels.
const (
	ScreenWidth  = 128
	ScreenHeight = 136
)

// Font identifiers. They match the display driver's font constants and
// travel over the wire as a single byte.
const (
	Normal = iota
	Small
	Medium
	Large
)

// Geometry describes how one font divides the display. The 8 px fonts give
// 17 rows (136/8), the 17 px fonts 8 rows (136/17). Padding absorbs font/row
// combinations that do not divide 136 evenly.
type Geometry struct {
	Cols         int
	Rows         int
	PixelsPerRow int
	Padding      int
}

var table = [...]Geometry{
	Normal: {Cols: 52, Rows: 17, PixelsPerRow: 8, Padding: 0},
	Small:  {Cols: 64, Rows: 17, PixelsPerRow: 8, Padding: 0},
	Medium: {Cols: 32, Rows: 8, PixelsPerRow: 17, Padding: 0},
	Large:  {Cols: 25, Rows: 8, PixelsPerRow: 17, Padding: 0},
}

// ByID returns the geometry for a font id, falling back to Normal for ids
// outside the table.
func ByID(id int) Geometry {
	if id < 0 || id >= len(table) {
		return table[Normal]
	}
	return table[id]
}

// Count returns the number of defined fonts.
func Count() int { return len(table) }

// RowY returns the Y pixel position of a display row, before any hardware
// scroll adjustment.
func (g Geometry) RowY(row int) int {
	return row*g.PixelsPerRow + g.Padding
}

// PromptY returns the Y pixel position of the prompt line, which always sits
// on the last visible row.
func (g Geometry) PromptY() int {
	return g.Rows*g.PixelsPerRow + g.Padding - g.PixelsPerRow
}
