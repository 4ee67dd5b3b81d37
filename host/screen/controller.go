// Package screen keeps the device display in sync with terminal output. It
// mirrors what was last drawn and sends the cheapest command sequence that
// turns the old screen into the new one: a hardware scroll plus the handful
// of rows that actually changed.
package screen

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"srxterm/font"
	"srxterm/protocol"
)

// HistoryRows caps the mirrored line buffer. Enough to redraw any font's
// visible rows after a font change.
const HistoryRows = 100

const (
	foreColor = 3 // white
	backColor = 0 // black
)

// readyTimeout is how long each draw command may take to be acknowledged.
const readyTimeout = time.Second

// Link is the lockstep transport the controller draws through.
type Link interface {
	Send(cmd protocol.Command) error
	WaitForReady(timeout time.Duration) error
}

// Controller tracks the lines currently on the device screen and the mirror
// of the device's cumulative scroll offset.
type Controller struct {
	link  Link
	log   zerolog.Logger
	lines []string

	scrolled int
}

// New returns a controller with an empty mirror.
func New(link Link, log zerolog.Logger) *Controller {
	return &Controller{link: link, log: log}
}

// Lines returns the mirrored line buffer.
func (c *Controller) Lines() []string { return c.lines }

// SetLines replaces the mirror, mainly for tests.
func (c *Controller) SetLines(lines []string) { c.lines = lines }

// Scrolled returns the host's mirror of the device scroll offset in pixels.
func (c *Controller) Scrolled() int { return c.scrolled }

// ClearScreen blanks the device display. The mirrored buffer is kept when a
// font change follows, so the content can be redrawn in the new geometry.
func (c *Controller) ClearScreen(clearBuffer bool) error {
	if clearBuffer {
		c.lines = nil
	}
	c.scrolled = 0
	return c.roundTrip(protocol.ClearScreen{})
}

// ScrollUp scrolls the device display up by the given pixel count.
func (c *Controller) ScrollUp(pixels int) error {
	c.log.Debug().Int("pixels", pixels).Msg("scrolling up")
	c.scrolled = (c.scrolled + pixels) % font.ScreenHeight
	return c.roundTrip(protocol.ScrollUp{Pixels: byte(pixels)})
}

// UpdatePrompt redraws the prompt row with the given text after the prompt
// literal. The device prepends the literal itself.
func (c *Controller) UpdatePrompt(text string, fontID int) error {
	g := font.ByID(fontID)
	return c.roundTrip(protocol.Prompt{
		Y:    byte(g.PromptY()),
		Font: byte(fontID),
		Fg:   foreColor,
		Bg:   backColor,
		Text: strings.TrimRight(text, " "),
	})
}

// SendLine draws one line at a display row (0 = top row).
func (c *Controller) SendLine(line string, displayRow, fontID int) error {
	if displayRow < 0 {
		c.log.Warn().Int("row", displayRow).Msg("invalid display row")
		return nil
	}

	// A fully empty row confuses the device's text renderer.
	if line == "" {
		line = "_"
	}
	// Workaround for screen corruption at this exact length.
	if len(line) == 24 {
		line += "_"
	}

	g := font.ByID(fontID)
	if len(line) > g.Cols {
		line = line[:g.Cols]
	}

	y := g.RowY(displayRow)
	c.log.Trace().Int("row", displayRow).Int("y", y).Str("text", line).Msg("send line")
	return c.roundTrip(protocol.WriteText{
		Y:    byte(y),
		Font: byte(fontID),
		Fg:   foreColor,
		Bg:   backColor,
		Text: strings.TrimRight(line, " "),
	})
}

// SendNewLines pushes freshly produced terminal lines to the screen with the
// minimum number of draw commands.
//
// When fewer new lines arrived than fit above the prompt, the screen scrolls
// up by exactly that many rows and only the new lines are drawn. Otherwise
// every visible row is compared against the mirror and only changed rows are
// redrawn. Lines echoing a typed command are skipped; the device already
// shows them on the prompt row.
func (c *Controller) SendNewLines(linesToPrint []string, fontID int, forceRedraw bool) error {
	if len(linesToPrint) == 0 {
		return nil
	}

	g := font.ByID(fontID)
	rowsInScreen := g.Rows - 1 // last row belongs to the prompt

	linesToPrint = trimTrailingEmpty(linesToPrint)
	c.lines = trimTrailingEmpty(c.lines)

	if !forceRedraw {
		newCount := len(linesToPrint)

		if rowsInScreen > newCount {
			if err := c.ScrollUp(newCount * g.PixelsPerRow); err != nil {
				return err
			}
			for i := 0; i < newCount; i++ {
				newLine := linesToPrint[len(linesToPrint)-i-1]
				if strings.HasPrefix(newLine, protocol.PromptLiteral) {
					continue
				}
				if err := c.SendLine(newLine, rowsInScreen-i-1, fontID); err != nil {
					return err
				}
			}
		} else {
			for i := 0; i < rowsInScreen; i++ {
				newLine := linesToPrint[len(linesToPrint)-1-i]

				oldLine := ""
				if pos := len(c.lines) - 1 - i; pos >= 0 {
					oldLine = c.lines[pos]
				}

				if strings.HasPrefix(newLine, protocol.PromptLiteral) {
					continue
				}
				if strings.TrimSpace(newLine) == strings.TrimSpace(oldLine) {
					continue
				}
				if err := c.SendLine(newLine, rowsInScreen-i-1, fontID); err != nil {
					return err
				}
			}
		}
	}

	c.lines = append(c.lines, linesToPrint...)
	if len(c.lines) > HistoryRows {
		c.lines = c.lines[len(c.lines)-HistoryRows:]
	}
	return nil
}

// ResendScreen redraws every visible row from the mirror, bottom up. Used
// after a font change, when the whole screen was cleared but the content
// should survive in the new geometry.
func (c *Controller) ResendScreen(fontID int) error {
	c.log.Debug().Int("font", fontID).Msg("resending screen")

	g := font.ByID(fontID)
	rowsInScreen := g.Rows - 1

	lineIndex := 1
	for row := rowsInScreen; row > 0; row-- {
		bufferIndex := len(c.lines) - lineIndex
		if bufferIndex >= 0 {
			if err := c.SendLine(c.lines[bufferIndex], row-1, fontID); err != nil {
				return err
			}
		}
		lineIndex++
	}
	return nil
}

// roundTrip sends one command and waits for the acknowledgement. A ready
// timeout is logged by the link and deliberately not treated as fatal.
func (c *Controller) roundTrip(cmd protocol.Command) error {
	if err := c.link.Send(cmd); err != nil {
		return err
	}
	c.link.WaitForReady(readyTimeout)
	return nil
}

func trimTrailingEmpty(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
