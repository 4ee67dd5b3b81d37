package screen

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"srxterm/font"
	"srxterm/protocol"
)

type fakeLink struct {
	sent []protocol.Command
}

func (l *fakeLink) Send(cmd protocol.Command) error { l.sent = append(l.sent, cmd); return nil }

func (l *fakeLink) WaitForReady(time.Duration) error { return nil }

func (l *fakeLink) writes() []protocol.WriteText {
	var out []protocol.WriteText
	for _, cmd := range l.sent {
		if w, ok := cmd.(protocol.WriteText); ok {
			out = append(out, w)
		}
	}
	return out
}

func newTestController() (*Controller, *fakeLink) {
	link := &fakeLink{}
	return New(link, zerolog.Nop()), link
}

func TestFewNewLinesScrollAndDraw(t *testing.T) {
	c, link := newTestController()
	lines := []string{"one", "two", "three", "four"}

	require.NoError(t, c.SendNewLines(lines, font.Normal, false))

	// 4 lines in a 17-row font: one scroll of 4 rows, then exactly the 4 new
	// lines drawn into the bottom rows above the prompt.
	require.NotEmpty(t, link.sent)
	scroll, ok := link.sent[0].(protocol.ScrollUp)
	require.True(t, ok, "first command is the scroll")
	assert.Equal(t, byte(32), scroll.Pixels, "4 rows x 8 px")

	writes := link.writes()
	require.Len(t, writes, 4)
	assert.Equal(t, "four", writes[0].Text)
	assert.Equal(t, int(writes[0].Y), font.ByID(font.Normal).RowY(15))
	assert.Equal(t, "one", writes[3].Text)
	assert.Equal(t, int(writes[3].Y), font.ByID(font.Normal).RowY(12))
}

func TestUnchangedRowsAreNotResent(t *testing.T) {
	c, link := newTestController()

	// Large font shows 8 rows, 7 above the prompt. A full screen of lines
	// identical to the mirror must produce zero draw commands.
	full := make([]string, 7)
	for i := range full {
		full[i] = "row"
	}
	c.SetLines(append([]string(nil), full...))

	require.NoError(t, c.SendNewLines(append([]string(nil), full...), font.Large, false))
	assert.Empty(t, link.sent)
}

func TestChangedRowsOnlyAreResent(t *testing.T) {
	c, link := newTestController()

	old := []string{"aaa", "bbb", "ccc", "ddd", "eee", "fff", "ggg"}
	c.SetLines(append([]string(nil), old...))

	updated := append([]string(nil), old...)
	updated[3] = "DDD"

	require.NoError(t, c.SendNewLines(updated, font.Large, false))

	writes := link.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "DDD", writes[0].Text)
}

func TestTrailingWhitespaceDifferencesIgnored(t *testing.T) {
	c, link := newTestController()

	old := []string{"aaa", "bbb", "ccc", "ddd", "eee", "fff", "ggg"}
	c.SetLines(append([]string(nil), old...))

	updated := append([]string(nil), old...)
	updated[2] = "ccc   "

	require.NoError(t, c.SendNewLines(updated, font.Large, false))
	assert.Empty(t, link.writes())
}

func TestPromptEchoLinesSkipped(t *testing.T) {
	c, link := newTestController()

	lines := []string{protocol.PromptLiteral + "ls", "file1.txt"}
	require.NoError(t, c.SendNewLines(lines, font.Normal, false))

	writes := link.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "file1.txt", writes[0].Text)
}

func TestSendLineQuirks(t *testing.T) {
	c, link := newTestController()

	require.NoError(t, c.SendLine("", 0, font.Normal))
	assert.Equal(t, "_", link.writes()[0].Text, "empty rows render a placeholder")

	line24 := strings.Repeat("x", 24)
	require.NoError(t, c.SendLine(line24, 1, font.Normal))
	assert.Equal(t, line24+"_", link.writes()[1].Text, "corruption workaround")

	long := strings.Repeat("y", 80)
	require.NoError(t, c.SendLine(long, 2, font.Normal))
	assert.Len(t, link.writes()[2].Text, font.ByID(font.Normal).Cols)

	require.NoError(t, c.SendLine("padded   ", 3, font.Normal))
	assert.Equal(t, "padded", link.writes()[3].Text, "trailing spaces never hit the wire")
}

func TestSendLineRejectsNegativeRow(t *testing.T) {
	c, link := newTestController()
	require.NoError(t, c.SendLine("x", -1, font.Normal))
	assert.Empty(t, link.sent)
}

func TestUpdatePromptTargetsLastRow(t *testing.T) {
	c, link := newTestController()

	require.NoError(t, c.UpdatePrompt("ls -l", font.Normal))
	require.Len(t, link.sent, 1)
	p, ok := link.sent[0].(protocol.Prompt)
	require.True(t, ok)
	assert.Equal(t, byte(128), p.Y)
	assert.Equal(t, "ls -l", p.Text)
}

func TestClearScreenBufferControl(t *testing.T) {
	c, link := newTestController()
	c.SetLines([]string{"kept"})
	require.NoError(t, c.ScrollUp(40))
	require.Equal(t, 40, c.Scrolled())

	require.NoError(t, c.ClearScreen(false))
	assert.Equal(t, []string{"kept"}, c.Lines(), "buffer survives a font-change clear")
	assert.Zero(t, c.Scrolled())

	require.NoError(t, c.ClearScreen(true))
	assert.Empty(t, c.Lines())

	_, ok := link.sent[len(link.sent)-1].(protocol.ClearScreen)
	assert.True(t, ok)
}

func TestScrollMirrorWrapsAtScreenHeight(t *testing.T) {
	c, _ := newTestController()
	require.NoError(t, c.ScrollUp(100))
	require.NoError(t, c.ScrollUp(100))
	assert.Equal(t, 64, c.Scrolled(), "(200) mod 136")
}

func TestResendScreenDrawsBottomUp(t *testing.T) {
	c, link := newTestController()
	c.SetLines([]string{"first", "second", "third"})

	require.NoError(t, c.ResendScreen(font.Large))

	// 7 rows above the prompt but only 3 mirrored lines: the newest line
	// lands on the bottom row, older ones above it.
	writes := link.writes()
	require.Len(t, writes, 3)
	g := font.ByID(font.Large)
	assert.Equal(t, "third", writes[0].Text)
	assert.Equal(t, int(writes[0].Y), g.RowY(6))
	assert.Equal(t, "first", writes[2].Text)
	assert.Equal(t, int(writes[2].Y), g.RowY(4))
}

func TestHistoryCapped(t *testing.T) {
	c, _ := newTestController()

	for i := 0; i < 30; i++ {
		lines := []string{"a", "b", "c", "d", "e"}
		require.NoError(t, c.SendNewLines(lines, font.Normal, true))
	}
	assert.Len(t, c.Lines(), HistoryRows)
}

func TestForceRedrawSkipsDiffing(t *testing.T) {
	c, link := newTestController()

	require.NoError(t, c.SendNewLines([]string{"x", "y"}, font.Normal, true))
	assert.Empty(t, link.sent, "force redraw only updates the mirror")
	assert.Equal(t, []string{"x", "y"}, c.Lines())
}
