package device

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"srxterm/device/input"
	"srxterm/protocol"
)

// scriptPort feeds pre-scripted inbound bytes and records outbound bytes.
// Poll advances the fake clock the way a real receive window would, so
// argument-byte deadlines actually expire.
type scriptPort struct {
	fc  *clockwork.FakeClock
	in  []byte
	out []byte
}

func (p *scriptPort) Poll() int {
	p.fc.Advance(10 * time.Millisecond)
	return 0
}

func (p *scriptPort) ReadByte() (byte, bool) {
	if len(p.in) == 0 {
		return 0, false
	}
	b := p.in[0]
	p.in = p.in[1:]
	return b, true
}

func (p *scriptPort) Available() int { return len(p.in) }

func (p *scriptPort) Write(data []byte) { p.out = append(p.out, data...) }

type displayCall struct {
	op     string
	x, y   int
	text   string
	font   int
	fg, bg int
	pixels int
	block  []byte
}

type recordDisplay struct {
	calls []displayCall
}

func (d *recordDisplay) WriteString(x, y int, s string, fontID, fg, bg int) {
	d.calls = append(d.calls, displayCall{op: "write", x: x, y: y, text: s, font: fontID, fg: fg, bg: bg})
}

func (d *recordDisplay) Scroll(pixels int) {
	d.calls = append(d.calls, displayCall{op: "scroll", pixels: pixels})
}

func (d *recordDisplay) ScrollReset() {
	d.calls = append(d.calls, displayCall{op: "scrollreset"})
}

func (d *recordDisplay) Fill(color int) {
	d.calls = append(d.calls, displayCall{op: "fill"})
}

func (d *recordDisplay) WriteBlock(x, y int, data []byte) {
	d.calls = append(d.calls, displayCall{op: "block", x: x, y: y, block: append([]byte(nil), data...)})
}

func (d *recordDisplay) last() displayCall {
	return d.calls[len(d.calls)-1]
}

type nullKeyboard struct{}

func (nullKeyboard) Poll() (KeyEvent, bool) { return KeyEvent{}, false }

func newTestRuntime(in []byte) (*Runtime, *scriptPort, *recordDisplay) {
	fc := clockwork.NewFakeClock()
	port := &scriptPort{fc: fc, in: in}
	disp := &recordDisplay{}
	rt := New(port, disp, nullKeyboard{}, fc, false)
	return rt, port, disp
}

func readyTail(out []byte) bool {
	want := protocol.AppendReady(nil)
	return len(out) >= len(want) && string(out[len(out)-len(want):]) == string(want)
}

func TestWriteTextAdjustsYByScrollOffset(t *testing.T) {
	cmd := protocol.WriteText{Y: 120, Font: 0, Fg: 3, Bg: 0, Text: "file1.txt"}
	rt, port, disp := newTestRuntime(cmd.Append(nil))
	rt.pixelsScrolled = 24

	rt.dispatchOne()

	require.NotEmpty(t, disp.calls)
	call := disp.last()
	assert.Equal(t, "write", call.op)
	assert.Equal(t, 8, call.y, "(120+24) mod 136")
	assert.True(t, strings.HasPrefix(call.text, "file1.txt"))
	assert.Equal(t, textWidth, len(call.text), "row padded to full width")
	assert.True(t, readyTail(port.out), "command acknowledged")
}

func TestScrollUpAccumulatesModuloScreenHeight(t *testing.T) {
	var in []byte
	in = protocol.ScrollUp{Pixels: 100}.Append(in)
	in = protocol.ScrollUp{Pixels: 100}.Append(in)
	rt, _, disp := newTestRuntime(in)

	rt.dispatchOne()
	assert.Equal(t, 100, rt.PixelsScrolled())

	rt.dispatchOne()
	assert.Equal(t, 64, rt.PixelsScrolled(), "(200) mod 136")
	assert.Equal(t, 100, disp.calls[0].pixels)
	assert.Equal(t, 100, disp.calls[1].pixels)
}

func TestClearScreenResetsScrollOffset(t *testing.T) {
	var in []byte
	in = protocol.ScrollUp{Pixels: 40}.Append(in)
	in = protocol.ClearScreen{}.Append(in)
	rt, _, disp := newTestRuntime(in)

	rt.dispatchOne()
	require.Equal(t, 40, rt.PixelsScrolled())

	rt.dispatchOne()
	assert.Zero(t, rt.PixelsScrolled())
	ops := []string{}
	for _, c := range disp.calls {
		ops = append(ops, c.op)
	}
	assert.Equal(t, []string{"scroll", "scrollreset", "fill"}, ops)
}

func TestPromptPrependsLiteralAndClearsInput(t *testing.T) {
	cmd := protocol.Prompt{Y: 128, Font: 0, Fg: 3, Bg: 0, Text: "ls -l"}
	rt, _, disp := newTestRuntime(cmd.Append(nil))

	// Something was mid-typing when the host re-armed the prompt.
	rt.input.HandleKey('x', false)
	require.Equal(t, 1, rt.input.Len())

	rt.dispatchOne()

	call := disp.last()
	assert.True(t, strings.HasPrefix(call.text, input.PromptLiteral+"ls -l"))
	assert.Zero(t, rt.input.Len(), "input cleared on prompt re-arm")
}

func TestUnknownCommandStillAnswersReady(t *testing.T) {
	in := []byte{0x77, 0x01, 0x02, 0x03}
	rt, port, disp := newTestRuntime(in)

	rt.dispatchOne()

	assert.Empty(t, disp.calls)
	assert.Zero(t, port.Available(), "trailing bytes drained")
	assert.True(t, readyTail(port.out))
}

func TestTruncatedCommandTimesOutAndAnswersReady(t *testing.T) {
	// WriteText with a declared length of 9 but no text bytes.
	in := []byte{protocol.CmdWriteText, 120, 0, 3, 0, 9}
	rt, port, disp := newTestRuntime(in)

	rt.dispatchOne()

	assert.Empty(t, disp.calls, "nothing drawn from a truncated command")
	assert.True(t, readyTail(port.out), "lockstep kept alive")
}

func TestBlockCommand(t *testing.T) {
	cmd := protocol.Block{X: 60, Y: 130, Data: []byte{0xAB}}
	rt, _, disp := newTestRuntime(cmd.Append(nil))
	rt.pixelsScrolled = 10

	rt.dispatchOne()

	call := disp.last()
	require.Equal(t, "block", call.op)
	assert.Equal(t, 60, call.x)
	assert.Equal(t, (130+10)%136, call.y)
	require.Len(t, call.block, protocol.BlockBytes)
	assert.Equal(t, byte(0xAB), call.block[0])
}

func TestBlockRLECommand(t *testing.T) {
	cmd := protocol.BlockRLE{X: 0, Y: 0, Runs: []protocol.RLERun{{Value: 0xFF, Count: protocol.BlockBytes}}}
	rt, _, disp := newTestRuntime(cmd.Append(nil))

	rt.dispatchOne()

	call := disp.last()
	require.Equal(t, "block", call.op)
	assert.Equal(t, byte(0xFF), call.block[0])
	assert.Equal(t, byte(0xFF), call.block[protocol.BlockBytes-1])
}

// scriptKeyboard replays key events one per Poll.
type scriptKeyboard struct {
	events []KeyEvent
}

func (k *scriptKeyboard) Poll() (KeyEvent, bool) {
	if len(k.events) == 0 {
		return KeyEvent{}, false
	}
	ev := k.events[0]
	k.events = k.events[1:]
	return ev, true
}

func TestCommittedLineEmitsSingleLinePacket(t *testing.T) {
	fc := clockwork.NewFakeClock()
	port := &scriptPort{fc: fc}
	kb := &scriptKeyboard{events: []KeyEvent{
		{Key: 'l'}, {Key: 's'}, {Key: input.KeyEnter},
	}}
	rt := New(port, &recordDisplay{}, kb, fc, false)

	for i := 0; i < 3; i++ {
		rt.Step()
	}

	want := []byte{0xF8, 0x02, 0x6C, 0x73, 0x8A, 0xF9}
	assert.Equal(t, want, port.out)
	assert.Equal(t, 2, rt.Input().Len(), "buffer retained until host re-arms")
}

func TestFontComboForwardsModifierPrePacket(t *testing.T) {
	fc := clockwork.NewFakeClock()
	port := &scriptPort{fc: fc}
	kb := &scriptKeyboard{events: []KeyEvent{{Key: '1', Shift: true}}}
	rt := New(port, &recordDisplay{}, kb, fc, false)

	rt.Step()

	var want []byte
	want = protocol.AppendKey(want, protocol.KeyModShift)
	want = protocol.AppendKey(want, '1')
	assert.Equal(t, want, port.out)
	assert.Zero(t, rt.Input().Len(), "combo not echoed into the line buffer")
}

func TestSymComboForwarded(t *testing.T) {
	fc := clockwork.NewFakeClock()
	port := &scriptPort{fc: fc}
	kb := &scriptKeyboard{events: []KeyEvent{{Key: 'c', Sym: true}}}
	rt := New(port, &recordDisplay{}, kb, fc, false)

	rt.Step()

	var want []byte
	want = protocol.AppendKey(want, protocol.KeyModSym)
	want = protocol.AppendKey(want, 'c')
	assert.Equal(t, want, port.out)
}

func TestStepRendersPromptEveryIteration(t *testing.T) {
	fc := clockwork.NewFakeClock()
	port := &scriptPort{fc: fc}
	disp := &recordDisplay{}
	rt := New(port, disp, nullKeyboard{}, fc, false)

	rt.Step()
	rt.Step()

	writes := 0
	for _, c := range disp.calls {
		if c.op == "write" && strings.HasPrefix(c.text, input.PromptLiteral) {
			writes++
		}
	}
	assert.Equal(t, 2, writes)
}
