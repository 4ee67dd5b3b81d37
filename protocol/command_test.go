package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandEncoding(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want []byte
	}{
		{
			"clear screen",
			ClearScreen{},
			[]byte{0x06},
		},
		{
			"scroll up",
			ScrollUp{Pixels: 32},
			[]byte{0x03, 0x20},
		},
		{
			"write text",
			WriteText{Y: 120, Font: 0, Fg: 3, Bg: 0, Text: "file1.txt"},
			append([]byte{0x02, 120, 0, 3, 0, 9}, "file1.txt"...),
		},
		{
			"prompt suffix only",
			Prompt{Y: 128, Font: 0, Fg: 3, Bg: 0, Text: "ls -l"},
			append([]byte{0x07, 128, 0, 3, 0, 5}, "ls -l"...),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.Append(nil))
		})
	}
}

func TestBlockEncoding(t *testing.T) {
	cmd := Block{X: 60, Y: 60, Data: []byte{0xFF, 0xFF}}
	got := cmd.Append(nil)

	assert.Equal(t, []byte{0x05, 0x00, 0x3C, 0x00, 0x3C}, got[:5])
	// Payload is padded to the fixed block size.
	assert.Len(t, got, 5+BlockBytes)
	assert.Equal(t, byte(0xFF), got[5])
	assert.Equal(t, byte(0x00), got[7])
}

func TestBlockRLEEncoding(t *testing.T) {
	cmd := BlockRLE{X: 60, Y: 60, Runs: []RLERun{{Value: 0xFF, Count: 544}}}
	got := cmd.Append(nil)
	assert.Equal(t, []byte{0x04, 0x00, 0x3C, 0x00, 0x3C, 0xFF, 0x02, 0x20}, got)
}

func TestAppendLineTruncatesAtMax(t *testing.T) {
	long := make([]byte, MaxLineLen+10)
	for i := range long {
		long[i] = 'x'
	}
	encoded := AppendLine(nil, long)
	assert.Equal(t, byte(MaxLineLen), encoded[1])
	assert.Len(t, encoded, 2+MaxLineLen+2)
}
