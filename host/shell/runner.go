// Package shell executes typed commands in a subshell sized to the active
// font, captures their output and wraps it to the terminal width.
package shell

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"srxterm/font"
	"srxterm/protocol"
)

// DefaultTimeout bounds a single command. Interactive programs are not
// supported; anything still running at the deadline is killed.
const DefaultTimeout = 10 * time.Second

// Runner executes commands and keeps the output of the most recent one.
type Runner struct {
	log     zerolog.Logger
	timeout time.Duration

	cols, rows int
	lastOutput []string
}

// New returns a runner sized to the given font.
func New(fontID int, timeout time.Duration, log zerolog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Runner{log: log, timeout: timeout}
	r.SwitchFont(fontID)
	return r
}

// SwitchFont resizes the virtual terminal to the new font's geometry.
func (r *Runner) SwitchFont(fontID int) {
	g := font.ByID(fontID)
	r.cols = g.Cols
	r.rows = g.Rows
	r.log.Debug().Int("font", fontID).Int("cols", r.cols).Int("rows", r.rows).Msg("terminal resized")
}

// Cols returns the current terminal width in characters.
func (r *Runner) Cols() int { return r.cols }

// Run executes one command line through the shell. The echoed command and
// its combined output are stored for Lines. Returns false when the command
// failed or timed out; the captured output is valid either way.
func (r *Runner) Run(ctx context.Context, command string) bool {
	r.lastOutput = nil

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("COLUMNS=%d", r.cols),
		fmt.Sprintf("LINES=%d", r.rows),
		"TERM=xterm",
	)

	out, err := cmd.CombinedOutput()

	text := "\n" + protocol.PromptLiteral + command + "\n" + string(out)
	r.lastOutput = r.wrapLines(strings.Split(text, "\n"))

	if ctx.Err() == context.DeadlineExceeded {
		r.log.Warn().Str("command", command).Dur("timeout", r.timeout).Msg("command timed out")
		r.lastOutput = append(r.lastOutput, "[timed out]")
		return false
	}
	if err != nil {
		r.log.Debug().Str("command", command).Err(err).Msg("command failed")
		return false
	}
	return true
}

// Lines returns the last command's output, one screen line per entry, with
// blank lines dropped and trailing whitespace removed.
func (r *Runner) Lines() []string {
	var lines []string
	for _, line := range r.lastOutput {
		line = strings.TrimRight(line, " \t\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Clear drops the stored output.
func (r *Runner) Clear() {
	r.lastOutput = nil
}

// wrapLines hard-wraps every line at the terminal width.
func (r *Runner) wrapLines(lines []string) []string {
	var out []string
	for _, line := range lines {
		if len(line) <= r.cols {
			out = append(out, line)
			continue
		}
		for len(line) > 0 {
			n := r.cols
			if n > len(line) {
				n = len(line)
			}
			out = append(out, line[:n])
			line = line[n:]
		}
	}
	return out
}
