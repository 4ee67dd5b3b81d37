// srxterm-host drives a handheld terminal over a serial link: it receives
// committed command lines and modifier combos from the device, runs the
// commands in a subshell and pushes the output back as draw commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"srxterm/host/config"
	"srxterm/host/keys"
	"srxterm/host/link"
	"srxterm/host/screen"
	"srxterm/host/serial"
	"srxterm/host/shell"
	"srxterm/protocol"
)

var (
	device  = flag.String("device", "", "Serial device path (overrides config)")
	cfgPath = flag.String("config", "/etc/srxterm.toml", "Configuration file")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	if *device != "" {
		cfg.Device = *device
	}

	switch {
	case *verbose:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case cfg.Debug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("host terminated")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	log.Info().Str("device", cfg.Device).Int("baud", cfg.Baud).Msg("opening serial port")

	port, err := serial.Open(&serial.Config{
		Device:      cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: 100,
	})
	if err != nil {
		return err
	}
	defer port.Close()

	var signalLine link.SignalLine
	if cfg.SignalPin != "" {
		signalLine = link.NewGPIOSignalPath(cfg.SignalPin)
	}

	conn := link.NewConn(port, signalLine, clockwork.NewRealClock(), log)
	ctrl := screen.New(conn, log)
	runner := shell.New(cfg.Font, time.Duration(cfg.CommandTimeoutMS)*time.Millisecond, log)
	keyHandler := keys.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &session{
		cfg:    cfg,
		log:    log,
		conn:   conn,
		ctrl:   ctrl,
		runner: runner,
		keys:   keyHandler,
		fontID: cfg.Font,
	}
	return s.loop(ctx)
}

// session is the host main loop state.
type session struct {
	cfg    *config.Config
	log    zerolog.Logger
	conn   *link.Conn
	ctrl   *screen.Controller
	runner *shell.Runner
	keys   *keys.Handler
	fontID int
}

func (s *session) loop(ctx context.Context) error {
	// Initial handshake doubles as a screen wipe; the device answers ready
	// once it is up.
	if err := s.ctrl.ClearScreen(true); err != nil {
		return fmt.Errorf("device not responding: %w", err)
	}
	s.armPrompt()
	s.log.Info().Msg("device ready; Shift+0..3 changes font, Sym+C clears")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("exiting")
			return nil
		default:
		}

		if err := s.conn.Poll(); err != nil {
			return fmt.Errorf("serial read: %w", err)
		}

		idle := true
		for {
			pkt, ok := s.conn.Next()
			if !ok {
				break
			}
			idle = false
			s.handlePacket(ctx, pkt)
		}

		if idle {
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (s *session) handlePacket(ctx context.Context, pkt protocol.Packet) {
	switch p := pkt.(type) {
	case protocol.Line:
		s.runCommand(ctx, p.Text)

	case protocol.Key:
		action := s.keys.Process(p.Code)
		switch action.Kind {
		case keys.FontChange:
			s.changeFont(action.Font)
		case keys.ClearBuffer:
			s.clearAll()
		case keys.None:
			// modifier or ignorable key
		default:
			// Editing keys are handled on the device; seeing one here just
			// means an unknown combo was forwarded.
			s.log.Debug().Uint8("key", p.Code).Msg("unhandled key action")
		}

	case protocol.Ready:
		// Stray acknowledgement, nothing pending.
	}
}

func (s *session) runCommand(ctx context.Context, text string) {
	cmd := strings.TrimSpace(text)
	if cmd == "" {
		s.armPrompt()
		return
	}

	s.log.Info().Str("command", cmd).Msg("executing")
	start := time.Now()
	s.runner.Run(ctx, cmd)
	s.log.Debug().Dur("took", time.Since(start)).Msg("command finished")

	if err := s.ctrl.SendNewLines(s.runner.Lines(), s.fontID, false); err != nil {
		s.log.Error().Err(err).Msg("screen update failed")
	}
	s.armPrompt()
}

func (s *session) changeFont(fontID int) {
	s.log.Info().Int("font", fontID).Msg("switching font")
	s.fontID = fontID
	s.runner.SwitchFont(fontID)

	// The old pixels are meaningless in the new geometry: wipe the screen
	// but keep the mirrored lines and redraw them.
	if err := s.ctrl.ClearScreen(false); err != nil {
		s.log.Error().Err(err).Msg("clear failed")
		return
	}
	if err := s.ctrl.ResendScreen(fontID); err != nil {
		s.log.Error().Err(err).Msg("redraw failed")
	}
	s.armPrompt()
}

func (s *session) clearAll() {
	s.log.Info().Msg("clearing screen and scrollback")
	s.runner.Clear()
	if err := s.ctrl.ClearScreen(true); err != nil {
		s.log.Error().Err(err).Msg("clear failed")
	}
	s.armPrompt()
}

// armPrompt redraws an empty prompt row, which also tells the device to
// clear its line editor for the next command.
func (s *session) armPrompt() {
	if err := s.ctrl.UpdatePrompt("", s.fontID); err != nil {
		s.log.Error().Err(err).Msg("prompt update failed")
	}
}
