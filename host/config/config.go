// Package config loads the host configuration from a TOML file.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"srxterm/font"
)

// Config is the host's tunable surface. Anything not set in the file keeps
// its default.
type Config struct {
	// Device is the serial port connected to the handheld.
	Device string `toml:"device"`

	// Baud must match the device firmware's bit-banged rate.
	Baud int `toml:"baud"`

	// SignalPin is the sysfs GPIO value file for the handshake line.
	// Empty disables the handshake wait.
	SignalPin string `toml:"signal_pin"`

	// Font is the font id active at startup (0-3).
	Font int `toml:"font"`

	// CommandTimeoutMS bounds one shell command, in milliseconds.
	CommandTimeoutMS int `toml:"command_timeout_ms"`

	// ReadyTimeoutMS bounds the wait for a command acknowledgement.
	ReadyTimeoutMS int `toml:"ready_timeout_ms"`

	// Debug asks the device to emit diagnostic packets and raises the host
	// log level.
	Debug bool `toml:"debug"`
}

// Default returns the configuration for a stock wiring.
func Default() *Config {
	return &Config{
		Device:           "/dev/ttyS0",
		Baud:             19200,
		Font:             font.Normal,
		CommandTimeoutMS: 10000,
		ReadyTimeoutMS:   1000,
	}
}

// Load reads a TOML file over the defaults. A missing file is not an error;
// the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Font < 0 || cfg.Font >= font.Count() {
		return nil, fmt.Errorf("config %s: font %d out of range", path, cfg.Font)
	}
	if cfg.Baud <= 0 {
		return nil, fmt.Errorf("config %s: baud must be positive", path)
	}
	return cfg, nil
}
