// Package config parses the sampler's command-line flags with
// github.com/spf13/pflag, POSIX-style, the way
// doismellburning-samoyed's AppServerMain does for its TNC flags.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Compile-time defaults from spec.md §6, overridable on the command
// line.
const (
	DefaultMaxPolyphony  = 80
	DefaultMaxPresets    = 99
	DefaultIgnoreBootSec = 2
	DefaultDisplayAddr   = "127.0.0.1:4242"
)

// Config holds every operator-tunable knob.
type Config struct {
	Boot            bool
	SamplesDir      string
	AudioDevice     string
	MaxPolyphony    int
	MaxPresets      int
	MidiChannels    int
	DisplayAddr     string
	NoGPIO          bool
	SerialPort      string
	IgnoreBootSec   int
}

// Parse reads os.Args[1:] into a Config. On --help it prints usage and
// exits 0, matching pflag.Usage's idiom in the reference app server.
func Parse() *Config {
	cfg := &Config{}

	pflag.BoolVar(&cfg.Boot, "boot", false, "discard MIDI input for a grace period after each port opens")
	pflag.StringVar(&cfg.SamplesDir, "samples-dir", "", "root directory of preset folders (defaults to the current directory)")
	pflag.StringVar(&cfg.AudioDevice, "audio-device", "", "PortAudio output device name (not consulted: audio always opens on the system default output device)")
	pflag.IntVar(&cfg.MaxPolyphony, "max-polyphony", DefaultMaxPolyphony, "maximum simultaneous voices")
	pflag.IntVar(&cfg.MaxPresets, "max-presets", DefaultMaxPresets, "number of preset slots a program change can select")
	pflag.IntVar(&cfg.MidiChannels, "midi-channels", 1, "number of MIDI channels actually in use")
	pflag.StringVar(&cfg.DisplayAddr, "display-addr", DefaultDisplayAddr, "7-segment display RPC address")
	pflag.BoolVar(&cfg.NoGPIO, "no-gpio", false, "disable the GPIO button/LED panel")
	pflag.StringVar(&cfg.SerialPort, "serial-port", "", "UART device for serial MIDI (disabled if empty)")
	pflag.IntVar(&cfg.IgnoreBootSec, "ignore-boot-seconds", DefaultIgnoreBootSec, "seconds of MIDI to discard per port after --boot")

	help := pflag.BoolP("help", "h", false, "display help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - embedded polyphonic MIDI sampler\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	return cfg
}
