// Command sampler is the embedded polyphonic MIDI sampler: it opens an
// audio output stream, scans for MIDI input ports (USB/ALSA and
// optionally UART), loads preset 0 on every channel in use, and runs
// until killed.
package main

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	sampler "github.com/quietvoice/gosampler"
	"github.com/quietvoice/gosampler/console"
	"github.com/quietvoice/gosampler/display"
	"github.com/quietvoice/gosampler/gpio"
	"github.com/quietvoice/gosampler/internal/config"
	"github.com/quietvoice/gosampler/midi"
	"github.com/quietvoice/gosampler/preset"
)

const (
	audioSampleRate    = 44100
	audioFramesPerBuf  = 512
	audioOutputChans   = 2
	gpioChip           = "/dev/gpiochip0"
	gpioButtonBase     = 4  // offsets 4,5,6,... one per channel
	gpioLEDBase        = 17 // offsets 17,18,19,... one per channel
	portScanInterval   = 1 * time.Second
)

func main() {
	cfg := config.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	engine := sampler.NewEngine(cfg.MaxPolyphony)
	controlPlane := sampler.NewControlPlane(engine, cfg.MidiChannels)
	controlPlane.MaxPresets = cfg.MaxPresets
	controlPlane.Display = display.Connect(cfg.DisplayAddr, logger)

	loader := preset.New(cfg.SamplesDir, controlPlane.Channels, engine, controlPlane.Display, logger)
	controlPlane.Loader = loader

	if err := portaudio.Initialize(); err != nil {
		logger.Errorf("audio device open failed: %v", err)
		os.Exit(1)
	}
	stream, err := portaudio.OpenDefaultStream(0, audioOutputChans, audioSampleRate, audioFramesPerBuf, engine.GenerateAudio)
	if err != nil {
		logger.Errorf("audio device open failed: %v", err)
		os.Exit(1)
	}
	if err := stream.Start(); err != nil {
		logger.Errorf("audio device open failed: %v", err)
		os.Exit(1)
	}
	defer stream.Close()
	defer portaudio.Terminate()

	ignoreBoot := time.Duration(0)
	if cfg.Boot {
		ignoreBoot = time.Duration(cfg.IgnoreBootSec) * time.Second
	}

	usbListener := midi.NewUSBListener(controlPlane, logger, ignoreBoot)
	go usbListener.ScanLoop(portScanInterval)

	if cfg.SerialPort != "" {
		framer := &midi.SerialFramer{ControlPlane: controlPlane, Log: logger, IgnoreAfterBoot: ignoreBoot}
		go func() {
			if err := framer.Run(cfg.SerialPort); err != nil {
				logger.Warnf("serial midi: %v", err)
			}
		}()
	}

	if !cfg.NoGPIO {
		panel := buildGPIOPanel(controlPlane, logger, cfg.MidiChannels)
		if err := panel.Open(); err != nil {
			logger.Warnf("gpio: panel unavailable, continuing without it: %v", err)
		} else {
			go panel.PollLoop()
		}
	}

	for ch := 0; ch < cfg.MidiChannels; ch++ {
		loader.RequestLoad(ch, 0)
	}

	console.New(controlPlane, engine).Run()
}

func buildGPIOPanel(cp *sampler.ControlPlane, logger *log.Logger, nChannels int) *gpio.Panel {
	buttons := make([]gpio.ButtonLED, nChannels)
	for i := range buttons {
		buttons[i] = gpio.ButtonLED{
			Channel:      i,
			ButtonOffset: gpioButtonBase + i,
			LEDOffset:    gpioLEDBase + i,
		}
	}
	return &gpio.Panel{
		Chip:         gpioChip,
		Buttons:      buttons,
		ControlPlane: cp,
		Log:          logger,
	}
}
