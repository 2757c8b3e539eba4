// Command sampledump renders a single preset/note/velocity trigger to a
// WAV file, for auditioning samples and loop behavior offline without an
// audio device attached. The note is held for the whole render; no
// note-off is sent, so the fade-out is not rendered.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	sampler "github.com/quietvoice/gosampler"
	"github.com/quietvoice/gosampler/display"
	"github.com/quietvoice/gosampler/preset"
	"github.com/quietvoice/gosampler/wav"
)

func main() {
	samplesDir := pflag.String("samples-dir", ".", "root directory of preset folders")
	presetNum := pflag.Int("preset", 0, "preset number to load")
	note := pflag.Int("note", 60, "MIDI note to trigger")
	velocity := pflag.Int("velocity", 100, "MIDI velocity to trigger with")
	seconds := pflag.Float64("seconds", 2.0, "seconds of audio to render")
	out := pflag.String("out", "sampledump.wav", "output WAV path")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	engine := sampler.NewEngine(1)
	controlPlane := sampler.NewControlPlane(engine, 1)
	controlPlane.Display = display.Connect(display.Addr, logger)

	loader := preset.New(*samplesDir, controlPlane.Channels, engine, controlPlane.Display, logger)
	loader.RequestLoad(0, *presetNum)
	waitForPreset(controlPlane, 0, *presetNum)

	controlPlane.Dispatch(0x90, byte(*note), byte(*velocity))

	f, err := os.Create(*out)
	if err != nil {
		logger.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()

	const sampleRate = 44100
	writer, err := wav.NewWriter(f, sampleRate)
	if err != nil {
		logger.Fatalf("wav header: %v", err)
	}

	const blockFrames = 512
	buf := make([]int16, blockFrames*2)
	totalFrames := int(*seconds * sampleRate)
	for rendered := 0; rendered < totalFrames; rendered += blockFrames {
		engine.GenerateAudio(buf)
		if err := writer.WriteFrame(buf); err != nil {
			logger.Fatalf("write frame: %v", err)
		}
	}

	if _, err := writer.Finish(); err != nil {
		logger.Fatalf("finish wav: %v", err)
	}

	fmt.Printf("wrote %s\n", *out)
}

// waitForPreset polls until the requested preset is published (or
// times out), since loading is asynchronous.
func waitForPreset(cp *sampler.ControlPlane, channel, preset int) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cp.Channels[channel].Preset() == preset && cp.Channels[channel].SampleMap() != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}
