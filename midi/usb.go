// Package midi feeds MIDI channel messages from either a USB/ALSA
// input port or a UART byte stream into a sampler.ControlPlane's
// Dispatch, sharing the same decode contract across both transports.
package midi

import (
	"time"

	"github.com/charmbracelet/log"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	sampler "github.com/quietvoice/gosampler"
)

// USBListener scans for newly attached MIDI input ports and spawns one
// reader goroutine per port, each forwarding raw status/data bytes to
// the control plane.
type USBListener struct {
	ControlPlane *sampler.ControlPlane
	Log          *log.Logger

	// IgnoreAfterBoot discards incoming bytes for this long after each
	// port is first opened, implementing the --boot flag's contract.
	IgnoreAfterBoot time.Duration

	opened map[string]bool
}

// NewUSBListener constructs a listener bound to cp.
func NewUSBListener(cp *sampler.ControlPlane, logger *log.Logger, ignoreAfterBoot time.Duration) *USBListener {
	return &USBListener{
		ControlPlane:    cp,
		Log:             logger,
		IgnoreAfterBoot: ignoreAfterBoot,
		opened:          make(map[string]bool),
	}
}

// ScanLoop polls for new input ports every interval and never returns;
// it is meant to run on its own goroutine from main, per the
// "main thread scans for newly attached MIDI ports" responsibility.
func (l *USBListener) ScanLoop(interval time.Duration) {
	for {
		for _, in := range gomidi.GetInPorts() {
			name := in.String()
			if l.opened[name] {
				continue
			}
			l.opened[name] = true
			l.Log.Infof("midi: opening input port %s", name)
			l.listen(in, name)
		}
		time.Sleep(interval)
	}
}

func (l *USBListener) listen(in drivers.In, name string) {
	bootDeadline := time.Now().Add(l.IgnoreAfterBoot)

	_, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		if time.Now().Before(bootDeadline) {
			return
		}
		if len(msg) < 2 {
			return
		}
		var data2 byte
		if len(msg) >= 3 {
			data2 = msg[2]
		}
		l.ControlPlane.Dispatch(msg[0], msg[1], data2)
	})
	if err != nil {
		l.Log.Warnf("midi: failed to listen on %s: %v", name, err)
		delete(l.opened, name)
	}
}
