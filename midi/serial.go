package midi

import (
	"time"

	"github.com/charmbracelet/log"
	"go.bug.st/serial"

	sampler "github.com/quietvoice/gosampler"
)

// serialBaud is the UART rate this framer opens the port at. The true
// MIDI rate is 31250; the hardware this targets only exposes baud
// dividers that land on 38400, the same workaround the reference
// firmware used, so we configure the same rate here rather than pretend
// a cleaner number is achievable.
const serialBaud = 38400

// SerialFramer re-implements MIDI's byte-stream framing over a raw UART
// byte source: any byte with the high bit set starts a new message at
// position zero; Program Change dispatches after two bytes with a
// synthesized zero data byte; every other recognized status dispatches
// after three.
type SerialFramer struct {
	ControlPlane *sampler.ControlPlane
	Log          *log.Logger

	// IgnoreAfterBoot discards bytes for this long after Run opens the
	// port.
	IgnoreAfterBoot time.Duration
}

// Run opens portName and frames/dispatches forever, or returns an error
// if the port cannot be opened. A framing error (an unexpected data byte
// arriving with no status byte buffered) resyncs on the next status
// byte rather than terminating the read.
func (f *SerialFramer) Run(portName string) error {
	mode := &serial.Mode{
		BaudRate: serialBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return err
	}
	defer port.Close()

	bootDeadline := time.Now().Add(f.IgnoreAfterBoot)

	var buf [3]byte
	n := 0
	one := make([]byte, 1)

	for {
		if _, err := port.Read(one); err != nil {
			f.Log.Warnf("midi serial: read error on %s: %v", portName, err)
			return err
		}
		b := one[0]

		if b&0x80 != 0 {
			buf[0] = b
			n = 1
			continue
		}
		if n == 0 {
			// MidiByteFramingError: a data byte with no status byte
			// buffered. Resync by waiting for the next status byte.
			continue
		}

		buf[n] = b
		n++

		status := buf[0]
		isProgramChange := status&0xF0 == 0xC0

		switch {
		case isProgramChange && n == 2:
			if !time.Now().Before(bootDeadline) {
				f.ControlPlane.Dispatch(status, buf[1], 0)
			}
			n = 0
		case !isProgramChange && n == 3:
			if !time.Now().Before(bootDeadline) {
				f.ControlPlane.Dispatch(status, buf[1], buf[2])
			}
			n = 0
		}
	}
}
