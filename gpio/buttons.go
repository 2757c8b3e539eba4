// Package gpio wires physical buttons and status LEDs to the control
// plane through github.com/warthog618/go-gpiocdev, the Linux gpiochar
// device binding. One button per channel selects that channel (feeding
// SetActiveChannel); its paired LED lights while selected.
package gpio

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/warthog618/go-gpiocdev"

	sampler "github.com/quietvoice/gosampler"
)

// ButtonLED pairs one channel-select button offset with its status LED
// offset, both on the same gpiochar device.
type ButtonLED struct {
	Channel      int
	ButtonOffset int
	LEDOffset    int
}

// Panel drives a set of channel-select buttons and their LEDs.
type Panel struct {
	Chip         string
	Buttons      []ButtonLED
	ControlPlane *sampler.ControlPlane
	Log          *log.Logger

	lines []*gpiocdev.Line
	leds  []*gpiocdev.Line
}

// Open requests all button and LED lines. Buttons are pulled up and
// read active-low, matching the reference panel's wiring.
func (p *Panel) Open() error {
	p.lines = make([]*gpiocdev.Line, len(p.Buttons))
	p.leds = make([]*gpiocdev.Line, len(p.Buttons))

	for i, b := range p.Buttons {
		line, err := gpiocdev.RequestLine(p.Chip, b.ButtonOffset, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			p.Close()
			return err
		}
		p.lines[i] = line

		led, err := gpiocdev.RequestLine(p.Chip, b.LEDOffset, gpiocdev.AsOutput(0))
		if err != nil {
			p.Close()
			return err
		}
		p.leds[i] = led
	}
	return nil
}

// Close releases every requested line.
func (p *Panel) Close() {
	for _, l := range p.lines {
		if l != nil {
			l.Close()
		}
	}
	for _, l := range p.leds {
		if l != nil {
			l.Close()
		}
	}
}

// PollLoop samples every button at ~50Hz, forever. A falling edge
// (active-low press) selects that button's channel and lights its LED,
// turning the others off.
func (p *Panel) PollLoop() {
	const pollInterval = 20 * time.Millisecond
	prev := make([]int, len(p.lines))
	for i, l := range p.lines {
		if v, err := l.Value(); err == nil {
			prev[i] = v
		} else {
			prev[i] = 1
		}
	}

	for {
		for i, l := range p.lines {
			v, err := l.Value()
			if err != nil {
				continue
			}
			if prev[i] == 1 && v == 0 {
				p.selectButton(i)
			}
			prev[i] = v
		}
		time.Sleep(pollInterval)
	}
}

func (p *Panel) selectButton(i int) {
	b := p.Buttons[i]
	p.ControlPlane.SetActiveChannel(b.Channel)
	for j, led := range p.leds {
		on := 0
		if j == i {
			on = 1
		}
		if err := led.SetValue(on); err != nil {
			p.Log.Warnf("gpio: failed to set LED %d: %v", p.Buttons[j].LEDOffset, err)
		}
	}
}
