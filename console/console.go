// Package console is the optional interactive terminal UI: left/right
// arrow keys move the active channel (SetActiveChannel), and a render
// loop prints live voice/preset status. Adapted from the teacher's
// cmd/modplay keyboard+render loop, swapping pattern-row rendering for
// channel/voice status.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"

	sampler "github.com/quietvoice/gosampler"
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

var (
	cyan   = color.New(color.FgCyan).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
	yellow = color.New(color.FgHiBlue).SprintfFunc()
)

// Console renders a one-line, continuously-updated status readout and
// lets the operator step the active channel with the arrow keys.
type Console struct {
	ControlPlane *sampler.ControlPlane
	Engine       *sampler.Engine
	Writer       io.Writer

	ctx            context.Context
	cancelFn       context.CancelFunc
	wg             sync.WaitGroup
	stopOnce       sync.Once
	keyboardDoneCh chan struct{}
}

// New constructs a Console writing to os.Stdout.
func New(cp *sampler.ControlPlane, engine *sampler.Engine) *Console {
	ctx, cancel := context.WithCancel(context.Background())
	return &Console{
		ControlPlane:   cp,
		Engine:         engine,
		Writer:         os.Stdout,
		ctx:            ctx,
		cancelFn:       cancel,
		keyboardDoneCh: make(chan struct{}),
	}
}

// Run installs signal and keyboard handlers and renders status until
// Stop is called or the process receives SIGINT.
func (c *Console) Run() {
	c.setupSignalHandlers()
	c.setupKeyboardHandlers()

	fmt.Fprint(c.Writer, hideCursor)
	defer fmt.Fprint(c.Writer, showCursor)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			select {
			case <-c.keyboardDoneCh:
			case <-time.After(500 * time.Millisecond):
			}
			c.wg.Wait()
			return
		case <-ticker.C:
			c.render()
		}
	}
}

func (c *Console) render() {
	active := c.ControlPlane.ActiveChannel()
	fmt.Fprintf(c.Writer, "%s%schannel %s  preset %s  voices %s   \r",
		escape, "0G",
		green("%d", active),
		cyan("%d", c.ControlPlane.Channels[active].Preset()),
		yellow("%d", c.Engine.LiveVoiceCount()))
}

func (c *Console) setupSignalHandlers() {
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-c.ctx.Done():
		case <-sigch:
			c.Stop()
		}
	}()
}

func (c *Console) setupKeyboardHandlers() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			if key.Code == keys.CtrlC || key.Code == keys.Escape {
				c.Stop()
				return true, nil
			}
			c.handleKeyPress(key)
			return false, nil
		})
		close(c.keyboardDoneCh)
	}()
}

func (c *Console) handleKeyPress(key keys.Key) {
	n := len(c.ControlPlane.Channels)
	active := c.ControlPlane.ActiveChannel()
	switch key.Code {
	case keys.Left:
		if active > 0 {
			c.ControlPlane.SetActiveChannel(active - 1)
		}
	case keys.Right:
		if active < n-1 {
			c.ControlPlane.SetActiveChannel(active + 1)
		}
	}
}

// Stop cancels the render loop. Safe to call more than once.
func (c *Console) Stop() {
	c.stopOnce.Do(c.cancelFn)
}
