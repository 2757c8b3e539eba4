// Package volume shells out to amixer for system output level control.
// This is the one place os/exec is the only honest answer: spec.md §1
// describes it as a shell-out to an external mixer binary, not a
// library-addressable API, and nothing in the retrieval pack wraps ALSA
// control natively (see DESIGN.md).
package volume

import (
	"fmt"
	"os/exec"
)

// Control is a single amixer simple-control name, e.g. "Master" or "PCM".
type Control struct {
	Name string
}

// Set runs `amixer set <name> <percent>%`.
func (c Control) Set(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	cmd := exec.Command("amixer", "set", c.Name, fmt.Sprintf("%d%%", percent))
	return cmd.Run()
}

// Mute runs `amixer set <name> mute`.
func (c Control) Mute() error {
	cmd := exec.Command("amixer", "set", c.Name, "mute")
	return cmd.Run()
}

// Unmute runs `amixer set <name> unmute`.
func (c Control) Unmute() error {
	cmd := exec.Command("amixer", "set", c.Name, "unmute")
	return cmd.Run()
}
