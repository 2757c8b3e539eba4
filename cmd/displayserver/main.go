// Command displayserver runs the 7-segment display RPC service standalone,
// the off-host (or separately-run on-host) process spec.md §6 describes:
// a loopback TCP listener the sampler's display.Client dials into, kept
// out of the sampler process itself so the display hardware driver can
// be swapped or restarted independently.
package main

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/quietvoice/gosampler/display"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	svc := display.NewService(logger)
	logger.Infof("display: listening on %s", display.Addr)
	if err := display.ListenAndServe(svc); err != nil {
		logger.Fatalf("display: %v", err)
	}
}
