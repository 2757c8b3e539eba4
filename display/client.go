package display

import (
	"net/rpc"
	"time"

	"github.com/charmbracelet/log"

	sampler "github.com/quietvoice/gosampler"
)

// Client is a sampler.DisplayClient backed by a live RPC connection.
type Client struct {
	rpc *rpc.Client
}

func (c *Client) SetLayer1Number(n int) error {
	return c.rpc.Call("Display.SetLayer1N", &NumberArgs{N: n}, &Empty{})
}

func (c *Client) SetLayer1Text(s string) error {
	return c.rpc.Call("Display.SetLayer1TwoChar", &TextArgs{S: s}, &Empty{})
}

func (c *Client) SetLayer2Number(n, durationSeconds int) error {
	args := &NumberArgs{N: n, Duration: time.Duration(durationSeconds) * time.Second}
	return c.rpc.Call("Display.SetLayer2N", args, &Empty{})
}

func (c *Client) SetLayer2Text(s string, durationSeconds int) error {
	args := &TextArgs{S: s, Duration: time.Duration(durationSeconds) * time.Second}
	return c.rpc.Call("Display.SetLayer2TwoChar", args, &Empty{})
}

// noOpClient satisfies sampler.DisplayClient by discarding everything;
// used when the display server is unreachable so callers never need a
// nil check.
type noOpClient struct{}

func (noOpClient) SetLayer1Number(int) error      { return nil }
func (noOpClient) SetLayer1Text(string) error     { return nil }
func (noOpClient) SetLayer2Number(int, int) error { return nil }
func (noOpClient) SetLayer2Text(string, int) error { return nil }

// Connect dials addr and returns a live Client, or a silent no-op
// client with a logged warning if the server isn't reachable
// (DisplayServerUnreachable in the error disposition table).
func Connect(addr string, logger *log.Logger) sampler.DisplayClient {
	conn, err := rpc.Dial("tcp", addr)
	if err != nil {
		logger.Warnf("display: server unreachable at %s, disabling display: %v", addr, err)
		return noOpClient{}
	}
	return &Client{rpc: conn}
}
