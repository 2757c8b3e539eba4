// Package display implements the 7-segment display RPC: a tiny
// net/rpc service over TCP with four methods, and a client satisfying
// sampler.DisplayClient. net/rpc is the standard library's own RPC
// layer; nothing in the retrieval pack brings a messaging/RPC
// dependency that fits a single-process, loopback-only, four-method
// service better (see DESIGN.md).
package display

import (
	"net"
	"net/rpc"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Addr is the well-known loopback address the display RPC listens on.
const Addr = "127.0.0.1:4242"

type Empty struct{}

type NumberArgs struct {
	N        int
	Duration time.Duration
}

type TextArgs struct {
	S        string
	Duration time.Duration
}

// Service is the RPC receiver. Layer2 overlays Layer1 until its
// deadline passes; Render reports what should currently be lit.
type Service struct {
	mu sync.Mutex

	layer1 string

	layer2         string
	layer2Deadline time.Time
	layer2Active   bool

	Log *log.Logger
}

// NewService constructs an empty display service.
func NewService(logger *log.Logger) *Service {
	return &Service{Log: logger}
}

// SetLayer1N implements set_layer1_n(n:int).
func (s *Service) SetLayer1N(args *NumberArgs, _ *Empty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layer1 = formatNumber(args.N)
	return nil
}

// SetLayer1TwoChar implements set_layer1_2c(s:str).
func (s *Service) SetLayer1TwoChar(args *TextArgs, _ *Empty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layer1 = formatTwoChar(args.S)
	return nil
}

// SetLayer2N implements set_layer2_n(n:int, duration_s:int).
func (s *Service) SetLayer2N(args *NumberArgs, _ *Empty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layer2 = formatNumber(args.N)
	s.layer2Deadline = time.Now().Add(args.Duration)
	s.layer2Active = true
	return nil
}

// SetLayer2TwoChar implements set_layer2_2c(s:str, duration_s:int).
func (s *Service) SetLayer2TwoChar(args *TextArgs, _ *Empty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layer2 = formatTwoChar(args.S)
	s.layer2Deadline = time.Now().Add(args.Duration)
	s.layer2Active = true
	return nil
}

// Render returns the two characters currently shown: Layer2 while its
// deadline hasn't passed, Layer1 otherwise.
func (s *Service) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.layer2Active && time.Now().Before(s.layer2Deadline) {
		return s.layer2
	}
	s.layer2Active = false
	if s.layer1 == "" {
		return "  "
	}
	return s.layer1
}

// ListenAndServe registers Service and serves net/rpc connections on
// Addr until an Accept error occurs.
func ListenAndServe(svc *Service) error {
	ln, err := net.Listen("tcp", Addr)
	if err != nil {
		return err
	}
	return Serve(ln, svc)
}

// Serve registers Service on a fresh net/rpc server and accepts
// connections from ln until an Accept error occurs (including ln being
// closed). Split out from ListenAndServe so a test can serve on an
// ephemeral port instead of the well-known Addr.
func Serve(ln net.Listener, svc *Service) error {
	server := rpc.NewServer()
	if err := server.RegisterName("Display", svc); err != nil {
		return err
	}
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go server.ServeConn(conn)
	}
}
