package sampler

import (
	"sync"
	"sync/atomic"
)

// PresetLoader is the asynchronous counterpart the control plane hands
// program-change events to. The preset package implements this; it lives
// here as an interface so this package never imports the loader (which
// in turn imports this package for Sample/SampleMap).
type PresetLoader interface {
	// RequestLoad starts (or restarts) loading preset for channel. It
	// must return immediately; the load itself runs on its own
	// goroutine and eventually calls ChannelState.Publish.
	RequestLoad(channel, preset int)
}

// ChannelState is the per-channel-in-use state: which preset is selected
// and which SampleMap is currently live. The map pointer is swapped
// atomically by the loader on publish; nothing ever mutates a published
// map in place.
type ChannelState struct {
	preset    atomic.Int32
	sampleMap atomic.Pointer[SampleMap]
}

// Preset returns the channel's current preset number.
func (c *ChannelState) Preset() int { return int(c.preset.Load()) }

// SampleMap returns the channel's currently published map, or nil if
// nothing has been loaded yet.
func (c *ChannelState) SampleMap() *SampleMap { return c.sampleMap.Load() }

// Publish atomically swaps in a freshly built SampleMap. Voices already
// playing from the previous map keep their own Sample reference; nothing
// here touches them.
func (c *ChannelState) Publish(preset int, m *SampleMap) {
	c.preset.Store(int32(preset))
	c.sampleMap.Store(m)
}

// ControlPlane owns everything the MIDI dispatcher mutates and the audio
// engine does not: per-channel preset/map state, the sustain pedal, and
// the bookkeeping needed to route note-offs and pedal releases to the
// right voices. It is safe for concurrent use by multiple MIDI reader
// goroutines (one per input port); none of this runs on the audio
// thread, so a plain mutex is fine here even though the engine itself
// may never take one.
type ControlPlane struct {
	Engine  *Engine
	Loader  PresetLoader
	Display DisplayClient

	// MaxPresets bounds the preset numbers a program change can select
	// (0..MaxPresets-1); 0 means unbounded. Set from config.MaxPresets.
	MaxPresets int

	Channels []*ChannelState

	mu            sync.Mutex
	sustain       bool
	playingNotes  map[int][]*Voice
	sustainHeld   []*Voice
	activeChannel int
}

// DisplayClient is the subset of the 7-segment display RPC the control
// plane and loader need; see package display for the real
// implementation and a no-op fallback.
type DisplayClient interface {
	SetLayer1Number(n int) error
	SetLayer1Text(s string) error
	SetLayer2Number(n, durationSeconds int) error
	SetLayer2Text(s string, durationSeconds int) error
}

// NewControlPlane constructs a control plane for nChannels MIDI channels,
// each starting unloaded (preset 0 is expected to be requested by main
// once a loader is wired in).
func NewControlPlane(engine *Engine, nChannels int) *ControlPlane {
	channels := make([]*ChannelState, nChannels)
	for i := range channels {
		channels[i] = &ChannelState{}
	}
	return &ControlPlane{
		Engine:       engine,
		Channels:     channels,
		playingNotes: make(map[int][]*Voice),
	}
}

// SetActiveChannel selects which channel subsequent integrator-driven
// operations (the interactive console, GPIO buttons) target. The MIDI
// channel byte in incoming messages always addresses channels directly
// and is unaffected by this; it exists because the reference firmware's
// GPIO channel-select switch referenced undefined constants, and the
// spec leaves the input mechanism to the integrator (see DESIGN.md).
func (cp *ControlPlane) SetActiveChannel(i int) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if i >= 0 && i < len(cp.Channels) {
		cp.activeChannel = i
	}
}

// ActiveChannel returns the channel selected by SetActiveChannel.
func (cp *ControlPlane) ActiveChannel() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.activeChannel
}

// Dispatch decodes a 2- or 3-byte MIDI channel message and applies it.
// data2 should be 0 for messages that only carry one data byte (program
// change); callers reading 2-byte wire messages must synthesize that
// zero themselves (see midi.SerialFramer).
func (cp *ControlPlane) Dispatch(status byte, data1, data2 byte) {
	kind := status >> 4
	channel := int(status & 0x0F)
	if channel < 0 || channel >= len(cp.Channels) {
		return
	}

	switch kind {
	case 0x9: // note-on, or note-off if velocity is zero
		if data2 == 0 {
			cp.noteOff(channel, data1)
		} else {
			cp.noteOn(channel, data1, data2)
		}
	case 0x8:
		cp.noteOff(channel, data1)
	case 0xB:
		if data1 == 64 {
			cp.controlChange64(channel, data2)
		}
	case 0xC:
		cp.programChange(channel, int(data1))
	}
}

func (cp *ControlPlane) noteOn(channel int, data1, velocity byte) {
	note := int(data1) + cp.Engine.GlobalTranspose()
	m := cp.Channels[channel].SampleMap()
	s := m.Lookup(note, int(velocity))
	if s == nil {
		// SampleMissing: silently drop the note, per spec error table.
		return
	}

	v := NewVoice(s, note)

	cp.mu.Lock()
	cp.playingNotes[note] = append(cp.playingNotes[note], v)
	cp.mu.Unlock()

	cp.Engine.SubmitVoice(v)
}

func (cp *ControlPlane) noteOff(channel int, data1 byte) {
	note := int(data1) + cp.Engine.GlobalTranspose()

	cp.mu.Lock()
	voices, ok := cp.playingNotes[note]
	if !ok {
		cp.mu.Unlock()
		return
	}
	delete(cp.playingNotes, note)
	sustain := cp.sustain
	if sustain {
		cp.sustainHeld = append(cp.sustainHeld, voices...)
	}
	cp.mu.Unlock()

	if !sustain {
		for _, v := range voices {
			v.Fadeout()
		}
	}
}

func (cp *ControlPlane) controlChange64(channel int, value byte) {
	held := value >= 64

	cp.mu.Lock()
	cp.sustain = held
	var released []*Voice
	if !held {
		released = cp.sustainHeld
		cp.sustainHeld = nil
	}
	cp.mu.Unlock()

	for _, v := range released {
		v.Fadeout()
	}
}

func (cp *ControlPlane) programChange(channel int, preset int) {
	if cp.Loader == nil {
		return
	}
	if cp.MaxPresets > 0 {
		preset %= cp.MaxPresets
	}
	cp.Loader.RequestLoad(channel, preset)
}
