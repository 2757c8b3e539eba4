// Package sampler implements an embedded polyphonic sampler: it mixes
// pre-loaded WAV samples into a stereo int16 stream in real time from a
// pull-model audio callback, driven by MIDI note/sustain/program-change
// events and preset banks loaded from a file hierarchy.
package sampler

const (
	// NumNotes and NumVelocities bound the dense (note, velocity) lookup
	// table every SampleMap carries.
	NumNotes      = 128
	NumVelocities = 128

	// MaxPitchSemitones is the highest upward transposition the mixer
	// will apply; anything past it clamps.
	MaxPitchSemitones = 83

	// FadeoutFrames is the length of the fade-out gain curve. A voice
	// produces at most this many frames of decaying audio after
	// Fadeout() is called before the mixer marks it dead.
	FadeoutFrames = 30000
)

// LoopRegion describes a sample-relative playback loop: once the read
// cursor reaches End, it wraps back to Start and playback continues for
// as long as the voice is held.
type LoopRegion struct {
	Start int
	End   int
}

// Sample is an immutable, decoded audio sample. Once constructed by the
// WAV reader it is never mutated; voices and SampleMap cells share the
// same pointer, so its lifetime is governed by whichever of them holds
// it longest.
type Sample struct {
	Path      string
	MidiNote  int
	Velocity  int
	Data      []int16 // interleaved stereo, len == 2*NFrames
	NFrames   int
	Loop      *LoopRegion // nil if the sample does not loop
}

// Frames returns the usable playback length in frames: LoopEnd+2 guard
// frames when looped (so interpolation can read one frame past the wrap
// point), or the full decoded length otherwise.
func (s *Sample) Frames() int {
	if s.Loop != nil {
		return s.Loop.End + 2
	}
	return s.NFrames
}

// SampleMap is the dense 128x128 (note, velocity) lookup table for one
// MIDI channel. It is built by the preset loader in isolation, then
// published by an atomic pointer swap (see Engine/ChannelState) and never
// mutated afterward. A nil cell means "no sample" (NONE).
type SampleMap struct {
	cells [NumNotes][NumVelocities]*Sample
}

// NewSampleMap returns an empty map; every cell reads back as NONE (nil)
// until Set is called.
func NewSampleMap() *SampleMap {
	return &SampleMap{}
}

// Lookup returns the sample at (note, velocity), or nil if that cell is
// unpopulated or the coordinates fall outside the table.
func (m *SampleMap) Lookup(note, velocity int) *Sample {
	if m == nil || note < 0 || note >= NumNotes || velocity < 0 || velocity >= NumVelocities {
		return nil
	}
	return m.cells[note][velocity]
}

// Set populates a cell. Only the loader, while the map is still private
// to its goroutine, may call this.
func (m *SampleMap) Set(note, velocity int, s *Sample) {
	m.cells[note][velocity] = s
}

// CloneRow copies every velocity cell from note src into note dst. Used
// by the loader's note-level carry-forward rule.
func (m *SampleMap) CloneRow(dst, src int) {
	m.cells[dst] = m.cells[src]
}
