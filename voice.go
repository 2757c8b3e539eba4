package sampler

import (
	"math"
	"sync/atomic"
)

// speedTable holds 2^(i/12) for i in [0, MaxPitchSemitones], the per-
// semitone playback rate multiplier used by the mixer. Computed once at
// package init rather than per-voice, mirroring the teacher's static
// periodTable/fineTuning lookup tables.
var speedTable = func() [MaxPitchSemitones + 1]float64 {
	var t [MaxPitchSemitones + 1]float64
	for i := range t {
		t[i] = math.Pow(2, float64(i)/12)
	}
	return t
}()

// fadeoutCurve is FadeoutFrames entries of ((L-1-i)/(L-1))^6 followed by
// FadeoutFrames zeros. The trailing zero half lets the mixer index
// fadeoutPos+i without a bounds check inside one callback block, since a
// block is always much smaller than FadeoutFrames.
var fadeoutCurve = func() []float32 {
	const l = FadeoutFrames
	c := make([]float32, 2*l)
	for i := 0; i < l; i++ {
		x := float64(l-1-i) / float64(l-1)
		c[i] = float32(math.Pow(x, 6))
	}
	return c
}()

// Voice is one currently-sounding instance of a Sample. Every field here
// is owned and mutated exclusively by the audio callback goroutine, with
// one exception: isFadeout, which the MIDI dispatcher sets to release the
// voice. That single bit is the entire cross-thread surface, so it is an
// atomic.Bool rather than guarded by a mutex the real-time thread would
// have to take.
type Voice struct {
	Sample *Sample
	Note   int // note actually triggered, after transpose

	pos        float64 // fractional source frame cursor, callback-owned
	fadeoutPos int      // frames produced since Fadeout(), callback-owned
	isFadeout  atomic.Bool
}

// NewVoice creates a voice that will start playing its sample from frame
// zero on the next callback it is mixed in.
func NewVoice(s *Sample, note int) *Voice {
	return &Voice{Sample: s, Note: note}
}

// Fadeout marks the voice for release. It only sets a flag: the gain
// curve is applied and the voice is retired by the mixer on a later
// callback. The reference implementation's fadeout() took a "grace"
// sample count that was never actually honored; this rewrite drops the
// parameter entirely rather than carry forward dead behavior.
func (v *Voice) Fadeout() {
	v.isFadeout.Store(true)
}

// rate returns the playback speed multiplier for this voice: semitone
// distance from the sample's native note, clamped to [0, MaxPitchSemitones].
func (v *Voice) rate() float64 {
	semis := v.Note - v.Sample.MidiNote
	if semis < 0 {
		semis = 0
	}
	if semis > MaxPitchSemitones {
		semis = MaxPitchSemitones
	}
	return speedTable[semis]
}
