package sampler

import (
	"testing"

	clone "github.com/huandu/go-clone/generic"
)

// fixtureMap is a package-level SampleMap fixture, shared read-only across
// tests the way the teacher's helpers_test.go keeps a single testSong
// fixture. Every test that needs its own cells populated clones it first
// with huandu/go-clone/generic, the same idiom the teacher uses to hand
// each subtest an independent Song built from testSong, so one test's
// Set calls can never leak into another's.
var fixtureMap = func() *SampleMap {
	m := NewSampleMap()
	m.Set(60, 100, &Sample{Path: "c4.wav", MidiNote: 60, NFrames: 100000, Data: make([]int16, 200000)})
	return m
}()

func newFixtureMap() *SampleMap {
	return clone.Clone(fixtureMap)
}

func newTestControlPlane(nChannels int) (*ControlPlane, *Engine) {
	engine := NewEngine(80)
	cp := NewControlPlane(engine, nChannels)
	cp.Channels[0].Publish(0, newFixtureMap())
	return cp, engine
}

func TestDispatchNoteOnSpawnsVoiceAndMissingSampleIsSilentlyDropped(t *testing.T) {
	cp, engine := newTestControlPlane(1)

	cp.Dispatch(0x90, 60, 100) // note-on, channel 0
	cp.Dispatch(0x90, 61, 100) // no sample at (61, 100): dropped

	voices, ok := cp.playingNotes[60]
	if !ok || len(voices) != 1 {
		t.Fatalf("playingNotes[60] = %v, want exactly one voice", voices)
	}
	if _, ok := cp.playingNotes[61]; ok {
		t.Fatal("note 61 has no sample and should never reach playingNotes")
	}

	// The voice only becomes visible to the engine once a callback drains
	// the submission queue.
	engine.GenerateAudio(make([]int16, 8))
	if engine.LiveVoiceCount() != 1 {
		t.Fatalf("LiveVoiceCount() = %d, want 1", engine.LiveVoiceCount())
	}
}

func TestSustainScenario(t *testing.T) {
	cp, _ := newTestControlPlane(1)

	cp.Dispatch(0x90, 60, 100)  // noteOn 60@100
	cp.Dispatch(0xB0, 64, 127)  // CC64=127, sustain on
	cp.Dispatch(0x80, 60, 0)    // noteOff 60: deferred by the pedal
	cp.Dispatch(0x90, 60, 100)  // noteOn 60@100 again: second, independent voice
	cp.Dispatch(0xB0, 64, 0)    // CC64=0, sustain off: releases the held voice

	if len(cp.sustainHeld) != 0 {
		t.Fatalf("sustainHeld = %d entries, want 0 after release", len(cp.sustainHeld))
	}

	voices := cp.playingNotes[60]
	if len(voices) != 1 {
		t.Fatalf("playingNotes[60] = %d voices, want 1 (the second note-on)", len(voices))
	}
	if voices[0].isFadeout.Load() {
		t.Fatal("the second note-on's voice should not be fading out")
	}
}

func TestSustainHeldDoesNotFadeUntilPedalReleases(t *testing.T) {
	cp, _ := newTestControlPlane(1)

	cp.Dispatch(0x90, 60, 100)
	cp.Dispatch(0xB0, 64, 127) // sustain on
	cp.Dispatch(0x80, 60, 0)   // noteOff while sustained

	if len(cp.sustainHeld) != 1 {
		t.Fatalf("sustainHeld = %d, want 1 voice deferred", len(cp.sustainHeld))
	}
	if cp.sustainHeld[0].isFadeout.Load() {
		t.Fatal("a sustain-held voice must not fade out before the pedal lifts")
	}

	cp.Dispatch(0xB0, 64, 0) // release the pedal
	if len(cp.sustainHeld) != 0 {
		t.Fatal("sustainHeld should be drained on release")
	}
}

func TestNoteOffWithoutSustainFadesImmediately(t *testing.T) {
	cp, _ := newTestControlPlane(1)

	cp.Dispatch(0x90, 60, 100)
	voice := cp.playingNotes[60][0]

	cp.Dispatch(0x80, 60, 0)
	if !voice.isFadeout.Load() {
		t.Fatal("note-off with no sustain should fade the voice immediately")
	}
	if _, ok := cp.playingNotes[60]; ok {
		t.Fatal("playingNotes[60] should be cleared after note-off")
	}
}

func TestNoteOnWithZeroVelocityActsAsNoteOff(t *testing.T) {
	cp, _ := newTestControlPlane(1)

	cp.Dispatch(0x90, 60, 100)
	voice := cp.playingNotes[60][0]

	cp.Dispatch(0x90, 60, 0) // note-on, velocity 0 == note-off
	if !voice.isFadeout.Load() {
		t.Fatal("note-on with velocity 0 should behave like note-off")
	}
}

func TestProgramChangeRequestsLoad(t *testing.T) {
	cp, _ := newTestControlPlane(1)

	var gotChannel, gotPreset int
	called := false
	cp.Loader = loaderFunc(func(channel, preset int) {
		called = true
		gotChannel, gotPreset = channel, preset
	})

	cp.Dispatch(0xC0, 5, 0)

	if !called {
		t.Fatal("program change should request a load")
	}
	if gotChannel != 0 || gotPreset != 5 {
		t.Errorf("RequestLoad(%d, %d), want (0, 5)", gotChannel, gotPreset)
	}
}

type loaderFunc func(channel, preset int)

func (f loaderFunc) RequestLoad(channel, preset int) { f(channel, preset) }

func TestPolyphonyCapKeepsMostRecentVoices(t *testing.T) {
	const maxPolyphony = 5
	engine := NewEngine(maxPolyphony)

	var submitted []*Voice
	for i := 0; i < maxPolyphony*2; i++ {
		s := &Sample{Path: "fixture", MidiNote: 0, NFrames: 100000, Data: make([]int16, 200000)}
		v := NewVoice(s, 0)
		submitted = append(submitted, v)
		engine.SubmitVoice(v)
	}

	engine.GenerateAudio(make([]int16, 16))

	if engine.LiveVoiceCount() != maxPolyphony {
		t.Fatalf("LiveVoiceCount() = %d, want %d", engine.LiveVoiceCount(), maxPolyphony)
	}
	for i, v := range engine.liveVoices {
		if v != submitted[maxPolyphony+i] {
			t.Fatalf("liveVoices[%d] is not the %d-th submitted voice; want the most recent %d kept in order", i, maxPolyphony+i, maxPolyphony)
		}
	}
}
