package sampler

import (
	"math"
	"sync/atomic"
)

// voiceEvent is the single message type carried on the dispatcher->engine
// queue: a newly-triggered voice to add to the live list. This is the
// "bounded lock-free SPSC queue" the design notes call for in place of
// the reference implementation's unsynchronized liveVoices list - the
// audio callback never blocks waiting for it, and the dispatcher never
// blocks trying to send it.
type voiceEvent struct {
	voice *Voice
}

// Engine is the pull-model voice mixer. GenerateAudio is called from the
// audio device's real-time callback; everything else funnels events to
// it through voiceCh or through the atomic global controls.
//
// liveVoices, scratch, and the two per-voice position fields on Voice are
// touched exclusively by whatever goroutine calls GenerateAudio. No lock
// is held across a callback.
type Engine struct {
	MaxPolyphony int

	voiceCh chan voiceEvent

	liveVoices []*Voice
	scratchL   []float32
	scratchR   []float32

	globalVolumeBits atomic.Uint64 // math.Float64bits(linear gain)
	globalTranspose  atomic.Int32

	liveCount atomic.Int32 // len(liveVoices) after the most recent callback
}

// defaultGlobalVolumeDB is -12 dB (a linear gain of 10^(-12/20)), the
// reference implementation's startup headroom trim.
const defaultGlobalVolumeDB = -12.0

// NewEngine constructs an engine with room for maxPolyphony simultaneous
// voices and the default -12dB global volume trim.
func NewEngine(maxPolyphony int) *Engine {
	e := &Engine{
		MaxPolyphony: maxPolyphony,
		voiceCh:      make(chan voiceEvent, maxPolyphony*4),
		liveVoices:   make([]*Voice, 0, maxPolyphony*2),
	}
	e.SetGlobalVolumeDB(defaultGlobalVolumeDB)
	return e
}

// SetGlobalVolumeDB sets the linear gain applied to the mixed output,
// expressed in dB relative to unity. Safe to call from any goroutine.
func (e *Engine) SetGlobalVolumeDB(db float64) {
	e.setGlobalVolumeLinear(math.Pow(10, db/20))
}

// MultiplyGlobalVolumeDB multiplies the current linear gain by 10^(db/20),
// used by the loader's "%%volume=<dB>" directive which stacks onto
// whatever volume was already set.
func (e *Engine) MultiplyGlobalVolumeDB(db float64) {
	cur := math.Float64frombits(e.globalVolumeBits.Load())
	e.setGlobalVolumeLinear(cur * math.Pow(10, db/20))
}

func (e *Engine) setGlobalVolumeLinear(gain float64) {
	e.globalVolumeBits.Store(math.Float64bits(gain))
}

func (e *Engine) globalVolume() float32 {
	return float32(math.Float64frombits(e.globalVolumeBits.Load()))
}

// SetGlobalTranspose sets the signed semitone shift applied to every
// incoming note before sample lookup.
func (e *Engine) SetGlobalTranspose(semitones int) {
	e.globalTranspose.Store(int32(semitones))
}

// GlobalTranspose returns the current transpose value.
func (e *Engine) GlobalTranspose() int {
	return int(e.globalTranspose.Load())
}

// SubmitVoice enqueues a newly-triggered voice for the next callback to
// pick up. It never blocks: if the queue is momentarily full (more
// simultaneous note-ons arrived than the engine has had a chance to
// drain) the voice is dropped, which is indistinguishable in effect from
// it having lost the polyphony-cap trim a moment later anyway.
func (e *Engine) SubmitVoice(v *Voice) {
	select {
	case e.voiceCh <- voiceEvent{voice: v}:
	default:
	}
}

// LiveVoiceCount reports how many voices were alive as of the most recent
// callback. Intended for tests and status displays, not real-time use.
func (e *Engine) LiveVoiceCount() int {
	return int(e.liveCount.Load())
}

// GenerateAudio is the audio device's pull callback. out holds F stereo
// int16 frames, interleaved L,R. It must never allocate on a steady-state
// path, block, or perform I/O.
func (e *Engine) GenerateAudio(out []int16) {
	frames := len(out) / 2

	e.drainVoiceQueue()
	e.trimPolyphony()

	if cap(e.scratchL) < frames {
		e.scratchL = make([]float32, frames)
		e.scratchR = make([]float32, frames)
	}
	accL := e.scratchL[:frames]
	accR := e.scratchR[:frames]
	for i := range accL {
		accL[i] = 0
		accR[i] = 0
	}

	live := e.liveVoices[:0]
	for _, v := range e.liveVoices {
		dead := mixVoiceInto(v, accL, accR)
		if !dead {
			live = append(live, v)
		}
	}
	e.liveVoices = live
	e.liveCount.Store(int32(len(live)))

	gain := e.globalVolume()
	for i := 0; i < frames; i++ {
		out[i*2+0] = saturateInt16(accL[i] * gain)
		out[i*2+1] = saturateInt16(accR[i] * gain)
	}
}

// drainVoiceQueue pulls every pending voiceEvent without blocking.
func (e *Engine) drainVoiceQueue() {
	for {
		select {
		case ev := <-e.voiceCh:
			e.liveVoices = append(e.liveVoices, ev.voice)
		default:
			return
		}
	}
}

// trimPolyphony enforces MAX_POLYPHONY by a stable keep-tail rule: the
// oldest voices (by insertion order) are dropped silently, keeping only
// the most recently triggered MaxPolyphony. Shifts in place rather than
// reslicing from a fresh backing array, since this runs on the audio
// callback goroutine and must not allocate.
func (e *Engine) trimPolyphony() {
	if e.MaxPolyphony <= 0 || len(e.liveVoices) <= e.MaxPolyphony {
		return
	}
	drop := len(e.liveVoices) - e.MaxPolyphony
	n := copy(e.liveVoices, e.liveVoices[drop:])
	e.liveVoices = e.liveVoices[:n]
}

func saturateInt16(f float32) int16 {
	if f > 32767 {
		return 32767
	}
	if f < -32768 {
		return -32768
	}
	return int16(f)
}
