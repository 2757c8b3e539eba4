// Package preset implements the asynchronous preset loader: directory
// resolution, the definition.txt DSL, the dense fill-in sweep, and
// cancellation when a new program change arrives mid-load.
package preset

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	sampler "github.com/quietvoice/gosampler"
	"github.com/quietvoice/gosampler/wav"
)

// channelLoad tracks the in-flight load (if any) for one channel, so a
// new RequestLoad can cancel it and wait for it to actually stop before
// starting fresh.
type channelLoad struct {
	mu        sync.Mutex
	interrupt atomic.Bool
	done      chan struct{}
}

// Loader builds SampleMaps from a root samples directory and publishes
// them onto a ControlPlane's ChannelState. It implements
// sampler.PresetLoader.
type Loader struct {
	SamplesDir string
	Channels   []*sampler.ChannelState
	Engine     *sampler.Engine
	Display    sampler.DisplayClient
	Log        *log.Logger

	loadStates []*channelLoad
}

// New constructs a Loader. samplesDir falling back to "." matches
// spec.md's "fallback to the current directory if the root is empty".
func New(samplesDir string, channels []*sampler.ChannelState, engine *sampler.Engine, display sampler.DisplayClient, logger *log.Logger) *Loader {
	if samplesDir == "" {
		samplesDir = "."
	}
	states := make([]*channelLoad, len(channels))
	for i := range states {
		states[i] = &channelLoad{}
	}
	return &Loader{
		SamplesDir: samplesDir,
		Channels:   channels,
		Engine:     engine,
		Display:    display,
		Log:        logger,
		loadStates: states,
	}
}

// RequestLoad cancels any load already in flight for channel, waits for
// it to stop, then starts loading preset in a new goroutine. Loads on
// different channels proceed independently.
func (l *Loader) RequestLoad(channel, preset int) {
	if channel < 0 || channel >= len(l.Channels) {
		return
	}
	state := l.loadStates[channel]

	state.mu.Lock()
	if state.done != nil {
		state.interrupt.Store(true)
		prevDone := state.done
		state.mu.Unlock()
		<-prevDone
		state.mu.Lock()
	}
	state.interrupt.Store(false)
	done := make(chan struct{})
	state.done = done
	state.mu.Unlock()

	go func() {
		defer close(done)
		l.load(channel, preset, state)
	}()
}

func (l *Loader) load(channel, preset int, state *channelLoad) {
	l.Display.SetLayer2Text("LO", 2)
	l.Log.Infof("channel %d: loading preset %d", channel, preset)

	dir, ok := findPresetDir(l.SamplesDir, preset)
	if !ok {
		l.Log.Warnf("channel %d: preset %d directory not found", channel, preset)
		l.Display.SetLayer2Text("EP", 2)
		l.Display.SetLayer1Number(preset)
		return
	}

	m, volumeDB, hasVolume, transpose, hasTranspose, cancelled := l.buildMap(channel, dir, state, 0)
	if cancelled {
		l.Log.Infof("channel %d: load of preset %d cancelled", channel, preset)
		return
	}

	if state.interrupt.Load() {
		l.Log.Infof("channel %d: load of preset %d cancelled before fill-in", channel, preset)
		return
	}
	if cancelled := denseFillIn(m, state.interrupt.Load); cancelled {
		l.Log.Infof("channel %d: load of preset %d cancelled during fill-in", channel, preset)
		return
	}

	if hasVolume {
		l.Engine.MultiplyGlobalVolumeDB(volumeDB)
	}
	if hasTranspose {
		l.Engine.SetGlobalTranspose(transpose)
	}

	l.Channels[channel].Publish(preset, m)
	l.Display.SetLayer1Number(preset)
	l.Log.Infof("channel %d: preset %d loaded", channel, preset)
}

// buildMap loads dir's definition.txt (if present) and populates a
// SampleMap from its rules, or falls back to "<N>.wav -> (N,127)" when
// there is no definition file. depth guards against %%chain cycles.
func (l *Loader) buildMap(channel int, dir string, state *channelLoad, depth int) (m *sampler.SampleMap, volumeDB float64, hasVolume bool, transpose int, hasTranspose bool, cancelled bool) {
	m = sampler.NewSampleMap()
	if depth > 8 {
		l.Log.Warnf("channel %d: %%%%chain nesting too deep in %s, stopping", channel, dir)
		return m, 0, false, 0, false, false
	}

	defPath := filepath.Join(dir, "definition.txt")
	f, err := os.Open(defPath)
	if err != nil {
		l.noDefinitionFallback(channel, dir, m, state)
		return m, 0, false, 0, false, state.interrupt.Load()
	}
	defer f.Close()

	def, warnings := parseDefinition(f)
	for _, w := range warnings {
		l.Log.Warnf("channel %d: %s: %s", channel, defPath, w)
	}

	if def.ChainPreset >= 0 {
		chainDir, ok := findPresetDir(l.SamplesDir, def.ChainPreset)
		if ok {
			base, _, _, _, _, c := l.buildMap(channel, chainDir, state, depth+1)
			if c {
				return m, 0, false, 0, false, true
			}
			m = base
		} else {
			l.Log.Warnf("channel %d: %%%%chain=%d not found", channel, def.ChainPreset)
		}
	}

	if state.interrupt.Load() {
		return m, 0, false, 0, false, true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		l.Log.Warnf("channel %d: cannot read %s: %v", channel, dir, err)
		return m, def.VolumeDB, def.VolumeDB != 0, def.Transpose, def.HasTranspose, false
	}

	for _, entry := range entries {
		if state.interrupt.Load() {
			return m, def.VolumeDB, def.VolumeDB != 0, def.Transpose, def.HasTranspose, true
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		for _, rule := range def.Rules {
			midinote, velocity, ok := rule.match(name)
			if !ok {
				continue
			}
			s, err := l.loadSample(filepath.Join(dir, name), midinote, velocity)
			if err != nil {
				l.Log.Warnf("channel %d: %s: %v", channel, name, err)
				break
			}
			velocity = applyVelocityCurve(def.VelocityCurve, velocity)
			m.Set(midinote, velocity, s)
			break
		}
	}

	return m, def.VolumeDB, def.VolumeDB != 0, def.Transpose, def.HasTranspose, false
}

// noDefinitionFallback implements "<N>.wav -> (N, 127)" for N in
// [0, 126] when no definition.txt is present.
func (l *Loader) noDefinitionFallback(channel int, dir string, m *sampler.SampleMap, state *channelLoad) {
	for n := 0; n <= 126; n++ {
		if state.interrupt.Load() {
			return
		}
		path := filepath.Join(dir, fmt.Sprintf("%d.wav", n))
		if _, err := os.Stat(path); err != nil {
			continue
		}
		s, err := l.loadSample(path, n, 127)
		if err != nil {
			l.Log.Warnf("channel %d: %s: %v", channel, path, err)
			continue
		}
		m.Set(n, 127, s)
	}
}

func (l *Loader) loadSample(path string, midinote, velocity int) (*sampler.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snd, err := wav.Read(f, path)
	if err != nil {
		return nil, err
	}

	s := &sampler.Sample{
		Path:     path,
		MidiNote: midinote,
		Velocity: velocity,
		Data:     snd.Data,
		NFrames:  snd.NumFrames,
	}
	if snd.Loop != nil {
		s.Loop = &sampler.LoopRegion{Start: snd.Loop.Start, End: snd.Loop.End}
	}
	return s, nil
}

// findPresetDir returns the first entry under root whose name begins
// with the ASCII decimal of preset followed by a single space.
func findPresetDir(root string, preset int) (string, bool) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false
	}
	prefix := fmt.Sprintf("%d ", preset)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			return filepath.Join(root, name), true
		}
	}
	return "", false
}

// applyVelocityCurve reshapes a raw 0..127 velocity into the index used
// for SampleMap insertion. "linear" is the identity; "tight" compresses
// values toward the 0/127 extremes, so a handful of velocity-layered
// samples covers the dynamic range more aggressively.
func applyVelocityCurve(curve string, v int) int {
	if curve != "tight" {
		return v
	}
	t := float64(v) / 127
	shifted := t - 0.5
	sign := 1.0
	if shifted < 0 {
		sign = -1.0
	}
	mag := math.Sqrt(math.Abs(shifted) * 2 / 1) / 2
	t2 := 0.5 + sign*mag
	out := int(math.Round(t2 * 127))
	if out < 0 {
		out = 0
	}
	if out > 127 {
		out = 127
	}
	return out
}
