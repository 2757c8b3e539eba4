package preset

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	sampler "github.com/quietvoice/gosampler"
	"github.com/quietvoice/gosampler/wav"
)

// noOpDisplay discards every call, standing in for the RPC display client
// in tests that don't care about it.
type noOpDisplay struct{}

func (noOpDisplay) SetLayer1Number(int) error      { return nil }
func (noOpDisplay) SetLayer1Text(string) error     { return nil }
func (noOpDisplay) SetLayer2Number(int, int) error { return nil }
func (noOpDisplay) SetLayer2Text(string, int) error { return nil }

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// writeTestWAV writes a minimal stereo 16-bit PCM WAV with nFrames of
// silence, using the package's own writer (the same one cmd/sampledump
// uses to render auditions) so the loader test exercises a real decode
// round trip instead of a hand-built byte fixture.
func writeTestWAV(t *testing.T, path string, nFrames int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w, err := wav.NewWriter(f, 44100)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	interleaved := make([]int16, nFrames*2)
	for i := 0; i < nFrames; i++ {
		interleaved[i*2] = int16(i)
		interleaved[i*2+1] = int16(-i)
	}
	if err := w.WriteFrame(interleaved); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
}

func newTestLoader(t *testing.T, root string) (*Loader, []*sampler.ChannelState, *sampler.Engine) {
	t.Helper()
	engine := sampler.NewEngine(8)
	channels := []*sampler.ChannelState{{}}
	l := New(root, channels, engine, noOpDisplay{}, testLogger())
	return l, channels, engine
}

func waitForPublish(t *testing.T, ch *sampler.ChannelState, preset int) *sampler.SampleMap {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ch.Preset() == preset && ch.SampleMap() != nil {
			return ch.SampleMap()
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("preset %d never published", preset)
	return nil
}

func TestFindPresetDirMatchesNumericPrefix(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"0 piano", "1 strings", "10 drums"} {
		if err := os.Mkdir(filepath.Join(root, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	dir, ok := findPresetDir(root, 1)
	if !ok {
		t.Fatal("expected to find preset 1")
	}
	if filepath.Base(dir) != "1 strings" {
		t.Errorf("found %q, want \"1 strings\"", filepath.Base(dir))
	}

	// "1 strings" must not match a request for preset 10.
	dir, ok = findPresetDir(root, 10)
	if !ok || filepath.Base(dir) != "10 drums" {
		t.Errorf("preset 10 resolved to %q, want \"10 drums\"", dir)
	}
}

func TestLoaderNoDefinitionFallback(t *testing.T) {
	root := t.TempDir()
	presetDir := filepath.Join(root, "0 kit")
	if err := os.Mkdir(presetDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestWAV(t, filepath.Join(presetDir, "60.wav"), 100)

	l, channels, _ := newTestLoader(t, root)
	l.RequestLoad(0, 0)
	m := waitForPublish(t, channels[0], 0)

	if s := m.Lookup(60, 127); s == nil {
		t.Fatal("expected 60.wav mapped to (60, 127)")
	}
	if s := m.Lookup(60, 0); s == nil {
		t.Fatal("carry-backward should have filled (60, 0) from the same sample")
	}
}

func TestLoaderDefinitionDSL(t *testing.T) {
	root := t.TempDir()
	presetDir := filepath.Join(root, "3 piano")
	if err := os.Mkdir(presetDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestWAV(t, filepath.Join(presetDir, "piano60_v100.wav"), 50)
	os.WriteFile(filepath.Join(presetDir, "definition.txt"),
		[]byte("%%volume=-3\n%%transpose=2\npiano%midinote_v%velocity.wav\n"), 0o644)

	l, channels, engine := newTestLoader(t, root)
	l.RequestLoad(0, 3)
	m := waitForPublish(t, channels[0], 3)

	hit := m.Lookup(60, 100)
	if hit == nil {
		t.Fatal("expected (60, 100) populated by the rule")
	}
	// The dense fill-in sweep's note-level carry-forward means every note
	// above 60 inherits its row, since none of them had a direct hit.
	if got := m.Lookup(61, 100); got != hit {
		t.Errorf("(61, 100) = %v, want the note-level carry-forward of (60, 100)", got)
	}
	// Nothing below the first populated note has a predecessor to
	// inherit from, so it stays silent.
	if got := m.Lookup(59, 100); got != nil {
		t.Errorf("(59, 100) = %v, want nil (no predecessor)", got)
	}
	if engine.GlobalTranspose() != 2 {
		t.Errorf("GlobalTranspose() = %d, want 2", engine.GlobalTranspose())
	}
}

func TestLoaderEmptyPresetPublishesNothing(t *testing.T) {
	root := t.TempDir()
	l, channels, _ := newTestLoader(t, root)
	l.RequestLoad(0, 99)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && channels[0].SampleMap() == nil {
		time.Sleep(time.Millisecond)
	}
	if channels[0].SampleMap() != nil {
		t.Fatal("a missing preset directory should never publish a map")
	}
}

func TestLoaderProgramChangeRaceNeverPublishesPartialMap(t *testing.T) {
	root := t.TempDir()
	for i, name := range []string{"0 a", "1 b"} {
		dir := filepath.Join(root, name)
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		writeTestWAV(t, filepath.Join(dir, "60.wav"), 50+i*50)
	}

	l, channels, _ := newTestLoader(t, root)
	l.RequestLoad(0, 0)
	l.RequestLoad(0, 1) // immediately supersedes the first load

	m := waitForPublish(t, channels[0], 1)
	if m.Lookup(60, 127) == nil {
		t.Fatal("final published map should be fully built for preset 1")
	}
}
