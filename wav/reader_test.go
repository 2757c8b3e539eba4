package wav

import "testing"

func Test24BitDownconversionMinAndMax(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want int16
	}{
		{"min (-2^23)", []byte{0x00, 0x00, 0x80}, -32768},
		{"max (2^23-1)", []byte{0xFF, 0xFF, 0x7F}, 32767},
		{"zero", []byte{0x00, 0x00, 0x00}, 0},
	}
	for _, c := range cases {
		if got := decodeSample(c.in, 24); got != c.want {
			t.Errorf("%s: decodeSample(% x, 24) = %d, want %d", c.name, c.in, got, c.want)
		}
	}
}

func Test16BitPassesThroughVerbatim(t *testing.T) {
	if got := decodeSample([]byte{0xFF, 0x7F}, 16); got != 32767 {
		t.Errorf("got %d, want 32767", got)
	}
	if got := decodeSample([]byte{0x00, 0x80}, 16); got != -32768 {
		t.Errorf("got %d, want -32768", got)
	}
}

func TestDecodeFramesDuplicatesMonoToStereo(t *testing.T) {
	// Two mono 16-bit frames: 100, -100.
	raw := []byte{100, 0, 156, 255}
	data, n := decodeFrames(raw, 16, 1)
	if n != 2 {
		t.Fatalf("NumFrames = %d, want 2", n)
	}
	if data[0] != 100 || data[1] != 100 {
		t.Errorf("frame 0 = (%d, %d), want (100, 100)", data[0], data[1])
	}
	if data[2] != -100 || data[3] != -100 {
		t.Errorf("frame 1 = (%d, %d), want (-100, -100)", data[2], data[3])
	}
}

func TestDecodeFramesStereoInterleaved(t *testing.T) {
	raw := []byte{10, 0, 20, 0, 30, 0, 40, 0} // L=10 R=20, L=30 R=40
	data, n := decodeFrames(raw, 16, 2)
	if n != 2 {
		t.Fatalf("NumFrames = %d, want 2", n)
	}
	want := []int16{10, 20, 30, 40}
	for i, w := range want {
		if data[i] != w {
			t.Errorf("data[%d] = %d, want %d", i, data[i], w)
		}
	}
}

func TestMalformedWaveError(t *testing.T) {
	err := &MalformedWave{Path: "foo.wav", Reason: "missing fmt chunk"}
	want := `malformed wave "foo.wav": missing fmt chunk`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
