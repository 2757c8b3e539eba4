package sampler

import "testing"

func stereoSample(frames int) *Sample {
	data := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		data[i*2] = int16(i * 10)
		data[i*2+1] = int16(-i * 10)
	}
	return &Sample{MidiNote: 60, NFrames: frames, Data: data}
}

func TestMixVoiceIntoNonLoopedDies(t *testing.T) {
	s := stereoSample(4)
	v := NewVoice(s, 60) // rate 1.0, no transpose

	accL := make([]float32, 8)
	accR := make([]float32, 8)
	dead := mixVoiceInto_Scalar(v, accL, accR)

	if !dead {
		t.Fatal("voice playing past the end of a non-looped sample should be dead")
	}
}

func TestMixVoiceIntoLoopWraps(t *testing.T) {
	s := stereoSample(10)
	s.Loop = &LoopRegion{Start: 2, End: 8}
	v := NewVoice(s, 60)

	accL := make([]float32, 100)
	accR := make([]float32, 100)
	dead := mixVoiceInto_Scalar(v, accL, accR)

	if dead {
		t.Fatal("a looped voice should never die from running off the end")
	}
}

func TestMixVoiceIntoAppliesFadeout(t *testing.T) {
	s := stereoSample(1000000 / 2)
	v := NewVoice(s, 60)
	v.Fadeout()

	accL := make([]float32, 4)
	accR := make([]float32, 4)
	mixVoiceInto_Scalar(v, accL, accR)

	for i, g := range fadeoutCurve[:4] {
		want := float32(i) * 10 * g
		if accL[i] != want {
			t.Errorf("accL[%d] = %v, want %v (gain %v)", i, accL[i], want, g)
		}
	}
}

func TestMixVoiceIntoDiesAfterFadeoutFramesRegardlessOfLoop(t *testing.T) {
	s := stereoSample(10)
	s.Loop = &LoopRegion{Start: 2, End: 8} // would otherwise play forever
	v := NewVoice(s, 60)
	v.Fadeout()

	accL := make([]float32, 1024)
	accR := make([]float32, 1024)

	dead := false
	produced := 0
	for !dead && produced < FadeoutFrames+2048 {
		dead = mixVoiceInto_Scalar(v, accL, accR)
		produced += len(accL)
	}

	if !dead {
		t.Fatal("a fading voice must die within FadeoutFrames of audio even if its sample loops forever")
	}
	if produced > FadeoutFrames+1024 {
		t.Fatalf("voice outlived the fade-out curve by more than one block: produced %d frames", produced)
	}
}

func TestMixVoiceIntoOrderIndependent(t *testing.T) {
	s1 := stereoSample(20)
	s2 := stereoSample(20)
	v1 := NewVoice(s1, 60)
	v2 := NewVoice(s2, 60)

	accA_L := make([]float32, 5)
	accA_R := make([]float32, 5)
	mixVoiceInto_Scalar(v1, accA_L, accA_R)
	mixVoiceInto_Scalar(v2, accA_L, accA_R)

	v3 := NewVoice(stereoSample(20), 60)
	v4 := NewVoice(stereoSample(20), 60)
	accB_L := make([]float32, 5)
	accB_R := make([]float32, 5)
	mixVoiceInto_Scalar(v4, accB_L, accB_R)
	mixVoiceInto_Scalar(v3, accB_L, accB_R)

	for i := range accA_L {
		if accA_L[i] != accB_L[i] || accA_R[i] != accB_R[i] {
			t.Fatalf("mixing order changed result at frame %d", i)
		}
	}
}
