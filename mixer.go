//go:build !arm64

package sampler

// mixVoiceInto resamples and mixes one voice into the float32 scratch
// accumulators, applying fade-out and loop wrap as needed. It reports
// whether the voice is now exhausted and should be dropped from the live
// list. Build-tag-split from an ARM64 fast path the way the teacher
// splits mixChannelsMono/Stereo across mixer_scalar.go / mixer_arm64.go.
func mixVoiceInto(v *Voice, accL, accR []float32) bool {
	return mixVoiceInto_Scalar(v, accL, accR)
}
