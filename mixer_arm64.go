//go:build arm64

package sampler

// A NEON-accelerated interpolation loop would pay for itself here - this
// inner loop runs once per live voice per audio callback - but it isn't
// written yet, so the arm64 build still takes the scalar path.
func mixVoiceInto(v *Voice, accL, accR []float32) bool {
	return mixVoiceInto_Scalar(v, accL, accR)
}
