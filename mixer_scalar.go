package sampler

// mixVoiceInto_Scalar is the non-SIMD interpolation/mix inner loop. It
// advances v.pos in fractional steps of v.rate(), linearly interpolating
// between the bracketing source frames, accumulating into accL/accR, and
// applying the fade-out curve when the voice is releasing. Returns true
// once the voice has nothing left to produce (end of a non-looped sample,
// or the fade-out curve has fully decayed).
func mixVoiceInto_Scalar(v *Voice, accL, accR []float32) bool {
	s := v.Sample
	data := s.Data
	nFrames := s.Frames()
	rate := v.rate()
	fading := v.isFadeout.Load()

	// physFrames is the actual length of the backing buffer. nFrames
	// (Frames(), which for a looped sample is Loop.End+2) is supposed to
	// never exceed it, but a bogus loop region from untrusted file data
	// is the one input the audio callback can never be allowed to panic
	// on, so lo/hi are clamped against the physical buffer too.
	physFrames := len(data) / 2

	p := v.pos
	fadeoutPos := v.fadeoutPos
	produced := 0
	dead := false

	for i := range accL {
		lo := int(p)
		hi := lo + 1
		frac := float32(p - float64(lo))
		if hi >= nFrames {
			hi = nFrames - 1
		}
		if lo >= nFrames {
			lo = nFrames - 1
		}
		if hi >= physFrames {
			hi = physFrames - 1
		}
		if lo >= physFrames {
			lo = physFrames - 1
		}
		if lo < 0 {
			lo = 0
		}
		if hi < 0 {
			hi = 0
		}

		l0, r0 := float32(data[lo*2]), float32(data[lo*2+1])
		l1, r1 := float32(data[hi*2]), float32(data[hi*2+1])
		left := l0 + (l1-l0)*frac
		right := r0 + (r1-r0)*frac

		if fading {
			gain := fadeoutCurve[fadeoutPos+i]
			left *= gain
			right *= gain
		}

		accL[i] += left
		accR[i] += right
		produced = i + 1

		p += rate
		if p >= float64(nFrames) {
			if s.Loop != nil {
				p = float64(s.Loop.Start) + (p - float64(s.Loop.End))
			} else {
				dead = true
				break
			}
		}
	}

	v.pos = p
	if fading {
		v.fadeoutPos = fadeoutPos + produced
		if v.fadeoutPos >= FadeoutFrames {
			dead = true
		}
	}

	return dead
}
