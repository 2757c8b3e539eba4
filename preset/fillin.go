package preset

import "github.com/quietvoice/gosampler"

// denseFillIn runs the two-pass sweep: left-to-right carry-forward plus
// a first-hit carry-backward within each note row, then a note-level
// carry-forward from the lowest populated note upward for rows left
// entirely empty. Idempotent: running it again on an already-dense map
// changes nothing, since every cell it would touch is already
// populated.
//
// interrupt is polled at the top of every row, per spec.md §4.3's
// "check... at the top of the row sweep"; a nil interrupt never cancels.
// Returns true if the sweep was abandoned partway through.
func denseFillIn(m *sampler.SampleMap, interrupt func() bool) bool {
	for n := 0; n < sampler.NumNotes; n++ {
		if interrupt != nil && interrupt() {
			return true
		}

		var last *sampler.Sample
		firstHit := true

		for v := 0; v < sampler.NumVelocities; v++ {
			s := m.Lookup(n, v)
			if s == nil {
				if last != nil {
					m.Set(n, v, last)
				}
				continue
			}
			if firstHit {
				for back := 0; back < v; back++ {
					m.Set(n, back, s)
				}
				firstHit = false
			}
			last = s
		}

		if last == nil && n > 0 {
			m.CloneRow(n, n-1)
		}
	}
	return false
}
