package blend

import "github.com/kailas-cloud/blendex/internal/domain/record"

// plan is the ordered source assignment of the interleaved prefix.
type plan struct {
	slots     []record.Source
	primary   int // primary records consumed
	secondary int // secondary records consumed
}

// interleave assigns prefix slots given how many records each source can supply.
// It is a pure function of its inputs and never exceeds blendLimit slots.
//
// Layout: boostPosition primary, boostCount secondary, primary up to the end of
// the first block, then alternating blocks of secondary and primary.
func interleave(nPrimary, nSecondary int, s settings) plan {
	p := plan{slots: make([]record.Source, 0, min(s.blendLimit, nPrimary+nSecondary))}

	take := func(src record.Source, n int) {
		for i := 0; i < n && len(p.slots) < s.blendLimit; i++ {
			switch src {
			case record.SourcePrimary:
				if p.primary >= nPrimary {
					return
				}
				p.primary++
			case record.SourceSecondary:
				if p.secondary >= nSecondary {
					return
				}
				p.secondary++
			}
			p.slots = append(p.slots, src)
		}
	}

	take(record.SourcePrimary, s.boostPosition)
	take(record.SourceSecondary, s.boostCount)
	take(record.SourcePrimary, max(0, s.blockSize-s.boostPosition))

	for len(p.slots) < s.blendLimit && (p.primary < nPrimary || p.secondary < nSecondary) {
		take(record.SourceSecondary, s.blockSize)
		take(record.SourcePrimary, s.blockSize)
	}
	return p
}
