// Package quant implements the binary-search starting step and the
// inner loop: the two operations that, together, turn a target bit
// count into a global_gain that makes count_bits fit it.
package quant

import (
	"github.com/sorano-audio/mp3enc/internal/granule"
	"github.com/sorano-audio/mp3enc/internal/sfbt"
)

// CountFunc counts Huffman bits for the granule at its current
// global_gain, exactly the bitcount.CountBits contract. Taking it as a
// parameter (rather than importing bitcount directly) keeps quant
// dependency-free of bitcount's region-search internals and testable
// against a fake.
type CountFunc func(spec *granule.Spectral, info *granule.Info, table sfbt.Table) int

// BinSearchResult is the seed the outer loop starts from: a gain and the
// bit count it produced, plus the final step size (so the next granule
// can start with a tighter adaptive step).
type BinSearchResult struct {
	Gain     int
	Bits     int
	LastStep int
}

// BinSearchStepSize walks global_gain from startGain by a shrinking step
// (4, then 2, then 1: the step halves after every move, whatever its
// direction), clamping to [0,255]. It makes at most three moves and does
// not keep walking until count_bits straddles targetBits.
// This is a seed, not a final answer: it exists only to bound how many
// inner-loop iterations the outer loop needs.
func BinSearchStepSize(spec *granule.Spectral, info *granule.Info, table sfbt.Table, count CountFunc, targetBits, startGain int) BinSearchResult {
	gain := clampGain(startGain)
	step := 4
	info.GlobalGain = gain
	bits := count(spec, info, table)

	for step > 0 {
		if bits > targetBits {
			gain = clampGain(gain + step)
		} else if bits < targetBits {
			gain = clampGain(gain - step)
		} else {
			break
		}
		info.GlobalGain = gain
		bits = count(spec, info, table)
		if step == 1 {
			break
		}
		step /= 2
		if step == 0 {
			step = 1
			// One last half-step pass at step==1, then stop, matching
			// "stop when the step reaches 1" after that pass runs.
			if bits == targetBits {
				break
			}
			if bits > targetBits {
				gain = clampGain(gain + 1)
			} else {
				gain = clampGain(gain - 1)
			}
			info.GlobalGain = gain
			bits = count(spec, info, table)
			break
		}
	}
	return BinSearchResult{Gain: gain, Bits: bits, LastStep: step}
}

func clampGain(g int) int {
	if g < 0 {
		return 0
	}
	if g > 255 {
		return 255
	}
	return g
}

// InnerLoop raises global_gain (monotonically, never lowering it) until
// count_bits(huffBits) <= huffBits, holding scalefactors frozen for the
// duration. Returns the final bit count.
func InnerLoop(spec *granule.Spectral, info *granule.Info, table sfbt.Table, count CountFunc, huffBits int) int {
	bits := count(spec, info, table)
	for bits > huffBits && info.GlobalGain < 255 {
		info.GlobalGain++
		bits = count(spec, info, table)
	}
	return bits
}
