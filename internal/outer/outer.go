// Package outer implements the outer loop: the iterative
// amplify-and-requantize search that drives a granule's quantization
// toward a target bit count while trying to keep every scalefactor
// band's noise below its masking threshold.
package outer

import (
	"github.com/sorano-audio/mp3enc/internal/amp"
	"github.com/sorano-audio/mp3enc/internal/bitcount"
	"github.com/sorano-audio/mp3enc/internal/compare"
	"github.com/sorano-audio/mp3enc/internal/consts"
	"github.com/sorano-audio/mp3enc/internal/granule"
	"github.com/sorano-audio/mp3enc/internal/noise"
	"github.com/sorano-audio/mp3enc/internal/quant"
	"github.com/sorano-audio/mp3enc/internal/sfbt"
)

// Options configures one outer-loop run; these come from encoder-wide
// configuration and are constant across the call.
type Options struct {
	Version      consts.Version // selects the scalefactor slen/scalefac_compress scheme
	Mode         compare.Mode
	NoiseShaping bool // if false, accept the first inner-loop result unconditionally
	SingleWorst  bool // amplify only the single worst band per pass instead of all offenders
	VBRExtraBits bool // stop early if the highest SFB is distorted (VBR's sfb21-extra gate)
}

// Result is what the outer loop hands back to its caller once it has
// restored the best candidate found.
type Result struct {
	OverCount    int
	RealBits     int
	Part2_3Bits  int
	LastGainStep int
}

const maxAge = 3
const maxIterations = 7

// Loop runs the outer loop to completion: seed global_gain, then
// alternately run the inner loop, score the result, and amplify until
// a stopping condition fires, finally restoring the best candidate.
func Loop(info *granule.Info, spec *granule.Spectral, table sfbt.Table, targetBits, startGain int, opt Options) Result {
	count := func(s *granule.Spectral, i *granule.Info, t sfbt.Table) int {
		return bitcount.CountBits(s, i, t)
	}

	seed := quant.BinSearchStepSize(spec, info, table, count, targetBits, startGain)
	info.GlobalGain = seed.Gain

	var best granule.Snapshot
	haveBest := false
	var bestResult noise.Result
	bestRealBits := 0
	age := 0
	iterations := 0

	for {
		if !scaleBitcount(info, spec, opt.Version) {
			break
		}
		huffBits := targetBits - info.Part2Length
		if huffBits < 0 {
			break
		}

		realBits := quant.InnerLoop(spec, info, table, count, huffBits)

		var nr noise.Result
		accept := true
		if opt.NoiseShaping {
			nr = noise.CalcNoise(info, spec, table)
			if haveBest {
				accept = opt.Mode.Better(nr, bestResult, true)
			}
		}

		if accept {
			best = granule.Save(*info, *spec)
			bestResult = nr
			bestRealBits = realBits
			haveBest = true
			age = 0
		} else {
			age++
		}

		iterations++

		if !opt.NoiseShaping {
			break
		}
		if haveBest && bestResult.OverCount == 0 && age >= maxAge {
			break
		}
		if iterations > maxIterations && bestResult.OverCount == 0 {
			break
		}
		if opt.VBRExtraBits && highestSfbDistorted(spec, table, info) {
			break
		}

		ampRes := amp.AmpScalefacBands(info, spec, table, opt.SingleWorst)
		if !ampRes.Amplified {
			if !promote(info, spec, table) {
				break
			}
		}
	}

	if haveBest {
		best.Restore(info, spec)
	}
	info.Part2_3Length = info.Part2Length + bestRealBits
	return Result{
		OverCount:    bestResult.OverCount,
		RealBits:     bestRealBits,
		Part2_3Bits:  info.Part2_3Length,
		LastGainStep: seed.LastStep,
	}
}

// scaleBitcount dispatches to the MPEG-1 or LSF (MPEG-2/2.5) scalefactor
// packing scheme; the two use different scalefac_compress tables and
// cannot share a code path.
func scaleBitcount(info *granule.Info, spec *granule.Spectral, version consts.Version) bool {
	if version == consts.Version1 {
		return amp.ScaleBitcount(info, spec)
	}
	return amp.ScaleBitcountLsf(info, spec)
}

func highestSfbDistorted(spec *granule.Spectral, table sfbt.Table, info *granule.Info) bool {
	if info.BlockType == consts.BlockTypeShort {
		top := table.NumShortBands() - 1
		if top < 0 {
			return false
		}
		for win := 0; win < 3; win++ {
			if spec.Distort[win+1][top] > 1.0 {
				return true
			}
		}
		return false
	}
	top := table.NumLongBands() - 1
	if top < 0 {
		return false
	}
	return spec.Distort[0][top] > 1.0
}

// promote tries scale-scale promotion first, then subblock-gain
// escalation on every short-block window; returns false when neither
// can make further progress (scalefactors can no longer be encoded).
func promote(info *granule.Info, spec *granule.Spectral, table sfbt.Table) bool {
	if info.ScalefacScale == 0 {
		amp.IncScalefacScale(info, spec, table)
		return true
	}
	if info.BlockType != consts.BlockTypeShort {
		return false
	}
	progressed := false
	for win := 0; win < 3; win++ {
		if amp.IncSubblockGain(info, spec, table, win) {
			progressed = true
		}
	}
	return progressed
}
