package ratecontrol

import (
	"github.com/sorano-audio/mp3enc/internal/consts"
	"github.com/sorano-audio/mp3enc/internal/framesize"
	"github.com/sorano-audio/mp3enc/internal/outer"
	"github.com/sorano-audio/mp3enc/internal/reservoir"
)

// VBRParams configures one VBR (rh/mtrh) encoding pass.
type VBRParams struct {
	Quality     int // VBR_q, 0..9; lower is better quality
	MinMeanBits int
	SidePenalty float64 // extra fraction subtracted from a side channel's floor
}

// analogSilencePE is the perceptual-entropy threshold below which a
// channel is treated as carrying no real signal: its search floor
// collapses to the side-info minimum instead of the normal quality
// floor, so an otherwise-silent channel in an active frame doesn't
// carry bits it has no use for.
const analogSilencePE = 1.0

// sideInfoMinBits is the cheapest a granule-channel search floor is
// ever allowed to go: an empty big_values/count1 region still needs
// its region/table-select fields written.
const sideInfoMinBits = 8

// minBits computes the PE-driven lower bound for one channel: a floor
// of max(125, min_mean_bits), reduced further for a penalized (side)
// channel, and raised with perceptual entropy.
func minBits(ch ChannelState, p VBRParams, isSide bool) int {
	floor := p.MinMeanBits
	if floor < 125 {
		floor = 125
	}
	if isSide {
		floor = int(float64(floor) * (1 - p.SidePenalty))
	}
	b := floor + int(ch.PE*0.5)
	if b < floor {
		b = floor
	}
	return b
}

// maxBits computes the upper bound for the binary search: a generous
// multiple of minBits, capped at 4095 bits per granule-channel (the
// side-info field's limit).
func maxBits(lo int) int {
	hi := lo * 6
	if hi > 4095 {
		hi = 4095
	}
	if hi < lo {
		hi = lo
	}
	return hi
}

// EncodeGranuleVBR binary-searches bits in [lo, hi] for one
// granule-channel: each probe runs the outer loop at that target (via
// runOuter, which is responsible for restoring the quantization state
// matching its return value) and, if over_count == 0, the probe is
// remembered and the upper bound shrinks by 32; otherwise the lower
// bound rises by 32. The search stops once the interval is <= 8 bits
// wide, always leaving the last clean quantization (or, failing that,
// the last probe) as the state runOuter most recently left behind.
func EncodeGranuleVBR(lo, hi int, runOuter func(target int) outer.Result) outer.Result {
	var best outer.Result
	haveClean := false
	lastClean := false
	bestTarget := 0

	for hi-lo > 8 {
		mid := (lo + hi) / 2
		r := runOuter(mid)
		lastClean = r.OverCount == 0
		if r.OverCount == 0 {
			haveClean = true
			best = r
			bestTarget = mid
			hi = mid - 32
			if hi < lo {
				hi = lo
			}
		} else {
			lo = mid + 32
			if lo > hi {
				lo = hi
			}
			if !haveClean {
				best = r
			}
		}
	}
	if haveClean && !lastClean {
		// A later probe overwrote the clean state; re-run at its target.
		best = runOuter(bestTarget)
	}
	return best
}

// PickBitrateIndex chooses the lowest bitrate index whose frame budget
// covers totalBits; if none does, returns the highest index (the
// caller must then re-quantize over-budget granules with proportionally
// reduced targets).
func PickBitrateIndex(version consts.Version, sampleRateHz, totalBits int) int {
	for idx := 1; idx <= framesize.NumBitrates; idx++ {
		if framesize.MaxFrameBits(version, idx, sampleRateHz) >= totalBits {
			return idx
		}
	}
	return framesize.NumBitrates
}

// vbrPrepare derives each channel's binary-search floor before
// quantization: a mid/side pair discounts the side channel (index 1)
// via SidePenalty, and a channel whose perceptual entropy is
// negligible searches from the side-info minimum instead of the
// quality floor.
func vbrPrepare(channels []ChannelState, p VBRParams) []int {
	los := make([]int, len(channels))
	for i, ch := range channels {
		if ch.PE < analogSilencePE {
			los[i] = sideInfoMinBits
			continue
		}
		isSide := len(channels) == 2 && i == 1
		los[i] = minBits(ch, p, isSide)
	}
	return los
}

// rescaleOverBudget re-runs the outer loop once more for every channel
// when the frame's combined cheapest-clean bits still overflow the
// reservoir-adjusted frame capacity: each channel's prior spend is
// scaled down proportionally to its share of the overflow, the
// proportional re-quantization get_framebits falls back to when even
// the cheapest clean candidates don't fit.
func rescaleOverBudget(p FrameParams, channels []ChannelState, startGain []int, part23 []int, maxFrameBits int) []outer.Result {
	total := 0
	for _, l := range part23 {
		total += l
	}
	results := make([]outer.Result, len(channels))
	if total <= 0 {
		return results
	}
	for i, ch := range channels {
		target := part23[i] * maxFrameBits / total
		results[i] = outer.Loop(ch.Info, ch.Spectral, p.Table, target, startGain[i], p.Opt)
	}
	return results
}

// EncodeVBR runs the VBR (rh/mtrh) driver for one frame: vbrPrepare
// derives each channel's search floor (folding in mid/side discounting
// and analog-silence detection), an independent binary search
// (EncodeGranuleVBR) finds each channel's cheapest clean quantization,
// and if the combined spend still overflows the frame's
// reservoir-adjusted capacity every channel is proportionally
// re-quantized once more. The frame's own bitrate index is picked from
// the bits actually spent, for a caller building a VBR/ABR-style
// header. Reservoir adjustment happens once, at finalization
// (finalize.Granule), matching EncodeCBR/EncodeABR: granule-level
// part2_3_length can still move after best_huffman_divide re-runs, so
// adjusting it here would double-count.
func EncodeVBR(res *reservoir.Reservoir, p FrameParams, vp VBRParams, channels []ChannelState, startGain []int) FrameResult {
	frameBits := framesize.MaxFrameBits(p.Version, p.BitrateIndex, p.SampleRateHz)
	meanBits := framesize.MeanBits(p.Version, p.BitrateIndex, p.SampleRateHz) / len(channels)
	maxFrameBits := res.FrameBegin(meanBits, frameBits)

	los := vbrPrepare(channels, vp)

	results := make([]outer.Result, len(channels))
	part23 := make([]int, len(channels))
	for i, ch := range channels {
		lo := los[i]
		hi := maxBits(lo)
		info, spec, table, opt, gain := ch.Info, ch.Spectral, p.Table, p.Opt, startGain[i]
		runOuter := func(target int) outer.Result {
			return outer.Loop(info, spec, table, target, gain, opt)
		}
		results[i] = EncodeGranuleVBR(lo, hi, runOuter)
		part23[i] = results[i].Part2_3Bits
	}

	total := 0
	for _, l := range part23 {
		total += l
	}
	if total > maxFrameBits {
		results = rescaleOverBudget(p, channels, startGain, part23, maxFrameBits)
		for i := range part23 {
			part23[i] = results[i].Part2_3Bits
		}
	}

	out := FrameResult{OverCounts: make([]int, len(channels))}
	for i, r := range results {
		out.OverCounts[i] = r.OverCount
		out.TotalBits += r.Part2_3Bits
	}
	out.BitrateIndex = PickBitrateIndex(p.Version, p.SampleRateHz, out.TotalBits)
	return out
}
