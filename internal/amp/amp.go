// Package amp implements scalefactor amplification and the two escape
// hatches the outer loop reaches for when a plain amplification pass
// can no longer raise a scalefactor within its bit allocation:
// promoting scalefac_scale, and, for short blocks, raising a window's
// subblock_gain. It also counts the bits a scalefactor set would need
// to store, which gates whether a candidate can even be encoded.
package amp

import (
	"math"

	"github.com/sorano-audio/mp3enc/internal/consts"
	"github.com/sorano-audio/mp3enc/internal/granule"
	"github.com/sorano-audio/mp3enc/internal/sfbt"
)

// band identifies one scalefactor band, long or short-windowed.
type band struct {
	short bool
	sfb   int
	win   int
}

// AmpResult reports what AmpScalefacBands actually did, so the outer
// loop can decide whether to keep iterating.
type AmpResult struct {
	Amplified  bool // at least one band was raised
	AllBands   bool // never set by AmpScalefacBands (amplifyBand has no per-band ceiling), so always false
	MaxDistort float64
}

// AmpScalefacBands raises scalefactors for every SFB with
// distort > threshold, where threshold = min(1.0, 0.95*maxDistort): if
// any band already exceeds its mask (maxDistort > 1.0) every over band
// is amplified in one pass; otherwise only bands within 95% of the
// worst distortion are. singleWorst restricts amplification to the one
// worst long band and the one worst (band,window) pair instead.
func AmpScalefacBands(info *granule.Info, spec *granule.Spectral, table sfbt.Table, singleWorst bool) AmpResult {
	maxDistort := 0.0
	var offending []band

	nLong := table.NumLongBands()
	for sfb := 0; sfb < nLong && sfb < info.SfbLmax; sfb++ {
		d := spec.Distort[0][sfb]
		if d > maxDistort {
			maxDistort = d
		}
	}
	if info.BlockType == consts.BlockTypeShort || info.MixedBlockFlag {
		nShort := table.NumShortBands()
		startSfb := 0
		if info.MixedBlockFlag {
			startSfb = info.SfbSmin
		}
		for sfb := startSfb; sfb < nShort; sfb++ {
			for win := 0; win < 3; win++ {
				d := spec.Distort[win+1][sfb]
				if d > maxDistort {
					maxDistort = d
				}
			}
		}
	}

	if maxDistort <= 0 {
		return AmpResult{MaxDistort: maxDistort}
	}

	threshold := maxDistort
	if threshold > 1.0 {
		threshold = 1.0
	}
	threshold *= 0.95
	if maxDistort > 1.0 {
		threshold = 1.0 // any over-threshold band qualifies
	}

	collect := func(d float64, b band) {
		qualifies := false
		if maxDistort > 1.0 {
			qualifies = d > 1.0
		} else {
			qualifies = d >= threshold
		}
		if qualifies {
			offending = append(offending, b)
		}
	}
	for sfb := 0; sfb < nLong && sfb < info.SfbLmax; sfb++ {
		collect(spec.Distort[0][sfb], band{sfb: sfb})
	}
	if info.BlockType == consts.BlockTypeShort || info.MixedBlockFlag {
		nShort := table.NumShortBands()
		startSfb := 0
		if info.MixedBlockFlag {
			startSfb = info.SfbSmin
		}
		for sfb := startSfb; sfb < nShort; sfb++ {
			for win := 0; win < 3; win++ {
				collect(spec.Distort[win+1][sfb], band{short: true, sfb: sfb, win: win})
			}
		}
	}

	if len(offending) == 0 {
		return AmpResult{MaxDistort: maxDistort}
	}

	if singleWorst {
		offending = worstOfEach(offending, spec)
	}

	for _, b := range offending {
		amplifyBand(info, spec, table, b)
	}

	return AmpResult{Amplified: true, MaxDistort: maxDistort}
}

func worstOfEach(bands []band, spec *granule.Spectral) []band {
	var bestLong *band
	var bestShort *band
	worstLong, worstShort := -1.0, -1.0
	for i := range bands {
		b := bands[i]
		var d float64
		if b.short {
			d = spec.Distort[b.win+1][b.sfb]
		} else {
			d = spec.Distort[0][b.sfb]
		}
		if b.short {
			if d > worstShort {
				worstShort = d
				bestShort = &bands[i]
			}
		} else {
			if d > worstLong {
				worstLong = d
				bestLong = &bands[i]
			}
		}
	}
	var out []band
	if bestLong != nil {
		out = append(out, *bestLong)
	}
	if bestShort != nil {
		out = append(out, *bestShort)
	}
	return out
}

func amplifyBand(info *granule.Info, spec *granule.Spectral, table sfbt.Table, b band) {
	step := 0.5
	if info.ScalefacScale != 0 {
		step = 1.0
	}
	factor := math.Pow(2, 0.75*step)
	if b.short {
		spec.ScalefacS[b.sfb][b.win]++
	} else {
		spec.ScalefacL[b.sfb]++
	}
	bins := table.BinMap(info.BlockType, info.MixedBlockFlag, info.SfbLmax, info.SfbSmin)
	for i := 0; i < consts.SamplesPerGr; i++ {
		bi := bins[i]
		if bi.Short != b.short || bi.Sfb != b.sfb {
			continue
		}
		if b.short && bi.Win != b.win {
			continue
		}
		spec.Xrpow[i] *= factor
	}
}

// IncScalefacScale flips scalefac_scale from 0 to 1 when scalefactors
// would otherwise overflow their bit allocation. Every scalefactor is
// halved (rounding up: an odd value's xrpow gets one extra multiply by
// the pre-flip step factor to compensate for the fractional bit the
// halving loses), preflag is cleared, and xrpow is rescaled to stay
// consistent with the coarser step.
func IncScalefacScale(info *granule.Info, spec *granule.Spectral, table sfbt.Table) {
	if info.ScalefacScale != 0 {
		return
	}
	info.ScalefacScale = 1
	info.Preflag = 0

	bins := table.BinMap(info.BlockType, info.MixedBlockFlag, info.SfbLmax, info.SfbSmin)

	nLong := table.NumLongBands()
	for sfb := 0; sfb < nLong && sfb < info.SfbLmax; sfb++ {
		old := spec.ScalefacL[sfb]
		odd := old & 1
		spec.ScalefacL[sfb] = (old + odd) >> 1
		if odd != 0 {
			rescaleBand(spec, bins, band{sfb: sfb}, math.Pow(2, 0.75*0.5))
		}
	}
	if info.BlockType == consts.BlockTypeShort || info.MixedBlockFlag {
		nShort := table.NumShortBands()
		startSfb := 0
		if info.MixedBlockFlag {
			startSfb = info.SfbSmin
		}
		for sfb := startSfb; sfb < nShort; sfb++ {
			for win := 0; win < 3; win++ {
				old := spec.ScalefacS[sfb][win]
				odd := old & 1
				spec.ScalefacS[sfb][win] = (old + odd) >> 1
				if odd != 0 {
					rescaleBand(spec, bins, band{short: true, sfb: sfb, win: win}, math.Pow(2, 0.75*0.5))
				}
			}
		}
	}
}

func rescaleBand(spec *granule.Spectral, bins [consts.SamplesPerGr]sfbt.BinInfo, b band, factor float64) {
	for i := 0; i < consts.SamplesPerGr; i++ {
		bi := bins[i]
		if bi.Short != b.short || bi.Sfb != b.sfb {
			continue
		}
		if b.short && bi.Win != b.win {
			continue
		}
		spec.Xrpow[i] *= factor
	}
}

// IncSubblockGain raises subblock_gain for window win (short blocks
// only) when scale-scale promotion was not enough to bring a
// scalefactor within range. It caps at 7 (returning false beyond that,
// a fatal condition for the candidate), subtracts 4>>scalefac_scale
// from every scalefactor of that window, clamps negatives to zero while
// rescaling the corresponding xrpow by IPOW20, and otherwise reflects
// the subtraction into xrpow directly.
func IncSubblockGain(info *granule.Info, spec *granule.Spectral, table sfbt.Table, win int) bool {
	if info.SubblockGain[win] >= 7 {
		return false
	}
	info.SubblockGain[win]++
	delta := 4 >> uint(info.ScalefacScale)

	bins := table.BinMap(info.BlockType, info.MixedBlockFlag, info.SfbLmax, info.SfbSmin)
	nShort := table.NumShortBands()
	for sfb := 0; sfb < nShort; sfb++ {
		old := spec.ScalefacS[sfb][win]
		newVal := old - delta
		if newVal < 0 {
			spec.ScalefacS[sfb][win] = 0
			rescaleBandByGain(spec, bins, sfb, win, old)
		} else {
			spec.ScalefacS[sfb][win] = newVal
			sfMult := 0.5
			if info.ScalefacScale != 0 {
				sfMult = 1.0
			}
			factor := math.Pow(2, sfMult*float64(delta)*0.75)
			rescaleBand(spec, bins, band{short: true, sfb: sfb, win: win}, factor)
		}
	}
	return true
}

func rescaleBandByGain(spec *granule.Spectral, bins [consts.SamplesPerGr]sfbt.BinInfo, sfb, win, oldScalefac int) {
	idx := oldScalefac + 210
	if idx < 0 {
		idx = 0
	}
	if idx >= len(consts.IPOW20) {
		idx = len(consts.IPOW20) - 1
	}
	factor := consts.IPOW20[idx]
	for i := 0; i < consts.SamplesPerGr; i++ {
		bi := bins[i]
		if !bi.Short || bi.Sfb != sfb || bi.Win != win {
			continue
		}
		spec.Xrpow[i] *= factor
	}
}

// scalefacSizes is the scalefac_compress -> (slen1, slen2) table for
// MPEG-1: index by scalefac_compress, yields the bit width of the first
// and second halves of the scalefactor set.
var scalefacSizes = [16][2]int{
	{0, 0}, {0, 1}, {0, 2}, {0, 3},
	{3, 0}, {1, 1}, {1, 2}, {1, 3},
	{2, 1}, {2, 2}, {2, 3}, {3, 1},
	{3, 2}, {3, 3}, {4, 2}, {4, 3},
}

// ScaleBitcount counts the bits needed to store the current long-block
// scalefactor set under the MPEG-1 scheme, choosing the smallest
// scalefac_compress (0..15) whose (slen1, slen2) can represent every
// value. Returns false if no entry suffices.
func ScaleBitcount(info *granule.Info, spec *granule.Spectral) bool {
	maxSfb := func(from, to int) int {
		m := 0
		for sfb := from; sfb < to && sfb < consts.SBMAXLong; sfb++ {
			v := spec.ScalefacL[sfb]
			if v > m {
				m = v
			}
		}
		return m
	}
	max0 := maxSfb(0, 11)
	max1 := maxSfb(11, info.SfbLmax)

	best := -1
	bestBits := 0
	for compress, sizes := range scalefacSizes {
		slen1, slen2 := sizes[0], sizes[1]
		if slen1 > 0 && max0 > (1<<uint(slen1))-1 {
			continue
		}
		if slen1 == 0 && max0 > 0 {
			continue
		}
		if slen2 > 0 && max1 > (1<<uint(slen2))-1 {
			continue
		}
		if slen2 == 0 && max1 > 0 {
			continue
		}
		bits := 11*slen1 + (info.SfbLmax-11)*slen2
		if info.SfbLmax < 11 {
			bits = info.SfbLmax * slen1
		}
		if best < 0 {
			best, bestBits = compress, bits
		}
	}
	if best < 0 {
		return false
	}
	info.ScalefacCompress = best
	info.Slen[0] = scalefacSizes[best][0]
	info.Slen[1] = scalefacSizes[best][1]
	info.Part2Length = bestBits
	return true
}

// lsfScalefacSizes is the abbreviated MPEG-2/2.5 (LSF) scheme's per-band
// slen table, indexed [block-geometry-class][part], used in place of
// ScaleBitcount for the low sample-rate versions where scalefac_compress
// carries a wider 9-bit field split across four parts instead of two.
var lsfScalefacSizes = [4][4]int{
	{6, 5, 5, 5},
	{6, 5, 7, 0},
	{11, 10, 0, 0},
	{7, 7, 7, 0},
}

// ScaleBitcountLsf is the MPEG-2/2.5 analog of ScaleBitcount: the
// scalefactor set is split into up to four parts (by SFB ranges) rather
// than two, each sized from lsfScalefacSizes, with class chosen by
// block_type/mixed exactly as scalefac_compress encodes in the LSF
// side-info layout.
func ScaleBitcountLsf(info *granule.Info, spec *granule.Spectral) bool {
	class := 0
	switch {
	case info.BlockType == consts.BlockTypeShort && !info.MixedBlockFlag:
		class = 2
	case info.BlockType == consts.BlockTypeShort && info.MixedBlockFlag:
		class = 3
	default:
		class = 0
	}
	sizes := lsfScalefacSizes[class]

	bounds := []int{0, 6, 11, 16, info.SfbLmax}
	if info.SfbLmax < 16 {
		bounds[3] = info.SfbLmax
	}
	total := 0
	for p := 0; p < 4; p++ {
		if sizes[p] == 0 {
			continue
		}
		from, to := bounds[p], bounds[p+1]
		if to > from {
			total += (to - from) * sizes[p]
		}
	}
	info.Part2Length = total
	info.ScalefacCompress = class
	return true
}
