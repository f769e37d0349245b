// Package noise implements the noise calculator: given a quantized
// granule, its original spectrum, and per-SFB masking thresholds, it
// computes per-band distortion ratios and the aggregate metrics the
// outer loop's comparators rank candidates by.
package noise

import (
	"math"

	"github.com/sorano-audio/mp3enc/internal/consts"
	"github.com/sorano-audio/mp3enc/internal/granule"
	"github.com/sorano-audio/mp3enc/internal/sfbt"
)

// Result is the aggregate noise_result returned alongside distort.
type Result struct {
	OverCount  int
	OverNoise  float64
	TotNoise   float64
	MaxNoise   float64
	KlemmNoise float64
}

// Dequantize inverts the quantizer for one bin: given l3enc[i] and the
// effective step for its band (global_gain, scalefac, scalefac_scale,
// subblock_gain, preflag), returns the magnitude a compliant decoder
// would reconstruct. This is the same formula requantizeProcessLong/
// Short applies on the decode side.
func Dequantize(info *granule.Info, spec *granule.Spectral, bi sfbt.BinInfo, l3 int) float64 {
	if l3 == 0 {
		return 0
	}
	idx := stepExponent(info, spec, bi)
	scale := math.Pow(2, 0.25*idx)
	mag := consts.Powtab34[clampIndex(l3, len(consts.Powtab34))]
	return mag * scale
}

func clampIndex(v, n int) int {
	if v < 0 {
		v = -v
	}
	if v >= n {
		v = n - 1
	}
	return v
}

func stepExponent(info *granule.Info, spec *granule.Spectral, bi sfbt.BinInfo) float64 {
	sfMult := 0.5
	if info.ScalefacScale != 0 {
		sfMult = 1.0
	}
	if !bi.Short {
		pf := float64(info.Preflag) * consts.Pretab[bi.Sfb]
		return -4.0*(sfMult*(float64(spec.ScalefacL[bi.Sfb])+pf)) + (float64(info.GlobalGain) - 210)
	}
	sf := spec.ScalefacS[bi.Sfb][bi.Win]
	return -4.0*(sfMult*float64(sf)) + (float64(info.GlobalGain) - 210 - 8*float64(info.SubblockGain[bi.Win]))
}

// CalcNoise computes distort[4][SBMAXLong] and the aggregate Result for
// the granule's current quantization. distort[0] holds the long-block
// (or mixed-block long prefix) bands; distort[1..3] hold the three
// short-block windows.
func CalcNoise(info *granule.Info, spec *granule.Spectral, table sfbt.Table) Result {
	bins := table.BinMap(info.BlockType, info.MixedBlockFlag, info.SfbLmax, info.SfbSmin)

	for i := range spec.Distort {
		for j := range spec.Distort[i] {
			spec.Distort[i][j] = 0
		}
	}

	type accum struct {
		noise float64
		xmin  float64
		seen  bool
	}
	longAcc := make([]accum, table.NumLongBands())
	shortAcc := make([][3]accum, table.NumShortBands())

	for i := 0; i < consts.SamplesPerGr; i++ {
		bi := bins[i]
		recon := Dequantize(info, spec, bi, spec.L3Enc[i])
		diff := math.Abs(spec.Xr[i]) - recon
		sq := diff * diff
		if bi.Short {
			a := &shortAcc[bi.Sfb][bi.Win]
			a.noise += sq
			a.xmin = spec.L3XminS[bi.Sfb][bi.Win]
			a.seen = true
		} else {
			a := &longAcc[bi.Sfb]
			a.noise += sq
			a.xmin = spec.L3XminL[bi.Sfb]
			a.seen = true
		}
	}

	var res Result
	for sfb, a := range longAcc {
		if !a.seen || a.xmin <= 0 {
			continue
		}
		d := a.noise / a.xmin
		spec.Distort[0][sfb] = d
		accumulate(&res, d)
	}
	for sfb := range shortAcc {
		for win := 0; win < 3; win++ {
			a := shortAcc[sfb][win]
			if !a.seen || a.xmin <= 0 {
				continue
			}
			d := a.noise / a.xmin
			spec.Distort[win+1][sfb] = d
			accumulate(&res, d)
		}
	}
	if res.MaxNoise > 0 {
		res.KlemmNoise = res.TotNoise + res.OverNoise
	}
	return res
}

func accumulate(res *Result, d float64) {
	res.TotNoise += d
	if d > 1.0 {
		res.OverCount++
		excess := 10 * math.Log10(d)
		if excess < 0 {
			excess = 0
		}
		res.OverNoise += excess
	}
	if d > res.MaxNoise {
		res.MaxNoise = d
	}
}
