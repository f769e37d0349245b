package amp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/sorano-audio/mp3enc/internal/consts"
	"github.com/sorano-audio/mp3enc/internal/granule"
	"github.com/sorano-audio/mp3enc/internal/sfbt"
)

func longTable() sfbt.Table {
	return sfbt.Build(consts.Version1, consts.SampleRate0)
}

func TestScaleBitcountPicksSmallestCompress(t *testing.T) {
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)
	var spec granule.Spectral

	ok := ScaleBitcount(info, &spec)
	assert.True(t, ok)
	assert.Equal(t, 0, info.ScalefacCompress) // all-zero scalefactors fit (0,0)
}

func TestScaleBitcountFailsWhenNothingFits(t *testing.T) {
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)
	var spec granule.Spectral
	spec.ScalefacL[0] = 1 << 20 // absurdly large, no (slen1,slen2) entry covers it

	ok := ScaleBitcount(info, &spec)
	assert.False(t, ok)
}

func TestAmpScalefacBandsRaisesOnlyOffendingBands(t *testing.T) {
	table := longTable()
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)

	var spec granule.Spectral
	xr := make([]float64, consts.SamplesPerGr)
	spec.ResetSpectral(xr, nil, nil)

	spec.Distort[0][0] = 2.0 // over threshold
	spec.Distort[0][1] = 0.1 // comfortably under

	before0, before1 := spec.ScalefacL[0], spec.ScalefacL[1]
	res := AmpScalefacBands(info, &spec, table, false)

	assert.True(t, res.Amplified)
	assert.Equal(t, before0+1, spec.ScalefacL[0])
	assert.Equal(t, before1, spec.ScalefacL[1])
}

// Amplification/xrpow consistency: after amplifying a band, every xrpow
// entry in that band must equal the original |xr|^(3/4) times the
// product of every step factor applied to that band so far.
func TestAmplificationKeepsXrpowConsistent(t *testing.T) {
	table := longTable()
	rapid.Check(t, func(rt *rapid.T) {
		info := &granule.Info{}
		info.Reset(consts.Version1, consts.BlockTypeNorm, false)

		var spec granule.Spectral
		xr := make([]float64, consts.SamplesPerGr)
		for i := range xr {
			xr[i] = float64(i%13) + 1
		}
		spec.ResetSpectral(xr, nil, nil)
		original := spec.Xrpow

		steps := rapid.IntRange(1, 4).Draw(rt, "steps")
		expectedFactor := 1.0
		for s := 0; s < steps; s++ {
			spec.Distort[0][0] = 5.0 // keep band 0 offending every pass
			AmpScalefacBands(info, &spec, table, false)
			step := 0.5
			if info.ScalefacScale != 0 {
				step = 1.0
			}
			expectedFactor *= math.Pow(2, 0.75*step)
		}

		bins := table.BinMap(info.BlockType, info.MixedBlockFlag, info.SfbLmax, info.SfbSmin)
		for i, bi := range bins {
			if !bi.Short && bi.Sfb == 0 {
				assert.InDelta(rt, original[i]*expectedFactor, spec.Xrpow[i], 1e-6)
			}
		}
	})
}

func TestIncScalefacScaleHalvesValuesAndClearsPreflag(t *testing.T) {
	table := longTable()
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)
	info.Preflag = 1

	var spec granule.Spectral
	xr := make([]float64, consts.SamplesPerGr)
	spec.ResetSpectral(xr, nil, nil)
	spec.ScalefacL[0] = 7

	IncScalefacScale(info, &spec, table)

	assert.Equal(t, 1, info.ScalefacScale)
	assert.Equal(t, 0, info.Preflag)
	assert.Equal(t, 4, spec.ScalefacL[0])
}

func TestIncSubblockGainCapsAtSeven(t *testing.T) {
	table := longTable()
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeShort, false)
	info.SubblockGain[0] = 7

	var spec granule.Spectral
	xr := make([]float64, consts.SamplesPerGr)
	spec.ResetSpectral(xr, nil, nil)

	ok := IncSubblockGain(info, &spec, table, 0)
	assert.False(t, ok)
	assert.Equal(t, 7, info.SubblockGain[0])
}
