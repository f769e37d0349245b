package bitcount

import (
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

func freshGranule(t sfbt.Table) (*granule.Info, *granule.Spectral) {
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)
	spec := &granule.Spectral{}
	xr := make([]float64, consts.SamplesPerGr)
	for i := range xr {
		xr[i] = float64(i%37) - 18
	}
	xmin := make([]float64, consts.SBMAXLong)
	for i := range xmin {
		xmin[i] = 1.0
	}
	spec.ResetSpectral(xr, xmin, nil)
	return info, spec
}

func TestCountBits_ZeroEnergyGranule(t *testing.T) {
	table := longTable()
	info, spec := freshGranule(table)
	for i := range spec.Xr {
		spec.Xr[i] = 0
		spec.Xrpow[i] = 0
	}
	info.GlobalGain = 210

	bits := CountBits(spec, info, table)
	assert.Equal(t, 0, info.BigValues)
	assert.Equal(t, 0, info.Count1)
	assert.Equal(t, 0, bits)
	for _, v := range spec.L3Enc {
		assert.Equal(t, 0, v)
	}
}

func TestGainMonotonicity(t *testing.T) {
	table := longTable()
	rapid.Check(t, func(rt *rapid.T) {
		info, spec := freshGranule(table)
		gain := rapid.IntRange(0, 250).Draw(rt, "gain")

		info.GlobalGain = gain
		bitsLow := CountBits(spec, info, table)

		info.GlobalGain = gain + 1
		bitsHigh := CountBits(spec, info, table)

		assert.LessOrEqual(rt, bitsHigh, bitsLow)
	})
}

func TestQuantizeDoesNotMutateScalefactors(t *testing.T) {
	table := longTable()
	info, spec := freshGranule(table)
	info.GlobalGain = 140
	before := spec.ScalefacL

	Quantize(spec, info, table)

	assert.Equal(t, before, spec.ScalefacL)
}
