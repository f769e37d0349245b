package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sorano-audio/mp3enc/internal/consts"
	"github.com/sorano-audio/mp3enc/internal/granule"
	"github.com/sorano-audio/mp3enc/internal/sfbt"
)

func longTable() sfbt.Table {
	return sfbt.Build(consts.Version1, consts.SampleRate0)
}

func TestDequantizeZeroIsZero(t *testing.T) {
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)
	var spec granule.Spectral
	got := Dequantize(info, &spec, sfbt.BinInfo{}, 0)
	assert.Equal(t, 0.0, got)
}

// Zero-energy granule: an all-silent granule must produce zero noise in
// every band and no over-threshold bands at all.
func TestCalcNoiseZeroEnergyGranule(t *testing.T) {
	table := longTable()
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)

	var spec granule.Spectral
	xr := make([]float64, consts.SamplesPerGr)
	xmin := make([]float64, consts.SBMAXLong)
	for i := range xmin {
		xmin[i] = 1.0
	}
	spec.ResetSpectral(xr, xmin, nil)
	for i := range spec.Xrpow {
		spec.Xrpow[i] = 0
	}

	res := CalcNoise(info, &spec, table)
	assert.Equal(t, 0, res.OverCount)
	assert.Equal(t, 0.0, res.TotNoise)
	assert.Equal(t, 0.0, res.MaxNoise)
	for _, d := range spec.Distort[0] {
		assert.Equal(t, 0.0, d)
	}
}

func TestCalcNoiseFlagsOverThresholdBand(t *testing.T) {
	table := longTable()
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)
	info.GlobalGain = 0 // finest step; L3Enc stays all zero since nothing is quantized here

	var spec granule.Spectral
	xr := make([]float64, consts.SamplesPerGr)
	xr[0] = 100
	xmin := make([]float64, consts.SBMAXLong)
	for i := range xmin {
		xmin[i] = 0.0001 // tiny allowance, easy to exceed
	}
	spec.ResetSpectral(xr, xmin, nil)

	res := CalcNoise(info, &spec, table)
	assert.Greater(t, res.OverCount, 0)
	assert.Greater(t, res.MaxNoise, 1.0)
}
