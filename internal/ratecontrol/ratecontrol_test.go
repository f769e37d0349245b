package ratecontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sorano-audio/mp3enc/internal/compare"
	"github.com/sorano-audio/mp3enc/internal/consts"
	"github.com/sorano-audio/mp3enc/internal/granule"
	"github.com/sorano-audio/mp3enc/internal/outer"
	"github.com/sorano-audio/mp3enc/internal/reservoir"
	"github.com/sorano-audio/mp3enc/internal/sfbt"
)

func longTable() sfbt.Table {
	return sfbt.Build(consts.Version1, consts.SampleRate0)
}

func makeChannel(seed int, pe float64) ChannelState {
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)
	spec := &granule.Spectral{}
	xr := make([]float64, consts.SamplesPerGr)
	for i := range xr {
		xr[i] = float64((i*seed+3)%29) - 14
	}
	xmin := make([]float64, consts.SBMAXLong)
	for i := range xmin {
		xmin[i] = 0.5
	}
	spec.ResetSpectral(xr, xmin, nil)
	return ChannelState{Info: info, Spectral: spec, PE: pe}
}

func TestOnPEEqualSplitWithoutEntropy(t *testing.T) {
	channels := []ChannelState{{PE: 0}, {PE: 0}}
	targets := onPE(channels, 1000)
	assert.Equal(t, 1000, targets[0])
	assert.Equal(t, 1000, targets[1])
}

func TestOnPEFavorsHigherEntropyChannel(t *testing.T) {
	channels := []ChannelState{{PE: 900}, {PE: 100}}
	targets := onPE(channels, 1000)
	assert.Greater(t, targets[0], targets[1])
}

func TestReduceSideShiftsBitsToMid(t *testing.T) {
	channels := []ChannelState{{PE: 900}, {PE: 50}}
	targets := []int{600, 400}
	reduceSide(targets, channels)
	assert.Greater(t, targets[0], 600)
	assert.Less(t, targets[1], 400)
}

func TestReduceSideNoopWhenSideLouder(t *testing.T) {
	channels := []ChannelState{{PE: 100}, {PE: 900}}
	targets := []int{500, 500}
	reduceSide(targets, channels)
	assert.Equal(t, []int{500, 500}, targets)
}

func TestCalcTargetBitsABRRescalesWhenOverBudget(t *testing.T) {
	channels := []ChannelState{{PE: 2000}, {PE: 2000}}
	targets := CalcTargetBitsABR(channels, 2000, 1000)
	assert.LessOrEqual(t, targets[0]+targets[1], 1000)
}

func TestEncodeCBRProducesAFrameResult(t *testing.T) {
	table := longTable()
	channels := []ChannelState{makeChannel(5, 500)}
	p := FrameParams{
		Version:      consts.Version1,
		SampleRateHz: 44100,
		BitrateIndex: 9,
		Table:        table,
		Opt:          outer.Options{Version: consts.Version1, Mode: compare.ModeDefault, NoiseShaping: true},
	}
	res := reservoir.New(8000)
	out := EncodeCBR(res, p, channels, []int{140})
	assert.GreaterOrEqual(t, out.TotalBits, 0)
	assert.Len(t, out.OverCounts, 1)
}
