package granule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sorano-audio/mp3enc/internal/consts"
)

func TestResetZeroesState(t *testing.T) {
	var info Info
	info.GlobalGain = 99
	info.Reset(consts.Version1, consts.BlockTypeShort, true)

	assert.Equal(t, 0, info.GlobalGain)
	assert.Equal(t, consts.BlockTypeShort, info.BlockType)
	assert.True(t, info.MixedBlockFlag)
	assert.Equal(t, consts.SfbLmax(consts.Version1), info.SfbLmax)
	assert.Equal(t, consts.SfbSmin, info.SfbSmin)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	var info Info
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)
	info.GlobalGain = 120

	var spec Spectral
	spec.ResetSpectral([]float64{1, 2, 3}, nil, nil)
	spec.ScalefacL[0] = 5

	snap := Save(info, spec)

	info.GlobalGain = 200
	spec.ScalefacL[0] = 31
	spec.Xrpow[0] = 999

	snap.Restore(&info, &spec)

	assert.Equal(t, 120, info.GlobalGain)
	assert.Equal(t, 5, spec.ScalefacL[0])
	assert.NotEqual(t, float64(999), spec.Xrpow[0])
}

func TestResetSpectralSeedsXrpowFromAbsolutePow34(t *testing.T) {
	var spec Spectral
	spec.ResetSpectral([]float64{-8, 8, 0}, nil, nil)
	assert.InDelta(t, pow34(8), spec.Xrpow[0], 1e-9)
	assert.InDelta(t, pow34(8), spec.Xrpow[1], 1e-9)
	assert.Equal(t, 0.0, spec.Xrpow[2])
}
