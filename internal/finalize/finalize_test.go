package finalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/sorano-audio/mp3enc/internal/bitcount"
	"github.com/sorano-audio/mp3enc/internal/consts"
	"github.com/sorano-audio/mp3enc/internal/granule"
	"github.com/sorano-audio/mp3enc/internal/reservoir"
	"github.com/sorano-audio/mp3enc/internal/sfbt"
)

func longTable() sfbt.Table {
	return sfbt.Build(consts.Version1, consts.SampleRate0)
}

func quantizedGranule(t sfbt.Table, seed int) (*granule.Info, *granule.Spectral) {
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)
	info.GlobalGain = 140
	spec := &granule.Spectral{}
	xr := make([]float64, consts.SamplesPerGr)
	for i := range xr {
		xr[i] = float64((i*seed+11)%41) - 20
	}
	spec.ResetSpectral(xr, nil, nil)
	bitcount.CountBits(spec, info, t)
	return info, spec
}

func TestBestScalefacStoreAllTrueOnIdenticalGranules(t *testing.T) {
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)
	var spec granule.Spectral
	for i := range spec.ScalefacL {
		spec.ScalefacL[i] = i % 5
	}
	prev := spec

	scfsi := BestScalefacStore(&prev, &spec, info)
	for _, v := range scfsi {
		assert.True(t, v)
	}
}

func TestBestScalefacStoreFalseWhenBandDiffers(t *testing.T) {
	info := &granule.Info{}
	info.Reset(consts.Version1, consts.BlockTypeNorm, false)
	var prev, cur granule.Spectral
	prev.ScalefacL[0] = 3
	cur.ScalefacL[0] = 4

	scfsi := BestScalefacStore(&prev, &cur, info)
	assert.False(t, scfsi[0])
}

// Idempotence of best_huffman_divide: re-running the region search on
// the same quantization must reproduce the identical region/table
// choice and bit count.
func TestBestHuffmanDivideIsIdempotent(t *testing.T) {
	table := longTable()
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.IntRange(1, 50).Draw(rt, "seed")
		info, spec := quantizedGranule(table, seed)

		firstBits := BestHuffmanDivide(spec, info, table)
		firstRegion0, firstRegion1 := info.Region0Count, info.Region1Count
		firstTables := info.TableSelect

		secondBits := BestHuffmanDivide(spec, info, table)

		assert.Equal(rt, firstBits, secondBits)
		assert.Equal(rt, firstRegion0, info.Region0Count)
		assert.Equal(rt, firstRegion1, info.Region1Count)
		assert.Equal(rt, firstTables, info.TableSelect)
	})
}

// Sign round-trip: every non-zero l3enc entry must end up with the same
// sign as its originating xr value, and zero entries stay zero.
func TestApplySignsMatchesOriginalSign(t *testing.T) {
	table := longTable()
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.IntRange(1, 50).Draw(rt, "seed")
		_, spec := quantizedGranule(table, seed)

		ApplySigns(spec)

		for i := range spec.L3Enc {
			if spec.L3Enc[i] == 0 {
				continue
			}
			if spec.Xr[i] < 0 {
				assert.Less(rt, spec.L3Enc[i], 0)
			} else {
				assert.Greater(rt, spec.L3Enc[i], 0)
			}
		}
	})
}

func TestGranuleAdjustsReservoirBySingleAmount(t *testing.T) {
	table := longTable()
	info, spec := quantizedGranule(table, 7)
	res := reservoir.New(1 << 20)
	meanBitsPerChannel := 1 << 18

	Granule(res, spec, spec, info, table, meanBitsPerChannel)
	assert.Equal(t, meanBitsPerChannel-info.Part2_3Length, res.Size)
}
