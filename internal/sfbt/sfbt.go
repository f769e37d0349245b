// Package sfbt builds the scalefactor-band table: a samplerate- and
// version-indexed partition of the 576 MDCT coefficients into
// scalefactor bands, immutable after construction, and the single
// source of truth every other component uses to iterate by band.
//
// The traversal order (long SFBs first, then short SFBs from sfb_smin
// for a mixed block; pure short otherwise) mirrors the order a
// compliant decoder's dequantizer walks sfBandIndicesLong/
// sfBandIndicesShort, since it has to apply the right scalefactor to
// the right bin in exactly that order. The encoder needs the identical
// traversal to know which scalefactor governs which bin when it
// quantizes.
package sfbt

import "github.com/sorano-audio/mp3enc/internal/consts"

// Table is an immutable, built-once scalefactor-band geometry for one
// (version, sample-rate) pair.
type Table struct {
	Long  []int // SBMAXLong+1 entries, boundaries in bin units, ends at 576
	Short []int // SBMAXShort+1 entries, boundaries in per-window units, ends at 192
}

// Build constructs the table for (version, sampleRate). Called once per
// encoder instance at construction time; never re-entered from the hot
// path.
func Build(version consts.Version, sampleRate consts.SampleRateIndex) Table {
	return Table{
		Long:  consts.SfBandIndicesLong(version, sampleRate),
		Short: consts.SfBandIndicesShort(version, sampleRate),
	}
}

// NumLongBands returns how many long SFBs precede bin 576 in this table.
func (t Table) NumLongBands() int { return len(t.Long) - 1 }

// NumShortBands returns how many short SFBs precede bin 192 (per window)
// in this table.
func (t Table) NumShortBands() int { return len(t.Short) - 1 }

// BinInfo describes which scalefactor governs MDCT bin i.
type BinInfo struct {
	Short bool
	Sfb   int
	Win   int // 0..2, only meaningful when Short
}

// BinMap returns, for every one of the 576 bins in a granule, which SFB
// (and, for short blocks, which of the 3 windows) that bin belongs to.
// blockType/mixed come from the granule's encoding state; sfbLmax/
// sfbSmin are the split points from consts.SfbLmax / consts.SfbSmin.
func (t Table) BinMap(blockType int, mixed bool, sfbLmax, sfbSmin int) [consts.SamplesPerGr]BinInfo {
	var m [consts.SamplesPerGr]BinInfo

	isShortBlock := blockType == consts.BlockTypeShort

	if !isShortBlock {
		fillLong(&m, t.Long, 0, consts.SamplesPerGr)
		return m
	}

	if mixed {
		// The first long SFBs cover bins [0, 2*18) == [0,36); a mixed
		// block processes those as long-block bands before switching
		// to short-block bands for the rest.
		fillLong(&m, t.Long, 0, 36)
		fillShort(&m, t.Short, sfbSmin, 36)
		return m
	}

	fillShort(&m, t.Short, 0, 0)
	return m
}

func fillLong(m *[consts.SamplesPerGr]BinInfo, long []int, fromBin, toBin int) {
	sfb := 0
	for sfb+1 < len(long) && long[sfb+1] <= fromBin {
		sfb++
	}
	for i := fromBin; i < toBin && i < consts.SamplesPerGr; i++ {
		for sfb+1 < len(long) && long[sfb+1] <= i {
			sfb++
		}
		m[i] = BinInfo{Short: false, Sfb: sfb}
	}
}

func fillShort(m *[consts.SamplesPerGr]BinInfo, short []int, startSfb, startBin int) {
	sfb := startSfb
	i := startBin
	for sfb+1 < len(short) && i < consts.SamplesPerGr {
		winLen := short[sfb+1] - short[sfb]
		for win := 0; win < 3 && i < consts.SamplesPerGr; win++ {
			for j := 0; j < winLen && i < consts.SamplesPerGr; j++ {
				m[i] = BinInfo{Short: true, Sfb: sfb, Win: win}
				i++
			}
		}
		sfb++
	}
}
