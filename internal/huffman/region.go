package huffman

import "github.com/sorano-audio/mp3enc/internal/consts"

// ImplicitShortRegionCounts returns the fixed region0_count/region1_count
// a short block uses: 8/12 when mixed, 9/11 otherwise; bitcount.Count
// splits region0 from region1 at bin 36 either way. These values
// are never carried in the bitstream for short blocks — a decoder
// reconstructs them from block_type and mixed_block_flag alone — so the
// encoder must emit side info consistent with that fixed assignment
// rather than searching a region split nothing will ever read back.
func ImplicitShortRegionCounts(mixedBlockFlag bool) (region0, region1 int) {
	if mixedBlockFlag {
		return 8, 12
	}
	return 9, 11
}

// LongBlockRegionBoundary finds, for a long block, the bin index one
// past the end of the SFB at table-offset idx in the long SFB table
// (sfBandIndicesLong[region0_count+1] / [region0_count+region1_count+2]
// in conventional notation), clamped to SamplesPerGr for an overflowing
// region index the way mpg123 and ffmpeg both do.
func LongBlockRegionBoundary(sfbTable []int, idx int) int {
	if idx < 0 {
		return 0
	}
	if idx >= len(sfbTable) {
		return consts.SamplesPerGr
	}
	return sfbTable[idx]
}
