// Package bitcount implements the bit counter:
// count_bits(xrpow, GranuleInfo) -> total_bits. It quantizes xrpow at the
// granule's current global_gain/scalefactors, partitions the result into
// big_values/count1/rzero, picks a region0/region1 split and Huffman
// table per region (and for count1), and sums the cost. It must not
// mutate xrpow or scalefac — only GranuleInfo's derived fields
// (BigValues, Count1, Count1Bits, TableSelect, Region0Count,
// Region1Count, Count1TableSelect) and L3Enc.
package bitcount

import (
	"math"

	"github.com/sorano-audio/mp3enc/internal/consts"
	"github.com/sorano-audio/mp3enc/internal/granule"
	"github.com/sorano-audio/mp3enc/internal/huffman"
	"github.com/sorano-audio/mp3enc/internal/sfbt"
)

// Quantize fills spec.L3Enc from spec.Xrpow at info's current global_gain
// and scalefactors. This is the forward direction of a compliant
// decoder's requantizeProcessLong/Short: that function turns
// (global_gain, scalefac, l3enc) into a magnitude; Quantize turns a
// magnitude (already raised to the 3/4 power in Xrpow) back into the
// integer index that dequantizes closest to it.
func Quantize(spec *granule.Spectral, info *granule.Info, table sfbt.Table) {
	bins := table.BinMap(info.BlockType, info.MixedBlockFlag, info.SfbLmax, info.SfbSmin)
	for i := 0; i < consts.SamplesPerGr; i++ {
		bi := bins[i]
		idx := stepExponent(spec, info, bi)
		// tmp1 = 2^idx in the decode-side formula; the forward
		// quantizer divides by tmp1^0.75 instead of multiplying by it.
		scale := math.Pow(2, -0.75*idx)
		v := spec.Xrpow[i] * scale
		spec.L3Enc[i] = int(math.Floor(v + 0.5))
	}
}

func stepExponent(spec *granule.Spectral, info *granule.Info, bi sfbt.BinInfo) float64 {
	sfMult := 0.5
	if info.ScalefacScale != 0 {
		sfMult = 1.0
	}
	if !bi.Short {
		pf := float64(info.Preflag) * consts.Pretab[bi.Sfb]
		return -(sfMult * (float64(spec.ScalefacL[bi.Sfb]) + pf)) + 0.25*(float64(info.GlobalGain)-210)
	}
	sf := spec.ScalefacS[bi.Sfb][bi.Win]
	return -(sfMult * float64(sf)) + 0.25*(float64(info.GlobalGain)-210-8*float64(info.SubblockGain[bi.Win]))
}

// Regions describes the big_values/count1/rzero partition of a quantized
// granule.
type Regions struct {
	BigValues int // number of (x,y) pairs, i.e. BigValues*2 <= 576
	Count1    int // index where the rzero region starts
}

// partition finds, scanning from the top, the big_values/count1/rzero
// split: the highest-frequency (highest-index) tail of the granule is rzero (all zero),
// the next run back is count1 (every value in {-1,0,1}, grouped in
// quads), and everything before that is big_values (grouped in pairs).
func partition(l3enc *[consts.SamplesPerGr]int) Regions {
	lastNonZero := -1
	for i := consts.SamplesPerGr - 1; i >= 0; i-- {
		if l3enc[i] != 0 {
			lastNonZero = i
			break
		}
	}
	if lastNonZero < 0 {
		return Regions{BigValues: 0, Count1: 0}
	}
	lastBig := -1
	for i := lastNonZero; i >= 0; i-- {
		if abs(l3enc[i]) > 1 {
			lastBig = i
			break
		}
	}
	bigEnd := lastBig + 1
	if bigEnd%2 != 0 {
		bigEnd++
	}
	count1End := lastNonZero + 1
	if rem := (count1End - bigEnd) % 4; rem != 0 {
		count1End += 4 - rem
	}
	if count1End > consts.SamplesPerGr {
		count1End = consts.SamplesPerGr
	}
	return Regions{BigValues: bigEnd / 2, Count1: count1End}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// bestBigValueTable returns the cheapest table able to represent every
// pair in l3enc[from:to), and its total bit cost.
func bestBigValueTable(l3enc *[consts.SamplesPerGr]int, from, to int) (table, cost int, ok bool) {
	best := -1
	bestCost := 0
	for t := 0; t < huffman.NumBigValueTables; t++ {
		total := 0
		valid := true
		for i := from; i < to; i += 2 {
			x, y := l3enc[i], 0
			if i+1 < to {
				y = l3enc[i+1]
			}
			c, ok := huffman.BigValueBits(t, abs(x), abs(y))
			if !ok {
				valid = false
				break
			}
			total += c
		}
		if valid && (best < 0 || total < bestCost) {
			best, bestCost = t, total
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, bestCost, true
}

func bestCount1Table(l3enc *[consts.SamplesPerGr]int, from, to int) (table, cost int) {
	costA, costB := 0, 0
	for i := from; i < to; i += 4 {
		q := [4]int{}
		for k := 0; k < 4 && i+k < to; k++ {
			q[k] = abs(l3enc[i+k])
		}
		costA += huffman.Count1Bits(huffman.Count1TableA, q[0], q[1], q[2], q[3])
		costB += huffman.Count1Bits(huffman.Count1TableB, q[0], q[1], q[2], q[3])
	}
	if costB < costA {
		return huffman.Count1TableB, costB
	}
	return huffman.Count1TableA, costA
}

// Count counts the Huffman bits for the already-quantized spec.L3Enc and
// writes the region/table decisions into info. It does not touch xrpow
// or scalefac.
func Count(spec *granule.Spectral, info *granule.Info, table sfbt.Table) int {
	reg := partition(&spec.L3Enc)
	info.BigValues = reg.BigValues
	info.Count1 = reg.Count1

	isShort := info.BlockType == consts.BlockTypeShort
	bigEnd := reg.BigValues * 2

	var bigBits int
	if isShort {
		region0, region1 := huffman.ImplicitShortRegionCounts(info.MixedBlockFlag)
		info.Region0Count, info.Region1Count = region0, region1
		split := 36
		if split > bigEnd {
			split = bigEnd
		}
		t0, c0, ok0 := bestBigValueTable(&spec.L3Enc, 0, split)
		t1, c1, ok1 := bestBigValueTable(&spec.L3Enc, split, bigEnd)
		if !ok0 {
			t0, c0 = 0, 0
		}
		if !ok1 {
			t1, c1 = 0, 0
		}
		info.TableSelect[0], info.TableSelect[1], info.TableSelect[2] = t0, t1, t1
		bigBits = c0 + c1
	} else {
		best := searchLongRegions(&spec.L3Enc, table.Long, bigEnd)
		info.Region0Count = best.region0Count
		info.Region1Count = best.region1Count
		info.TableSelect = best.tableSelect
		bigBits = best.bits
	}

	count1Table, count1Bits := bestCount1Table(&spec.L3Enc, bigEnd, reg.Count1)
	info.Count1TableSelect = 0
	if count1Table == huffman.Count1TableB {
		info.Count1TableSelect = 1
	}
	info.Count1Bits = count1Bits

	return bigBits + count1Bits
}

type longRegionResult struct {
	region0Count, region1Count int
	tableSelect                [3]int
	bits                       int
}

// searchLongRegions scans SFB boundaries to choose region0_count and
// region1_count; for each admissible split it finds the cheapest table
// per region and keeps the split with the lowest total.
func searchLongRegions(l3enc *[consts.SamplesPerGr]int, long []int, bigEnd int) longRegionResult {
	best := longRegionResult{bits: -1}
	nBands := len(long) - 1
	for r0 := 0; r0 <= 14 && r0+1 < len(long); r0++ {
		b0 := long[r0+1]
		if b0 > bigEnd {
			break
		}
		for r1 := 0; r1 <= 7; r1++ {
			idx := r0 + r1 + 2
			b1 := bigEnd
			if idx < len(long) {
				b1 = long[idx]
			}
			if b1 > bigEnd {
				b1 = bigEnd
			}
			if b1 < b0 {
				continue
			}
			t0, c0, ok0 := bestBigValueTable(l3enc, 0, b0)
			t1, c1, ok1 := bestBigValueTable(l3enc, b0, b1)
			t2, c2, ok2 := bestBigValueTable(l3enc, b1, bigEnd)
			if !ok0 || !ok1 || !ok2 {
				continue
			}
			total := c0 + c1 + c2
			if best.bits < 0 || total < best.bits {
				best = longRegionResult{
					region0Count: r0,
					region1Count: r1,
					tableSelect:  [3]int{t0, t1, t2},
					bits:         total,
				}
			}
			if idx >= nBands {
				break
			}
		}
	}
	if best.bits < 0 {
		// No split worked (e.g. bigEnd == 0): zero-cost, zero-region.
		return longRegionResult{}
	}
	return best
}

// CountBits is the full contract: quantize, then count. spec must carry
// a consistent Xrpow/scalefac pair; info carries block_type,
// global_gain, scalefac_scale, preflag and subblock_gain for the
// quantization step.
func CountBits(spec *granule.Spectral, info *granule.Info, table sfbt.Table) int {
	Quantize(spec, info, table)
	return Count(spec, info, table)
}
