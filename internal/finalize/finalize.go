// Package finalize implements frame finalization: scalefactor
// re-packing, an optional Huffman region re-division, reservoir
// adjustment, and sign application — the last steps run on a
// granule-channel after its quantization is settled.
package finalize

import (
	"github.com/sorano-audio/mp3enc/internal/consts"
	"github.com/sorano-audio/mp3enc/internal/granule"
	"github.com/sorano-audio/mp3enc/internal/huffman"
	"github.com/sorano-audio/mp3enc/internal/reservoir"
	"github.com/sorano-audio/mp3enc/internal/sfbt"
)

// BestScalefacStore looks for a cheaper scalefactor representation by
// checking whether this granule's scalefactors are identical to the
// previous granule's for the same channel; the MPEG-1 side-info syntax
// allows the second granule to share the first's scalefactors
// (scfsi) when every band matches, saving the entire part2 cost for
// granule 1.
func BestScalefacStore(prev, cur *granule.Spectral, info *granule.Info) (scfsi [4]bool) {
	identicalRange := func(from, to int) bool {
		for sfb := from; sfb < to && sfb < consts.SBMAXLong; sfb++ {
			if prev.ScalefacL[sfb] != cur.ScalefacL[sfb] {
				return false
			}
		}
		return true
	}
	scfsi[0] = identicalRange(0, 6)
	scfsi[1] = identicalRange(6, 11)
	scfsi[2] = identicalRange(11, 16)
	scfsi[3] = identicalRange(16, info.SfbLmax)
	return scfsi
}

// BestHuffmanDivide re-derives the region0/region1 split that minimizes
// Huffman cost without touching the quantization itself: it is the same
// search searchLongRegions already performs, exposed here so the
// finalize stage can re-run it once more after scalefactor sharing
// might have changed nothing about l3enc but before the side info is
// frozen. Running it twice must yield identical region0/region1 and
// table_select and an identical bit count (idempotent).
func BestHuffmanDivide(spec *granule.Spectral, info *granule.Info, table sfbt.Table) int {
	bigEnd := info.BigValues * 2
	if info.BlockType == consts.BlockTypeShort {
		// Short blocks keep their implicit regions; only recount the
		// big_values bits at the same split bitcount.Count uses.
		split := 36
		if split > bigEnd {
			split = bigEnd
		}
		_, c0, _ := bestTableFor(&spec.L3Enc, 0, split)
		_, c1, _ := bestTableFor(&spec.L3Enc, split, bigEnd)
		return c0 + c1 + info.Count1Bits
	}
	best := -1
	bestRegion0, bestRegion1 := info.Region0Count, info.Region1Count
	var bestTables [3]int

	for r0 := 0; r0 <= 14 && r0+1 < len(table.Long); r0++ {
		b0 := table.Long[r0+1]
		if b0 > bigEnd {
			break
		}
		for r1 := 0; r1 <= 7; r1++ {
			idx := r0 + r1 + 2
			b1 := bigEnd
			if idx < len(table.Long) {
				b1 = table.Long[idx]
			}
			if b1 > bigEnd {
				b1 = bigEnd
			}
			if b1 < b0 {
				continue
			}
			t0, c0, ok0 := bestTableFor(&spec.L3Enc, 0, b0)
			t1, c1, ok1 := bestTableFor(&spec.L3Enc, b0, b1)
			t2, c2, ok2 := bestTableFor(&spec.L3Enc, b1, bigEnd)
			if !ok0 || !ok1 || !ok2 {
				continue
			}
			total := c0 + c1 + c2
			if best < 0 || total < best {
				best = total
				bestRegion0, bestRegion1 = r0, r1
				bestTables = [3]int{t0, t1, t2}
			}
		}
	}
	if best < 0 {
		return info.Count1Bits
	}
	info.Region0Count = bestRegion0
	info.Region1Count = bestRegion1
	info.TableSelect = bestTables
	return best + info.Count1Bits
}

func bestTableFor(l3enc *[consts.SamplesPerGr]int, from, to int) (table, cost int, ok bool) {
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
			c, k := huffman.BigValueBits(t, absInt(x), absInt(y))
			if !k {
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

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ApplySigns sets the sign of l3enc[i] from the sign of xr[i], since
// quantization only ever produces non-negative magnitudes. l3enc[i]
// stays zero exactly when the quantizer rounded that bin to zero.
func ApplySigns(spec *granule.Spectral) {
	for i := range spec.L3Enc {
		if spec.Xr[i] < 0 && spec.L3Enc[i] > 0 {
			spec.L3Enc[i] = -spec.L3Enc[i]
		}
	}
}

// Granule runs the full finalization sequence for one granule-channel:
// best_scalefac_store, best_huffman_divide, a reservoir adjustment, and
// sign application.
func Granule(res *reservoir.Reservoir, prev, cur *granule.Spectral, info *granule.Info, table sfbt.Table, meanBitsPerChannel int) [4]bool {
	scfsi := BestScalefacStore(prev, cur, info)
	huffBits := BestHuffmanDivide(cur, info, table)
	info.Part2_3Length = info.Part2Length + huffBits
	res.Adjust(meanBitsPerChannel, info.Part2_3Length)
	ApplySigns(cur)
	return scfsi
}
