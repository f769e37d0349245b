// Package granule holds the per-granule-channel encoding state
// (GranuleInfo), together with the spectral working set (xr, xrpow,
// l3enc, scalefac) it travels with through the outer loop.
//
// The field set describes exactly what a Layer III granule carries —
// BigValues, GlobalGain, ScalefacCompress, BlockType, MixedBlockFlag,
// TableSelect, SubblockGain, Region0Count, Region1Count, Preflag,
// ScalefacScale, Count1TableSelect, Count1 — one struct per
// granule-channel rather than indexed by [gr][ch], so outer-loop
// snapshots are plain struct copies instead of in-place mutation with
// manual undo.
package granule

import (
	"math"

	"github.com/sorano-audio/mp3enc/internal/consts"
)

// Info is one granule-channel's encoding decisions (GranuleInfo).
type Info struct {
	BlockType      int
	MixedBlockFlag bool

	GlobalGain    int
	ScalefacScale int // 0 or 1
	Preflag       int // 0 or 1
	SubblockGain  [3]int

	TableSelect       [3]int
	Region0Count      int
	Region1Count      int
	Count1TableSelect int
	BigValues         int
	Count1            int
	Part2Length       int
	Part2_3Length     int
	Count1Bits        int

	ScalefacCompress int
	Slen             [4]int

	SfbLmax int // long SFBs carrying scalefactors: SBMAXLong-1 for a long block, the long/short split point for a short one
	SfbSmin int
}

// Reset zero-initializes g for a fresh granule, the way init_outer_loop
// does: everything starts clean, global_gain included (the caller seeds
// it via the binary search before the first count_bits call). SfbLmax is
// SBMAXLong-1 for a long block and the version's long/short split for a
// short one.
func (g *Info) Reset(version consts.Version, blockType int, mixed bool) {
	*g = Info{
		BlockType:      blockType,
		MixedBlockFlag: mixed,
		SfbLmax:        consts.SfbLmax(version),
		SfbSmin:        consts.SfbSmin,
	}
	if blockType != consts.BlockTypeShort {
		// A long block has scalefactors for every band but the last.
		g.SfbLmax = consts.SBMAXLong - 1
	}
}

// Clone returns a value copy, used by the outer loop to snapshot the
// best candidate seen so far: a plain value copy, not in-place mutation
// with manual undo.
func (g Info) Clone() Info { return g }

// Spectral is the per-granule-channel spectral working set: xr, xrpow,
// l3enc, scalefac and the psy-supplied distortion allowance.
type Spectral struct {
	Xr    [consts.SamplesPerGr]float64
	Xrpow [consts.SamplesPerGr]float64
	L3Enc [consts.SamplesPerGr]int

	ScalefacL [consts.SBMAXLong]int
	ScalefacS [consts.SBMAXShort][3]int

	L3XminL [consts.SBMAXLong]float64
	L3XminS [consts.SBMAXShort][3]float64

	// Distort[0] is the long-block distortion-to-threshold ratio;
	// Distort[1..3] are the three short-block windows
	// (distort[4][SBMAX_l], window axis folded into the first index so
	// a long-block granule just never touches 1..3).
	Distort [4][consts.SBMAXLong]float64
}

// ResetSpectral populates xr/xrpow/l3_xmin from the psy-model inputs and
// clears everything the outer loop will iterate on. |xr[i]|^(3/4) seeds
// xrpow; amplification steps multiply entries of Xrpow in place and must
// keep them consistent with the accumulated scalefactor amplification.
func (s *Spectral) ResetSpectral(xr []float64, l3XminL []float64, l3XminS [][3]float64) {
	*s = Spectral{}
	n := copy(s.Xr[:], xr)
	for i := 0; i < n; i++ {
		s.Xrpow[i] = pow34(s.Xr[i])
	}
	copy(s.L3XminL[:], l3XminL)
	for sfb := range l3XminS {
		if sfb >= len(s.L3XminS) {
			break
		}
		s.L3XminS[sfb] = l3XminS[sfb]
	}
}

func pow34(x float64) float64 {
	if x < 0 {
		x = -x
	}
	return math.Pow(x, 0.75)
}

// Snapshot is the value the outer loop restores on every non-best
// branch: GranuleInfo, scalefac and xrpow must revert together.
type Snapshot struct {
	Info     Info
	Spectral Spectral
}

// Save captures the current state.
func Save(info Info, spec Spectral) Snapshot {
	return Snapshot{Info: info.Clone(), Spectral: spec}
}

// Restore writes the snapshot back into info/spec.
func (s Snapshot) Restore(info *Info, spec *Spectral) {
	*info = s.Info
	*spec = s.Spectral
}
