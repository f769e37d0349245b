// Package consts holds the process-wide, read-only tables and numeric
// constants the quantizer and rate-control core are built against: MPEG
// version/sample-rate indexing, block-type codes, scalefactor-band
// boundaries, and the small lookup tables the requantizer and
// pre-emphasis logic need. Everything here is data, built once and never
// mutated from the hot path.
package consts

import "math"

// Version identifies the MPEG audio version, matching the 2-bit ID field
// in the frame header (bits 19-20).
type Version int

const (
	Version2_5 Version = iota
	VersionReserved
	Version2
	Version1
)

// SamplesPerGr is the number of MDCT coefficients in one granule.
const SamplesPerGr = 576

// SBMAXLong is the number of scalefactor bands in a long block.
const SBMAXLong = 22

// SBMAXShort is the number of scalefactor bands in a short block.
const SBMAXShort = 13

// Block types, matching the 2-bit block_type field.
const (
	BlockTypeNorm = iota
	BlockTypeStart
	BlockTypeShort
	BlockTypeStop
)

// SfbLmax is the long-block/short-block split point for a mixed block:
// MPEG-1 treats the first 8 long-block SFBs as long, MPEG-2/2.5 only 6.
func SfbLmax(v Version) int {
	if v == Version1 {
		return 8
	}
	return 6
}

// SfbSmin is the first short-block SFB index in a mixed block.
const SfbSmin = 3

// SampleRateIndex enumerates the 2-bit sampling_frequency field.
type SampleRateIndex int

const (
	SampleRate0 SampleRateIndex = iota // 44100 / 22050 / 11025
	SampleRate1                        // 48000 / 24000 / 12000
	SampleRate2                        // 32000 / 16000 / 8000
)

// SampleRateHz returns the sample rate in Hz for (version, index).
func SampleRateHz(v Version, idx SampleRateIndex) int {
	table := [3][3]int{
		{44100, 48000, 32000}, // MPEG1
		{22050, 24000, 16000}, // MPEG2
		{11025, 12000, 8000},  // MPEG2.5
	}
	switch v {
	case Version1:
		return table[0][idx]
	case Version2:
		return table[1][idx]
	default:
		return table[2][idx]
	}
}

// lsfIndex maps Version to the "low sampling frequency" row used by the
// scalefactor-band and bitrate tables: 0 for MPEG-1, 1 for MPEG-2/2.5.
func lsfIndex(v Version) int {
	if v == Version1 {
		return 0
	}
	return 1
}

// sfBandIndicesLong[lsf][sfreq] gives the long-block SFB boundaries, in
// MDCT-bin units, terminated at 576. This is the standard ISO/IEC
// 11172-3 & 13818-3 Annex B scalefactor-band table, reproduced here
// because the retrieval pack's copy of the decoder's consts.go (which
// would otherwise have supplied these literals) was filtered out by the
// size cap; see DESIGN.md.
var sfBandIndicesLong = [2][3][]int{
	{ // MPEG-1
		{0, 4, 8, 12, 16, 20, 24, 30, 36, 44, 52, 62, 74, 90, 110, 134, 162, 196, 238, 288, 342, 418, 576},
		{0, 4, 8, 12, 16, 20, 24, 30, 36, 42, 50, 60, 72, 88, 106, 128, 156, 190, 230, 276, 330, 384, 576},
		{0, 4, 8, 12, 16, 20, 24, 30, 36, 44, 54, 66, 82, 102, 126, 156, 194, 240, 296, 364, 448, 550, 576},
	},
	{ // MPEG-2 / MPEG-2.5
		{0, 6, 12, 18, 24, 30, 36, 44, 54, 66, 80, 96, 116, 140, 168, 200, 238, 284, 336, 396, 464, 522, 576},
		{0, 6, 12, 18, 24, 30, 36, 44, 54, 66, 80, 96, 114, 136, 162, 194, 232, 278, 332, 394, 464, 540, 576},
		{0, 6, 12, 18, 24, 30, 36, 44, 54, 66, 80, 96, 116, 140, 168, 200, 238, 284, 336, 396, 464, 522, 576},
	},
}

// sfBandIndicesShort[lsf][sfreq] gives the short-block SFB boundaries, in
// per-window (192-sample) units, terminated at 192.
var sfBandIndicesShort = [2][3][]int{
	{ // MPEG-1
		{0, 4, 8, 12, 16, 22, 30, 40, 52, 66, 84, 106, 136, 192},
		{0, 4, 8, 12, 16, 22, 28, 38, 50, 64, 80, 100, 126, 192},
		{0, 4, 8, 12, 16, 22, 30, 42, 58, 78, 104, 138, 180, 192},
	},
	{ // MPEG-2 / MPEG-2.5
		{0, 4, 8, 12, 18, 24, 32, 42, 56, 74, 100, 132, 174, 192},
		{0, 4, 8, 12, 18, 26, 36, 48, 62, 80, 104, 136, 180, 192},
		{0, 4, 8, 12, 18, 26, 36, 48, 62, 80, 104, 134, 174, 192},
	},
}

// SfBandIndicesLong returns the long-block SFB boundary table for
// (version, sample-rate index). The returned slice has SBMAXLong+1 entries
// (SBMAXLong bands) and must not be mutated.
func SfBandIndicesLong(v Version, sfreq SampleRateIndex) []int {
	return sfBandIndicesLong[lsfIndex(v)][sfreq]
}

// SfBandIndicesShort returns the short-block (per-window) SFB boundary
// table for (version, sample-rate index).
func SfBandIndicesShort(v Version, sfreq SampleRateIndex) []int {
	return sfBandIndicesShort[lsfIndex(v)][sfreq]
}

// Pretab is the fixed pre-emphasis table applied to long-block
// scalefactors when preflag is set, indexed by SFB. It undoes exactly
// the emphasis a compliant decoder's dequantizer re-applies.
var Pretab = []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 3, 3, 3, 2, 0}

// Powtab34 is precomputed i^(4/3) for i in [0, 8207), used both to build
// xrpow (|xr|^(3/4) is the quantizer-side analog) and to dequantize
// l3enc back to a magnitude when computing quantization noise.
var Powtab34 [8207]float64

func init() {
	for i := range Powtab34 {
		Powtab34[i] = math.Pow(float64(i), 4.0/3.0)
	}
}

// IPOW20 gives 2^((i-210)/4) for i in [0,400), the inverse-power-of-two
// table used to rescale xrpow by 2^(0.25) steps when raising a
// subblock_gain clamps a scalefactor to zero. Centered the same way
// global_gain is centered (offset 210) so the same table serves both.
var IPOW20 [400]float64

func init() {
	for i := range IPOW20 {
		IPOW20[i] = math.Pow(2.0, 0.25*(float64(i)-210))
	}
}

// UnexpectedEOF reports a frame whose granule data ran out early: a
// caller handed EncodeFrame fewer per-channel inputs than Config.Channels
// requires, the same "stream ended mid-structure" shape this error name
// usually reports for a truncated bitstream.
type UnexpectedEOF struct {
	At string
}

func (e *UnexpectedEOF) Error() string {
	return "mp3enc: unexpected EOF at " + e.At
}
