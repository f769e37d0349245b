// Package framesize turns a bitrate index into a frame's bit budget:
// given a bitrate index, how many bits can this frame spend. The
// reservoir driver and the ABR/VBR bitrate-index scans both need this
// capacity before they can decide how much to borrow or repay.
package framesize

import "github.com/sorano-audio/mp3enc/internal/consts"

// bitrateTableKbps[version][index] in kbps. Index 0 is "free" (unused by
// the encoder, which always picks a fixed index), index 15 is reserved.
var bitrateTableKbps = [2][16]int{
	{ // MPEG-1 Layer III
		0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0,
	},
	{ // MPEG-2 / MPEG-2.5 Layer III
		0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0,
	},
}

// NumBitrates is the count of usable (non-zero, non-reserved) bitrate
// indices, shared by every version.
const NumBitrates = 14

func row(v consts.Version) int {
	if v == consts.Version1 {
		return 0
	}
	return 1
}

// BitrateBps returns the nominal bitrate for (version, index) in bits
// per second, or 0 for the reserved/free indices.
func BitrateBps(v consts.Version, index int) int {
	if index < 0 || index > 15 {
		return 0
	}
	return bitrateTableKbps[row(v)][index] * 1000
}

// SlotsPerFrame returns how many main-data slots (bytes for Layer III)
// this frame may occupy for (version, index, sampleRateHz), minus
// padding (padding is a per-frame +1 byte decided by the reservoir
// driver from the fractional remainder, not part of this table).
func SlotsPerFrame(v consts.Version, index int, sampleRateHz int) int {
	bps := BitrateBps(v, index)
	if bps == 0 || sampleRateHz == 0 {
		return 0
	}
	if v == consts.Version1 {
		return 144 * bps / sampleRateHz
	}
	return 72 * bps / sampleRateHz
}

// MaxFrameBits returns the number of bits available to a frame at the
// given bitrate index, before reservoir borrowing: 8 bits per main-data
// slot, independent of the padding bit (which contributes at most one
// extra byte and is decided per-frame by the driver).
func MaxFrameBits(v consts.Version, index int, sampleRateHz int) int {
	return SlotsPerFrame(v, index, sampleRateHz) * 8
}

// MeanBits returns the per-frame bit budget the reservoir drivers start
// from: MaxFrameBits split evenly, conventionally called "mean_bits"
// throughout rate-control literature.
func MeanBits(v consts.Version, index int, sampleRateHz int) int {
	return MaxFrameBits(v, index, sampleRateHz)
}
