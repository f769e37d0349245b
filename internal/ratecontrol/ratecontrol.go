// Package ratecontrol implements the three rate-control drivers (CBR,
// ABR, VBR), sharing only the outer-loop contract rather than any
// inheritance hierarchy: each is an independent entry point that
// computes per-granule target bits, invokes the outer loop, and
// reconciles the reservoir.
package ratecontrol

import (
	"github.com/sorano-audio/mp3enc/internal/consts"
	"github.com/sorano-audio/mp3enc/internal/framesize"
	"github.com/sorano-audio/mp3enc/internal/granule"
	"github.com/sorano-audio/mp3enc/internal/outer"
	"github.com/sorano-audio/mp3enc/internal/reservoir"
	"github.com/sorano-audio/mp3enc/internal/sfbt"
)

// ChannelState is the per-channel granule state the drivers operate on:
// one entry per (granule, channel) in the frame, in encode order.
type ChannelState struct {
	Info     *granule.Info
	Spectral *granule.Spectral
	PE       float64 // perceptual entropy from the psy model
}

// FrameParams bundles the encoder-wide settings a driver needs for one
// frame.
type FrameParams struct {
	Version      consts.Version
	SampleRateHz int
	BitrateIndex int
	Table        sfbt.Table
	Opt          outer.Options
}

// FrameResult reports what a driver spent so the caller can finalize
// the reservoir and pick a frame header.
type FrameResult struct {
	TotalBits    int
	OverCounts   []int
	BitrateIndex int
}

// EncodeCBR computes per-channel target_bits from perceptual entropy
// (on_pe), applies mid/side re-allocation when both channels are
// present (reduce_side), then runs the outer loop per channel.
func EncodeCBR(res *reservoir.Reservoir, p FrameParams, channels []ChannelState, startGain []int) FrameResult {
	frameBits := framesize.MaxFrameBits(p.Version, p.BitrateIndex, p.SampleRateHz)
	meanBits := framesize.MeanBits(p.Version, p.BitrateIndex, p.SampleRateHz) / len(channels)
	maxFrameBits := res.FrameBegin(meanBits, frameBits)

	targets := onPE(channels, meanBits)
	if len(targets) == 2 {
		reduceSide(targets, channels)
	}

	out := FrameResult{OverCounts: make([]int, len(channels)), BitrateIndex: p.BitrateIndex}
	remaining := maxFrameBits
	for i, ch := range channels {
		target := targets[i]
		if target > remaining {
			target = remaining
		}
		r := outer.Loop(ch.Info, ch.Spectral, p.Table, target, startGain[i], p.Opt)
		out.OverCounts[i] = r.OverCount
		out.TotalBits += r.Part2_3Bits
		remaining -= r.Part2_3Bits
		// Reservoir adjustment happens once, at finalization
		// (finalize.Granule), not here: target-bits and real bits can
		// still move once best_huffman_divide re-runs.
	}
	return out
}

// onPE derives a per-channel target bit count from perceptual entropy:
// channels with higher pe get a larger share of the per-granule mean,
// clamped so no channel drops below a third of the mean or exceeds
// twice it.
func onPE(channels []ChannelState, meanBits int) []int {
	targets := make([]int, len(channels))
	totalPE := 0.0
	for _, ch := range channels {
		totalPE += ch.PE
	}
	if totalPE <= 0 {
		for i := range targets {
			targets[i] = meanBits
		}
		return targets
	}
	for i, ch := range channels {
		share := ch.PE / totalPE * float64(len(channels)) * float64(meanBits)
		t := int(share)
		if t < meanBits/3 {
			t = meanBits / 3
		}
		if t > meanBits*2 {
			t = meanBits * 2
		}
		targets[i] = t
	}
	return targets
}

// reduceSide shifts bits from the side channel (index 1) to the mid
// channel (index 0) when the side channel's pe is much lower than the
// mid's, reflecting that a quiet side signal needs fewer bits than an
// even split would give it.
func reduceSide(targets []int, channels []ChannelState) {
	if len(targets) != 2 {
		return
	}
	if channels[1].PE >= channels[0].PE {
		return
	}
	shift := (targets[0] - targets[1]) / 4
	if shift <= 0 {
		return
	}
	targets[1] -= shift
	targets[0] += shift
}

// CalcTargetBitsABR distributes a per-frame mean bitrate across
// granules/channels, adding a pe-dependent surge clamped to +/- 3/4 of
// the mean, scaled by a fixed factor of 0.95 (it is not derived from a
// compression ratio), capped at 4095 bits per granule-channel. If the sum would exceed the
// frame's maximum, every target is rescaled proportionally.
func CalcTargetBitsABR(channels []ChannelState, meanBitsPerChannel, maxFrameBits int) []int {
	targets := make([]int, len(channels))
	sum := 0
	for i, ch := range channels {
		surge := ch.PE - 700 // 700 is a neutral pe baseline
		surgeCap := float64(meanBitsPerChannel) * 0.75
		if surge > surgeCap {
			surge = surgeCap
		}
		if surge < -surgeCap {
			surge = -surgeCap
		}
		compression := 0.95
		t := meanBitsPerChannel + int(surge*compression)
		if t < 0 {
			t = 0
		}
		if t > 4095 {
			t = 4095
		}
		targets[i] = t
		sum += t
	}
	if sum > maxFrameBits && sum > 0 {
		for i := range targets {
			targets[i] = targets[i] * maxFrameBits / sum
		}
	}
	return targets
}

// EncodeABR runs CalcTargetBitsABR, then the outer loop per channel,
// then scans bitrate indices upward until one yields a frame capacity
// covering the bits actually used.
func EncodeABR(res *reservoir.Reservoir, p FrameParams, channels []ChannelState, startGain []int) FrameResult {
	meanBits := framesize.MeanBits(p.Version, p.BitrateIndex, p.SampleRateHz) / len(channels)
	frameBits := framesize.MaxFrameBits(p.Version, p.BitrateIndex, p.SampleRateHz)
	maxFrameBits := res.FrameBegin(meanBits, frameBits)

	targets := CalcTargetBitsABR(channels, meanBits, maxFrameBits)

	out := FrameResult{OverCounts: make([]int, len(channels))}
	for i, ch := range channels {
		r := outer.Loop(ch.Info, ch.Spectral, p.Table, targets[i], startGain[i], p.Opt)
		out.OverCounts[i] = r.OverCount
		out.TotalBits += r.Part2_3Bits
	}

	idx := p.BitrateIndex
	for idx < framesize.NumBitrates {
		if framesize.MaxFrameBits(p.Version, idx, p.SampleRateHz) >= out.TotalBits {
			break
		}
		idx++
	}
	if idx > framesize.NumBitrates {
		idx = framesize.NumBitrates
	}
	out.BitrateIndex = idx
	return out
}
