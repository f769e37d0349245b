// Package mp3enc implements the perceptual-quantization loop and
// bit-reservoir-aware rate control at the heart of an MPEG-1/2/2.5
// Layer III encoder: given MDCT spectral coefficients and masking
// thresholds from a psychoacoustic model, it chooses scale factors, a
// global gain, Huffman table selections, and a bit budget for each
// granule, and keeps the bit reservoir consistent across a stream of
// frames. PCM ingest, the filter bank, the psy model proper, and
// bitstream byte-layout are out of scope; callers supply spectral
// coefficients and masking thresholds and receive back populated
// side-info and sign-applied quantized indices.
package mp3enc

import (
	"github.com/sorano-audio/mp3enc/internal/consts"
	"github.com/sorano-audio/mp3enc/internal/finalize"
	"github.com/sorano-audio/mp3enc/internal/framesize"
	"github.com/sorano-audio/mp3enc/internal/granule"
	"github.com/sorano-audio/mp3enc/internal/outer"
	"github.com/sorano-audio/mp3enc/internal/ratecontrol"
	"github.com/sorano-audio/mp3enc/internal/reservoir"
	"github.com/sorano-audio/mp3enc/internal/sfbt"
)

// Encoder holds everything that is built once and never re-entered
// from the hot path: the scalefactor-band table for this
// (version, samplerate), the bit reservoir, and per-channel gain
// history used to seed each granule's binary search.
type Encoder struct {
	cfg   Config
	table sfbt.Table
	res   *reservoir.Reservoir

	lastGain []int                // per-channel, seeds BinSearchStepSize for the next granule
	prevSpec []*granule.Spectral // per-channel, previous granule's scalefactors for best_scalefac_store

	frameNumber int // count of frames handed back so far, for the ancillary info tag
	byteCount   int // running total of bytes spent so far, for the info tag's stream-length field
}

// encoderDelaySamples is the fixed filterbank+MDCT lookahead a
// downstream LAME/Xing-style info tag reports alongside the stream so a
// player can trim it on decode. This module never touches PCM, so the
// value is the constant every bitstream writer downstream of it expects.
const encoderDelaySamples = 576

// NewEncoder validates cfg and builds an Encoder ready to process
// frames. This mirrors the single front-loaded-validation constructor
// idiom used throughout this module: all configuration errors surface
// here, never mid-stream.
func NewEncoder(cfg Config) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	idx := sampleRateIndexFor(cfg.SampleRateHz)
	table := sfbt.Build(cfg.Version, idx)

	// Reservoir capacity is bounded by the frame's own nominal bit
	// budget: a fuller reservoir than that could never be drawn down by
	// a single frame anyway.
	maxRes := framesize.MaxFrameBits(cfg.Version, cfg.BitrateIndex, cfg.SampleRateHz)

	return &Encoder{
		cfg:      cfg,
		table:    table,
		res:      reservoir.New(maxRes),
		lastGain: make([]int, cfg.Channels),
		prevSpec: make([]*granule.Spectral, cfg.Channels),
	}, nil
}

// FrameResult is what EncodeFrame hands back per granule-channel,
// ready for a bitstream serializer.
type FrameResult struct {
	Infos      [][]granule.Info // [granule][channel]
	Specs      [][]*granule.Spectral
	Scfsi      [][4]bool // [channel], valid only when 2 granules were encoded
	OverCounts [][]int
	BitrateIdx int
	Stuffing   int

	// EncoderDelay, FrameNumber, ByteCount and VBRScale carry exactly the
	// fields an ancillary LAME/Xing-style info tag serializer needs and
	// can't derive itself, since that serializer never sees the
	// per-granule rate-control state this module works in. Writing the
	// tag's bytes stays a caller concern; this is only the data.
	EncoderDelay int
	FrameNumber  int // ordinal of this frame in the stream, 1-based
	ByteCount    int // running total of bytes spent by the stream so far, including this frame
	VBRScale     int // 0 (best) .. 100 (worst), meaningful only when VBRMode != VBROff
}

// EncodeFrame runs one frame (1 or 2 granules, 1 or 2 channels) through
// the outer loop via the configured rate-control driver, then
// finalizes every granule-channel. Granule 0 is always encoded before
// granule 1, and the left channel before the right, because later
// reservoir state depends on earlier granules having already run.
func (e *Encoder) EncodeFrame(granules [][]*GranuleInput) (*FrameResult, error) {
	numGranules := len(granules)
	res := &FrameResult{
		Infos:      make([][]granule.Info, numGranules),
		Specs:      make([][]*granule.Spectral, numGranules),
		OverCounts: make([][]int, numGranules),
		Scfsi:      make([][4]bool, e.cfg.Channels),
	}

	opt := outer.Options{
		Version:      e.cfg.Version,
		Mode:         e.cfg.ComparatorMode,
		NoiseShaping: e.cfg.NoiseShaping > 0,
		SingleWorst:  e.cfg.NoiseShaping == 0 && e.cfg.VBRMode == VBROff,
		VBRExtraBits: e.cfg.SFB21Extra && !e.cfg.DisableSfb21Extra,
	}

	for g := 0; g < numGranules; g++ {
		inputs := granules[g]
		if len(inputs) != e.cfg.Channels {
			return nil, &consts.UnexpectedEOF{At: "granule channel data"}
		}
		channels := make([]ratecontrol.ChannelState, len(inputs))
		infos := make([]granule.Info, len(inputs))
		specs := make([]*granule.Spectral, len(inputs))

		for ch, in := range inputs {
			infos[ch].Reset(e.cfg.Version, in.BlockType, in.MixedBlockFlag)
			spec := &granule.Spectral{}
			spec.ResetSpectral(in.Xr[:], in.L3XminL[:], sliceShort(in.L3XminS))
			specs[ch] = spec
			channels[ch] = ratecontrol.ChannelState{Info: &infos[ch], Spectral: spec, PE: in.PE}
		}

		params := ratecontrol.FrameParams{
			Version:      e.cfg.Version,
			SampleRateHz: e.cfg.SampleRateHz,
			BitrateIndex: e.cfg.BitrateIndex,
			Table:        e.table,
			Opt:          opt,
		}

		var frResult ratecontrol.FrameResult
		switch e.cfg.VBRMode {
		case VBRAbr:
			frResult = ratecontrol.EncodeABR(e.res, params, channels, e.lastGain)
		case VBRRh, VBRMt, VBRMtrh:
			frResult = ratecontrol.EncodeVBR(e.res, params, vbrParamsFor(e.cfg), channels, e.lastGain)
		default:
			frResult = ratecontrol.EncodeCBR(e.res, params, channels, e.lastGain)
		}

		res.Infos[g] = infos
		res.Specs[g] = specs
		res.OverCounts[g] = frResult.OverCounts
		res.BitrateIdx = frResult.BitrateIndex

		for ch := range infos {
			e.lastGain[ch] = infos[ch].GlobalGain
			prev := e.prevSpec[ch]
			if prev == nil {
				prev = specs[ch]
			}
			scfsi := finalize.Granule(e.res, prev, specs[ch], &infos[ch], e.table, frameMeanBitsPerChannel(e))
			if g == numGranules-1 {
				res.Scfsi[ch] = scfsi
			}
			e.prevSpec[ch] = specs[ch]
		}
	}

	meanBits := framesize.MeanBits(e.cfg.Version, e.cfg.BitrateIndex, e.cfg.SampleRateHz)
	total := 0
	for g := range res.Infos {
		for _, info := range res.Infos[g] {
			total += info.Part2_3Length
		}
	}
	res.Stuffing = e.res.FrameEnd(meanBits, total)

	e.frameNumber++
	e.byteCount += (total + res.Stuffing) / 8
	res.EncoderDelay = encoderDelaySamples
	res.FrameNumber = e.frameNumber
	res.ByteCount = e.byteCount
	res.VBRScale = vbrScaleFor(e.cfg)

	return res, nil
}

func frameMeanBitsPerChannel(e *Encoder) int {
	return framesize.MeanBits(e.cfg.Version, e.cfg.BitrateIndex, e.cfg.SampleRateHz) / e.cfg.Channels
}

// vbrParamsFor derives the VBR driver's per-frame parameters from the
// quality knob a caller actually sets: lower VBRQuality means higher
// fidelity, so it raises the bit floor; the side channel's discount is
// a fixed 0.25 whatever the quality. This compresses what upstream psy-model-aware
// VBR tuning does with an ATH curve and a compression-ratio table into
// a single linear floor term, since this module carries neither.
func vbrParamsFor(cfg Config) ratecontrol.VBRParams {
	return ratecontrol.VBRParams{
		Quality:     cfg.VBRQuality,
		MinMeanBits: (10 - cfg.VBRQuality) * 40,
		SidePenalty: 0.25,
	}
}

// vbrScaleFor reports the 0 (best) .. 100 (worst) scale an ancillary
// info tag uses to describe a VBR/ABR stream's target quality; for CBR
// streams it is meaningless and left at the lossless end of the range.
func vbrScaleFor(cfg Config) int {
	if cfg.VBRMode == VBROff {
		return 0
	}
	scale := cfg.VBRQuality * 10
	if scale > 100 {
		scale = 100
	}
	return scale
}

func sliceShort(a [consts.SBMAXShort][3]float64) [][3]float64 {
	out := make([][3]float64, len(a))
	copy(out, a[:])
	return out
}
