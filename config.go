package mp3enc

import (
	"github.com/sorano-audio/mp3enc/internal/compare"
	"github.com/sorano-audio/mp3enc/internal/consts"
)

// VBRMode selects which rate-control driver an Encoder uses.
type VBRMode int

const (
	VBROff VBRMode = iota
	VBRAbr
	VBRRh
	VBRMt
	VBRMtrh
)

// Config is the full set of encoder-wide settings, validated once by
// NewEncoder. There is no functional-options builder here: a
// constructor that front-loads validation and returns (*Encoder, error)
// is the idiom this module follows throughout.
type Config struct {
	Version      consts.Version
	SampleRateHz int
	Channels     int // 1 or 2

	VBRMode        VBRMode
	VBRQuality     int // 0..9, lower is better quality
	Quality        int // 0..9, 0 slowest/best, 9 fastest
	BitrateIndex   int // fixed index for CBR; start of ABR's upward scan; VBR's scan starts at the lowest index
	ABRBitrateKbps int

	ComparatorMode      compare.Mode // experimentalX
	DisableSfb21Extra   bool         // experimentalY
	AltSubblockGainGate bool         // experimentalZ

	NoiseShaping     int  // 0 = single pass; any value > 0 (1 and 2 alike) = full amplification with scale-scale promotion
	NoiseShapingStop int
	NoiseShapingAmp  int
	SFB21Extra       bool
}

// Validate checks a Config for the combinations the bitstream format
// actually allows, returning a *ConfigError naming the first problem
// found.
func (c Config) Validate() error {
	switch c.Version {
	case consts.Version1, consts.Version2, consts.Version2_5:
	default:
		return &ConfigError{Field: "Version", Value: c.Version, Msg: "unknown MPEG version"}
	}
	if c.Channels != 1 && c.Channels != 2 {
		return &ConfigError{Field: "Channels", Value: c.Channels, Msg: "must be 1 or 2"}
	}
	if consts.SampleRateHz(c.Version, sampleRateIndexFor(c.SampleRateHz)) != c.SampleRateHz {
		return &ConfigError{Field: "SampleRateHz", Value: c.SampleRateHz, Msg: "not valid for this MPEG version"}
	}
	if c.VBRQuality < 0 || c.VBRQuality > 9 {
		return &ConfigError{Field: "VBRQuality", Value: c.VBRQuality, Msg: "must be in [0,9]"}
	}
	if c.Quality < 0 || c.Quality > 9 {
		return &ConfigError{Field: "Quality", Value: c.Quality, Msg: "must be in [0,9]"}
	}
	if c.BitrateIndex < 1 || c.BitrateIndex > 14 {
		return &ConfigError{Field: "BitrateIndex", Value: c.BitrateIndex, Msg: "must be in [1,14]"}
	}
	return nil
}

func sampleRateIndexFor(hz int) consts.SampleRateIndex {
	for _, v := range []consts.Version{consts.Version1, consts.Version2, consts.Version2_5} {
		for idx := consts.SampleRateIndex(0); idx < 3; idx++ {
			if consts.SampleRateHz(v, idx) == hz {
				return idx
			}
		}
	}
	return consts.SampleRateIndex(0)
}
