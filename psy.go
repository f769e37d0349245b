package mp3enc

import "github.com/sorano-audio/mp3enc/internal/consts"

// GranuleInput is the straightforward (xr, l3_xmin, block_type) bundle
// the quantizer core consumes from the psy model. The psy model itself
// produces block-type decisions delayed by one granule, because
// block-type for granule N depends on granule N+1's transient
// detection; that delay is a property of the driver around this core,
// not of the core itself; the driver keeps the delay line and passes
// each granule its already-delayed bundle.
type GranuleInput struct {
	Xr      [consts.SamplesPerGr]float64
	L3XminL [consts.SBMAXLong]float64
	L3XminS [consts.SBMAXShort][3]float64

	BlockType      int
	MixedBlockFlag bool

	PE    float64
	Ratio float64
}

// DelayLine holds one pending GranuleInput per channel so a driver can
// present the quantizer with data delayed by exactly one granule, the
// lag the psy model's transient detector requires.
type DelayLine struct {
	pending []*GranuleInput
}

// NewDelayLine returns a delay line for the given channel count, with
// no pending granule yet (the first Push has nothing to return).
func NewDelayLine(channels int) *DelayLine {
	return &DelayLine{pending: make([]*GranuleInput, channels)}
}

// Push stores next's input for channel ch and returns the previously
// pending input for that channel (nil on the very first call, meaning
// the driver has nothing to encode yet for that channel).
func (d *DelayLine) Push(ch int, next *GranuleInput) *GranuleInput {
	prev := d.pending[ch]
	d.pending[ch] = next
	return prev
}

// Flush returns and clears whatever is still pending for channel ch, at
// end of stream when there is no "next" granule to pair it with.
func (d *DelayLine) Flush(ch int) *GranuleInput {
	prev := d.pending[ch]
	d.pending[ch] = nil
	return prev
}
