package mp3enc

import "fmt"

// ConfigError reports a problem with an Encoder's configuration,
// discovered at construction time rather than in the hot path: a bad
// samplerate, mode, or bitrate-index combination.
type ConfigError struct {
	Field string
	Value any
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("mp3enc: config %s=%v: %s", e.Field, e.Value, e.Msg)
}

// ErrInvariantViolation describes a granule candidate that would leave
// global_gain, part2_3_length, or another field outside its documented
// range. EncodeFrame does not check these fields and never returns this
// error.
type ErrInvariantViolation struct {
	What string
}

func (e *ErrInvariantViolation) Error() string {
	return "mp3enc: invariant violation: " + e.What
}
