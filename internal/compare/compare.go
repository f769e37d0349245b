// Package compare implements the nine quantization comparator modes the
// outer loop uses to decide whether a new noise result beats the best
// one seen so far. Modeled as a tagged variant (a Mode value plus a
// single Better method) rather than an interface hierarchy, since the
// set of modes is closed and fixed by configuration.
package compare

import "github.com/sorano-audio/mp3enc/internal/noise"

// Mode selects one of the nine comparator strategies, set once from
// configuration (experimentalX).
type Mode int

const (
	ModeDefault Mode = iota // 0: lex order on (over_count, over_noise, tot_noise)
	Mode1
	Mode2
	Mode3
	Mode4
	Mode5
	Mode6
	Mode7
	Mode8 // single psychoacoustic scalar
)

// Better reports whether calc beats best under this mode. When haveBest
// is false (no prior candidate), it returns true without comparing.
func (m Mode) Better(calc, best noise.Result, haveBest bool) bool {
	if !haveBest {
		return true
	}
	switch m {
	case ModeDefault:
		return lexLess(calc, best)
	case Mode1:
		return calc.OverCount < best.OverCount ||
			(calc.OverCount == best.OverCount && calc.MaxNoise < best.MaxNoise)
	case Mode2:
		return calc.TotNoise < best.TotNoise
	case Mode3:
		return calc.OverCount < best.OverCount ||
			(calc.OverCount == best.OverCount && calc.TotNoise < best.TotNoise)
	case Mode4:
		return mode4Better(calc, best)
	case Mode5:
		return calc.OverNoise < best.OverNoise
	case Mode6:
		return calc.MaxNoise < best.MaxNoise-1.5
	case Mode7:
		return (calc.TotNoise + calc.OverNoise) < (best.TotNoise + best.OverNoise)
	case Mode8:
		return calc.KlemmNoise < best.KlemmNoise
	default:
		return lexLess(calc, best)
	}
}

func lexLess(calc, best noise.Result) bool {
	if calc.OverCount != best.OverCount {
		return calc.OverCount < best.OverCount
	}
	if calc.OverNoise != best.OverNoise {
		return calc.OverNoise < best.OverNoise
	}
	return calc.TotNoise < best.TotNoise
}

// mode4Better trades noise-peak against total noise with explicit bias
// bands: a candidate whose max_noise is within 2 dB of the best's is
// treated as a tie on that axis and broken by the composite
// tot+over sum; a candidate that is more than 2 dB worse on max_noise
// never wins even with a lower total.
func mode4Better(calc, best noise.Result) bool {
	const slack = 2.0
	if calc.MaxNoise <= best.MaxNoise-slack {
		return true
	}
	if calc.MaxNoise >= best.MaxNoise+slack {
		return false
	}
	return (calc.TotNoise + calc.OverNoise) < (best.TotNoise + best.OverNoise)
}
