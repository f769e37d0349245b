package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/sorano-audio/mp3enc/internal/noise"
)

func TestBetterWithNoPriorAlwaysWins(t *testing.T) {
	modes := []Mode{ModeDefault, Mode1, Mode2, Mode3, Mode4, Mode5, Mode6, Mode7, Mode8}
	for _, m := range modes {
		assert.True(t, m.Better(noise.Result{}, noise.Result{}, false))
	}
}

func TestModeDefaultLexOrder(t *testing.T) {
	best := noise.Result{OverCount: 1, OverNoise: 5, TotNoise: 10}
	better := noise.Result{OverCount: 0, OverNoise: 100, TotNoise: 100}
	worse := noise.Result{OverCount: 2}

	assert.True(t, ModeDefault.Better(better, best, true))
	assert.False(t, ModeDefault.Better(worse, best, true))
}

func TestMode2RanksByTotalNoiseOnly(t *testing.T) {
	best := noise.Result{OverCount: 5, TotNoise: 10}
	calc := noise.Result{OverCount: 0, TotNoise: 9}
	assert.True(t, Mode2.Better(calc, best, true))
}

func TestMode6RequiresOneAndHalfDBMargin(t *testing.T) {
	best := noise.Result{MaxNoise: 10}
	justUnder := noise.Result{MaxNoise: 9}   // within 1.5 dB, not better
	wellUnder := noise.Result{MaxNoise: 8}   // beyond the slack
	assert.False(t, Mode6.Better(justUnder, best, true))
	assert.True(t, Mode6.Better(wellUnder, best, true))
}

func TestMode4SlackBand(t *testing.T) {
	best := noise.Result{MaxNoise: 10, TotNoise: 5, OverNoise: 0}
	within := noise.Result{MaxNoise: 9, TotNoise: 100, OverNoise: 0} // tie zone, higher total loses
	assert.False(t, Mode4.Better(within, best, true))

	farBetter := noise.Result{MaxNoise: 5, TotNoise: 100, OverNoise: 0}
	assert.True(t, Mode4.Better(farBetter, best, true))

	farWorse := noise.Result{MaxNoise: 20, TotNoise: 0, OverNoise: 0}
	assert.False(t, Mode4.Better(farWorse, best, true))
}

// A strictly dominant candidate (every axis lower) must win under every
// listed mode. Mode4 and Mode6 are left out: Mode6 needs max_noise to
// drop by 1.5 below the best's, which a zero candidate does not do when
// the best's max_noise is under 1.5.
func TestStrictlyDominantCandidateAlwaysWins(t *testing.T) {
	modes := []Mode{ModeDefault, Mode1, Mode2, Mode3, Mode5, Mode7, Mode8}
	rapid.Check(t, func(rt *rapid.T) {
		best := noise.Result{
			OverCount:  rapid.IntRange(1, 10).Draw(rt, "overCount"),
			OverNoise:  rapid.Float64Range(1, 100).Draw(rt, "overNoise"),
			TotNoise:   rapid.Float64Range(1, 100).Draw(rt, "totNoise"),
			MaxNoise:   rapid.Float64Range(1, 100).Draw(rt, "maxNoise"),
			KlemmNoise: rapid.Float64Range(1, 100).Draw(rt, "klemmNoise"),
		}
		calc := noise.Result{} // all zero: dominates on every axis
		for _, m := range modes {
			assert.True(rt, m.Better(calc, best, true))
		}
	})
}
