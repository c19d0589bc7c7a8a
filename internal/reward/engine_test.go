package reward

import (
	"math"
	"testing"

	"github.com/septivank/greenmove-rewards/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_ThirdBelowBaseline(t *testing.T) {
	res := DefaultEngine().Compute(state.CategoryWater, 80, 120, []uint64{80})

	assert.Equal(t, uint64(100), res.Points)
	assert.Equal(t, uint64(3333), res.ReductionBps)
	assert.Equal(t, uint64(40), res.Saved)
	assert.Equal(t, uint64(120), res.Baseline)
}

func TestCompute_MarginalReductionTruncatesToZero(t *testing.T) {
	res := DefaultEngine().Compute(state.CategoryWater, 119, 120, []uint64{80, 119})

	assert.Equal(t, uint64(83), res.ReductionBps)
	assert.Zero(t, res.Points)
	assert.Equal(t, uint64(1), res.Saved)
}

func TestCompute_AtOrAboveBaseline(t *testing.T) {
	e := DefaultEngine()
	for _, q := range []uint64{120, 121, 500, math.MaxUint64} {
		res := e.Compute(state.CategoryWater, q, 120, nil)
		assert.Zero(t, res.Points, "quantity %d", q)
		assert.Zero(t, res.Saved, "quantity %d", q)
	}
}

func TestCompute_ZeroBaseline(t *testing.T) {
	res := DefaultEngine().Compute(state.CategoryEnergy, 0, 0, nil)
	assert.Zero(t, res.Points)
	assert.Zero(t, res.ReductionBps)
}

func TestCompute_Tiers(t *testing.T) {
	e := DefaultEngine()
	cases := []struct {
		quantity uint64
		points   uint64
	}{
		{quantity: 0, points: 100},
		{quantity: 84, points: 100}, // 16.0%
		{quantity: 85, points: 50},  // 15.0%
		{quantity: 89, points: 50},  // 11.0%
		{quantity: 90, points: 25},  // 10.0%
		{quantity: 94, points: 25},  // 6.0%
		{quantity: 95, points: 10},  // 5.0%
		{quantity: 99, points: 10},  // 1.0%
		{quantity: 100, points: 0},
	}
	for _, tc := range cases {
		res := e.Compute(state.CategoryWater, tc.quantity, 100, nil)
		assert.Equal(t, tc.points, res.Points, "quantity %d", tc.quantity)
	}
}

func TestCompute_EnergyUsesItsOwnPolicy(t *testing.T) {
	energy, err := ParseSchedule("5000:7")
	require.NoError(t, err)
	e := NewEngine(
		Policy{Schedule: DefaultSchedule(), DefaultBaseline: 120},
		Policy{Schedule: energy, DefaultBaseline: 80},
	)

	assert.Equal(t, uint64(100), e.Compute(state.CategoryWater, 50, 80, nil).Points)
	assert.Zero(t, e.Compute(state.CategoryEnergy, 50, 80, nil).Points)
	assert.Equal(t, uint64(7), e.Compute(state.CategoryEnergy, 40, 80, nil).Points)
}

func TestCompute_MonotoneInQuantity(t *testing.T) {
	e := DefaultEngine()
	for _, baseline := range []uint64{1, 7, 80, 120, 1_000_003} {
		prev := uint64(math.MaxUint64)
		step := baseline/200 + 1
		for q := uint64(0); q <= baseline+step; q += step {
			pts := e.Compute(state.CategoryWater, q, baseline, nil).Points
			require.LessOrEqual(t, pts, prev, "baseline %d quantity %d", baseline, q)
			prev = pts
		}
	}
}

func TestReductionBps_NoOverflowNearMax(t *testing.T) {
	assert.Equal(t, uint64(BpsDenominator-1), ReductionBps(1, math.MaxUint64/10_000*10_000))
	assert.Equal(t, uint64(4999), ReductionBps(math.MaxUint64/2+1, math.MaxUint64))
}

func TestNextBaseline_WarmupKeepsSeed(t *testing.T) {
	p := Policy{BaselineWindow: 6}
	assert.Equal(t, uint64(120), p.NextBaseline(120, []uint64{80, 119, 90}))
}

func TestNextBaseline_WindowMean(t *testing.T) {
	p := Policy{BaselineWindow: 3}
	assert.Equal(t, uint64(100), p.NextBaseline(120, []uint64{500, 90, 100, 110}))
	assert.Equal(t, uint64(103), p.NextBaseline(120, []uint64{100, 100, 110}))
}

func TestNextBaseline_StableUnderIdenticalInputs(t *testing.T) {
	p := Policy{BaselineWindow: DefaultBaselineWindow}
	baseline := uint64(120)
	var recent []uint64
	for i := 0; i < 20; i++ {
		recent = append(recent, 90)
		baseline = p.NextBaseline(baseline, recent)
	}
	assert.Equal(t, uint64(90), baseline)
	assert.Equal(t, uint64(90), p.NextBaseline(baseline, append(recent, 90)))
}

func TestNextBaseline_FixedWhenWindowDisabled(t *testing.T) {
	p := Policy{}
	assert.Equal(t, uint64(120), p.NextBaseline(120, []uint64{1, 2, 3, 4, 5, 6, 7}))
}

func TestMean_LargeValues(t *testing.T) {
	assert.Equal(t, uint64(math.MaxUint64), Mean([]uint64{math.MaxUint64, math.MaxUint64}))
	assert.Zero(t, Mean(nil))
}
