// Package reward converts conservation into points.
//
// All arithmetic is integer. The reduction of a reading against its
// baseline is expressed in basis points and truncated toward zero, then
// mapped to points through a tier schedule. Baselines adapt to the mean of
// the most recent samples once a full window has been observed.
package reward

import (
	"github.com/holiman/uint256"
	"github.com/septivank/greenmove-rewards/internal/state"
)

// BpsDenominator is 100% in basis points.
const BpsDenominator = 10_000

// DefaultBaselineWindow is the number of samples averaged into a baseline.
const DefaultBaselineWindow = 6

// Policy configures rewards for one category.
type Policy struct {
	Schedule        Schedule
	DefaultBaseline uint64
	// BaselineWindow of zero keeps the baseline fixed at its seed.
	BaselineWindow int
}

// Result is the outcome of judging one reading.
type Result struct {
	Points       uint64
	ReductionBps uint64
	Saved        uint64
	Baseline     uint64
}

// Engine holds the per-category policies.
type Engine struct {
	water  Policy
	energy Policy
}

func NewEngine(water, energy Policy) *Engine {
	return &Engine{water: water, energy: energy}
}

// DefaultEngine uses the same tier schedule for both categories with the
// default seeded baselines.
func DefaultEngine() *Engine {
	return NewEngine(
		Policy{Schedule: DefaultSchedule(), DefaultBaseline: state.DefaultWaterBaseline, BaselineWindow: DefaultBaselineWindow},
		Policy{Schedule: DefaultSchedule(), DefaultBaseline: state.DefaultEnergyBaseline, BaselineWindow: DefaultBaselineWindow},
	)
}

func (e *Engine) Policy(c state.Category) Policy {
	if c == state.CategoryEnergy {
		return e.energy
	}
	return e.water
}

// Compute judges quantity against baseline. recent holds the meter's
// retained quantities including the new one, oldest first; it only feeds
// the next baseline.
func (e *Engine) Compute(c state.Category, quantity, baseline uint64, recent []uint64) Result {
	p := e.Policy(c)
	bps := ReductionBps(quantity, baseline)
	return Result{
		Points:       p.Schedule.Points(bps),
		ReductionBps: bps,
		Saved:        Saved(quantity, baseline),
		Baseline:     p.NextBaseline(baseline, recent),
	}
}

// Saved is the non-negative shortfall of quantity below baseline.
func Saved(quantity, baseline uint64) uint64 {
	if quantity >= baseline {
		return 0
	}
	return baseline - quantity
}

// ReductionBps is (baseline-quantity)*10000/baseline truncated, or zero
// when quantity is at or above baseline or the baseline is zero.
func ReductionBps(quantity, baseline uint64) uint64 {
	if baseline == 0 || quantity >= baseline {
		return 0
	}
	diff := uint256.NewInt(baseline - quantity)
	diff.Mul(diff, uint256.NewInt(BpsDenominator))
	diff.Div(diff, uint256.NewInt(baseline))
	return diff.Uint64()
}

// NextBaseline returns the truncated mean of the last window samples, or
// current while fewer samples exist.
func (p Policy) NextBaseline(current uint64, recent []uint64) uint64 {
	if p.BaselineWindow <= 0 || len(recent) < p.BaselineWindow {
		return current
	}
	return Mean(recent[len(recent)-p.BaselineWindow:])
}

// Mean is the truncated integer mean. The sum is carried in 256 bits.
func Mean(values []uint64) uint64 {
	if len(values) == 0 {
		return 0
	}
	sum := new(uint256.Int)
	for _, v := range values {
		sum.Add(sum, uint256.NewInt(v))
	}
	sum.Div(sum, uint256.NewInt(uint64(len(values))))
	return sum.Uint64()
}
