package anomaly

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Detector flags readings that spike above the rolling average of a meter's
// retained history. Thresholds are integer percentages so the check is
// deterministic.
type Detector struct {
	spikeThresholdPct         uint64
	minDataPointsForDetection int
}

// NewDetector creates a detector. A zero threshold disables spike detection.
func NewDetector(spikeThresholdPct uint64, minDataPointsForDetection int) *Detector {
	return &Detector{
		spikeThresholdPct:         spikeThresholdPct,
		minDataPointsForDetection: minDataPointsForDetection,
	}
}

// DetectAnomaly checks if the value is anomalous based on historical data
func (d *Detector) DetectAnomaly(value uint64, historicalValues []uint64) (bool, string) {
	if d == nil || d.spikeThresholdPct == 0 {
		return false, ""
	}

	// Need enough historical data for spike detection
	if len(historicalValues) == 0 || len(historicalValues) < d.minDataPointsForDetection {
		return false, ""
	}

	sum := new(uint256.Int)
	for _, v := range historicalValues {
		sum.Add(sum, uint256.NewInt(v))
	}
	if sum.IsZero() {
		return false, ""
	}

	// value*100*n > threshold*sum  <=>  value > threshold% of the average
	lhs := uint256.NewInt(value)
	lhs.Mul(lhs, uint256.NewInt(100))
	lhs.Mul(lhs, uint256.NewInt(uint64(len(historicalValues))))
	rhs := new(uint256.Int).Mul(sum, uint256.NewInt(d.spikeThresholdPct))

	if lhs.Gt(rhs) {
		average := new(uint256.Int).Div(sum, uint256.NewInt(uint64(len(historicalValues))))
		return true, fmt.Sprintf("sudden spike detected: value %d exceeds %d%% of rolling average %s",
			value, d.spikeThresholdPct, average.Dec())
	}

	return false, ""
}
