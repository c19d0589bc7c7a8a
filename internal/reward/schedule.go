package reward

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInvalidSchedule      = errors.New("reward: invalid tier schedule")
	ErrNonMonotonicSchedule = errors.New("reward: tier points must not decrease with reduction")
	ErrThresholdOutOfRange  = errors.New("reward: tier threshold out of range")
)

// Tier awards Points when the reduction reaches MinReductionBps.
type Tier struct {
	MinReductionBps uint64
	Points          uint64
}

// Schedule is a set of tiers ordered by descending threshold.
type Schedule []Tier

// DefaultSchedule: 16% → 100, 11% → 50, 6% → 25, 1% → 10.
func DefaultSchedule() Schedule {
	return Schedule{
		{MinReductionBps: 1600, Points: 100},
		{MinReductionBps: 1100, Points: 50},
		{MinReductionBps: 600, Points: 25},
		{MinReductionBps: 100, Points: 10},
	}
}

// Points returns the award of the highest tier reached.
func (s Schedule) Points(reductionBps uint64) uint64 {
	for _, t := range s {
		if reductionBps >= t.MinReductionBps {
			return t.Points
		}
	}
	return 0
}

// String renders the schedule in the form accepted by ParseSchedule.
func (s Schedule) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = fmt.Sprintf("%d:%d", t.MinReductionBps, t.Points)
	}
	return strings.Join(parts, ",")
}

// ParseSchedule reads "bps:points,bps:points". Thresholds must be within
// (0, 10000] and a higher threshold may never award fewer points.
func ParseSchedule(text string) (Schedule, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSchedule)
	}
	var s Schedule
	seen := map[uint64]bool{}
	for _, part := range strings.Split(text, ",") {
		bpsText, pointsText, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, part)
		}
		bps, err := strconv.ParseUint(strings.TrimSpace(bpsText), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: threshold %q: %v", ErrInvalidSchedule, bpsText, err)
		}
		points, err := strconv.ParseUint(strings.TrimSpace(pointsText), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: points %q: %v", ErrInvalidSchedule, pointsText, err)
		}
		if bps == 0 || bps > BpsDenominator {
			return nil, fmt.Errorf("%w: %d", ErrThresholdOutOfRange, bps)
		}
		if seen[bps] {
			return nil, fmt.Errorf("%w: duplicate threshold %d", ErrInvalidSchedule, bps)
		}
		seen[bps] = true
		s = append(s, Tier{MinReductionBps: bps, Points: points})
	}
	sort.Slice(s, func(i, j int) bool { return s[i].MinReductionBps > s[j].MinReductionBps })
	for i := 1; i < len(s); i++ {
		if s[i].Points > s[i-1].Points {
			return nil, fmt.Errorf("%w: %d bps awards %d, %d bps awards %d",
				ErrNonMonotonicSchedule, s[i].MinReductionBps, s[i].Points, s[i-1].MinReductionBps, s[i-1].Points)
		}
	}
	return s, nil
}
