package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule_SortsDescending(t *testing.T) {
	s, err := ParseSchedule(" 100:10, 1600:100 ,600:25,1100:50")
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule(), s)
	assert.Equal(t, "1600:100,1100:50,600:25,100:10", s.String())
}

func TestParseSchedule_Rejects(t *testing.T) {
	cases := map[string]error{
		"":              ErrInvalidSchedule,
		"100":           ErrInvalidSchedule,
		"abc:10":        ErrInvalidSchedule,
		"100:-1":        ErrInvalidSchedule,
		"0:10":          ErrThresholdOutOfRange,
		"10001:10":      ErrThresholdOutOfRange,
		"100:10,100:20": ErrInvalidSchedule,
		"100:50,500:10": ErrNonMonotonicSchedule,
	}
	for input, want := range cases {
		_, err := ParseSchedule(input)
		assert.ErrorIs(t, err, want, "input %q", input)
	}
}

func TestSchedule_PointsBelowLowestTier(t *testing.T) {
	assert.Zero(t, DefaultSchedule().Points(99))
	assert.Equal(t, uint64(10), DefaultSchedule().Points(100))
	assert.Zero(t, Schedule(nil).Points(10_000))
}
