package timeparser_test

import (
	"testing"
	"time"

	"github.com/septivank/greenmove-rewards/tools/timeparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedTimestamp_Formats(t *testing.T) {
	expected := time.Date(2025, 12, 29, 10, 30, 45, 0, time.UTC)
	for _, in := range []string{
		"29/12/2025 10:30:45",
		"29 10:30:45/12/2025",
		"2025-12-29T10:30:45Z",
		"1767004245",
	} {
		got, err := timeparser.ParseFeedTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(expected), "%s parsed as %v", in, got)
	}
}

func TestParseFeedTimestamp_Invalid(t *testing.T) {
	for _, in := range []string{"invalid-date-string", "-5", ""} {
		_, err := timeparser.ParseFeedTimestamp(in)
		assert.Error(t, err, in)
	}
}

func TestIsWithinTolerance(t *testing.T) {
	reading := time.Date(2025, 12, 29, 10, 30, 0, 0, time.UTC)

	assert.True(t, timeparser.IsWithinTolerance(reading, reading.Add(3*time.Minute), 5))
	assert.False(t, timeparser.IsWithinTolerance(reading, reading.Add(6*time.Minute), 5))
	assert.True(t, timeparser.IsWithinTolerance(reading, reading.Add(-3*time.Minute), 5), "negative difference")
	assert.True(t, timeparser.IsWithinTolerance(reading, reading.Add(5*time.Minute), 5), "exact boundary")
}
