package timeparser

import (
	"fmt"
	"strconv"
	"time"
)

// feedFormats are the layouts data feeds are known to send.
var feedFormats = []string{
	"02/01/2006 15:04:05", // DD/MM/YYYY HH:mm:ss
	"02 15:04:05/01/2006", // DD HH:mm:ss/MM/YYYY
	time.RFC3339,
}

// ParseFeedTimestamp parses a reading timestamp. Besides the layouts above
// it accepts a decimal count of unix seconds.
func ParseFeedTimestamp(dateStr string) (time.Time, error) {
	if secs, err := strconv.ParseInt(dateStr, 10, 64); err == nil {
		if secs < 0 {
			return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': negative unix time", dateStr)
		}
		return time.Unix(secs, 0).UTC(), nil
	}

	var lastErr error
	for _, format := range feedFormats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", dateStr, lastErr)
}

// IsWithinTolerance checks if the reading timestamp is within tolerance of received time
func IsWithinTolerance(readingTime, receivedTime time.Time, toleranceMinutes int) bool {
	diff := readingTime.Sub(receivedTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceMinutes)*time.Minute
}
