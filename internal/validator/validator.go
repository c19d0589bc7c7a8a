package validator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/tools/timeparser"
)

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid bool
	Reason  string
}

func invalid(format string, args ...any) ValidationResult {
	return ValidationResult{IsValid: false, Reason: fmt.Sprintf(format, args...)}
}

// Reading is a single feed reading as delivered on the wire. Name is the
// external id of the meter it belongs to.
type Reading struct {
	Date string
	Data string
	Name string
}

// Validator checks feed readings before they become instructions
type Validator struct {
	timestampToleranceMinutes int
}

// NewValidator creates a new validator with the specified tolerance
func NewValidator(timestampToleranceMinutes int) *Validator {
	return &Validator{
		timestampToleranceMinutes: timestampToleranceMinutes,
	}
}

// ValidateReading validates a single reading and returns its quantity and
// reading time. An empty Date yields a zero time.
func (v *Validator) ValidateReading(r Reading, receivedAt time.Time) (uint64, time.Time, ValidationResult) {
	if r.Name == "" {
		return 0, time.Time{}, invalid("empty meter id")
	}

	quantity, err := ParseQuantity(r.Data)
	if err != nil {
		return 0, time.Time{}, invalid("invalid quantity: %v", err)
	}

	if r.Date == "" {
		return quantity, time.Time{}, ValidationResult{IsValid: true}
	}

	readingTime, err := timeparser.ParseFeedTimestamp(r.Date)
	if err != nil {
		return quantity, time.Time{}, invalid("invalid timestamp format: %v", err)
	}

	if !timeparser.IsWithinTolerance(readingTime, receivedAt, v.timestampToleranceMinutes) {
		return quantity, readingTime, invalid("timestamp outside tolerance window (±%d minutes)", v.timestampToleranceMinutes)
	}

	return quantity, readingTime, ValidationResult{IsValid: true}
}

// ParseQuantity reads a non-negative integer quantity. Square brackets
// around the value are stripped.
func ParseQuantity(data string) (uint64, error) {
	value := strings.TrimSpace(strings.Trim(strings.TrimSpace(data), "[]"))
	if value == "" {
		return 0, fmt.Errorf("empty value")
	}
	if strings.HasPrefix(value, "-") {
		return 0, fmt.Errorf("negative value detected")
	}
	q, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return q, nil
}

// ParseAddress decodes a required base58 address field.
func ParseAddress(field, s string) (address.Address, ValidationResult) {
	if s == "" {
		return address.Address{}, invalid("%s is required", field)
	}
	a, err := address.Parse(s)
	if err != nil {
		return address.Address{}, invalid("invalid %s: %v", field, err)
	}
	return a, ValidationResult{IsValid: true}
}

// ParseOptionalAddress decodes an address field that may be empty.
func ParseOptionalAddress(field, s string) (address.Address, ValidationResult) {
	if s == "" {
		return address.Address{}, ValidationResult{IsValid: true}
	}
	return ParseAddress(field, s)
}
