package program

import (
	"errors"

	"github.com/septivank/greenmove-rewards/internal/state"
)

var (
	ErrAccountAlreadyInitialized = errors.New("program: account already initialized")
	ErrInvalidIdentifier         = errors.New("program: invalid identifier")
	ErrInvalidFeedAddress        = errors.New("program: invalid feed address")
	ErrUnauthorized              = errors.New("program: unauthorized")
	ErrAccountNotFound           = errors.New("program: account not found")
	ErrAddressMismatch           = errors.New("program: address mismatch")
	ErrExcessiveConsumption      = errors.New("program: excessive consumption")
	ErrTimestampsOutOfOrder      = errors.New("program: timestamps out of order")
	ErrInvalidAmount             = errors.New("program: invalid amount")
	ErrInvalidInstruction        = errors.New("program: invalid instruction")
	ErrDuplicateInstruction      = errors.New("program: duplicate instruction")

	ErrInsufficientPoints = state.ErrInsufficientPoints
	ErrArithmeticOverflow = state.ErrArithmeticOverflow
	ErrCapacityExceeded   = state.ErrCapacityExceeded
)

var codes = []struct {
	err  error
	code string
}{
	{ErrAccountAlreadyInitialized, "AccountAlreadyInitialized"},
	{ErrInvalidIdentifier, "InvalidIdentifier"},
	{ErrInvalidFeedAddress, "InvalidDepinFeedAddress"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrInsufficientPoints, "InsufficientPoints"},
	{ErrArithmeticOverflow, "ArithmeticOverflow"},
	{ErrAccountNotFound, "AccountNotFound"},
	{ErrAddressMismatch, "AddressMismatch"},
	{ErrExcessiveConsumption, "ExcessiveConsumption"},
	{ErrTimestampsOutOfOrder, "TimestampsOutOfOrder"},
	{ErrCapacityExceeded, "CapacityExceeded"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInvalidInstruction, "InvalidInstruction"},
	{ErrDuplicateInstruction, "DuplicateInstruction"},
}

// Code returns the stable name of a rejection, or "" for errors that are
// not part of the program's taxonomy (storage failures, cancellation).
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// IsRejection reports whether err is a deterministic rejection of the
// instruction rather than an infrastructure failure.
func IsRejection(err error) bool {
	return Code(err) != ""
}
