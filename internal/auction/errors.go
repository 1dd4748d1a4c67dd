package auction

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes validation failures surfaced to callers.
type ErrorCode string

const (
	// ErrCodeRoundAlreadyActive indicates a round start while one is active.
	ErrCodeRoundAlreadyActive ErrorCode = "ROUND_ALREADY_ACTIVE"

	// ErrCodeNoActiveRound indicates a bid with no round in progress.
	ErrCodeNoActiveRound ErrorCode = "NO_ACTIVE_ROUND"

	// ErrCodeRoundMismatch indicates a bid tagged with a round ID that is no
	// longer (or not yet) the current round.
	ErrCodeRoundMismatch ErrorCode = "ROUND_MISMATCH"

	// ErrCodeInvalidIncrement indicates a bid delta outside the allowed set.
	ErrCodeInvalidIncrement ErrorCode = "INVALID_INCREMENT"

	// ErrCodeNameRequired indicates a round start without a display name.
	ErrCodeNameRequired ErrorCode = "NAME_REQUIRED"

	// ErrCodeInvalidStartPrice indicates a negative start price.
	ErrCodeInvalidStartPrice ErrorCode = "INVALID_START_PRICE"

	// ErrCodeItemRequired indicates a round start with an empty item.
	ErrCodeItemRequired ErrorCode = "ITEM_REQUIRED"
)

// Error is a validation failure from a state transition. All error kinds are
// local and synchronous; the core never retries. Messages are diagnostics
// only - callers should branch on Code.
type Error struct {
	Code    ErrorCode
	Message string

	// RoundID identifies the round involved, when one is relevant.
	RoundID int64
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.RoundID != 0 {
		return fmt.Sprintf("%s: %s (round=%d)", e.Code, e.Message, e.RoundID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the error code from err, unwrapping as needed.
// Returns "" for non-auction errors.
func CodeOf(err error) ErrorCode {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsCode reports whether err is an auction error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func newRoundError(code ErrorCode, roundID int64, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), RoundID: roundID}
}
