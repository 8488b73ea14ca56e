package chain

import (
	"errors"
	"fmt"
)

// Error represents a failure detected while indexing, walking or
// verifying a chain.
//
// A BROKEN_CHAIN error is an integrity finding, not a transient fault.
// It is always surfaced to the caller and never retried.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Key identifies the affected record, if any.
	Key []byte

	// Expected is the stored hash (BROKEN_CHAIN only).
	Expected string

	// Actual is the recomputed hash (BROKEN_CHAIN only).
	Actual string
}

// ErrorCode categorizes chain errors.
type ErrorCode string

const (
	// ErrCodeInvalidHead indicates the head key is missing.
	ErrCodeInvalidHead ErrorCode = "INVALID_CHAIN_HEAD"

	// ErrCodeCycleDetected indicates predecessor pointers form a cycle.
	ErrCodeCycleDetected ErrorCode = "CHAIN_CYCLE_DETECTED"

	// ErrCodeBrokenChain indicates a stored hash does not match its recomputation.
	ErrCodeBrokenChain ErrorCode = "BROKEN_CHAIN"

	// ErrCodeDuplicateKey indicates two rows share a primary key.
	ErrCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// ErrCodeMissingKey indicates a row has no primary-key value.
	ErrCodeMissingKey ErrorCode = "MISSING_KEY"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Code == ErrCodeBrokenChain:
		return fmt.Sprintf("%s: %s (key=%q, expected=%s, actual=%s)", e.Code, e.Message, e.Key, e.Expected, e.Actual)
	case e.Key != nil:
		return fmt.Sprintf("%s: %s (key=%q)", e.Code, e.Message, e.Key)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func hasCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsInvalidHead reports whether err is an INVALID_CHAIN_HEAD error.
func IsInvalidHead(err error) bool { return hasCode(err, ErrCodeInvalidHead) }

// IsCycle reports whether err is a CHAIN_CYCLE_DETECTED error.
func IsCycle(err error) bool { return hasCode(err, ErrCodeCycleDetected) }

// IsBrokenChain reports whether err is a BROKEN_CHAIN error.
// Uses errors.As to handle wrapped errors.
func IsBrokenChain(err error) bool { return hasCode(err, ErrCodeBrokenChain) }

// IsDuplicateKey reports whether err is a DUPLICATE_KEY error.
func IsDuplicateKey(err error) bool { return hasCode(err, ErrCodeDuplicateKey) }

// NewInvalidHeadError creates an Error for a missing head key.
func NewInvalidHeadError() *Error {
	return &Error{
		Code:    ErrCodeInvalidHead,
		Message: "chain head key is missing",
	}
}

// NewCycleError creates an Error for a predecessor cycle reached at key.
func NewCycleError(key []byte) *Error {
	return &Error{
		Code:    ErrCodeCycleDetected,
		Message: "predecessor pointers revisit a key",
		Key:     cloneBytes(key),
	}
}

// NewBrokenChainError creates an Error for a hash mismatch at key.
func NewBrokenChainError(key []byte, expected, actual string) *Error {
	return &Error{
		Code:     ErrCodeBrokenChain,
		Message:  "stored hash does not match recomputation",
		Key:      cloneBytes(key),
		Expected: expected,
		Actual:   actual,
	}
}

// NewDuplicateKeyError creates an Error for a primary key seen twice.
func NewDuplicateKeyError(key []byte) *Error {
	return &Error{
		Code:    ErrCodeDuplicateKey,
		Message: "primary key appears more than once",
		Key:     cloneBytes(key),
	}
}

// NewMissingKeyError creates an Error for a row without a primary-key value.
func NewMissingKeyError(column string) *Error {
	return &Error{
		Code:    ErrCodeMissingKey,
		Message: fmt.Sprintf("row has no value for primary-key column %q", column),
	}
}
