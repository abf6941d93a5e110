package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three error kinds the core distinguishes:
// configuration errors (construction-time, never recovered), input-data
// errors (checked before any bar is processed), and evaluation errors
// (per optimizer work item, caught and recorded rather than fatal).
var (
	// Configuration errors.
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidParameter = errors.New("parameter out of range")

	// Input-data errors.
	ErrEmptyBarTable          = errors.New("bar table is empty")
	ErrRaggedColumns          = errors.New("bar table columns have mismatched lengths")
	ErrNonMonotonicTimestamps = errors.New("timestamps are not non-decreasing")
	ErrDuplicateTimestamp     = errors.New("duplicate timestamp")
	ErrInvalidOHLC            = errors.New("OHLC values violate low<=min(open,close)<=max(open,close)<=high")
	ErrNegativeVolume         = errors.New("negative volume")
	ErrMissingColumn          = errors.New("required column missing")

	// Evaluation errors, recorded in an optimizer result row rather than
	// propagated.
	ErrMinTradesNotMet = errors.New("fewer trades than min_trades")
)

// RowError wraps a sentinel input-data error with the offending row
// index, so callers can report "which bar" without string-matching the
// message.
type RowError struct {
	Err   error
	Index int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%v at row %d", e.Err, e.Index)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// NewRowError wraps sentinel err with the row index it was found at.
func NewRowError(err error, index int) error {
	return &RowError{Err: err, Index: index}
}

// ColumnError wraps ErrMissingColumn with the missing column's name.
type ColumnError struct {
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMissingColumn, e.Column)
}

func (e *ColumnError) Unwrap() error {
	return ErrMissingColumn
}

// NewColumnError reports that the named required column is absent.
func NewColumnError(column string) error {
	return &ColumnError{Column: column}
}
