package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for control-cell operations.
var (
	// ErrShape indicates a vector of the wrong length at the cell boundary.
	ErrShape = errors.New("dynamo: vector shape violation")

	// ErrUnstable indicates a compensator or actuator coefficient set whose
	// recursion would diverge under bounded input.
	ErrUnstable = errors.New("dynamo: unstable coefficients")

	// ErrNotInitialized indicates a step on a cell that was never initialized.
	ErrNotInitialized = errors.New("dynamo: cell not initialized")

	// ErrTerminated indicates a step after terminate.
	ErrTerminated = errors.New("dynamo: cell terminated")

	// ErrSingular indicates an influence matrix that cannot be balanced.
	ErrSingular = errors.New("dynamo: influence matrix is singular")
)

// ShapeError wraps ErrShape with the offending operand.
type ShapeError struct {
	Operand string
	Want    int
	Got     int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("dynamo: %s has length %d, want %d", e.Operand, e.Got, e.Want)
}

func (e *ShapeError) Unwrap() error {
	return ErrShape
}

// CheckLen returns a *ShapeError when got != want.
func CheckLen(operand string, want, got int) error {
	if got != want {
		return &ShapeError{Operand: operand, Want: want, Got: got}
	}
	return nil
}
