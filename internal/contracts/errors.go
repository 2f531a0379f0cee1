package contracts

import "errors"

// Error taxonomy shared by every analysis package.
// Callers match with errors.Is; producers wrap with fmt.Errorf("...: %w").
var (
	// ErrNumericalInstability: singular or near-singular matrix during optimisation
	ErrNumericalInstability = errors.New("numerical instability")

	// ErrArithmetic: division by zero or log of a non-positive value
	ErrArithmetic = errors.New("arithmetic error")

	// ErrInsufficientData: too few observations for a computation
	ErrInsufficientData = errors.New("insufficient data")
)
