package volume

import "errors"

var (
	// ErrTooManyVariables is returned when more than VariableLimit
	// variables are requested.
	ErrTooManyVariables = errors.New("volume: too many variables")

	// ErrNoVariables is returned when a Volume is created without any
	// variable.
	ErrNoVariables = errors.New("volume: at least one variable is required")

	// ErrInvalidSize is returned for non-positive image or ray sizes.
	ErrInvalidSize = errors.New("volume: invalid size")

	// ErrInvalidView is returned for a degenerate camera description.
	ErrInvalidView = errors.New("volume: invalid view")

	// ErrInvalidGrid is returned by RectilinearGrid.Validate.
	ErrInvalidGrid = errors.New("volume: invalid grid")

	// ErrInvalidTransferFunction is returned for an empty table or an
	// invalid scalar range.
	ErrInvalidTransferFunction = errors.New("volume: invalid transfer function")
)
