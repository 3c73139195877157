package mask

import (
	"errors"
	"fmt"
)

// Typed failures of the editing core. Operations validate first and leave
// state untouched when they return one of these.
var (
	ErrDimensionMismatch = errors.New("mask: dimension mismatch")
	ErrOutOfBounds       = errors.New("mask: voxel out of bounds")
	ErrInvalidArgument   = errors.New("mask: invalid argument")

	// ErrNoVolume is the invalid-argument case of editing before a load;
	// it matches both itself and ErrInvalidArgument.
	ErrNoVolume = fmt.Errorf("%w: no volume loaded", ErrInvalidArgument)

	// Specific invalid-argument cases of the selection setters, split out
	// so the wire layer can report a precise code. Each also matches
	// ErrInvalidArgument.
	ErrUnknownLabel = fmt.Errorf("%w: label not in catalog", ErrInvalidArgument)
	ErrBadRadius    = fmt.Errorf("%w: brush radius out of range", ErrInvalidArgument)
	ErrUnknownTool  = fmt.Errorf("%w: unknown tool", ErrInvalidArgument)
)
