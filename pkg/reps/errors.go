package reps

import "errors"

// ErrInvalidConfiguration is returned when thresholds would make the
// transition band empty or inverted.
var ErrInvalidConfiguration = errors.New("reps: invalid configuration")
