package pose

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateGeometry is returned when three points do not form a
	// triangle with non-zero sides at the vertex.
	ErrDegenerateGeometry = errors.New("pose: degenerate geometry")

	// ErrMissingJoint matches any *MissingJointError.
	ErrMissingJoint = errors.New("pose: missing joint")

	// ErrUnknownJoint is returned when a joint name is not one of the six tracked joints.
	ErrUnknownJoint = errors.New("pose: unknown joint")
)

// MissingJointError reports a joint absent from a JointFrame.
type MissingJointError struct {
	Joint JointName
}

// Error implements the error interface.
func (e *MissingJointError) Error() string {
	return fmt.Sprintf("pose: missing joint %q", e.Joint)
}

// Is lets errors.Is(err, ErrMissingJoint) match.
func (e *MissingJointError) Is(target error) bool {
	return target == ErrMissingJoint
}
