// Package pose defines body-joint snapshots and the joint-angle calculation.
package pose

import (
	"fmt"
	"math"
	"time"
)

// Point2D is a joint position in a shared 2-D coordinate space (e.g. canvas pixels).
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point2D{X: x, Y: y}.
func Pt(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Finite reports whether both coordinates are finite.
func (p Point2D) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Distance returns the Euclidean distance between p and q.
func (p Point2D) Distance(q Point2D) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// JointName identifies one of the tracked joints.
type JointName string

const (
	Shoulder JointName = "shoulder"
	Elbow    JointName = "elbow"
	Wrist    JointName = "wrist"
	Hip      JointName = "hip"
	Knee     JointName = "knee"
	Ankle    JointName = "ankle"
)

// Joints lists every joint a frame must carry.
var Joints = []JointName{Shoulder, Elbow, Wrist, Hip, Knee, Ankle}

// ParseJoint validates a joint name.
func ParseJoint(name string) (JointName, error) {
	for _, j := range Joints {
		if string(j) == name {
			return j, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownJoint, name)
}

// JointFrame is one timestamped snapshot of joint positions.
// Frames are treated as immutable once handed to a session.
type JointFrame struct {
	Timestamp time.Time             `json:"ts"`
	Joints    map[JointName]Point2D `json:"joints"`
}

// NewFrame creates an empty frame stamped with ts.
func NewFrame(ts time.Time) JointFrame {
	return JointFrame{
		Timestamp: ts,
		Joints:    make(map[JointName]Point2D, len(Joints)),
	}
}

// Set stores a joint position and returns the frame for chaining.
func (f JointFrame) Set(name JointName, p Point2D) JointFrame {
	if f.Joints == nil {
		f.Joints = make(map[JointName]Point2D, len(Joints))
	}
	f.Joints[name] = p
	return f
}

// Get returns a joint position.
func (f JointFrame) Get(name JointName) (Point2D, bool) {
	p, ok := f.Joints[name]
	return p, ok
}

// Require returns the positions of the named joints in order, or a
// *MissingJointError for the first one absent.
func (f JointFrame) Require(names ...JointName) ([]Point2D, error) {
	points := make([]Point2D, len(names))
	for i, name := range names {
		p, ok := f.Joints[name]
		if !ok {
			return nil, &MissingJointError{Joint: name}
		}
		points[i] = p
	}
	return points, nil
}

// Validate checks that all six joints are present.
func (f JointFrame) Validate() error {
	_, err := f.Require(Joints...)
	return err
}

// Clone returns a deep copy of the frame.
func (f JointFrame) Clone() JointFrame {
	c := JointFrame{Timestamp: f.Timestamp, Joints: make(map[JointName]Point2D, len(f.Joints))}
	for k, v := range f.Joints {
		c.Joints[k] = v
	}
	return c
}
