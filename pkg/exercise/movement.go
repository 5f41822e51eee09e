// Package exercise holds the movement models the tracker can follow and the
// static catalog of exercise variations shown by the presentation layer.
package exercise

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hiral-chawra/Protofito/pkg/pose"
	"github.com/hiral-chawra/Protofito/pkg/reps"
)

// ErrUnknownMovement is returned for a movement name with no model.
var ErrUnknownMovement = errors.New("exercise: unknown movement")

// Movement binds a three-joint chain to the thresholds that classify it.
// The angle is measured at Chain[1].
type Movement struct {
	Name       string            `json:"name"`
	Chain      [3]pose.JointName `json:"chain"`
	Thresholds reps.Thresholds   `json:"thresholds"`
}

// Vertex returns the joint the angle is measured at.
func (m Movement) Vertex() pose.JointName {
	return m.Chain[1]
}

// Angle computes the movement's joint angle for a frame.
func (m Movement) Angle(f pose.JointFrame) (float64, error) {
	pts, err := f.Require(m.Chain[:]...)
	if err != nil {
		return 0, err
	}
	return pose.AngleAt(pts[0], pts[1], pts[2])
}

// WithThresholds returns a copy of m using th.
func (m Movement) WithThresholds(th reps.Thresholds) Movement {
	m.Thresholds = th
	return m
}

// Built-in movement names.
const (
	PushUp = "pushup"
	Squat  = "squat"
)

var movements = map[string]Movement{
	PushUp: {
		Name:       PushUp,
		Chain:      [3]pose.JointName{pose.Shoulder, pose.Elbow, pose.Wrist},
		Thresholds: reps.DefaultThresholds(),
	},
	Squat: {
		Name:       Squat,
		Chain:      [3]pose.JointName{pose.Hip, pose.Knee, pose.Ankle},
		Thresholds: reps.Thresholds{DownMaxAngle: 100, UpMinAngle: 165},
	},
}

// LookupMovement returns a built-in movement by name.
func LookupMovement(name string) (Movement, error) {
	m, ok := movements[name]
	if !ok {
		return Movement{}, fmt.Errorf("%w: %q", ErrUnknownMovement, name)
	}
	return m, nil
}

// Movements lists the built-in movements sorted by name.
func Movements() []Movement {
	list := make([]Movement, 0, len(movements))
	for _, m := range movements {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
