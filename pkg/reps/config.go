package reps

import (
	"fmt"
	"math"
)

// Default phase thresholds in degrees.
const (
	DefaultDownMaxAngle = 90.0
	DefaultUpMinAngle   = 160.0
)

// Thresholds holds the angle model used to classify phases.
// Angles at or below DownMaxAngle are Down, at or above UpMinAngle are Up,
// anything strictly between is Transitioning.
type Thresholds struct {
	DownMaxAngle float64 `yaml:"down_max_angle" json:"down_max_angle"`
	UpMinAngle   float64 `yaml:"up_min_angle" json:"up_min_angle"`
}

// DefaultThresholds returns the push-up thresholds (90° / 160°).
func DefaultThresholds() Thresholds {
	return Thresholds{
		DownMaxAngle: DefaultDownMaxAngle,
		UpMinAngle:   DefaultUpMinAngle,
	}
}

// Validate checks that the thresholds leave a non-empty transition band.
func (th Thresholds) Validate() error {
	if !validAngle(th.DownMaxAngle) {
		return fmt.Errorf("%w: down_max_angle %v outside [0, 180]", ErrInvalidConfiguration, th.DownMaxAngle)
	}
	if !validAngle(th.UpMinAngle) {
		return fmt.Errorf("%w: up_min_angle %v outside [0, 180]", ErrInvalidConfiguration, th.UpMinAngle)
	}
	if th.DownMaxAngle >= th.UpMinAngle {
		return fmt.Errorf("%w: down_max_angle %v must be below up_min_angle %v",
			ErrInvalidConfiguration, th.DownMaxAngle, th.UpMinAngle)
	}
	return nil
}

// Classify maps an angle to a phase. NaN and infinite angles are PhaseNoSignal.
func (th Thresholds) Classify(angle float64) Phase {
	switch {
	case math.IsNaN(angle) || math.IsInf(angle, 0):
		return PhaseNoSignal
	case angle <= th.DownMaxAngle:
		return PhaseDown
	case angle >= th.UpMinAngle:
		return PhaseUp
	default:
		return PhaseTransitioning
	}
}

func validAngle(a float64) bool {
	return !math.IsNaN(a) && a >= 0 && a <= 180
}
