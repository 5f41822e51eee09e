// Package reps classifies joint angles into exercise phases and counts
// repetitions on the down-to-up transition.
package reps

// Phase is the discrete classification of the current limb configuration.
type Phase string

const (
	// PhaseNone is the unset phase before the first classified tick.
	PhaseNone Phase = ""

	PhaseDown          Phase = "down"
	PhaseUp            Phase = "up"
	PhaseTransitioning Phase = "transition"

	// PhaseNoSignal is reported for ticks without a usable angle.
	// It is never stored as the tracker's last phase.
	PhaseNoSignal Phase = "no_signal"
)

// String returns the phase name, "none" for the unset phase.
func (p Phase) String() string {
	if p == PhaseNone {
		return "none"
	}
	return string(p)
}

// Extreme reports whether the phase is one of the two rep end points.
func (p Phase) Extreme() bool {
	return p == PhaseDown || p == PhaseUp
}

// Default coaching text per phase.
var feedback = map[Phase]string{
	PhaseDown:          "Good depth, now push up",
	PhaseUp:            "Lower yourself down",
	PhaseTransitioning: "Keep going",
	PhaseNoSignal:      "Position not detected",
}

// Feedback returns the coaching text shown for a phase.
func Feedback(p Phase) string {
	return feedback[p]
}
