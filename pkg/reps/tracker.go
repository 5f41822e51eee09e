package reps

// State is the tracker's mutable state.
type State struct {
	// LastPhase is the phase of the most recent classified tick,
	// PhaseNone before the first one.
	LastPhase Phase `json:"last_phase"`

	// RepCount is the number of completed repetitions.
	RepCount uint `json:"rep_count"`
}

// Update is the outcome of one tick.
type Update struct {
	Phase      Phase  `json:"phase"`
	Feedback   string `json:"feedback"`
	RepCounted bool   `json:"rep_counted"`
	RepCount   uint   `json:"rep_count"`
}

// Tracker turns a stream of angles into phases and a rep count.
//
// A rep is counted on the Down→Up edge. Transitioning ticks between the two
// end points do not break the edge, so Down→Transitioning→Up counts once,
// while Up→Down and oscillation inside the transition band never count.
//
// Tracker is not safe for concurrent use; callers serialize Update and Reset.
type Tracker struct {
	thresholds Thresholds
	state      State

	// lastExtreme is the most recent Down or Up phase, the anchor for the rep edge.
	lastExtreme Phase
}

// NewTracker creates a tracker in its initial state.
func NewTracker(th Thresholds) (*Tracker, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{thresholds: th}, nil
}

// Thresholds returns the tracker's configuration.
func (t *Tracker) Thresholds() Thresholds {
	return t.thresholds
}

// Update classifies angle and advances the state machine.
// A NaN angle yields PhaseNoSignal and leaves the state untouched.
func (t *Tracker) Update(angle float64) Update {
	phase := t.thresholds.Classify(angle)
	if phase == PhaseNoSignal {
		return Update{
			Phase:    PhaseNoSignal,
			Feedback: Feedback(PhaseNoSignal),
			RepCount: t.state.RepCount,
		}
	}

	counted := phase == PhaseUp && t.lastExtreme == PhaseDown
	if counted {
		t.state.RepCount++
	}

	t.state.LastPhase = phase
	if phase.Extreme() {
		t.lastExtreme = phase
	}

	return Update{
		Phase:      phase,
		Feedback:   Feedback(phase),
		RepCounted: counted,
		RepCount:   t.state.RepCount,
	}
}

// Reset returns the tracker to {LastPhase: none, RepCount: 0}.
func (t *Tracker) Reset() {
	t.state = State{}
	t.lastExtreme = PhaseNone
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	return t.state
}
