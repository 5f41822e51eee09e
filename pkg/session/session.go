// Package session owns one exercise session: the rep tracker, the movement
// being followed and the per-tick pipeline from joint frame to result.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hiral-chawra/Protofito/pkg/exercise"
	"github.com/hiral-chawra/Protofito/pkg/pose"
	"github.com/hiral-chawra/Protofito/pkg/reps"
)

// Result is what the presentation layer receives for each processed tick.
type Result struct {
	SessionID string    `json:"session_id"`
	Tick      uint64    `json:"tick"`
	Timestamp time.Time `json:"ts"`

	// AngleDegrees is nil when the frame gave no usable angle.
	AngleDegrees *float64 `json:"angle_degrees"`

	Phase      reps.Phase `json:"phase"`
	Feedback   string     `json:"feedback"`
	RepCounted bool       `json:"rep_counted"`
	RepCount   uint       `json:"rep_count"`
}

// Angle returns the measured angle and whether there was one.
func (r Result) Angle() (float64, bool) {
	if r.AngleDegrees == nil {
		return math.NaN(), false
	}
	return *r.AngleDegrees, true
}

// Stats are cumulative counters for the current session.
type Stats struct {
	Ticks    uint64 `json:"ticks"`
	Skipped  uint64 `json:"skipped"`
	NoSignal uint64 `json:"no_signal"`
}

// Snapshot is the session state exposed to status endpoints.
type Snapshot struct {
	SessionID  string          `json:"session_id"`
	Movement   string          `json:"movement"`
	Variation  string          `json:"variation,omitempty"`
	Vertex     pose.JointName  `json:"vertex"`
	Thresholds reps.Thresholds `json:"thresholds"`
	StartedAt  time.Time       `json:"started_at"`
	ElapsedSec float64         `json:"elapsed_sec"`
	State      reps.State      `json:"state"`
	Stats      Stats           `json:"stats"`
	Last       *Result         `json:"last,omitempty"`
}

// Session processes joint frames for one movement.
// Process, Start and Snapshot may be called from different goroutines;
// a single lock serializes every access to the tracker.
type Session struct {
	movement  exercise.Movement
	variation string
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	id        string
	startedAt time.Time
	tracker   *reps.Tracker
	last      *Result

	ticks    atomic.Uint64
	skipped  atomic.Uint64
	noSignal atomic.Uint64
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVariation labels the session with a catalog variation id such as
// "wide". It is reported in snapshots and does not change counting.
func WithVariation(variation string) Option {
	return func(s *Session) {
		s.variation = variation
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New creates a session for movement. It fails with
// reps.ErrInvalidConfiguration if the movement's thresholds are invalid.
func New(movement exercise.Movement, opts ...Option) (*Session, error) {
	tracker, err := reps.NewTracker(movement.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("movement %s: %w", movement.Name, err)
	}

	s := &Session{
		movement: movement,
		logger:   slog.Default(),
		now:      time.Now,
		tracker:  tracker,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.id = uuid.New().String()
	s.startedAt = s.now()
	s.logger = s.logger.With("component", "session")
	return s, nil
}

// ID returns the current session id.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Movement returns the movement being tracked.
func (s *Session) Movement() exercise.Movement {
	return s.movement
}

// Process runs one tick. A frame missing any joint is rejected with a
// *pose.MissingJointError and changes nothing. Coincident joints produce a
// PhaseNoSignal result that leaves the rep state untouched.
func (s *Session) Process(frame pose.JointFrame) (Result, error) {
	if err := frame.Validate(); err != nil {
		s.skip()
		return Result{}, err
	}

	angle, err := s.movement.Angle(frame)
	if err != nil {
		if !errors.Is(err, pose.ErrDegenerateGeometry) {
			s.skip()
			return Result{}, err
		}
		s.logger.Debug("degenerate joint geometry", "vertex", s.movement.Vertex(), "error", err)
		angle = math.NaN()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	update := s.tracker.Update(angle)
	tick := s.ticks.Add(1)
	if update.Phase == reps.PhaseNoSignal {
		s.noSignal.Add(1)
	}

	ts := frame.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	res := Result{
		SessionID:  s.id,
		Tick:       tick,
		Timestamp:  ts,
		Phase:      update.Phase,
		Feedback:   update.Feedback,
		RepCounted: update.RepCounted,
		RepCount:   update.RepCount,
	}
	if !math.IsNaN(angle) {
		a := angle
		res.AngleDegrees = &a
	}

	if update.RepCounted {
		s.logger.Info("rep counted", "session", s.id, "reps", update.RepCount, "angle", angle)
	}

	s.last = &res
	return res, nil
}

// skip counts a rejected frame against the session that is current now.
// Holding mu keeps a concurrent Start from clearing the counter first.
func (s *Session) skip() {
	s.mu.Lock()
	s.skipped.Add(1)
	s.mu.Unlock()
}

// Start begins a new session: the tracker returns to its initial state,
// a new id is assigned and the counters are cleared.
func (s *Session) Start() Snapshot {
	s.mu.Lock()
	s.tracker.Reset()
	s.id = uuid.New().String()
	s.startedAt = s.now()
	s.last = nil
	s.ticks.Store(0)
	s.skipped.Store(0)
	s.noSignal.Store(0)
	id := s.id
	s.mu.Unlock()

	s.logger.Info("session started", "session", id, "movement", s.movement.Name, "variation", s.variation)
	return s.Snapshot()
}

// Stats returns the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		Ticks:    s.ticks.Load(),
		Skipped:  s.skipped.Load(),
		NoSignal: s.noSignal.Load(),
	}
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID:  s.id,
		Movement:   s.movement.Name,
		Variation:  s.variation,
		Vertex:     s.movement.Vertex(),
		Thresholds: s.tracker.Thresholds(),
		StartedAt:  s.startedAt,
		ElapsedSec: s.now().Sub(s.startedAt).Seconds(),
		State:      s.tracker.State(),
		Stats:      s.Stats(),
	}
	if s.last != nil {
		last := *s.last
		snap.Last = &last
	}
	return snap
}
