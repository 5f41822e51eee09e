package source

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/hiral-chawra/Protofito/pkg/pose"
)

// Skeleton layout for generated frames, in canvas pixels.
const (
	syntheticLimb = 80.0
)

var (
	syntheticElbow = pose.Pt(320, 200)
	syntheticKnee  = pose.Pt(320, 380)
)

// Synthetic generates a deterministic skeleton whose elbow and knee angles
// follow a cosine between MinAngle and MaxAngle. Frame i depends only on i,
// so replays of the generator are identical.
type Synthetic struct {
	cfg      SyntheticConfig
	interval time.Duration
	origin   time.Time

	mu     sync.Mutex
	tick   int
	ticker *time.Ticker
	closed bool
	done   chan struct{}
}

// NewSynthetic creates a generator emitting one frame per interval.
func NewSynthetic(cfg SyntheticConfig, interval time.Duration) *Synthetic {
	return &Synthetic{
		cfg:      cfg,
		interval: interval,
		origin:   time.Now(),
		done:     make(chan struct{}),
	}
}

// AngleAt returns the generated joint angle for tick i.
// Tick 0 starts at MaxAngle (arms extended).
func (s *Synthetic) AngleAt(i int) float64 {
	mid := (s.cfg.MaxAngle + s.cfg.MinAngle) / 2
	amp := (s.cfg.MaxAngle - s.cfg.MinAngle) / 2
	t := time.Duration(i) * s.interval
	phase := 2 * math.Pi * t.Seconds() / s.cfg.Period.Seconds()
	return mid + amp*math.Cos(phase)
}

// Frame builds the skeleton for tick i.
func (s *Synthetic) Frame(i int) pose.JointFrame {
	theta := pose.Radians(s.AngleAt(i))

	// Arm: shoulder straight back from the elbow, wrist rotating around it.
	shoulder := pose.Pt(syntheticElbow.X-syntheticLimb, syntheticElbow.Y)
	wrist := pose.Pt(
		syntheticElbow.X-syntheticLimb*math.Cos(theta),
		syntheticElbow.Y+syntheticLimb*math.Sin(theta),
	)

	// Leg: hip straight above the knee, ankle rotating around it.
	hip := pose.Pt(syntheticKnee.X, syntheticKnee.Y-syntheticLimb)
	ankle := pose.Pt(
		syntheticKnee.X+syntheticLimb*math.Sin(theta),
		syntheticKnee.Y-syntheticLimb*math.Cos(theta),
	)

	return pose.NewFrame(s.origin.Add(time.Duration(i)*s.interval)).
		Set(pose.Shoulder, shoulder).
		Set(pose.Elbow, syntheticElbow).
		Set(pose.Wrist, wrist).
		Set(pose.Hip, hip).
		Set(pose.Knee, syntheticKnee).
		Set(pose.Ankle, ankle)
}

// Next waits for the next tick and returns its frame.
func (s *Synthetic) Next(ctx context.Context) (pose.JointFrame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return pose.JointFrame{}, ErrClosed
	}
	if s.ticker == nil {
		s.ticker = time.NewTicker(s.interval)
	}
	ticker := s.ticker
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return pose.JointFrame{}, ctx.Err()
	case <-s.done:
		return pose.JointFrame{}, ErrClosed
	case <-ticker.C:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return pose.JointFrame{}, ErrClosed
	}
	frame := s.Frame(s.tick)
	s.tick++
	return frame, nil
}

// Close stops the generator.
func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	if s.ticker != nil {
		s.ticker.Stop()
	}
	return nil
}

// Name returns the source type name.
func (s *Synthetic) Name() string {
	return string(KindSynthetic)
}
