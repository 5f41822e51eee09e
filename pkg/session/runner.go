package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hiral-chawra/Protofito/pkg/pose"
	"github.com/hiral-chawra/Protofito/pkg/source"
)

// Sink receives every result the runner produces.
type Sink interface {
	Publish(res Result) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(res Result) error

// Publish calls f(res).
func (f SinkFunc) Publish(res Result) error {
	return f(res)
}

// Runner drives a session from a joint source, one tick at a time.
type Runner struct {
	session *Session
	src     source.Source
	sinks   []Sink
	logger  *slog.Logger

	// errorBackoff is the pause after a failed source read.
	errorBackoff time.Duration

	sourceErrors atomic.Uint64
	sinkErrors   atomic.Uint64
}

// NewRunner creates a runner. A nil logger uses slog.Default().
func NewRunner(s *Session, src source.Source, logger *slog.Logger, sinks ...Sink) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		session:      s,
		src:          src,
		sinks:        sinks,
		logger:       logger.With("component", "runner", "source", src.Name()),
		errorBackoff: 100 * time.Millisecond,
	}
}

// AddSink registers another sink. Call before Run.
func (r *Runner) AddSink(sink Sink) {
	r.sinks = append(r.sinks, sink)
}

// Run processes frames until ctx is cancelled or the source is exhausted.
// Source exhaustion (io.EOF or source.ErrClosed) returns nil.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("runner started", "movement", r.session.Movement().Name)
	defer r.logger.Info("runner stopped", "ticks", r.session.Stats().Ticks)

	for {
		frame, err := r.src.Next(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, io.EOF), errors.Is(err, source.ErrClosed):
				return nil
			}

			n := r.sourceErrors.Add(1)
			if errors.Is(err, source.ErrInvalidFrame) {
				// Bad data, not a broken source: move on to the next frame.
				r.logger.Warn("invalid frame skipped", "error", err, "failures", n)
				continue
			}
			r.logger.Warn("source read failed", "error", err, "failures", n)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.errorBackoff):
			}
			continue
		}

		r.Step(frame)
	}
}

// Step processes one frame and fans the result out.
// It reports whether a result was produced.
func (r *Runner) Step(frame pose.JointFrame) bool {
	res, err := r.session.Process(frame)
	if err != nil {
		r.logger.Debug("frame skipped", "error", err)
		return false
	}

	for _, sink := range r.sinks {
		if err := sink.Publish(res); err != nil {
			r.sinkErrors.Add(1)
			r.logger.Warn("sink publish failed", "error", err)
		}
	}
	return true
}

// SourceErrors returns the number of failed source reads.
func (r *Runner) SourceErrors() uint64 {
	return r.sourceErrors.Load()
}

// SinkErrors returns the number of failed sink publishes.
func (r *Runner) SinkErrors() uint64 {
	return r.sinkErrors.Load()
}
