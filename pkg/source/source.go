// Package source provides joint-frame sources for the rep tracker.
//
// Every source satisfies the same contract: each call to Next yields one
// JointFrame. Sources are interchangeable:
//   - Synthetic - deterministic sine-wave generator (demo, tests)
//   - Replay - JSON-lines replay log from a file or reader
//   - Serial - JSON-lines frames from a serial-attached sensor
//   - Push - frames fed by network ingest (dashboard websocket)
//   - WebSocket - frames streamed from a remote pose estimator
//   - MQTT - frames published on a broker topic
//
// The camera-backed pose estimator lives in the camera subpackage.
package source

import (
	"context"
	"errors"

	"github.com/hiral-chawra/Protofito/pkg/pose"
)

var (
	// ErrClosed is returned by Next after the source has been closed or its
	// upstream connection ended.
	ErrClosed = errors.New("source: closed")

	// ErrInvalidFrame is returned for an undecodable frame. The source stays usable.
	ErrInvalidFrame = errors.New("source: invalid frame")

	// ErrUnsupportedKind is returned by New for kinds it cannot build.
	ErrUnsupportedKind = errors.New("source: unsupported kind")
)

// Source provides joint frames, one per tick.
type Source interface {
	// Next blocks until the next frame is available.
	// It returns io.EOF when a finite source is exhausted.
	Next(ctx context.Context) (pose.JointFrame, error)

	// Close releases resources. Pending and later Next calls return ErrClosed.
	Close() error

	// Name returns the source type name.
	Name() string
}
