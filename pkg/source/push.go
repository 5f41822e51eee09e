package source

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hiral-chawra/Protofito/pkg/pose"
)

// Push is a source fed by another goroutine, e.g. a websocket handler.
// When the queue is full the oldest frame is dropped so ticks stay current.
type Push struct {
	name   string
	frames chan pose.JointFrame
	done   chan struct{}
	once   sync.Once

	fed     atomic.Uint64
	dropped atomic.Uint64
}

// NewPush creates a push source with a queue of size frames.
func NewPush(name string, size int) *Push {
	if size <= 0 {
		size = 1
	}
	return &Push{
		name:   name,
		frames: make(chan pose.JointFrame, size),
		done:   make(chan struct{}),
	}
}

// Feed queues a frame. It returns false once the source is closed.
func (p *Push) Feed(frame pose.JointFrame) bool {
	select {
	case <-p.done:
		return false
	default:
	}

	for {
		select {
		case p.frames <- frame:
			p.fed.Add(1)
			return true
		default:
			// Queue full - drop the oldest frame
			select {
			case <-p.frames:
				p.dropped.Add(1)
			default:
			}
		}
	}
}

// Next returns the next queued frame.
func (p *Push) Next(ctx context.Context) (pose.JointFrame, error) {
	select {
	case <-ctx.Done():
		return pose.JointFrame{}, ctx.Err()
	case <-p.done:
		return pose.JointFrame{}, ErrClosed
	case frame := <-p.frames:
		return frame, nil
	}
}

// Close stops the source. It is safe to call more than once.
func (p *Push) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

// Name returns the source name.
func (p *Push) Name() string {
	return p.name
}

// Fed returns the number of accepted frames.
func (p *Push) Fed() uint64 {
	return p.fed.Load()
}

// Dropped returns the number of frames discarded because the queue was full.
func (p *Push) Dropped() uint64 {
	return p.dropped.Load()
}
