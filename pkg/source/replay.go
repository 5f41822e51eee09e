package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hiral-chawra/Protofito/pkg/pose"
)

const maxLineBytes = 64 * 1024

// errLineTooLong marks a line that did not fit in maxLineBytes. The rest of
// the line has already been discarded.
var errLineTooLong = errors.New("line too long")

// Replay reads one JSON-encoded JointFrame per line.
// Blank lines and lines starting with '#' are ignored.
type Replay struct {
	name     string
	src      io.Reader
	closer   io.Closer
	seeker   io.Seeker
	loop     bool
	interval time.Duration

	// mu guards the reader; Close does not take it so it can unblock a
	// Next call stuck in a read.
	mu      sync.Mutex
	reader  *bufio.Reader
	line    int
	emitted int // frames emitted since the last rewind

	tickMu sync.Mutex
	ticker *time.Ticker

	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewReplay creates a replay source over r. If r is an io.Closer it is
// closed by Close; looping requires r to be an io.Seeker.
func NewReplay(r io.Reader, interval time.Duration, loop bool) *Replay {
	rp := &Replay{
		name:     string(KindReplay),
		src:      r,
		loop:     loop,
		interval: interval,
		done:     make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		rp.closer = c
	}
	if s, ok := r.(io.Seeker); ok {
		rp.seeker = s
	}
	rp.resetReader()
	return rp
}

// OpenReplay opens a replay log file.
func OpenReplay(cfg ReplayConfig, interval time.Duration) (*Replay, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open replay log: %w", err)
	}
	return NewReplay(f, interval, cfg.Loop), nil
}

func (r *Replay) resetReader() {
	r.reader = bufio.NewReaderSize(r.src, maxLineBytes)
	r.line = 0
	r.emitted = 0
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned before io.EOF. The returned slice is only
// valid until the next read.
func (r *Replay) readLine() ([]byte, error) {
	line, err := r.reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = r.reader.ReadSlice('\n')
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return nil, errLineTooLong
	}
	if errors.Is(err, io.EOF) && len(line) > 0 {
		return line, nil
	}
	return line, err
}

// Next returns the next frame, waiting for the pacing interval if one is set.
func (r *Replay) Next(ctx context.Context) (pose.JointFrame, error) {
	if err := r.pace(ctx); err != nil {
		return pose.JointFrame{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if r.closed.Load() {
			return pose.JointFrame{}, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return pose.JointFrame{}, err
		}

		data, err := r.readLine()
		if err != nil {
			if r.closed.Load() {
				return pose.JointFrame{}, ErrClosed
			}
			if errors.Is(err, errLineTooLong) {
				r.line++
				return pose.JointFrame{}, fmt.Errorf("%w: line %d: longer than %d bytes", ErrInvalidFrame, r.line, maxLineBytes)
			}
			if !errors.Is(err, io.EOF) {
				return pose.JointFrame{}, fmt.Errorf("read %s: %w", r.name, err)
			}
			if !r.loop || r.seeker == nil || r.emitted == 0 {
				return pose.JointFrame{}, io.EOF
			}
			if _, err := r.seeker.Seek(0, io.SeekStart); err != nil {
				return pose.JointFrame{}, fmt.Errorf("rewind %s: %w", r.name, err)
			}
			r.resetReader()
			continue
		}

		r.line++
		raw := bytes.TrimSpace(data)
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}

		var frame pose.JointFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			return pose.JointFrame{}, fmt.Errorf("%w: line %d: %v", ErrInvalidFrame, r.line, err)
		}
		r.emitted++
		return frame, nil
	}
}

func (r *Replay) pace(ctx context.Context) error {
	if r.interval <= 0 {
		return nil
	}

	r.tickMu.Lock()
	if r.ticker == nil {
		r.ticker = time.NewTicker(r.interval)
	}
	ticker := r.ticker
	r.tickMu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrClosed
	case <-ticker.C:
		return nil
	}
}

// Close releases the underlying reader.
func (r *Replay) Close() error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.done)

		r.tickMu.Lock()
		if r.ticker != nil {
			r.ticker.Stop()
		}
		r.tickMu.Unlock()

		if r.closer != nil {
			r.closeErr = r.closer.Close()
		}
	})
	return r.closeErr
}

// Name returns the source type name.
func (r *Replay) Name() string {
	return r.name
}
