package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrQueueClosed is returned by Pop after Close once the queue drains.
var ErrQueueClosed = errors.New("frame queue closed")

// Frame is a captured image waiting for detection.
type Frame struct {
	Mat       *gocv.Mat
	Seq       uint64
	Timestamp time.Time
}

// Close releases the frame's Mat.
func (f Frame) Close() {
	if f.Mat != nil {
		f.Mat.Close()
	}
}

// Queue is a bounded FIFO between capture and detection. When full, the
// oldest frame is dropped so detection always works on recent images.
type Queue struct {
	frames  []Frame
	size    int
	dropped uint64
	closed  bool
	ready   chan struct{}
	mu      sync.Mutex
}

// NewQueue creates a queue holding at most size frames.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{size: size, ready: make(chan struct{}, 1)}
}

// Push appends f, evicting and closing the oldest frame when full. It reports
// whether a frame was dropped. Pushing to a closed queue closes f.
func (q *Queue) Push(f Frame) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		f.Close()
		return true
	}

	dropped := false
	if len(q.frames) >= q.size {
		q.frames[0].Close()
		q.frames = q.frames[1:]
		q.dropped++
		dropped = true
	}
	q.frames = append(q.frames, f)
	q.mu.Unlock()

	q.signal()
	return dropped
}

// Pop waits for the next frame. The caller owns and must close it.
func (q *Queue) Pop(ctx context.Context) (Frame, error) {
	for {
		q.mu.Lock()
		if len(q.frames) > 0 {
			f := q.frames[0]
			q.frames = q.frames[1:]
			more := len(q.frames) > 0
			q.mu.Unlock()
			if more {
				q.signal()
			}
			return f, nil
		}
		if q.closed {
			q.mu.Unlock()
			return Frame{}, ErrQueueClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-q.ready:
		}
	}
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Dropped returns how many frames were evicted.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close stops accepting frames. Queued frames can still be popped.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Drain closes and discards every queued frame.
func (q *Queue) Drain() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, f := range q.frames {
		f.Close()
	}
	q.frames = nil
}
