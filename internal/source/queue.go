package source

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zsiec/austream/internal/media"
)

// DefaultQueueCapacity bounds a live source's backlog of video units.
const DefaultQueueCapacity = 1000

// depthLogInterval is how often, in received packets, the depth is logged.
const depthLogInterval = 1000

// Queue is a bounded FIFO of video payloads fed by a puller. When full, the
// oldest payload is dropped to make room. A single mutex covers inserts and
// removals; one producer and one consumer are expected.
type Queue struct {
	log *slog.Logger

	mu       sync.Mutex
	buf      [][]byte
	head     int
	count    int
	received int64
	dropped  int64

	notify chan struct{}
}

// NewQueue returns a Queue holding at most capacity payloads.
func NewQueue(capacity int, log *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		log:    log.With("component", "queue"),
		buf:    make([][]byte, capacity),
		notify: make(chan struct{}, 1),
	}
}

// OnVideoPacket copies the payload of p onto the tail of the queue.
func (q *Queue) OnVideoPacket(p *media.Packet) {
	data := make([]byte, len(p.Data))
	copy(data, p.Data)

	q.mu.Lock()
	capacity := len(q.buf)
	if q.count == capacity {
		q.buf[q.head] = nil
		q.head = (q.head + 1) % capacity
		q.count--
		q.dropped++
		q.log.Debug("queue full, dropped oldest", "capacity", capacity, "dropped", q.dropped)
	}
	q.buf[(q.head+q.count)%capacity] = data
	q.count++
	q.received++
	if q.received%depthLogInterval == 0 {
		q.log.Debug("queue depth", "received", q.received, "depth", q.count)
	}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// OnAudioPacket discards audio; live decoding consumes video only.
func (q *Queue) OnAudioPacket(*media.Packet) {}

// Next removes and returns the oldest payload. When the queue is empty it
// waits up to wait for a new one and returns nil if none arrived. The
// returned slice is owned by the caller.
func (q *Queue) Next(ctx context.Context, wait time.Duration) ([]byte, error) {
	if data, ok := q.pop(); ok {
		return data, nil
	}
	if wait <= 0 {
		return nil, ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-q.notify:
			// The token may be left over from a payload already popped.
			if data, ok := q.pop(); ok {
				return data, nil
			}
		case <-timer.C:
			data, _ := q.pop()
			return data, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *Queue) pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil, false
	}
	data := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return data, true
}

// Len returns the number of queued payloads.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// QueueStats is a snapshot of queue counters.
type QueueStats struct {
	Received int64
	Dropped  int64
	Depth    int
	Capacity int
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Received: q.received,
		Dropped:  q.dropped,
		Depth:    q.count,
		Capacity: len(q.buf),
	}
}
