package live

import (
	"context"
	"sync"

	"github.com/skypro1111/interview-service/internal/audio"
)

// sendQueue is an unbounded FIFO of outbound audio packets. Push never
// blocks the capture path; a single worker drains it to the transport.
// There is no backpressure: a transport that cannot keep up shows up as a
// growing depth, not as stalled capture.
type sendQueue struct {
	mu     sync.Mutex
	items  []audio.WireAudioPacket
	closed bool
	notify chan struct{}
}

func newSendQueue() *sendQueue {
	return &sendQueue{notify: make(chan struct{}, 1)}
}

// Push appends a packet. It returns false after Close.
func (q *sendQueue) Push(packet audio.WireAudioPacket) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, packet)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop blocks until a packet is available, the queue is closed, or ctx is
// done.
func (q *sendQueue) Pop(ctx context.Context) (audio.WireAudioPacket, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			packet := q.items[0]
			q.items[0] = audio.WireAudioPacket{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return packet, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return audio.WireAudioPacket{}, false
		}

		select {
		case <-ctx.Done():
			return audio.WireAudioPacket{}, false
		case <-q.notify:
		}
	}
}

// Len returns the number of queued packets
func (q *sendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting packets and drops anything queued
func (q *sendQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.items = nil
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}
