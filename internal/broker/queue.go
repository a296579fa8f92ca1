// internal/broker/queue.go
package broker

import (
	"sync"
	"time"

	"wardpulse-service/internal/domain/notification"
)

// DefaultQueueCap is the per-identity offline queue cap.
const DefaultQueueCap = 100

// OfflineQueue buffers messages for identities with no live connections,
// one FIFO per identity. Each queue is capped; on overflow the oldest
// entry is evicted regardless of priority. Eviction is strictly FIFO.
type OfflineQueue struct {
	mu     sync.Mutex
	queues map[string][]*notification.Message
	cap    int
}

func NewOfflineQueue(cap int) *OfflineQueue {
	if cap <= 0 {
		cap = DefaultQueueCap
	}
	return &OfflineQueue{
		queues: make(map[string][]*notification.Message),
		cap:    cap,
	}
}

// Enqueue appends a message to the identity's queue, evicting the oldest
// entry first if the queue is full.
func (q *OfflineQueue) Enqueue(identity string, msg *notification.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue := q.queues[identity]
	if len(queue) >= q.cap {
		queue = queue[1:]
	}
	q.queues[identity] = append(queue, msg)
}

// Drain returns and removes all non-expired entries for the identity in
// enqueue order. Entries expired by drain time are discarded silently.
func (q *OfflineQueue) Drain(identity string, now time.Time) []*notification.Message {
	q.mu.Lock()
	queue := q.queues[identity]
	delete(q.queues, identity)
	q.mu.Unlock()

	out := make([]*notification.Message, 0, len(queue))
	for _, msg := range queue {
		if msg.Expired(now) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// SweepExpired removes expired entries across all identities without
// draining live ones. Run periodically by the liveness sweeper.
func (q *OfflineQueue) SweepExpired(now time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for identity, queue := range q.queues {
		kept := queue[:0]
		for _, msg := range queue {
			if msg.Expired(now) {
				removed++
				continue
			}
			kept = append(kept, msg)
		}
		if len(kept) == 0 {
			delete(q.queues, identity)
		} else {
			q.queues[identity] = kept
		}
	}
	return removed
}

// Len returns the total number of queued messages across all identities.
func (q *OfflineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := 0
	for _, queue := range q.queues {
		total += len(queue)
	}
	return total
}

// LenFor returns the queue length for one identity.
func (q *OfflineQueue) LenFor(identity string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[identity])
}
