package replication

import "sync"

// Outbox is a client's outbound frame queue. The simulation appends during a tick
// and the server drains it once every system has ticked.
type Outbox struct {
	mu      sync.Mutex
	frames  [][]byte
	limit   int
	dropped uint64
}

// NewOutbox creates a queue holding at most limit frames; 0 means unbounded.
func NewOutbox(limit int) *Outbox {
	return &Outbox{limit: limit}
}

// Push appends a frame. It reports false and drops the frame when the queue is full.
func (o *Outbox) Push(frame []byte) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.limit > 0 && len(o.frames) >= o.limit {
		o.dropped++
		return false
	}
	o.frames = append(o.frames, frame)
	return true
}

// Drain removes and returns every queued frame in push order.
func (o *Outbox) Drain() [][]byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.frames
	o.frames = nil
	return out
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.frames)
}

func (o *Outbox) Dropped() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}
