package app

import (
	"sync"

	"github.com/yourusername/yt-grab-go/internal/domain"
)

// subscriberBuffer is how many events a subscriber may lag before drops
const subscriberBuffer = 64

// JobProgress is a progress event tagged with the download it belongs to
type JobProgress struct {
	JobID   string               `json:"job_id"`
	URL     string               `json:"url"`
	Event   domain.ProgressEvent `json:"event"`
	Percent *int                 `json:"percent,omitempty"`
}

// NewJobProgress tags event with its job and precomputes the percentage
func NewJobProgress(jobID, url string, event domain.ProgressEvent) JobProgress {
	p := JobProgress{JobID: jobID, URL: url, Event: event}
	if percent, ok := event.Percent(); ok {
		p.Percent = &percent
	}
	return p
}

// ProgressHub fans progress events out to subscribers such as websocket
// clients. Publishing never blocks; a full subscriber misses events.
type ProgressHub struct {
	mu          sync.RWMutex
	subscribers map[chan JobProgress]struct{}
}

// NewProgressHub creates a new progress hub
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		subscribers: make(map[chan JobProgress]struct{}),
	}
}

// Subscribe registers a subscriber. The returned function unsubscribes and
// closes the channel.
func (h *ProgressHub) Subscribe() (<-chan JobProgress, func()) {
	ch := make(chan JobProgress, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers p to every subscriber with room for it
func (h *ProgressHub) Publish(p JobProgress) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- p:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (h *ProgressHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
