package server

import (
	"context"
	"sync"
	"time"
)

const (
	// ContentEventCaseStudyChanged notifies open catalog pages that a case
	// study was created, updated or deleted.
	ContentEventCaseStudyChanged = "case-study-change"
	contentEventHeartbeat        = "heartbeat"
)

// ContentEvent is one broadcast message about catalog content.
type ContentEvent struct {
	EventType   string
	CaseStudyID string
	Slug        string
	Timestamp   time.Time
}

// ContentEventDispatcher fans catalog change events out to connected
// event-stream subscribers. Slow subscribers drop messages rather than
// block the publisher.
type ContentEventDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]chan ContentEvent
	nextID      int64
	bufferSize  int
}

// NewContentEventDispatcher constructs an empty dispatcher.
func NewContentEventDispatcher() *ContentEventDispatcher {
	return &ContentEventDispatcher{
		subscribers: make(map[int64]chan ContentEvent),
		bufferSize:  16,
	}
}

// Subscribe registers a listener. The stream closes when ctx is done; the
// returned cleanup is safe to call more than once.
func (d *ContentEventDispatcher) Subscribe(ctx context.Context) (<-chan ContentEvent, func()) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	stream := make(chan ContentEvent, d.bufferSize)
	d.subscribers[id] = stream
	d.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subscribers, id)
			d.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return stream, cleanup
}

// Publish delivers the event to every current subscriber.
func (d *ContentEventDispatcher) Publish(event ContentEvent) {
	if event.EventType == "" {
		return
	}
	d.mu.RLock()
	copies := make([]chan ContentEvent, 0, len(d.subscribers))
	for _, stream := range d.subscribers {
		copies = append(copies, stream)
	}
	d.mu.RUnlock()
	for _, stream := range copies {
		select {
		case stream <- event:
		default:
		}
	}
}

// SubscriberCount reports how many listeners are currently attached.
func (d *ContentEventDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}
