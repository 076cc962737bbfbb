package server

import (
	"context"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/portfolio/internal/editor"
)

const (
	RealtimeEventContentChanged = "content-change"
	realtimeEventHeartbeat      = "heartbeat"
	realtimeSourceBackend       = "portfolio-api"
	realtimeHeartbeatInterval   = 25 * time.Second
)

// RealtimeMessage announces persisted content changes so readers can drop cached pages.
type RealtimeMessage struct {
	EventType  string
	Collection string
	Action     string
	IDs        []string
	Timestamp  time.Time
}

// RealtimeDispatcher fans content changes out to every connected event stream.
// Slow subscribers drop messages rather than block writers.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
	clock       func() time.Time
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[int64]*realtimeSubscriber),
		bufferSize:  16,
		clock:       time.Now,
	}
}

// Subscribe registers a stream that is released when ctx ends or the returned
// cleanup runs.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context) (<-chan RealtimeMessage, func()) {
	subscriber := &realtimeSubscriber{stream: make(chan RealtimeMessage, d.bufferSize)}
	d.mu.Lock()
	d.nextID++
	subscriber.id = d.nextID
	d.subscribers[subscriber.id] = subscriber
	d.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subscribers, subscriber.id)
			d.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish implements editor.Publisher.
func (d *RealtimeDispatcher) Publish(change editor.Change) {
	if change.Collection == "" || change.Action == "" {
		return
	}
	message := RealtimeMessage{
		EventType:  RealtimeEventContentChanged,
		Collection: change.Collection,
		Action:     change.Action,
		IDs:        append([]string(nil), change.IDs...),
		Timestamp:  d.clock().UTC(),
	}
	d.mu.RLock()
	copies := make([]*realtimeSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// SubscriberCount reports the connected streams.
func (d *RealtimeDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}
