// Package events provides a buffered publish/subscribe bus for passive
// observers of the file manager: the activity log, the status bar, and the
// CLI progress output. Per-operation UI callbacks do NOT go through this bus;
// they are delivered on the UI thread by the transfer bridge.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType defines the types of events that can be emitted.
type EventType string

const (
	// Connection lifecycle
	EventConnected       EventType = "connected"
	EventConnectionError EventType = "connection_error"
	EventDisconnected    EventType = "disconnected"

	// Operation lifecycle, mirrored off the transfer queue
	EventOpQueued    EventType = "op_queued"
	EventOpStarted   EventType = "op_started"
	EventOpProgress  EventType = "op_progress"
	EventOpSucceeded EventType = "op_succeeded"
	EventOpFailed    EventType = "op_failed"
	EventOpCancelled EventType = "op_cancelled"
)

// DefaultBuffer is the per-subscriber channel buffer size.
const DefaultBuffer = 256

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// ConnectionEvent reports connection state changes.
type ConnectionEvent struct {
	BaseEvent
	Host string
	User string
	Err  error // Set for EventConnectionError
}

// OperationEvent mirrors the lifecycle of a queued remote operation.
type OperationEvent struct {
	BaseEvent
	HandleID   uint64
	Kind       string // "list", "download", "upload", ...
	Name       string // Display name, usually the file base name
	Path       string // Primary remote path
	BytesDone  int64
	BytesTotal int64 // -1 when unknown
	Err        error // Set for EventOpFailed
}

// EventBus manages event subscriptions and publishing.
type EventBus struct {
	subscribers map[EventType][]chan Event
	all         []chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
	dropped     atomic.Int64
}

// NewEventBus creates a new event bus with the given per-subscriber buffer
// size. Zero or negative selects DefaultBuffer.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type.
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to every event.
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers. Never blocks: events are dropped
// when a subscriber's buffer is full, and the drop is counted.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.dropped.Add(1)
		}
	}
	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.dropped.Add(1)
		}
	}
}

// Unsubscribe removes a subscription channel from a specific event type.
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subs := eb.subscribers[eventType]
	for i, sub := range subs {
		if sub == ch {
			subs[i] = subs[len(subs)-1]
			eb.subscribers[eventType] = subs[:len(subs)-1]
			break
		}
	}
}

// Close shuts down the bus and closes all subscriber channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// DroppedCount returns the number of events dropped due to full buffers.
func (eb *EventBus) DroppedCount() int64 {
	return eb.dropped.Load()
}
