// Package events carries upload session and job lifecycle notifications from
// the orchestrator to whoever renders them (CLI progress bars, API handlers).
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ipdata/ipdata/internal/constants"
)

// EventType selects which subscribers receive an event.
type EventType string

const (
	EventLog EventType = "log"

	EventSessionStarted   EventType = "session_started"
	EventSessionCompleted EventType = "session_completed"

	EventJobQueued    EventType = "job_queued"    // Job created, waiting for its turn
	EventJobStarted   EventType = "job_started"   // Bytes about to move
	EventJobProgress  EventType = "job_progress"  // Progress update
	EventJobSucceeded EventType = "job_succeeded" // Object stored, URL known
	EventJobFailed    EventType = "job_failed"    // Terminal failure

	// Saved credential override changed; cached providers must be rebuilt.
	EventCredentialsChanged EventType = "credentials_changed"
)

// LogLevel is the severity carried by a LogEvent.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Event is anything published on an EventBus.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent is embedded by every concrete event.
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// LogEvent is a human-readable message tied to a session or file.
type LogEvent struct {
	BaseEvent
	Level     LogLevel
	Message   string
	SessionID string
	FileName  string
	Error     error
}

// SessionEvent marks the start or end of an upload session.
type SessionEvent struct {
	BaseEvent
	SessionID string
	Target    string
	TotalJobs int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// JobEvent reports one file's lifecycle inside a session.
type JobEvent struct {
	BaseEvent
	SessionID  string
	JobID      string
	FileName   string
	Status     string
	Progress   float64 // 0.0 to 1.0, never decreases within a job
	BytesSent  int64
	BytesTotal int64
	URL        string // Set on success
	Error      error  // Set on failure
}

// CredentialsChangedEvent is published after the override is saved or cleared.
type CredentialsChangedEvent struct {
	BaseEvent
	Source string // "override" after save, "environment" or "none" after clear
}

// EventBus fans events out to buffered subscriber channels. Publish never
// blocks: an event that does not fit in a subscriber's buffer is dropped for
// that subscriber and counted.
type EventBus struct {
	mu      sync.RWMutex
	subs    []*subscription
	buffer  int
	closed  bool
	dropped atomic.Int64
}

type subscription struct {
	ch    chan Event
	types map[EventType]bool // nil means every type
}

func (s *subscription) wants(t EventType) bool {
	return s.types == nil || s.types[t]
}

// NewEventBus creates a bus whose subscriber channels hold bufferSize events.
func NewEventBus(bufferSize int) *EventBus {
	switch {
	case bufferSize <= 0:
		bufferSize = constants.EventBusDefaultBuffer
	case bufferSize > constants.EventBusMaxBuffer:
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{buffer: bufferSize}
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given. On a closed bus the channel is already
// closed.
func (eb *EventBus) Subscribe(types ...EventType) <-chan Event {
	sub := &subscription{ch: make(chan Event, eb.buffer)}
	if len(types) > 0 {
		sub.types = make(map[EventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		close(sub.ch)
		return sub.ch
	}
	eb.subs = append(eb.subs, sub)
	return sub.ch
}

// Unsubscribe stops delivery to ch. The channel is left open so the caller
// can drain what is already buffered.
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subs {
		if sub.ch == ch {
			eb.subs = append(eb.subs[:i], eb.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers event to every interested subscriber. Safe on a nil bus.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return
	}
	for _, sub := range eb.subs {
		if !sub.wants(event.Type()) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			eb.dropped.Add(1)
		}
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	for _, sub := range eb.subs {
		close(sub.ch)
	}
	eb.subs = nil
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (eb *EventBus) Dropped() int64 {
	return eb.dropped.Load()
}

func stamp(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// PublishLog publishes a LogEvent.
func (eb *EventBus) PublishLog(level LogLevel, message, sessionID, fileName string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: stamp(EventLog),
		Level:     level,
		Message:   message,
		SessionID: sessionID,
		FileName:  fileName,
		Error:     err,
	})
}

// PublishJob stamps ev with eventType and publishes it.
func (eb *EventBus) PublishJob(eventType EventType, ev JobEvent) {
	ev.BaseEvent = stamp(eventType)
	eb.Publish(&ev)
}

// PublishSession stamps ev with eventType and publishes it.
func (eb *EventBus) PublishSession(eventType EventType, ev SessionEvent) {
	ev.BaseEvent = stamp(eventType)
	eb.Publish(&ev)
}

// PublishCredentialsChanged notifies subscribers that the override changed.
func (eb *EventBus) PublishCredentialsChanged(source string) {
	eb.Publish(&CredentialsChangedEvent{BaseEvent: stamp(EventCredentialsChanged), Source: source})
}
