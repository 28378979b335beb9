package events

import (
	"errors"
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func assertEmpty(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s", ev.Type())
	default:
	}
}

func TestEventBus_FilterByType(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	jobs := bus.Subscribe(EventJobProgress, EventJobSucceeded)
	logs := bus.Subscribe(EventLog)
	all := bus.Subscribe()

	bus.PublishJob(EventJobProgress, JobEvent{JobID: "j1", Progress: 0.5})
	bus.PublishLog(InfoLevel, "hello", "s1", "", nil)
	bus.PublishJob(EventJobSucceeded, JobEvent{JobID: "j1", URL: "https://x/a"})

	if ev := recv(t, jobs); ev.Type() != EventJobProgress {
		t.Errorf("jobs[0] = %s", ev.Type())
	}
	if ev := recv(t, jobs); ev.Type() != EventJobSucceeded {
		t.Errorf("jobs[1] = %s", ev.Type())
	}
	assertEmpty(t, jobs)

	le, ok := recv(t, logs).(*LogEvent)
	if !ok || le.Message != "hello" || le.SessionID != "s1" {
		t.Errorf("log event = %+v", le)
	}
	assertEmpty(t, logs)

	for _, want := range []EventType{EventJobProgress, EventLog, EventJobSucceeded} {
		if got := recv(t, all).Type(); got != want {
			t.Errorf("all: got %s, want %s", got, want)
		}
	}
}

func TestEventBus_FanOut(t *testing.T) {
	bus := NewEventBus(4)
	defer bus.Close()

	a := bus.Subscribe(EventSessionStarted)
	b := bus.Subscribe(EventSessionStarted)
	bus.PublishSession(EventSessionStarted, SessionEvent{SessionID: "s1", TotalJobs: 3})

	for _, ch := range []<-chan Event{a, b} {
		se := recv(t, ch).(*SessionEvent)
		if se.SessionID != "s1" || se.TotalJobs != 3 {
			t.Errorf("session event = %+v", se)
		}
		if se.Timestamp().IsZero() {
			t.Error("timestamp not set")
		}
	}
}

func TestEventBus_FullBufferDrops(t *testing.T) {
	bus := NewEventBus(2)
	defer bus.Close()
	_ = bus.Subscribe(EventJobProgress)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 6; i++ {
			bus.PublishJob(EventJobProgress, JobEvent{Progress: float64(i) / 6})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if got := bus.Dropped(); got != 4 {
		t.Errorf("Dropped() = %d, want 4", got)
	}
}

func TestEventBus_UnsubscribeKeepsBuffered(t *testing.T) {
	bus := NewEventBus(4)
	defer bus.Close()

	ch := bus.Subscribe()
	bus.PublishCredentialsChanged("override")
	bus.Unsubscribe(ch)
	bus.PublishCredentialsChanged("none")

	ce := recv(t, ch).(*CredentialsChangedEvent)
	if ce.Source != "override" {
		t.Errorf("Source = %q", ce.Source)
	}
	assertEmpty(t, ch)
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus(4)
	ch := bus.Subscribe(EventLog)
	bus.Close()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("channel still open after Close")
	}
	bus.PublishLog(ErrorLevel, "late", "", "", errors.New("x"))

	late := bus.Subscribe(EventLog)
	if _, ok := <-late; ok {
		t.Error("subscription on closed bus should be closed")
	}
}

func TestEventBus_NilPublishIsNoop(t *testing.T) {
	var bus *EventBus
	bus.Publish(&LogEvent{})
	bus.PublishJob(EventJobFailed, JobEvent{})
}

func TestNewEventBus_BufferBounds(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 1000},
		{-3, 1000},
		{16, 16},
		{1 << 20, 5000},
	}
	for _, tt := range tests {
		if got := NewEventBus(tt.in).buffer; got != tt.want {
			t.Errorf("NewEventBus(%d).buffer = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLogLevel_String(t *testing.T) {
	tests := map[LogLevel]string{
		DebugLevel:   "DEBUG",
		InfoLevel:    "INFO",
		WarnLevel:    "WARN",
		ErrorLevel:   "ERROR",
		LogLevel(42): "UNKNOWN",
		LogLevel(-1): "UNKNOWN",
	}
	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", int(level), got, want)
		}
	}
}
