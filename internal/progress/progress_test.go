package progress

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/vbauerster/mpb/v8"

	"github.com/ipdata/ipdata/internal/cloud/upload"
	"github.com/ipdata/ipdata/internal/events"
)

func TestSessionBar_ScalesAggregate(t *testing.T) {
	var out bytes.Buffer
	bar := NewSessionBar(&out, 200, "a.csv")

	tests := []struct {
		p    upload.Progress
		want int64
	}{
		{upload.Progress{FileName: "a.csv", Aggregate: 0.25}, 50},
		{upload.Progress{FileName: "a.csv", Aggregate: 0.5}, 100},
		{upload.Progress{FileName: "b.csv", Aggregate: 1.2}, 200},
	}
	for _, tt := range tests {
		bar.Observe(tt.p)
		if got := bar.sent; got != tt.want {
			t.Errorf("after %v: current = %d, want %d", tt.p.Aggregate, got, tt.want)
		}
	}
	if bar.current != "b.csv" {
		t.Errorf("label = %q, want b.csv", bar.current)
	}
}

func TestSessionBar_DoneWithError(t *testing.T) {
	var out bytes.Buffer
	bar := NewSessionBar(&out, 10, "a.csv")
	bar.Done(errors.New("access denied"))
	if !strings.Contains(out.String(), "Error: access denied") {
		t.Errorf("output = %q", out.String())
	}
}

func TestUploadUI_FollowsJobEvents(t *testing.T) {
	var out bytes.Buffer
	ui := newUploadUI(mpb.New(mpb.WithOutput(io.Discard)), &out, false, 2)

	bus := events.NewEventBus(16)
	defer bus.Close()
	ui.Follow(bus)

	bus.PublishJob(events.EventJobStarted, events.JobEvent{JobID: "1", FileName: "a.csv", BytesTotal: 10})
	bus.PublishJob(events.EventJobProgress, events.JobEvent{JobID: "1", FileName: "a.csv", Progress: 0.5, BytesTotal: 10})
	bus.PublishJob(events.EventJobSucceeded, events.JobEvent{JobID: "1", FileName: "a.csv", URL: "https://x/a.csv", BytesTotal: 10})
	bus.PublishJob(events.EventJobFailed, events.JobEvent{JobID: "2", FileName: "b.csv", Error: errors.New("denied")})
	bus.PublishLog(events.InfoLevel, "ignored", "", "", nil)

	succeeded, failed := ui.Stop()
	if succeeded != 1 || failed != 1 {
		t.Errorf("expected 1/1, got %d/%d", succeeded, failed)
	}

	got := out.String()
	for _, want := range []string{"Uploading [1/2] a.csv", "✓ a.csv → https://x/a.csv", "✗ b.csv: denied"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestJobBar_FinishIsIdempotent(t *testing.T) {
	var out bytes.Buffer
	ui := newUploadUI(mpb.New(mpb.WithOutput(io.Discard)), &out, false, 1)

	jb := ui.job(&events.JobEvent{JobID: "1", FileName: "a"})
	jb.finish("u", nil)
	jb.finish("u", nil)

	if succeeded, _ := ui.Stop(); succeeded != 1 {
		t.Errorf("expected one success, got %d", succeeded)
	}
	if n := strings.Count(out.String(), "✓"); n != 1 {
		t.Errorf("expected one summary line, got %d", n)
	}
}

func TestJobBar_AdvanceThrottles(t *testing.T) {
	p := mpb.New(mpb.WithOutput(io.Discard))
	ui := newUploadUI(p, io.Discard, true, 1)
	jb := ui.job(&events.JobEvent{JobID: "1", FileName: "a", BytesTotal: 1000})

	jb.advance(0.5, jb.flushed.Add(100*time.Millisecond))
	if jb.sent != 0 {
		t.Errorf("update inside refresh interval applied: sent=%d", jb.sent)
	}
	jb.advance(0.5, jb.flushed.Add(refreshEvery))
	if jb.sent != 500 {
		t.Errorf("sent = %d, want 500", jb.sent)
	}
	jb.advance(0.4, jb.flushed.Add(time.Second))
	if jb.sent != 500 {
		t.Errorf("progress went backwards: sent=%d", jb.sent)
	}

	jb.finish("u", nil)
	ui.Stop()
}
