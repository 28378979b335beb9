package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/ipdata/ipdata/internal/events"
)

const (
	refreshEvery = 300 * time.Millisecond
	mib          = 1 << 20
)

var jobEventTypes = []events.EventType{
	events.EventJobStarted,
	events.EventJobProgress,
	events.EventJobSucceeded,
	events.EventJobFailed,
}

// UploadUI draws one bar per job of an upload session, driven by the job
// events the orchestrator publishes. Without a terminal it prints one line
// per file instead.
type UploadUI struct {
	p     *mpb.Progress
	out   io.Writer
	tty   bool
	total int

	mu     sync.Mutex
	jobs   map[string]*jobBar
	seen   int
	ok     int
	failed int

	bus  *events.EventBus
	sub  <-chan events.Event
	stop chan struct{}
	done chan struct{}
}

type jobBar struct {
	ui      *UploadUI
	bar     *mpb.Bar // nil without a terminal
	label   string
	name    string
	size    int64
	started time.Time
	flushed time.Time
	sent    int64
	ended   bool
}

// NewUploadUI creates the display for a session of totalFiles files.
func NewUploadUI(totalFiles int, out *os.File) *UploadUI {
	if out == nil {
		out = os.Stderr
	}
	if !term.IsTerminal(int(out.Fd())) {
		return newUploadUI(mpb.New(mpb.WithOutput(io.Discard)), out, false, totalFiles)
	}
	enableVT(out)
	p := mpb.New(
		mpb.WithOutput(out),
		mpb.WithRefreshRate(refreshEvery),
		mpb.WithWidth(100),
	)
	return newUploadUI(p, out, true, totalFiles)
}

func newUploadUI(p *mpb.Progress, out io.Writer, tty bool, totalFiles int) *UploadUI {
	return &UploadUI{p: p, out: out, tty: tty, total: totalFiles, jobs: map[string]*jobBar{}}
}

// Follow starts consuming job events from bus. Call Stop once the session
// has returned.
func (u *UploadUI) Follow(bus *events.EventBus) {
	u.bus = bus
	u.sub = bus.Subscribe(jobEventTypes...)
	u.stop = make(chan struct{})
	u.done = make(chan struct{})
	go u.loop()
}

func (u *UploadUI) loop() {
	defer close(u.done)
	for {
		select {
		case ev, ok := <-u.sub:
			if !ok {
				return
			}
			u.handle(ev)
		case <-u.stop:
			u.drain()
			return
		}
	}
}

// drain handles what the session already buffered before Stop.
func (u *UploadUI) drain() {
	for {
		select {
		case ev, ok := <-u.sub:
			if !ok {
				return
			}
			u.handle(ev)
		default:
			return
		}
	}
}

// Stop processes pending events, aborts unfinished bars and waits for the
// final render. It returns the succeeded and failed job counts it saw.
func (u *UploadUI) Stop() (succeeded, failed int) {
	if u.bus != nil {
		u.bus.Unsubscribe(u.sub)
		close(u.stop)
		<-u.done
	}

	u.mu.Lock()
	for _, jb := range u.jobs {
		if !jb.ended && jb.bar != nil {
			jb.bar.Abort(false)
		}
	}
	succeeded, failed = u.ok, u.failed
	u.mu.Unlock()

	u.p.Wait()
	return succeeded, failed
}

func (u *UploadUI) handle(ev events.Event) {
	je, ok := ev.(*events.JobEvent)
	if !ok {
		return
	}
	jb := u.job(je)
	switch je.Type() {
	case events.EventJobProgress:
		jb.advance(je.Progress, time.Now())
	case events.EventJobSucceeded:
		jb.finish(je.URL, nil)
	case events.EventJobFailed:
		jb.finish("", je.Error)
	}
}

// job returns the bar for je's job, creating it on first sight.
func (u *UploadUI) job(je *events.JobEvent) *jobBar {
	u.mu.Lock()
	defer u.mu.Unlock()

	if jb, ok := u.jobs[je.JobID]; ok {
		return jb
	}
	u.seen++
	now := time.Now()
	jb := &jobBar{
		ui:      u,
		label:   fmt.Sprintf("[%d/%d] %s (%.1f MiB)", u.seen, u.total, je.FileName, float64(je.BytesTotal)/mib),
		name:    je.FileName,
		size:    je.BytesTotal,
		started: now,
		flushed: now,
	}
	if u.tty {
		jb.bar = u.p.New(jb.size, barStyle(), barDecorators(jb.label)...)
	} else {
		fmt.Fprintf(u.out, "Uploading %s\n", jb.label)
	}
	u.jobs[je.JobID] = jb
	return jb
}

func barStyle() mpb.BarFillerBuilder {
	return mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]")
}

func barDecorators(label string) []mpb.BarOption {
	return []mpb.BarOption{
		mpb.PrependDecorators(decor.Name(label, decor.WCSyncSpace)),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
			decor.Name("  "),
			decor.Percentage(decor.WCSyncSpace),
			decor.Name("  "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
			decor.Name("  ETA "),
			decor.EwmaETA(decor.ET_STYLE_GO, 30),
		),
		mpb.BarRemoveOnComplete(),
	}
}

// advance moves the bar to fraction. Updates inside one refresh interval
// are folded into the next.
func (jb *jobBar) advance(fraction float64, now time.Time) {
	if jb.bar == nil {
		return
	}
	elapsed := now.Sub(jb.flushed)
	sent := int64(fraction * float64(jb.size))
	if elapsed < refreshEvery || sent <= jb.sent {
		return
	}
	jb.bar.EwmaIncrBy(int(sent-jb.sent), elapsed)
	jb.sent = sent
	jb.flushed = now
}

// finish records the outcome once and prints a summary line.
func (jb *jobBar) finish(url string, err error) {
	u := jb.ui
	u.mu.Lock()
	if jb.ended {
		u.mu.Unlock()
		return
	}
	jb.ended = true
	if err != nil {
		u.failed++
	} else {
		u.ok++
	}
	u.mu.Unlock()

	if err != nil {
		if jb.bar != nil {
			jb.bar.Abort(false)
		}
		fmt.Fprintf(u.Writer(), "✗ %s: %v\n", jb.name, err)
		return
	}
	if jb.bar != nil {
		jb.bar.SetCurrent(jb.size)
		jb.bar.SetTotal(jb.size, true)
	}
	fmt.Fprintf(u.Writer(), "✓ %s → %s (%.1f MiB, %s)\n",
		jb.name, url, float64(jb.size)/mib, time.Since(jb.started).Round(time.Millisecond))
}

// Writer prints above the bars when they are drawn.
func (u *UploadUI) Writer() io.Writer {
	if u.tty {
		return u.p
	}
	return u.out
}
