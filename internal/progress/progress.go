// Package progress renders upload progress in the terminal: a single
// progressbar for one-file sessions and an mpb multi-bar display fed by the
// event bus for larger sessions.
package progress

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/ipdata/ipdata/internal/cloud/upload"
)

// SessionBar is one byte-scaled bar covering a whole session. The session's
// aggregate fraction is mapped onto totalBytes.
type SessionBar struct {
	out     io.Writer
	bar     *progressbar.ProgressBar
	total   int64
	sent    int64
	current string
}

// NewSessionBar draws on out, labelled with the first file's name.
func NewSessionBar(out io.Writer, totalBytes int64, label string) *SessionBar {
	return &SessionBar{
		out:     out,
		total:   totalBytes,
		current: label,
		bar: progressbar.NewOptions64(totalBytes,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(label),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(50),
			progressbar.OptionThrottle(100),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
		),
	}
}

// Observe is the upload.ProgressFunc feeding this bar.
func (b *SessionBar) Observe(p upload.Progress) {
	if p.FileName != b.current {
		b.current = p.FileName
		b.bar.Describe(p.FileName)
	}
	b.sent = b.bytesFor(p.Aggregate)
	_ = b.bar.Set64(b.sent)
}

func (b *SessionBar) bytesFor(fraction float64) int64 {
	switch {
	case fraction <= 0:
		return 0
	case fraction >= 1:
		return b.total
	}
	return int64(fraction * float64(b.total))
}

// Done finishes the bar, or reports err beneath it.
func (b *SessionBar) Done(err error) {
	if err != nil {
		fmt.Fprintf(b.out, "\nError: %v\n", err)
		return
	}
	_ = b.bar.Finish()
}
