package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TargetKind selects the upload strategy for a session.
type TargetKind int

const (
	// TargetDirect uploads with the long-lived credentials.
	TargetDirect TargetKind = iota
	// TargetPresigned uploads each file through a presigned PUT URL.
	TargetPresigned
	// TargetAlternate dispatches to a registered alternate backend.
	TargetAlternate
)

// Target is the storage destination for one session.
type Target struct {
	Kind TargetKind
	// Provider names the alternate backend; only set for TargetAlternate.
	Provider string
}

// ErrInvalidTarget is returned by ParseTarget.
var ErrInvalidTarget = errors.New("target must be direct, presigned or alternate:<provider>")

// Direct returns the direct object-storage target.
func Direct() Target { return Target{Kind: TargetDirect} }

// Presigned returns the presigned object-storage target.
func Presigned() Target { return Target{Kind: TargetPresigned} }

// Alternate returns the target for a named alternate backend.
func Alternate(name string) Target {
	return Target{Kind: TargetAlternate, Provider: strings.ToLower(strings.TrimSpace(name))}
}

// ParseTarget parses "direct", "presigned" or "alternate:<name>".
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "direct":
		return Direct(), nil
	case s == "presigned":
		return Presigned(), nil
	case strings.HasPrefix(s, "alternate:"):
		name := strings.TrimPrefix(s, "alternate:")
		if strings.TrimSpace(name) == "" {
			return Target{}, ErrInvalidTarget
		}
		return Alternate(name), nil
	default:
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetDirect:
		return "direct"
	case TargetPresigned:
		return "presigned"
	case TargetAlternate:
		return "alternate:" + t.Provider
	default:
		return "unknown"
	}
}

// FileRef is one file offered for upload. Open is called once, when the
// file's turn comes; the reader must be able to seek so transfers can retry.
type FileRef struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadSeekCloser, error)
}

// FileRefFromPath builds a FileRef for a local file.
func FileRefFromPath(path string) (FileRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileRef{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return FileRef{}, fmt.Errorf("%s is a directory", path)
	}

	return FileRef{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Open: func() (io.ReadSeekCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// JobStatus is the lifecycle state of one file's upload.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusUploading JobStatus = "uploading"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s JobStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job tracks one file. URL is set iff Status is succeeded; Err is set iff
// Status is failed.
type Job struct {
	ID       string
	FileName string
	Key      string
	Size     int64
	Status   JobStatus
	Progress float64 // 0.0 to 1.0
	URL      string
	Err      error
}

// UploadError records one file that failed.
type UploadError struct {
	FileName string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.FileName, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Progress is delivered to the session's ProgressFunc on every job update.
type Progress struct {
	SessionID   uuid.UUID
	JobIndex    int
	FileName    string
	JobProgress float64
	// Aggregate is the mean of all job progress values.
	Aggregate float64
}

// ProgressFunc receives progress updates. It is called on the session's
// goroutine and must not block.
type ProgressFunc func(Progress)

// SessionResult is what UploadAll hands back to the caller.
//
// SucceededURLs and Failures are in input order and together account for
// every file: len(SucceededURLs)+len(Failures) == len(Jobs).
type SessionResult struct {
	SessionID     uuid.UUID
	Target        Target
	SucceededURLs []string
	Failures      []*UploadError
	Jobs          []Job
}

// Succeeded is true when every job succeeded.
func (r *SessionResult) Succeeded() bool {
	if len(r.Failures) > 0 {
		return false
	}
	for _, j := range r.Jobs {
		if j.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

// Err joins the per-file failures, or returns nil.
func (r *SessionResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}
