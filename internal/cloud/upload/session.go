package upload

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ipdata/ipdata/internal/events"
)

// session owns the job list for one UploadAll call. Jobs are mutated only
// through its methods; progress values never decrease.
type session struct {
	id         uuid.UUID
	target     Target
	onProgress ProgressFunc
	bus        *events.EventBus

	mu   sync.Mutex
	jobs []Job
}

func newSession(target Target, files []FileRef, keys []string, onProgress ProgressFunc, bus *events.EventBus) *session {
	s := &session{
		id:         uuid.New(),
		target:     target,
		onProgress: onProgress,
		bus:        bus,
		jobs:       make([]Job, len(files)),
	}
	for i, f := range files {
		s.jobs[i] = Job{
			ID:       uuid.NewString(),
			FileName: f.Name,
			Key:      keys[i],
			Size:     f.Size,
			Status:   StatusPending,
		}
	}
	return s
}

func (s *session) sessionID() string {
	return s.id.String()
}

func (s *session) job(i int) Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[i]
}

func (s *session) start(i int) {
	s.mu.Lock()
	s.jobs[i].Status = StatusUploading
	job := s.jobs[i]
	s.mu.Unlock()

	s.bus.PublishJob(events.EventJobStarted, s.jobEvent(job))
}

// progress records a fraction for job i. Values are clamped to [0,1] and
// ignored when lower than what was already reported.
func (s *session) progress(i int, fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	s.mu.Lock()
	if s.jobs[i].Status.Terminal() || fraction <= s.jobs[i].Progress {
		s.mu.Unlock()
		return
	}
	s.jobs[i].Progress = fraction
	job := s.jobs[i]
	agg := s.aggregateLocked()
	s.mu.Unlock()

	s.emit(i, job, agg)
	s.bus.PublishJob(events.EventJobProgress, s.jobEvent(job))
}

func (s *session) succeed(i int, url string) {
	s.mu.Lock()
	s.jobs[i].Status = StatusSucceeded
	s.jobs[i].URL = url
	s.jobs[i].Err = nil
	s.jobs[i].Progress = 1
	job := s.jobs[i]
	agg := s.aggregateLocked()
	s.mu.Unlock()

	s.emit(i, job, agg)
	s.bus.PublishJob(events.EventJobSucceeded, s.jobEvent(job))
}

func (s *session) fail(i int, err error) {
	s.mu.Lock()
	s.jobs[i].Status = StatusFailed
	s.jobs[i].URL = ""
	s.jobs[i].Err = err
	s.jobs[i].Progress = 1
	job := s.jobs[i]
	agg := s.aggregateLocked()
	s.mu.Unlock()

	s.emit(i, job, agg)
	s.bus.PublishJob(events.EventJobFailed, s.jobEvent(job))
}

func (s *session) aggregateLocked() float64 {
	if len(s.jobs) == 0 {
		return 1
	}
	var sum float64
	for _, j := range s.jobs {
		sum += j.Progress
	}
	return sum / float64(len(s.jobs))
}

func (s *session) emit(i int, job Job, aggregate float64) {
	if s.onProgress == nil {
		return
	}
	s.onProgress(Progress{
		SessionID:   s.id,
		JobIndex:    i,
		FileName:    job.FileName,
		JobProgress: job.Progress,
		Aggregate:   aggregate,
	})
}

func (s *session) jobEvent(job Job) events.JobEvent {
	return events.JobEvent{
		SessionID:  s.sessionID(),
		JobID:      job.ID,
		FileName:   job.FileName,
		Status:     string(job.Status),
		Progress:   job.Progress,
		BytesSent:  int64(job.Progress * float64(job.Size)),
		BytesTotal: job.Size,
		URL:        job.URL,
		Error:      job.Err,
	}
}

// result snapshots the session in input order.
func (s *session) result() *SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &SessionResult{
		SessionID:     s.id,
		Target:        s.target,
		SucceededURLs: []string{},
		Failures:      []*UploadError{},
		Jobs:          make([]Job, len(s.jobs)),
	}
	copy(res.Jobs, s.jobs)
	for _, j := range s.jobs {
		switch j.Status {
		case StatusSucceeded:
			res.SucceededURLs = append(res.SucceededURLs, j.URL)
		case StatusFailed:
			res.Failures = append(res.Failures, &UploadError{FileName: j.FileName, Err: j.Err})
		}
	}
	return res
}
