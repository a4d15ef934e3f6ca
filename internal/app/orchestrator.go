package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/hdrscan/internal/analyzer"
	"github.com/raysh454/hdrscan/internal/logging"
)

var ErrClosed = errors.New("orchestrator is closed")

type JobEventType string

const (
	JobEventStatus   JobEventType = "status"
	JobEventProgress JobEventType = "progress"
	JobEventResult   JobEventType = "result"
)

type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	// For status changes
	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	// For progress
	Stage     string `json:"stage,omitempty"`
	Processed int    `json:"processed,omitempty"`
	Total     int    `json:"total,omitempty"`

	Result *ScanResult `json:"result,omitempty"`
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

type Job struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Targets   []string    `json:"targets"`
	Status    JobStatus   `json:"status"`
	Error     string      `json:"error,omitempty"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   time.Time   `json:"ended_at"`
	Result    *ScanResult `json:"result,omitempty"`

	// Events is closed when the job ends. Sends never block; events are
	// dropped while the buffer is full.
	Events chan JobEvent `json:"-"`
}

// Scanner is the part of Application the orchestrator drives.
type Scanner interface {
	Scan(ctx context.Context, req ScanRequest, hooks ScanHooks) (*ScanResult, error)
}

// Orchestrator runs scans as background jobs and tracks their state.
type Orchestrator struct {
	cfg     *Config
	scanner Scanner
	logger  logging.Logger

	jobsMu     sync.Mutex
	jobs       map[string]*Job
	jobCancels map[string]context.CancelFunc
	closed     bool
	wg         sync.WaitGroup
}

func NewOrchestrator(cfg *Config, scanner Scanner, logger logging.Logger) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Orchestrator{
		cfg:        cfg,
		scanner:    scanner,
		logger:     logger.With(logging.Field{Key: "component", Value: "orchestrator"}),
		jobs:       make(map[string]*Job),
		jobCancels: make(map[string]context.CancelFunc),
	}
}

func (o *Orchestrator) newJob(typ string, targets []string) *Job {
	return &Job{
		ID:        uuid.New().String(),
		Type:      typ,
		Targets:   append([]string(nil), targets...),
		Status:    JobPending,
		StartedAt: time.Now().UTC(),
		Events:    make(chan JobEvent, 64),
	}
}

func (o *Orchestrator) emitJobEvent(job *Job, ev JobEvent) {
	ev.JobID = job.ID
	select {
	case job.Events <- ev:
	default:
	}
}

func (o *Orchestrator) setStatus(job *Job, status JobStatus, errMsg string) {
	o.jobsMu.Lock()
	job.Status = status
	job.Error = errMsg
	o.jobsMu.Unlock()
	o.emitJobEvent(job, JobEvent{Type: JobEventStatus, Status: status, Error: errMsg})
}

func (o *Orchestrator) progressCallback(job *Job, stage string) func(done, total int) {
	return func(done, total int) {
		o.emitJobEvent(job, JobEvent{Type: JobEventProgress, Stage: stage, Processed: done, Total: total})
	}
}

// StartScanJob launches req in the background. The job outlives ctx only
// through its own cancel function; cancelling ctx cancels the job.
func (o *Orchestrator) StartScanJob(ctx context.Context, req ScanRequest) (*Job, error) {
	job := o.newJob("scan", req.Targets)
	jobCtx, cancel := context.WithCancel(ctx)

	o.jobsMu.Lock()
	if o.closed {
		o.jobsMu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	o.jobs[job.ID] = job
	o.jobCancels[job.ID] = cancel
	o.wg.Add(1)
	o.jobsMu.Unlock()

	o.emitJobEvent(job, JobEvent{Type: JobEventStatus, Status: JobPending})

	hooks := ScanHooks{
		Enumerated: o.progressCallback(job, "crawl"),
		Analyzed: func(p analyzer.Progress) {
			o.emitJobEvent(job, JobEvent{Type: JobEventProgress, Stage: "analyze", Processed: p.Done})
		},
	}

	go func() {
		defer o.wg.Done()
		defer o.finish(job)

		o.setStatus(job, JobRunning, "")
		res, err := o.scanner.Scan(jobCtx, req, hooks)
		switch {
		case jobCtx.Err() != nil:
			o.setStatus(job, JobCanceled, jobCtx.Err().Error())
		case err != nil:
			o.logger.Warn("scan job failed",
				logging.Field{Key: "job_id", Value: job.ID},
				logging.Field{Key: "error", Value: err.Error()})
			o.setStatus(job, JobFailed, err.Error())
		default:
			o.jobsMu.Lock()
			job.Status = JobDone
			job.Result = res
			o.jobsMu.Unlock()
			o.emitJobEvent(job, JobEvent{Type: JobEventResult, Status: JobDone, Result: res})
		}
	}()

	o.logger.Info("started scan job",
		logging.Field{Key: "job_id", Value: job.ID},
		logging.Field{Key: "targets", Value: len(req.Targets)})
	return o.snapshot(job), nil
}

func (o *Orchestrator) finish(job *Job) {
	o.jobsMu.Lock()
	job.EndedAt = time.Now().UTC()
	if cancel, ok := o.jobCancels[job.ID]; ok {
		cancel()
		delete(o.jobCancels, job.ID)
	}
	o.jobsMu.Unlock()
	close(job.Events)
	o.pruneJobs()
}

// pruneJobs forgets jobs that ended longer than JobRetentionTime ago.
func (o *Orchestrator) pruneJobs() {
	if o.cfg.JobRetentionTime <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-o.cfg.JobRetentionTime)
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	for id, j := range o.jobs {
		if !j.EndedAt.IsZero() && j.EndedAt.Before(cutoff) {
			delete(o.jobs, id)
		}
	}
}

// snapshot copies the job so callers can read it without holding jobsMu.
// The copy shares the Events channel.
func (o *Orchestrator) snapshot(job *Job) *Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	cp := *job
	cp.Targets = append([]string(nil), job.Targets...)
	return &cp
}

func (o *Orchestrator) CancelJob(jobID string) {
	o.jobsMu.Lock()
	cancel := o.jobCancels[jobID]
	o.jobsMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// GetJob returns a copy of the job, or nil when it is unknown.
func (o *Orchestrator) GetJob(jobID string) *Job {
	o.jobsMu.Lock()
	j, ok := o.jobs[jobID]
	o.jobsMu.Unlock()
	if !ok {
		return nil
	}
	return o.snapshot(j)
}

// ListJobs returns copies of all known jobs, oldest first.
func (o *Orchestrator) ListJobs() []*Job {
	o.jobsMu.Lock()
	jobs := make([]*Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		jobs = append(jobs, j)
	}
	o.jobsMu.Unlock()

	out := make([]*Job, len(jobs))
	for i, j := range jobs {
		out[i] = o.snapshot(j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.Before(out[k].StartedAt) })
	return out
}

// Close cancels running jobs, waits for them to end and rejects new ones.
// It is safe to call more than once.
func (o *Orchestrator) Close() {
	o.jobsMu.Lock()
	o.closed = true
	for _, cancel := range o.jobCancels {
		cancel()
	}
	o.jobsMu.Unlock()
	o.wg.Wait()
}
