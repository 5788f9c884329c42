package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kbodata/internal/server/core"

	"go.uber.org/zap"
)

// Job states
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

const (
	defaultQueueSize = 16
	// maxJobHistory bounds the finished job statuses kept for lookup
	maxJobHistory = 100
)

var (
	ErrQueueFull     = errors.New("job queue is full")
	ErrQueueShutdown = errors.New("job queue is shutting down")
)

// Job is a long-running ingestion task executed off the request path
type Job struct {
	RunID string
	Kind  string
	Run   func(ctx context.Context) (any, error)
}

// JobStatus is the externally visible state of a submitted job
type JobStatus struct {
	RunID      string     `json:"run_id"`
	Kind       string     `json:"kind"`
	State      string     `json:"state"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	Code       string     `json:"code,omitempty"`
	QueuedAt   time.Time  `json:"queued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// JobQueue runs submitted jobs on a fixed worker pool and tracks their status
type JobQueue struct {
	tasks   chan Job
	workers int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger

	mu       sync.RWMutex
	status   map[string]*JobStatus
	finished []string
	closed   bool
}

// NewJobQueue creates a queue with specified worker count
func NewJobQueue(workerCount, size int, logger *zap.Logger) *JobQueue {
	if workerCount < 1 {
		workerCount = 1
	}
	if size < 1 {
		size = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &JobQueue{
		tasks:   make(chan Job, size),
		workers: workerCount,
		ctx:     ctx,
		cancel:  cancel,
		log:     logger.Named("jobs"),
		status:  make(map[string]*JobStatus),
	}

	q.start()
	return q
}

// start initializes the worker pool
func (q *JobQueue) start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// worker processes jobs until the queue is closed or cancelled
func (q *JobQueue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case job, ok := <-q.tasks:
			if !ok {
				return
			}
			q.process(id, job)

		case <-q.ctx.Done():
			return
		}
	}
}

func (q *JobQueue) process(worker int, job Job) {
	started := time.Now()
	q.update(job.RunID, func(st *JobStatus) {
		st.State = JobRunning
		st.StartedAt = &started
	})
	q.log.Info("job started", zap.String("run_id", job.RunID), zap.String("kind", job.Kind), zap.Int("worker", worker))

	result, err := job.Run(q.ctx)

	finished := time.Now()
	q.update(job.RunID, func(st *JobStatus) {
		st.FinishedAt = &finished
		st.Result = result
		if err != nil {
			st.State = JobFailed
			st.Error = err.Error()
			st.Code = core.KindOf(err).Code()
			return
		}
		st.State = JobDone
	})

	if err != nil {
		q.log.Error("job failed", zap.String("run_id", job.RunID), zap.String("kind", job.Kind),
			zap.Duration("elapsed", finished.Sub(started)), zap.Error(err))
	} else {
		q.log.Info("job finished", zap.String("run_id", job.RunID), zap.String("kind", job.Kind),
			zap.Duration("elapsed", finished.Sub(started)))
	}

	q.retire(job.RunID)
}

func (q *JobQueue) update(runID string, fn func(*JobStatus)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.status[runID]; ok {
		fn(st)
	}
}

// retire records a finished job and drops the oldest ones past maxJobHistory
func (q *JobQueue) retire(runID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.finished = append(q.finished, runID)
	for len(q.finished) > maxJobHistory {
		delete(q.status, q.finished[0])
		q.finished = q.finished[1:]
	}
}

// Submit adds a job to the queue without blocking
func (q *JobQueue) Submit(job Job) error {
	if job.RunID == "" || job.Run == nil {
		return fmt.Errorf("job requires a run id and a function")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueShutdown
	}
	if _, exists := q.status[job.RunID]; exists {
		return fmt.Errorf("job %s already submitted", job.RunID)
	}

	select {
	case q.tasks <- job:
	default:
		return ErrQueueFull
	}

	q.status[job.RunID] = &JobStatus{
		RunID:    job.RunID,
		Kind:     job.Kind,
		State:    JobQueued,
		QueuedAt: time.Now(),
	}
	return nil
}

// Status returns a snapshot of a job's status
func (q *JobQueue) Status(runID string) (JobStatus, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	st, ok := q.status[runID]
	if !ok {
		return JobStatus{}, false
	}
	return *st, true
}

// Shutdown cancels running jobs and waits for workers to exit
func (q *JobQueue) Shutdown(timeout time.Duration) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
