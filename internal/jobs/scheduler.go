package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"forge/internal/config"
	"forge/internal/logging"
	"forge/internal/services"
)

// Executor runs one stage of pipeline work for a claimed job.
//
// Execute returns a result payload stored on the job. A returned error
// fails the job; per-item failures the executor absorbs should go through
// Reporter.SuppressFailure instead.
type Executor interface {
	Stage() Stage
	Execute(ctx context.Context, job *Job, progress *Reporter) (map[string]any, error)
}

// Reporter publishes progress for one running job.
type Reporter struct {
	queue  *Queue
	handle string
	logger *slog.Logger
}

// NewReporter binds a reporter to a job handle. The scheduler builds these
// itself; the constructor exists for executor tests.
func NewReporter(queue *Queue, handle string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reporter{queue: queue, handle: handle, logger: logger}
}

// Step records a progress triple. Updates that would move progress backward
// are ignored by the queue.
func (r *Reporter) Step(ctx context.Context, current, total int, statusText string) {
	if err := r.queue.UpdateProgress(ctx, r.handle, current, total, statusText); err != nil {
		r.logger.Warn("progress update failed", logging.Error(err))
	}
}

// SuppressFailure records a per-item failure that did not fail the job.
func (r *Reporter) SuppressFailure(ctx context.Context, cause error) {
	r.logger.Warn("suppressed item failure", logging.Error(cause))
	if err := r.queue.RecordSuppressedFailure(ctx, r.handle); err != nil {
		r.logger.Warn("suppressed-failure update failed", logging.Error(err))
	}
}

// Notifier receives terminal job transitions. Implementations are called
// from worker goroutines and must be safe for concurrent use; failures to
// deliver must be handled internally.
type Notifier interface {
	JobSucceeded(ctx context.Context, stage Stage, entityID int64, result map[string]any)
	JobFailed(ctx context.Context, stage Stage, entityID int64, message string)
}

// Scheduler owns the worker pool that drains the job queue.
type Scheduler struct {
	queue     *Queue
	logger    *slog.Logger
	executors map[Stage]Executor
	notifier  Notifier

	workers           int
	pollInterval      time.Duration
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	softLimit         time.Duration
	hardLimit         time.Duration
	maintenanceEvery  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewScheduler builds a scheduler from workflow configuration.
func NewScheduler(queue *Queue, cfg *config.Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		queue:             queue,
		logger:            logger.With(logging.String(logging.FieldComponent, "scheduler")),
		executors:         make(map[Stage]Executor),
		workers:           cfg.Workflow.Workers,
		pollInterval:      time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeatInterval: time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
		heartbeatTimeout:  time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second,
		softLimit:         time.Duration(cfg.Workflow.SoftTimeLimit) * time.Second,
		hardLimit:         time.Duration(cfg.Workflow.HardTimeLimit) * time.Second,
		maintenanceEvery:  time.Duration(cfg.Workflow.MaintenanceInterval) * time.Second,
	}
}

// Register adds a stage executor. Registering two executors for the same
// stage is a programming error.
func (s *Scheduler) Register(executor Executor) {
	stage := executor.Stage()
	if _, exists := s.executors[stage]; exists {
		panic(fmt.Sprintf("executor already registered for stage %s", stage))
	}
	s.executors[stage] = executor
}

// SetNotifier installs the terminal-transition notifier. Must be called
// before Start.
func (s *Scheduler) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// Submit enqueues work for a stage and returns the job handle immediately.
func (s *Scheduler) Submit(ctx context.Context, stage Stage, entityID int64) (string, error) {
	if _, ok := s.executors[stage]; !ok {
		return "", services.Wrap(services.ErrConfiguration, string(stage), "submit",
			fmt.Sprintf("no executor registered for stage %s", stage), nil)
	}
	handle, err := s.queue.Enqueue(ctx, stage, entityID)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, string(stage), "submit", "enqueue job", err)
	}
	s.logger.Info("job submitted",
		logging.String(logging.FieldJobID, handle),
		logging.String(logging.FieldStage, string(stage)),
		logging.Int64(logging.FieldEntityID, entityID))
	return handle, nil
}

// GetStatus returns the visible state of a job. An unknown handle reports
// pending with a caveat: a freshly submitted job may not be durable yet
// when the first poll arrives, so absence is indistinguishable from
// not-yet-visible and is reported optimistically.
func (s *Scheduler) GetStatus(ctx context.Context, handle string) (*Status, error) {
	job, err := s.queue.Get(ctx, handle)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "scheduler", "status", "load job", err)
	}
	if job == nil {
		return &Status{
			Handle: handle,
			State:  StatePending,
			Caveat: "job not yet visible; treat as pending",
		}, nil
	}
	return jobStatus(job), nil
}

// ListStatuses returns the visible state of all jobs.
func (s *Scheduler) ListStatuses(ctx context.Context, states ...State) ([]*Status, error) {
	jobList, err := s.queue.List(ctx, states...)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "scheduler", "status", "list jobs", err)
	}
	statuses := make([]*Status, 0, len(jobList))
	for _, job := range jobList {
		statuses = append(statuses, jobStatus(job))
	}
	return statuses, nil
}

// Start launches the worker pool and background maintenance.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go func(worker int) {
			defer s.wg.Done()
			s.workerLoop(runCtx, worker)
		}(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.maintenanceLoop(runCtx)
	}()

	s.logger.Info("scheduler started", logging.Int("workers", s.workers))
	return nil
}

// Stop cancels workers and waits for in-flight jobs to wind down.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) workerLoop(ctx context.Context, worker int) {
	logger := s.logger.With(logging.Int("worker", worker))
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		job, err := s.queue.Claim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("claim failed", logging.Error(err))
		} else if job != nil {
			s.runJob(ctx, logger, job)
			// Drain without waiting while work remains.
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, logger *slog.Logger, job *Job) {
	executor, ok := s.executors[job.Stage]
	if !ok {
		_ = s.queue.MarkFailed(ctx, job.ID, fmt.Sprintf("no executor for stage %s", job.Stage))
		return
	}

	jobLogger := logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldStage, string(job.Stage)),
		logging.Int64(logging.FieldEntityID, job.EntityID))
	jobLogger.Info("job started")

	jobCtx, cancel := context.WithTimeout(ctx, s.hardLimit)
	defer cancel()
	jobCtx = services.WithJobID(jobCtx, job.ID)
	jobCtx = services.WithStage(jobCtx, string(job.Stage))
	jobCtx = services.WithEntityID(jobCtx, job.EntityID)

	stopHeartbeat := s.startHeartbeat(ctx, job.ID)
	defer stopHeartbeat()

	softTimer := time.AfterFunc(s.softLimit, func() {
		jobLogger.Warn("job exceeded soft time limit",
			logging.Duration("soft_limit", s.softLimit))
	})
	defer softTimer.Stop()

	reporter := &Reporter{queue: s.queue, handle: job.ID, logger: jobLogger}
	result, err := executor.Execute(jobCtx, job, reporter)

	// Finalization uses the outer context so a hard-limit kill can still
	// be recorded.
	if err != nil {
		message := err.Error()
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			message = services.Wrap(services.ErrTimeout, string(job.Stage), "execute",
				fmt.Sprintf("job exceeded hard time limit of %s", s.hardLimit), err).Error()
		}
		if markErr := s.queue.MarkFailed(ctx, job.ID, message); markErr != nil {
			jobLogger.Error("failed to record job failure", logging.Error(markErr))
		}
		jobLogger.Error("job failed", logging.Error(err))
		if s.notifier != nil {
			s.notifier.JobFailed(ctx, job.Stage, job.EntityID, message)
		}
		return
	}

	if markErr := s.queue.MarkSucceeded(ctx, job.ID, result); markErr != nil {
		jobLogger.Error("failed to record job success", logging.Error(markErr))
		return
	}
	jobLogger.Info("job succeeded")
	if s.notifier != nil {
		s.notifier.JobSucceeded(ctx, job.Stage, job.EntityID, result)
	}
}

func (s *Scheduler) startHeartbeat(ctx context.Context, handle string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.queue.Heartbeat(ctx, handle); err != nil {
					s.logger.Warn("heartbeat failed",
						logging.String(logging.FieldJobID, handle),
						logging.Error(err))
				}
			}
		}
	}()
	return func() {
		close(stop)
		<-done
	}
}

func (s *Scheduler) maintenanceLoop(ctx context.Context) {
	ticker := time.NewTicker(s.maintenanceEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reclaimed, err := s.queue.ReclaimStale(ctx, s.heartbeatTimeout)
			if err != nil {
				s.logger.Warn("stale-job reclaim failed", logging.Error(err))
				continue
			}
			for _, handle := range reclaimed {
				s.logger.Warn("reclaimed stale job", logging.String(logging.FieldJobID, handle))
			}
			// Entity rows referenced by reclaimed jobs are reported by
			// status surfaces as stalled; maintenance does not rewrite
			// entity state on the jobs' behalf.
			s.logger.Debug("maintenance pass complete", logging.Int("reclaimed", len(reclaimed)))
		}
	}
}

func jobStatus(job *Job) *Status {
	status := &Status{
		Handle:             job.ID,
		Stage:              job.Stage,
		EntityID:           job.EntityID,
		State:              job.State,
		CurrentStep:        job.CurrentStep,
		TotalSteps:         job.TotalSteps,
		StatusText:         job.StatusText,
		Error:              job.ErrorMessage,
		SuppressedFailures: job.SuppressedFailures,
		CreatedAt:          job.CreatedAt,
		StartedAt:          job.StartedAt,
		FinishedAt:         job.FinishedAt,
	}
	if job.ResultJSON != "" {
		var result map[string]any
		if err := json.Unmarshal([]byte(job.ResultJSON), &result); err == nil {
			status.Result = result
		}
	}
	return status
}
