package jobs_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"forge/internal/config"
	"forge/internal/jobs"
	"forge/internal/testsupport"
)

type stubExecutor struct {
	stage jobs.Stage
	run   func(ctx context.Context, job *jobs.Job, progress *jobs.Reporter) (map[string]any, error)
}

func (e *stubExecutor) Stage() jobs.Stage { return e.stage }

func (e *stubExecutor) Execute(ctx context.Context, job *jobs.Job, progress *jobs.Reporter) (map[string]any, error) {
	return e.run(ctx, job, progress)
}

func fastConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 2
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.HeartbeatInterval = 1
	cfg.Workflow.HeartbeatTimeout = 2
	cfg.Workflow.SoftTimeLimit = 1
	cfg.Workflow.HardTimeLimit = 3
	cfg.Workflow.MaintenanceInterval = 1
	return cfg
}

func newScheduler(t *testing.T, cfg *config.Config, executors ...jobs.Executor) (*jobs.Scheduler, *jobs.Queue) {
	t.Helper()
	st := testsupport.MustOpenStore(t, cfg)
	queue := jobs.NewQueue(st.DB())
	scheduler := jobs.NewScheduler(queue, cfg, nil)
	for _, executor := range executors {
		scheduler.Register(executor)
	}
	return scheduler, queue
}

func waitForTerminal(t *testing.T, scheduler *jobs.Scheduler, handle string) *jobs.Status {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		status, err := scheduler.GetStatus(context.Background(), handle)
		if err != nil {
			t.Fatalf("get status: %v", err)
		}
		if status.State.Terminal() {
			return status
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", handle)
	return nil
}

func TestSchedulerRunsJobToSuccess(t *testing.T) {
	cfg := fastConfig(t)
	executor := &stubExecutor{
		stage: jobs.StageIdeaGeneration,
		run: func(ctx context.Context, job *jobs.Job, progress *jobs.Reporter) (map[string]any, error) {
			progress.Step(ctx, 1, 3, "first")
			progress.Step(ctx, 3, 3, "done")
			return map[string]any{"ideas_generated": float64(7)}, nil
		},
	}
	scheduler, _ := newScheduler(t, cfg, executor)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Stop()

	handle, err := scheduler.Submit(context.Background(), jobs.StageIdeaGeneration, 42)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle == "" {
		t.Fatal("expected a non-empty handle")
	}

	status := waitForTerminal(t, scheduler, handle)
	if status.State != jobs.StateSucceeded {
		t.Fatalf("expected succeeded, got %s (error %q)", status.State, status.Error)
	}
	if status.Result["ideas_generated"] != float64(7) {
		t.Fatalf("expected result payload to round-trip, got %v", status.Result)
	}
	if status.CurrentStep != 3 || status.TotalSteps != 3 {
		t.Fatalf("expected final progress 3/3, got %d/%d", status.CurrentStep, status.TotalSteps)
	}
	if status.EntityID != 42 {
		t.Fatalf("expected entity 42, got %d", status.EntityID)
	}
}

func TestSchedulerRecordsFailure(t *testing.T) {
	cfg := fastConfig(t)
	executor := &stubExecutor{
		stage: jobs.StageResearch,
		run: func(ctx context.Context, job *jobs.Job, progress *jobs.Reporter) (map[string]any, error) {
			return nil, errors.New("model unavailable")
		},
	}
	scheduler, _ := newScheduler(t, cfg, executor)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Stop()

	handle, err := scheduler.Submit(context.Background(), jobs.StageResearch, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	status := waitForTerminal(t, scheduler, handle)
	if status.State != jobs.StateFailed {
		t.Fatalf("expected failed, got %s", status.State)
	}
	if !strings.Contains(status.Error, "model unavailable") {
		t.Fatalf("expected error message to surface, got %q", status.Error)
	}
}

func TestSchedulerHardLimitFailsJob(t *testing.T) {
	cfg := fastConfig(t)
	executor := &stubExecutor{
		stage: jobs.StageResearch,
		run: func(ctx context.Context, job *jobs.Job, progress *jobs.Reporter) (map[string]any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	scheduler, _ := newScheduler(t, cfg, executor)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Stop()

	handle, err := scheduler.Submit(context.Background(), jobs.StageResearch, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	status := waitForTerminal(t, scheduler, handle)
	if status.State != jobs.StateFailed {
		t.Fatalf("expected failed, got %s", status.State)
	}
	if !strings.Contains(status.Error, "hard time limit") {
		t.Fatalf("expected hard-limit message, got %q", status.Error)
	}
}

func TestSchedulerSubmitUnknownStage(t *testing.T) {
	cfg := fastConfig(t)
	scheduler, _ := newScheduler(t, cfg)
	if _, err := scheduler.Submit(context.Background(), jobs.StageWriting, 1); err == nil {
		t.Fatal("expected submit without an executor to fail")
	}
}

func TestGetStatusUnknownHandleReportsPendingWithCaveat(t *testing.T) {
	cfg := fastConfig(t)
	scheduler, _ := newScheduler(t, cfg)

	status, err := scheduler.GetStatus(context.Background(), "no-such-handle")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status.State != jobs.StatePending {
		t.Fatalf("expected pending, got %s", status.State)
	}
	if status.Caveat == "" {
		t.Fatal("expected a caveat for the unknown handle")
	}
}

func TestGetStatusPollingIsIdempotent(t *testing.T) {
	cfg := fastConfig(t)
	executor := &stubExecutor{
		stage: jobs.StageIdeaGeneration,
		run: func(ctx context.Context, job *jobs.Job, progress *jobs.Reporter) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		},
	}
	scheduler, _ := newScheduler(t, cfg, executor)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Stop()

	handle, err := scheduler.Submit(context.Background(), jobs.StageIdeaGeneration, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	first := waitForTerminal(t, scheduler, handle)
	for i := 0; i < 5; i++ {
		again, err := scheduler.GetStatus(context.Background(), handle)
		if err != nil {
			t.Fatalf("repeat poll: %v", err)
		}
		if again.State != first.State || again.CurrentStep != first.CurrentStep {
			t.Fatalf("expected identical status on repeat polls, got %+v then %+v", first, again)
		}
	}
}

func TestQueueProgressNeverRegresses(t *testing.T) {
	cfg := fastConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	queue := jobs.NewQueue(st.DB())
	ctx := context.Background()

	handle, err := queue.Enqueue(ctx, jobs.StageResearch, 1)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	claimed, err := queue.Claim(ctx)
	if err != nil || claimed == nil {
		t.Fatalf("claim: job=%v err=%v", claimed, err)
	}

	if err := queue.UpdateProgress(ctx, handle, 3, 4, "late step"); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	if err := queue.UpdateProgress(ctx, handle, 1, 4, "stale step"); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	job, err := queue.Get(ctx, handle)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.CurrentStep != 3 || job.StatusText != "late step" {
		t.Fatalf("expected stale update to be dropped, got step=%d text=%q", job.CurrentStep, job.StatusText)
	}
}

func TestQueueClaimIsExclusive(t *testing.T) {
	cfg := fastConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	queue := jobs.NewQueue(st.DB())
	ctx := context.Background()

	if _, err := queue.Enqueue(ctx, jobs.StageResearch, 1); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	first, err := queue.Claim(ctx)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if first == nil {
		t.Fatal("expected first claim to win")
	}
	second, err := queue.Claim(ctx)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if second != nil {
		t.Fatalf("expected second claim to find nothing, got %+v", second)
	}
}

func TestQueueReclaimStale(t *testing.T) {
	cfg := fastConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	queue := jobs.NewQueue(st.DB())
	ctx := context.Background()

	handle, err := queue.Enqueue(ctx, jobs.StageResearch, 1)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := queue.Claim(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// A negative timeout treats the fresh heartbeat as already stale.
	reclaimed, err := queue.ReclaimStale(ctx, -time.Second)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if len(reclaimed) != 1 || reclaimed[0] != handle {
		t.Fatalf("expected the claimed job to be reclaimed, got %v", reclaimed)
	}

	job, err := queue.Get(ctx, handle)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.State != jobs.StateFailed {
		t.Fatalf("expected failed after reclaim, got %s", job.State)
	}
	if !strings.Contains(job.ErrorMessage, "heartbeat") {
		t.Fatalf("expected heartbeat-loss message, got %q", job.ErrorMessage)
	}
}

func TestQueueStats(t *testing.T) {
	cfg := fastConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	queue := jobs.NewQueue(st.DB())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := queue.Enqueue(ctx, jobs.StageResearch, int64(i)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if _, err := queue.Claim(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}

	stats, err := queue.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[jobs.StatePending] != 2 || stats[jobs.StateInProgress] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
