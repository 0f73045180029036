package ideagen_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"forge/internal/config"
	"forge/internal/ideagen"
	"forge/internal/jobs"
	"forge/internal/services"
	"forge/internal/services/llm"
	"forge/internal/store"
	"forge/internal/testsupport"
)

type fakeCompleter struct {
	calls int
	fail  map[int]bool
}

var fakeSubjects = []string{
	"caching", "observability", "queueing", "sharding", "failover",
	"autoscaling", "migrations", "indexing", "batching", "tracing",
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (llm.Result, error) {
	f.calls++
	if f.fail[f.calls] {
		return llm.Result{}, errors.New("simulated model outage")
	}
	subject := fakeSubjects[(f.calls-1)%len(fakeSubjects)]
	content := fmt.Sprintf(`{"title":"Rethinking %s pipelines %d","description":"d","angle":"a","current_event_hook":"h"}`, subject, f.calls)
	return llm.Result{Content: content, Model: "fake-model", TokensUsed: 10}, nil
}

type repeatingCompleter struct{ calls int }

func (r *repeatingCompleter) Complete(ctx context.Context, req llm.Request) (llm.Result, error) {
	r.calls++
	return llm.Result{
		Content: `{"title":"Serverless cold starts in production","description":"d","angle":"a","current_event_hook":"h"}`,
		Model:   "fake-model",
	}, nil
}

type harness struct {
	cfg      *config.Config
	store    *store.Store
	queue    *jobs.Queue
	executor *ideagen.Executor
}

func newHarness(t *testing.T, completer llm.Completer) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	queue := jobs.NewQueue(st.DB())
	return &harness{
		cfg:      cfg,
		store:    st,
		queue:    queue,
		executor: ideagen.NewExecutor(st, completer, cfg, nil),
	}
}

func (h *harness) run(t *testing.T, topicID int64) (map[string]any, *jobs.Job, error) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.queue.Enqueue(ctx, jobs.StageIdeaGeneration, topicID); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job, err := h.queue.Claim(ctx)
	if err != nil || job == nil {
		t.Fatalf("claim: job=%v err=%v", job, err)
	}
	reporter := jobs.NewReporter(h.queue, job.ID, nil)
	result, execErr := h.executor.Execute(ctx, job, reporter)
	reloaded, err := h.queue.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	return result, reloaded, execErr
}

func seedTopic(t *testing.T, st *store.Store, ideaCount int) *store.Topic {
	t.Helper()
	topic := &store.Topic{
		Title:     "Observability on a budget",
		IdeaCount: ideaCount,
	}
	if err := st.CreateTopic(context.Background(), topic); err != nil {
		t.Fatalf("create topic: %v", err)
	}
	return topic
}

func TestExecuteGeneratesRequestedIdeas(t *testing.T) {
	h := newHarness(t, &fakeCompleter{})
	topic := seedTopic(t, h.store, 5)

	result, _, err := h.run(t, topic.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result["ideas_generated"] != 5 {
		t.Fatalf("expected 5 ideas generated, got %v", result["ideas_generated"])
	}
	if result["suppressed_failures"] != 0 {
		t.Fatalf("expected no suppressed failures, got %v", result["suppressed_failures"])
	}

	ideas, err := h.store.ListIdeasByTopic(context.Background(), topic.ID)
	if err != nil {
		t.Fatalf("list ideas: %v", err)
	}
	if len(ideas) != 5 {
		t.Fatalf("expected 5 persisted ideas, got %d", len(ideas))
	}
	for _, idea := range ideas {
		if idea.Status != store.IdeaGenerated {
			t.Fatalf("expected generated status, got %s", idea.Status)
		}
	}

	reloaded, err := h.store.GetTopic(context.Background(), topic.ID)
	if err != nil {
		t.Fatalf("reload topic: %v", err)
	}
	if reloaded.Status != store.TopicCompleted {
		t.Fatalf("expected topic completed, got %s", reloaded.Status)
	}
}

func TestExecuteSuppressesPerIdeaFailures(t *testing.T) {
	completer := &fakeCompleter{fail: map[int]bool{2: true, 5: true, 8: true}}
	h := newHarness(t, completer)
	topic := seedTopic(t, h.store, 10)

	result, job, err := h.run(t, topic.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result["ideas_generated"] != 7 {
		t.Fatalf("expected 7 of 10 ideas, got %v", result["ideas_generated"])
	}
	if result["suppressed_failures"] != 3 {
		t.Fatalf("expected 3 suppressed failures, got %v", result["suppressed_failures"])
	}
	if job.SuppressedFailures != 3 {
		t.Fatalf("expected suppressed count on the job row, got %d", job.SuppressedFailures)
	}

	ideas, err := h.store.ListIdeasByTopic(context.Background(), topic.ID)
	if err != nil {
		t.Fatalf("list ideas: %v", err)
	}
	if len(ideas) != 7 {
		t.Fatalf("expected 7 persisted ideas, got %d", len(ideas))
	}

	reloaded, err := h.store.GetTopic(context.Background(), topic.ID)
	if err != nil {
		t.Fatalf("reload topic: %v", err)
	}
	if reloaded.Status != store.TopicCompleted {
		t.Fatalf("expected partial batch to complete the topic, got %s", reloaded.Status)
	}
}

func TestExecuteSuppressesNearDuplicateTitles(t *testing.T) {
	h := newHarness(t, &repeatingCompleter{})
	topic := seedTopic(t, h.store, 3)

	result, job, err := h.run(t, topic.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result["ideas_generated"] != 1 {
		t.Fatalf("expected repeated titles to collapse to 1 idea, got %v", result["ideas_generated"])
	}
	if result["suppressed_failures"] != 2 {
		t.Fatalf("expected 2 suppressed duplicates, got %v", result["suppressed_failures"])
	}
	if job.SuppressedFailures != 2 {
		t.Fatalf("expected suppressed count on the job row, got %d", job.SuppressedFailures)
	}

	ideas, err := h.store.ListIdeasByTopic(context.Background(), topic.ID)
	if err != nil {
		t.Fatalf("list ideas: %v", err)
	}
	if len(ideas) != 1 {
		t.Fatalf("expected 1 persisted idea, got %d", len(ideas))
	}
}

func TestExecuteCompletesTopicWithZeroIdeas(t *testing.T) {
	completer := &fakeCompleter{fail: map[int]bool{1: true, 2: true, 3: true}}
	h := newHarness(t, completer)
	topic := seedTopic(t, h.store, 3)

	result, _, err := h.run(t, topic.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result["ideas_generated"] != 0 || result["suppressed_failures"] != 3 {
		t.Fatalf("expected a fully suppressed run, got %v", result)
	}

	reloaded, err := h.store.GetTopic(context.Background(), topic.ID)
	if err != nil {
		t.Fatalf("reload topic: %v", err)
	}
	if reloaded.Status != store.TopicCompleted {
		t.Fatalf("expected topic completed with zero ideas, got %s", reloaded.Status)
	}
}

func TestExecuteMissingTopic(t *testing.T) {
	h := newHarness(t, &fakeCompleter{})

	_, _, err := h.run(t, 9999)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExecuteRejectsTopicInWrongState(t *testing.T) {
	h := newHarness(t, &fakeCompleter{})
	topic := seedTopic(t, h.store, 3)
	if err := h.store.SetTopicStatus(context.Background(), topic.ID, store.TopicCompleted, store.TopicPending); err != nil {
		t.Fatalf("set topic status: %v", err)
	}

	_, _, err := h.run(t, topic.ID)
	if !errors.Is(err, services.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
}

func TestExecuteRecordsProgressTriples(t *testing.T) {
	h := newHarness(t, &fakeCompleter{})
	topic := seedTopic(t, h.store, 4)

	_, job, err := h.run(t, topic.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if job.CurrentStep != 4 || job.TotalSteps != 4 {
		t.Fatalf("expected final progress 4/4, got %d/%d", job.CurrentStep, job.TotalSteps)
	}
	if job.StatusText != "generating idea 4 of 4" {
		t.Fatalf("unexpected status text %q", job.StatusText)
	}
}
