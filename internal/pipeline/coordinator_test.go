package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"forge/internal/config"
	"forge/internal/jobs"
	"forge/internal/pipeline"
	"forge/internal/services"
	"forge/internal/store"
	"forge/internal/testsupport"
)

type noopExecutor struct{ stage jobs.Stage }

func (e *noopExecutor) Stage() jobs.Stage { return e.stage }

func (e *noopExecutor) Execute(ctx context.Context, job *jobs.Job, progress *jobs.Reporter) (map[string]any, error) {
	return nil, nil
}

type fixture struct {
	cfg   *config.Config
	store *store.Store
	coord *pipeline.Coordinator
}

// newFixture builds a coordinator whose scheduler accepts submissions for
// every stage but never runs them, so entity state stays where the
// coordinator put it.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	scheduler := jobs.NewScheduler(jobs.NewQueue(st.DB()), cfg, nil)
	for _, stage := range []jobs.Stage{
		jobs.StageIdeaGeneration,
		jobs.StageResearch,
		jobs.StageWriting,
		jobs.StageImageGeneration,
		jobs.StageSocialGeneration,
	} {
		scheduler.Register(&noopExecutor{stage: stage})
	}
	return &fixture{
		cfg:   cfg,
		store: st,
		coord: pipeline.New(st, scheduler, cfg, nil),
	}
}

func (f *fixture) seedTopic(t *testing.T) *store.Topic {
	t.Helper()
	topic, err := f.coord.CreateTopic(context.Background(), &store.Topic{Title: "Edge caching strategies"})
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	return topic
}

func (f *fixture) seedApprovedIdea(t *testing.T, topicID int64) *store.Idea {
	t.Helper()
	ctx := context.Background()
	idea := &store.Idea{Title: "CDN cold starts"}
	if err := f.store.CompleteIdeaGeneration(ctx, topicID, []*store.Idea{idea}); err != nil {
		t.Fatalf("complete idea generation: %v", err)
	}
	if err := f.coord.ApproveIdea(ctx, idea.ID, ""); err != nil {
		t.Fatalf("approve idea: %v", err)
	}
	return idea
}

func TestCreateTopicAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	topic := f.seedTopic(t)

	if topic.IdeaCount != f.cfg.Pipeline.IdeaCount {
		t.Fatalf("expected default idea count %d, got %d", f.cfg.Pipeline.IdeaCount, topic.IdeaCount)
	}
	if topic.TargetWordCount != f.cfg.Pipeline.TargetWordCount {
		t.Fatalf("expected default word count %d, got %d", f.cfg.Pipeline.TargetWordCount, topic.TargetWordCount)
	}
	if topic.Status != store.TopicPending {
		t.Fatalf("expected pending topic, got %s", topic.Status)
	}
}

func TestCreateTopicRequiresTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.CreateTopic(context.Background(), &store.Topic{Title: "   "})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestStartIdeaGenerationGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := f.seedTopic(t)

	handle, err := f.coord.StartIdeaGeneration(ctx, topic.ID)
	if err != nil {
		t.Fatalf("start idea generation: %v", err)
	}
	if handle == "" {
		t.Fatal("expected a job handle")
	}

	if _, err := f.coord.StartIdeaGeneration(ctx, 9999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing topic, got %v", err)
	}

	if err := f.store.SetTopicStatus(ctx, topic.ID, store.TopicCompleted, store.TopicPending); err != nil {
		t.Fatalf("set topic status: %v", err)
	}
	if _, err := f.coord.StartIdeaGeneration(ctx, topic.ID); !errors.Is(err, services.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed for completed topic, got %v", err)
	}
}

func TestReviewIdeaErrorMapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := f.seedTopic(t)
	idea := f.seedApprovedIdea(t, topic.ID)

	if err := f.coord.ApproveIdea(ctx, 9999, ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := f.coord.RejectIdea(ctx, idea.ID, ""); !errors.Is(err, services.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed when rejecting an approved idea, got %v", err)
	}
}

func TestStartResearchLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := f.seedTopic(t)
	idea := f.seedApprovedIdea(t, topic.ID)

	handle, err := f.coord.StartResearch(ctx, idea.ID)
	if err != nil {
		t.Fatalf("start research: %v", err)
	}
	if handle == "" {
		t.Fatal("expected a job handle")
	}

	record, err := f.coord.GetResearchByIdea(ctx, idea.ID)
	if err != nil {
		t.Fatalf("get research: %v", err)
	}
	if record.Status != store.ResearchPending {
		t.Fatalf("expected pending research, got %s", record.Status)
	}

	if _, err := f.coord.StartResearch(ctx, idea.ID); !errors.Is(err, services.ErrPreconditionFailed) {
		t.Fatalf("expected duplicate research to conflict, got %v", err)
	}
}

func TestStartResearchRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := f.seedTopic(t)
	idea := &store.Idea{Title: "Unreviewed"}
	if err := f.store.CompleteIdeaGeneration(ctx, topic.ID, []*store.Idea{idea}); err != nil {
		t.Fatalf("complete idea generation: %v", err)
	}

	if _, err := f.coord.StartResearch(ctx, idea.ID); !errors.Is(err, services.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed for unapproved idea, got %v", err)
	}
	if _, err := f.coord.StartResearch(ctx, 9999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing idea, got %v", err)
	}
}

func TestStartResearchConcurrentCallersOneWins(t *testing.T) {
	f := newFixture(t)
	topic := f.seedTopic(t)
	idea := f.seedApprovedIdea(t, topic.ID)

	const racers = 2
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = f.coord.StartResearch(context.Background(), idea.ID)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, services.ErrPreconditionFailed) {
			t.Fatalf("unexpected race error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestBlogPostApprovalAndDownstreamGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := f.seedTopic(t)
	idea := f.seedApprovedIdea(t, topic.ID)

	post := &store.BlogPost{IdeaID: idea.ID, Title: "Draft"}
	if err := f.store.CreateBlogPost(ctx, post); err != nil {
		t.Fatalf("create post: %v", err)
	}

	if _, err := f.coord.StartAssetGeneration(ctx, post.ID); !errors.Is(err, services.ErrPreconditionFailed) {
		t.Fatalf("expected unapproved post to block assets, got %v", err)
	}
	if _, err := f.coord.StartSocialGeneration(ctx, post.ID); !errors.Is(err, services.ErrPreconditionFailed) {
		t.Fatalf("expected unapproved post to block social, got %v", err)
	}

	if err := f.coord.ApproveBlogPost(ctx, post.ID); err != nil {
		t.Fatalf("approve post: %v", err)
	}
	if err := f.coord.ApproveBlogPost(ctx, post.ID); !errors.Is(err, services.ErrPreconditionFailed) {
		t.Fatalf("expected second approval to fail, got %v", err)
	}

	if _, err := f.coord.StartAssetGeneration(ctx, post.ID); err != nil {
		t.Fatalf("start assets: %v", err)
	}
	if _, err := f.coord.StartSocialGeneration(ctx, post.ID); err != nil {
		t.Fatalf("start social: %v", err)
	}
	if err := f.coord.ApproveBlogPost(ctx, 9999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStartWritingRequiresCompletedResearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := f.seedTopic(t)
	idea := f.seedApprovedIdea(t, topic.ID)

	if _, err := f.coord.StartWriting(ctx, idea.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without research, got %v", err)
	}

	record, err := f.store.ClaimIdeaForResearch(ctx, idea.ID)
	if err != nil {
		t.Fatalf("claim idea: %v", err)
	}
	if _, err := f.coord.StartWriting(ctx, idea.ID); !errors.Is(err, services.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed with pending research, got %v", err)
	}

	record.Status = store.ResearchCompleted
	if err := f.store.UpdateResearch(ctx, record); err != nil {
		t.Fatalf("complete research: %v", err)
	}
	if _, err := f.coord.StartWriting(ctx, idea.ID); err != nil {
		t.Fatalf("start writing: %v", err)
	}
}

func TestOverviewIncludesJobStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := f.seedTopic(t)
	if _, err := f.coord.StartIdeaGeneration(ctx, topic.ID); err != nil {
		t.Fatalf("start idea generation: %v", err)
	}

	overview, stats, err := f.coord.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.Topics[store.TopicPending] != 1 {
		t.Fatalf("expected 1 pending topic, got %d", overview.Topics[store.TopicPending])
	}
	if stats[jobs.StatePending] != 1 {
		t.Fatalf("expected 1 pending job, got %d", stats[jobs.StatePending])
	}
}
