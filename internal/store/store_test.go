package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"forge/internal/store"
	"forge/internal/testsupport"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return testsupport.MustOpenStore(t, cfg)
}

func seedTopic(t *testing.T, st *store.Store) *store.Topic {
	t.Helper()
	topic := &store.Topic{
		Title:           "Rust adoption in infrastructure teams",
		Description:     "Why systems teams keep migrating",
		Category:        "engineering",
		Keywords:        []string{"rust", "infrastructure"},
		IdeaCount:       10,
		TargetWordCount: 1200,
	}
	if err := st.CreateTopic(context.Background(), topic); err != nil {
		t.Fatalf("create topic: %v", err)
	}
	return topic
}

func seedApprovedIdea(t *testing.T, st *store.Store, topicID int64) *store.Idea {
	t.Helper()
	ctx := context.Background()
	idea := &store.Idea{Title: "The hidden cost of rewrites"}
	if err := st.CompleteIdeaGeneration(ctx, topicID, []*store.Idea{idea}); err != nil {
		t.Fatalf("complete idea generation: %v", err)
	}
	if err := st.ApproveIdea(ctx, idea.ID, ""); err != nil {
		t.Fatalf("approve idea: %v", err)
	}
	return idea
}

func TestTopicCRUD(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	if topic.ID == 0 {
		t.Fatal("expected topic ID to be assigned")
	}
	if topic.Status != store.TopicPending {
		t.Fatalf("expected pending status, got %s", topic.Status)
	}

	loaded, err := st.GetTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("get topic: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected topic to exist")
	}
	if loaded.Title != topic.Title {
		t.Fatalf("expected title %q, got %q", topic.Title, loaded.Title)
	}
	if len(loaded.Keywords) != 2 || loaded.Keywords[0] != "rust" {
		t.Fatalf("expected keywords to round-trip, got %v", loaded.Keywords)
	}

	loaded.Description = "updated"
	loaded.Status = store.TopicProcessing
	if err := st.UpdateTopic(ctx, loaded); err != nil {
		t.Fatalf("update topic: %v", err)
	}
	reloaded, err := st.GetTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("reload topic: %v", err)
	}
	if reloaded.Description != "updated" || reloaded.Status != store.TopicProcessing {
		t.Fatalf("expected update to persist, got %+v", reloaded)
	}

	missing, err := st.GetTopic(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing topic: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for missing topic")
	}
}

func TestTopicListFiltersByStatus(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	first := seedTopic(t, st)
	second := seedTopic(t, st)
	if err := st.SetTopicStatus(ctx, second.ID, store.TopicProcessing, store.TopicPending); err != nil {
		t.Fatalf("set topic status: %v", err)
	}

	pending, err := st.ListTopics(ctx, store.TopicPending)
	if err != nil {
		t.Fatalf("list pending topics: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Fatalf("expected only the first topic pending, got %d rows", len(pending))
	}

	all, err := st.ListTopics(ctx)
	if err != nil {
		t.Fatalf("list all topics: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(all))
	}
}

func TestSetTopicStatusRejectsWrongState(t *testing.T) {
	st := newStore(t)
	topic := seedTopic(t, st)

	err := st.SetTopicStatus(context.Background(), topic.ID, store.TopicCompleted, store.TopicProcessing)
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDeleteTopicCascades(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	idea := seedApprovedIdea(t, st, topic.ID)
	if _, err := st.ClaimIdeaForResearch(ctx, idea.ID); err != nil {
		t.Fatalf("claim idea: %v", err)
	}

	deleted, err := st.DeleteTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("delete topic: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 topic deleted, got %d", deleted)
	}

	ideas, err := st.ListIdeasByTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("list ideas: %v", err)
	}
	if len(ideas) != 0 {
		t.Fatalf("expected cascade to remove ideas, got %d", len(ideas))
	}
	research, err := st.GetResearchByIdea(ctx, idea.ID)
	if err != nil {
		t.Fatalf("get research: %v", err)
	}
	if research != nil {
		t.Fatal("expected cascade to remove research")
	}
}

func TestDeleteTopicCascadesOnFreshPoolConnection(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	idea := seedApprovedIdea(t, st, topic.ID)
	if _, err := st.ClaimIdeaForResearch(ctx, idea.ID); err != nil {
		t.Fatalf("claim idea: %v", err)
	}

	// Hold the connection the seeding ran on so the delete has to run on a
	// different pooled connection, which must enforce foreign keys too.
	pinned, err := st.DB().Conn(ctx)
	if err != nil {
		t.Fatalf("pin connection: %v", err)
	}
	defer pinned.Close()

	if _, err := st.DeleteTopic(ctx, topic.ID); err != nil {
		t.Fatalf("delete topic: %v", err)
	}

	orphan, err := st.GetIdea(ctx, idea.ID)
	if err != nil {
		t.Fatalf("get idea: %v", err)
	}
	if orphan != nil {
		t.Fatalf("idea %d survived topic delete on a fresh connection", idea.ID)
	}
	research, err := st.GetResearchByIdea(ctx, idea.ID)
	if err != nil {
		t.Fatalf("get research: %v", err)
	}
	if research != nil {
		t.Fatal("research survived topic delete on a fresh connection")
	}
}

func TestCompleteIdeaGenerationMarksTopicCompleted(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	ideas := []*store.Idea{
		{Title: "First angle"},
		{Title: "Second angle"},
	}
	if err := st.CompleteIdeaGeneration(ctx, topic.ID, ideas); err != nil {
		t.Fatalf("complete idea generation: %v", err)
	}
	for _, idea := range ideas {
		if idea.ID == 0 {
			t.Fatal("expected idea IDs to be assigned")
		}
		if idea.Status != store.IdeaGenerated {
			t.Fatalf("expected generated status, got %s", idea.Status)
		}
	}

	reloaded, err := st.GetTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("reload topic: %v", err)
	}
	if reloaded.Status != store.TopicCompleted {
		t.Fatalf("expected topic completed, got %s", reloaded.Status)
	}
}

func TestCompleteIdeaGenerationWithEmptyBatch(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	if err := st.CompleteIdeaGeneration(ctx, topic.ID, nil); err != nil {
		t.Fatalf("complete idea generation: %v", err)
	}
	reloaded, err := st.GetTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("reload topic: %v", err)
	}
	if reloaded.Status != store.TopicCompleted {
		t.Fatalf("expected topic completed with zero ideas, got %s", reloaded.Status)
	}
}

func TestApproveRejectMutualExclusion(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	approved := &store.Idea{Title: "Keep"}
	rejected := &store.Idea{Title: "Discard"}
	if err := st.CompleteIdeaGeneration(ctx, topic.ID, []*store.Idea{approved, rejected}); err != nil {
		t.Fatalf("complete idea generation: %v", err)
	}

	if err := st.ApproveIdea(ctx, approved.ID, "strong hook"); err != nil {
		t.Fatalf("approve idea: %v", err)
	}
	if err := st.RejectIdea(ctx, rejected.ID, "too generic"); err != nil {
		t.Fatalf("reject idea: %v", err)
	}

	if err := st.RejectIdea(ctx, approved.ID, ""); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected rejecting an approved idea to fail, got %v", err)
	}
	if err := st.ApproveIdea(ctx, rejected.ID, ""); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected approving a rejected idea to fail, got %v", err)
	}

	loaded, err := st.GetIdea(ctx, approved.ID)
	if err != nil {
		t.Fatalf("get idea: %v", err)
	}
	if !loaded.IsApproved || loaded.IsRejected {
		t.Fatalf("expected approved-only flags, got approved=%v rejected=%v", loaded.IsApproved, loaded.IsRejected)
	}
	if loaded.UserNotes != "strong hook" {
		t.Fatalf("expected user notes to persist, got %q", loaded.UserNotes)
	}
}

func TestClaimIdeaForResearch(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	idea := seedApprovedIdea(t, st, topic.ID)

	research, err := st.ClaimIdeaForResearch(ctx, idea.ID)
	if err != nil {
		t.Fatalf("claim idea: %v", err)
	}
	if research.IdeaID != idea.ID || research.Status != store.ResearchPending {
		t.Fatalf("unexpected research record: %+v", research)
	}

	loaded, err := st.GetIdea(ctx, idea.ID)
	if err != nil {
		t.Fatalf("get idea: %v", err)
	}
	if loaded.Status != store.IdeaResearching {
		t.Fatalf("expected researching status, got %s", loaded.Status)
	}

	if _, err := st.ClaimIdeaForResearch(ctx, idea.ID); !errors.Is(err, store.ErrResearchExists) {
		t.Fatalf("expected ErrResearchExists on second claim, got %v", err)
	}
}

func TestClaimIdeaForResearchRequiresApproval(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	idea := &store.Idea{Title: "Unapproved"}
	if err := st.CompleteIdeaGeneration(ctx, topic.ID, []*store.Idea{idea}); err != nil {
		t.Fatalf("complete idea generation: %v", err)
	}

	if _, err := st.ClaimIdeaForResearch(ctx, idea.ID); !errors.Is(err, store.ErrNotClaimable) {
		t.Fatalf("expected ErrNotClaimable for unapproved idea, got %v", err)
	}
}

func TestClaimIdeaForResearchConcurrent(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	idea := seedApprovedIdea(t, st, topic.ID)

	const racers = 4
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = st.ClaimIdeaForResearch(ctx, idea.ID)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		if !errors.Is(err, store.ErrResearchExists) && !errors.Is(err, store.ErrNotClaimable) {
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", wins)
	}

	records, err := st.ListResearch(ctx)
	if err != nil {
		t.Fatalf("list research: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected a single research row, got %d", len(records))
	}
}

func TestResearchUpdateRoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	idea := seedApprovedIdea(t, st, topic.ID)
	research, err := st.ClaimIdeaForResearch(ctx, idea.ID)
	if err != nil {
		t.Fatalf("claim idea: %v", err)
	}

	research.ResearchPrompt = "gather current reporting"
	research.KeyFindings = []string{"finding one", "finding two"}
	research.OutlineJSON = `{"sections":["intro"]}`
	research.Sources = []store.Source{
		{URL: "https://www.reuters.com/tech/a", Title: "Coverage A", Publication: "Reuters"},
		{URL: "https://apnews.com/article/b", Title: "Coverage B"},
	}
	research.SourceCount = len(research.Sources)
	research.Model = "demo-model"
	research.TokensUsed = 1234
	research.DurationSeconds = 8.5
	research.Status = store.ResearchCompleted
	if err := st.UpdateResearch(ctx, research); err != nil {
		t.Fatalf("update research: %v", err)
	}

	loaded, err := st.GetResearchByIdea(ctx, idea.ID)
	if err != nil {
		t.Fatalf("get research: %v", err)
	}
	if loaded.Status != store.ResearchCompleted {
		t.Fatalf("expected completed status, got %s", loaded.Status)
	}
	if loaded.SourceCount != 2 || len(loaded.Sources) != 2 {
		t.Fatalf("expected 2 sources, got count=%d len=%d", loaded.SourceCount, len(loaded.Sources))
	}
	if loaded.Sources[0].Publication != "Reuters" {
		t.Fatalf("expected source metadata to round-trip, got %+v", loaded.Sources[0])
	}
	if len(loaded.KeyFindings) != 2 {
		t.Fatalf("expected 2 key findings, got %d", len(loaded.KeyFindings))
	}
	if loaded.TokensUsed != 1234 || loaded.DurationSeconds != 8.5 {
		t.Fatalf("expected usage metadata to persist, got %+v", loaded)
	}
}

func TestCompleteResearchCommitsBothWritesOrNeither(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	idea := seedApprovedIdea(t, st, topic.ID)
	research, err := st.ClaimIdeaForResearch(ctx, idea.ID)
	if err != nil {
		t.Fatalf("claim idea: %v", err)
	}
	research.ResearchPrompt = "gather current reporting"
	research.SourceCount = 1

	// Flip the idea out from under the run; the terminal write must roll
	// back entirely, leaving the research record untouched.
	if err := st.SetIdeaStatus(ctx, idea.ID, store.IdeaGenerated, store.IdeaResearching); err != nil {
		t.Fatalf("set idea status: %v", err)
	}
	if err := st.CompleteResearch(ctx, research); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	stale, err := st.GetResearchByIdea(ctx, idea.ID)
	if err != nil {
		t.Fatalf("get research: %v", err)
	}
	if stale.Status != store.ResearchPending || stale.ResearchPrompt != "" {
		t.Fatalf("expected research update to roll back, got %+v", stale)
	}

	if err := st.SetIdeaStatus(ctx, idea.ID, store.IdeaResearching, store.IdeaGenerated); err != nil {
		t.Fatalf("restore idea status: %v", err)
	}
	if err := st.CompleteResearch(ctx, research); err != nil {
		t.Fatalf("complete research: %v", err)
	}
	done, err := st.GetResearchByIdea(ctx, idea.ID)
	if err != nil {
		t.Fatalf("reload research: %v", err)
	}
	if done.Status != store.ResearchCompleted || done.ResearchPrompt != "gather current reporting" {
		t.Fatalf("expected completed research, got %+v", done)
	}
	loaded, err := st.GetIdea(ctx, idea.ID)
	if err != nil {
		t.Fatalf("get idea: %v", err)
	}
	if loaded.Status != store.IdeaResearched {
		t.Fatalf("expected researched idea, got %s", loaded.Status)
	}
}

func TestBlogPostApproval(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	idea := seedApprovedIdea(t, st, topic.ID)

	post := &store.BlogPost{
		IdeaID: idea.ID,
		Title:  "The hidden cost of rewrites",
		Tags:   []string{"engineering"},
	}
	if err := st.CreateBlogPost(ctx, post); err != nil {
		t.Fatalf("create blog post: %v", err)
	}
	if post.Status != store.PostDraft {
		t.Fatalf("expected draft status, got %s", post.Status)
	}

	if err := st.ApproveBlogPost(ctx, post.ID); err != nil {
		t.Fatalf("approve blog post: %v", err)
	}
	if err := st.ApproveBlogPost(ctx, post.ID); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected second approval to fail, got %v", err)
	}

	loaded, err := st.GetBlogPostByIdea(ctx, idea.ID)
	if err != nil {
		t.Fatalf("get blog post: %v", err)
	}
	if !loaded.IsApproved || loaded.Status != store.PostApproved {
		t.Fatalf("expected approved post, got %+v", loaded)
	}

	duplicate := &store.BlogPost{IdeaID: idea.ID, Title: "Duplicate"}
	if err := st.CreateBlogPost(ctx, duplicate); err == nil {
		t.Fatal("expected second draft for the same idea to fail")
	}
}

func TestAssetAndSocialRoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	idea := seedApprovedIdea(t, st, topic.ID)
	post := &store.BlogPost{IdeaID: idea.ID, Title: "Draft"}
	if err := st.CreateBlogPost(ctx, post); err != nil {
		t.Fatalf("create blog post: %v", err)
	}

	asset := &store.Asset{BlogPostID: post.ID, AssetType: "hero_image"}
	if err := st.CreateAsset(ctx, asset); err != nil {
		t.Fatalf("create asset: %v", err)
	}
	asset.Status = store.AssetCompleted
	asset.FilePath = "/tmp/hero.png"
	if err := st.UpdateAsset(ctx, asset); err != nil {
		t.Fatalf("update asset: %v", err)
	}
	assets, err := st.ListAssetsByPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("list assets: %v", err)
	}
	if len(assets) != 1 || assets[0].Status != store.AssetCompleted {
		t.Fatalf("expected one completed asset, got %+v", assets)
	}

	social := &store.SocialPost{
		BlogPostID:     post.ID,
		Platform:       "twitter",
		Content:        "Short take",
		Hashtags:       []string{"#golang"},
		CharacterCount: 10,
		IsWithinLimits: true,
	}
	if err := st.CreateSocialPost(ctx, social); err != nil {
		t.Fatalf("create social post: %v", err)
	}
	posts, err := st.ListSocialPostsByPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("list social posts: %v", err)
	}
	if len(posts) != 1 || posts[0].Platform != "twitter" || !posts[0].IsWithinLimits {
		t.Fatalf("expected one twitter post, got %+v", posts)
	}
}

func TestOverviewCounts(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	topic := seedTopic(t, st)
	ideas := []*store.Idea{{Title: "A"}, {Title: "B"}, {Title: "C"}}
	if err := st.CompleteIdeaGeneration(ctx, topic.ID, ideas); err != nil {
		t.Fatalf("complete idea generation: %v", err)
	}
	if err := st.ApproveIdea(ctx, ideas[0].ID, ""); err != nil {
		t.Fatalf("approve idea: %v", err)
	}
	if err := st.RejectIdea(ctx, ideas[1].ID, ""); err != nil {
		t.Fatalf("reject idea: %v", err)
	}

	overview, err := st.GetOverview(ctx)
	if err != nil {
		t.Fatalf("get overview: %v", err)
	}
	if overview.Topics[store.TopicCompleted] != 1 {
		t.Fatalf("expected 1 completed topic, got %d", overview.Topics[store.TopicCompleted])
	}
	if overview.Ideas[store.IdeaApproved] != 1 || overview.Ideas[store.IdeaRejected] != 1 || overview.Ideas[store.IdeaGenerated] != 1 {
		t.Fatalf("unexpected idea counts: %+v", overview.Ideas)
	}
}

func TestCheckHealth(t *testing.T) {
	st := newStore(t)

	health, err := st.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("check health: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("expected healthy database, got %+v", health)
	}
	if len(health.MissingTables) != 0 {
		t.Fatalf("expected no missing tables, got %v", health.MissingTables)
	}
}
