// Package pipeline coordinates entity transitions and stage job submission.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"forge/internal/config"
	"forge/internal/jobs"
	"forge/internal/logging"
	"forge/internal/services"
	"forge/internal/store"
)

// Coordinator validates entity state before handing work to the scheduler.
// All client-facing mutations go through here so the status guards live in
// one place.
type Coordinator struct {
	store     *store.Store
	scheduler *jobs.Scheduler
	cfg       *config.Config
	logger    *slog.Logger
}

// New builds a coordinator.
func New(st *store.Store, scheduler *jobs.Scheduler, cfg *config.Config, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:     st,
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

// CreateTopic validates and persists a new topic, applying configured
// defaults for unset counts.
func (c *Coordinator) CreateTopic(ctx context.Context, topic *store.Topic) (*store.Topic, error) {
	topic.Title = strings.TrimSpace(topic.Title)
	if topic.Title == "" {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "create topic", "title is required", nil)
	}
	if topic.IdeaCount <= 0 {
		topic.IdeaCount = c.cfg.Pipeline.IdeaCount
	}
	if topic.TargetWordCount <= 0 {
		topic.TargetWordCount = c.cfg.Pipeline.TargetWordCount
	}
	topic.Status = store.TopicPending
	if err := c.store.CreateTopic(ctx, topic); err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "create topic", "", err)
	}
	return topic, nil
}

// GetTopic loads a topic or reports NotFound.
func (c *Coordinator) GetTopic(ctx context.Context, id int64) (*store.Topic, error) {
	topic, err := c.store.GetTopic(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "load topic", "", err)
	}
	if topic == nil {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "load topic",
			fmt.Sprintf("topic %d does not exist", id), nil)
	}
	return topic, nil
}

// ListTopics returns all topics.
func (c *Coordinator) ListTopics(ctx context.Context) ([]*store.Topic, error) {
	topics, err := c.store.ListTopics(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "list topics", "", err)
	}
	return topics, nil
}

// DeleteTopic removes a topic and everything under it.
func (c *Coordinator) DeleteTopic(ctx context.Context, id int64) error {
	deleted, err := c.store.DeleteTopic(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "delete topic", "", err)
	}
	if deleted == 0 {
		return services.Wrap(services.ErrNotFound, "pipeline", "delete topic",
			fmt.Sprintf("topic %d does not exist", id), nil)
	}
	return nil
}

// StartIdeaGeneration submits an idea-generation job for a topic that has
// not produced ideas yet. Failed topics may be retried.
func (c *Coordinator) StartIdeaGeneration(ctx context.Context, topicID int64) (string, error) {
	topic, err := c.GetTopic(ctx, topicID)
	if err != nil {
		return "", err
	}
	switch topic.Status {
	case store.TopicPending, store.TopicFailed:
	default:
		return "", services.Wrap(services.ErrPreconditionFailed, "pipeline", "start idea generation",
			fmt.Sprintf("topic %d is %s, expected pending or failed", topicID, topic.Status), nil)
	}
	return c.scheduler.Submit(ctx, jobs.StageIdeaGeneration, topicID)
}

// ApproveIdea marks a generated idea approved.
func (c *Coordinator) ApproveIdea(ctx context.Context, ideaID int64, notes string) error {
	return c.reviewIdea(ctx, ideaID, notes, true)
}

// RejectIdea marks a generated idea rejected.
func (c *Coordinator) RejectIdea(ctx context.Context, ideaID int64, notes string) error {
	return c.reviewIdea(ctx, ideaID, notes, false)
}

func (c *Coordinator) reviewIdea(ctx context.Context, ideaID int64, notes string, approve bool) error {
	verb := "reject idea"
	if approve {
		verb = "approve idea"
	}
	idea, err := c.store.GetIdea(ctx, ideaID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", verb, "", err)
	}
	if idea == nil {
		return services.Wrap(services.ErrNotFound, "pipeline", verb,
			fmt.Sprintf("idea %d does not exist", ideaID), nil)
	}

	if approve {
		err = c.store.ApproveIdea(ctx, ideaID, notes)
	} else {
		err = c.store.RejectIdea(ctx, ideaID, notes)
	}
	if errors.Is(err, store.ErrInvalidTransition) {
		return services.Wrap(services.ErrPreconditionFailed, "pipeline", verb,
			fmt.Sprintf("idea %d is %s and cannot be reviewed", ideaID, idea.Status), err)
	}
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", verb, "", err)
	}
	return nil
}

// ListIdeas returns the ideas under a topic.
func (c *Coordinator) ListIdeas(ctx context.Context, topicID int64) ([]*store.Idea, error) {
	if _, err := c.GetTopic(ctx, topicID); err != nil {
		return nil, err
	}
	ideas, err := c.store.ListIdeasByTopic(ctx, topicID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "list ideas", "", err)
	}
	return ideas, nil
}

// StartResearch claims an approved idea and submits a research job. When two
// callers race on the same idea exactly one claim wins; the loser gets a
// precondition failure. An idea that already has research reports a
// conflict regardless of the research's state.
func (c *Coordinator) StartResearch(ctx context.Context, ideaID int64) (string, error) {
	idea, err := c.store.GetIdea(ctx, ideaID)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "pipeline", "start research", "", err)
	}
	if idea == nil {
		return "", services.Wrap(services.ErrNotFound, "pipeline", "start research",
			fmt.Sprintf("idea %d does not exist", ideaID), nil)
	}

	record, err := c.store.ClaimIdeaForResearch(ctx, ideaID)
	if errors.Is(err, store.ErrResearchExists) {
		return "", services.Wrap(services.ErrPreconditionFailed, "pipeline", "start research",
			fmt.Sprintf("idea %d already has research", ideaID), err)
	}
	if errors.Is(err, store.ErrNotClaimable) {
		return "", services.Wrap(services.ErrPreconditionFailed, "pipeline", "start research",
			fmt.Sprintf("idea %d is %s, expected approved", ideaID, idea.Status), err)
	}
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "pipeline", "start research", "", err)
	}

	handle, err := c.scheduler.Submit(ctx, jobs.StageResearch, record.ID)
	if err != nil {
		// The claim stands; the idea surfaces as researching with a
		// pending research row and no job behind it.
		c.logger.Error("research submit failed after claim",
			logging.Int64(logging.FieldEntityID, ideaID),
			logging.Error(err))
		return "", err
	}
	return handle, nil
}

// GetResearchByIdea loads the research for an idea or reports NotFound.
func (c *Coordinator) GetResearchByIdea(ctx context.Context, ideaID int64) (*store.Research, error) {
	record, err := c.store.GetResearchByIdea(ctx, ideaID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "load research", "", err)
	}
	if record == nil {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "load research",
			fmt.Sprintf("idea %d has no research", ideaID), nil)
	}
	return record, nil
}

// StartWriting submits the (not yet implemented) writing stage for an idea
// with completed research.
func (c *Coordinator) StartWriting(ctx context.Context, ideaID int64) (string, error) {
	record, err := c.GetResearchByIdea(ctx, ideaID)
	if err != nil {
		return "", err
	}
	if record.Status != store.ResearchCompleted {
		return "", services.Wrap(services.ErrPreconditionFailed, "pipeline", "start writing",
			fmt.Sprintf("research for idea %d is %s, expected completed", ideaID, record.Status), nil)
	}
	return c.scheduler.Submit(ctx, jobs.StageWriting, ideaID)
}

// GetBlogPost loads one blog post.
func (c *Coordinator) GetBlogPost(ctx context.Context, id int64) (*store.BlogPost, error) {
	post, err := c.store.GetBlogPost(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "load post", "", err)
	}
	if post == nil {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "load post",
			fmt.Sprintf("blog post %d does not exist", id), nil)
	}
	return post, nil
}

// ApproveBlogPost marks a draft post approved.
func (c *Coordinator) ApproveBlogPost(ctx context.Context, postID int64) error {
	post, err := c.store.GetBlogPost(ctx, postID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "approve post", "", err)
	}
	if post == nil {
		return services.Wrap(services.ErrNotFound, "pipeline", "approve post",
			fmt.Sprintf("blog post %d does not exist", postID), nil)
	}
	err = c.store.ApproveBlogPost(ctx, postID)
	if errors.Is(err, store.ErrInvalidTransition) {
		return services.Wrap(services.ErrPreconditionFailed, "pipeline", "approve post",
			fmt.Sprintf("blog post %d is %s, expected draft", postID, post.Status), err)
	}
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "approve post", "", err)
	}
	return nil
}

// StartAssetGeneration submits the asset stage for an approved post.
func (c *Coordinator) StartAssetGeneration(ctx context.Context, postID int64) (string, error) {
	if err := c.requireApprovedPost(ctx, postID, "start asset generation"); err != nil {
		return "", err
	}
	return c.scheduler.Submit(ctx, jobs.StageImageGeneration, postID)
}

// StartSocialGeneration submits the social stage for an approved post.
func (c *Coordinator) StartSocialGeneration(ctx context.Context, postID int64) (string, error) {
	if err := c.requireApprovedPost(ctx, postID, "start social generation"); err != nil {
		return "", err
	}
	return c.scheduler.Submit(ctx, jobs.StageSocialGeneration, postID)
}

func (c *Coordinator) requireApprovedPost(ctx context.Context, postID int64, operation string) error {
	post, err := c.store.GetBlogPost(ctx, postID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", operation, "", err)
	}
	if post == nil {
		return services.Wrap(services.ErrNotFound, "pipeline", operation,
			fmt.Sprintf("blog post %d does not exist", postID), nil)
	}
	if !post.IsApproved {
		return services.Wrap(services.ErrPreconditionFailed, "pipeline", operation,
			fmt.Sprintf("blog post %d is not approved", postID), nil)
	}
	return nil
}

// JobStatus reports the visible state of a job handle.
func (c *Coordinator) JobStatus(ctx context.Context, handle string) (*jobs.Status, error) {
	return c.scheduler.GetStatus(ctx, handle)
}

// ListJobs reports job status snapshots, optionally filtered by state.
func (c *Coordinator) ListJobs(ctx context.Context, states ...jobs.State) ([]*jobs.Status, error) {
	return c.scheduler.ListStatuses(ctx, states...)
}

// Overview aggregates entity and job counts for the status surface.
func (c *Coordinator) Overview(ctx context.Context) (*store.Overview, map[jobs.State]int, error) {
	overview, err := c.store.GetOverview(ctx)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "pipeline", "overview", "", err)
	}
	queue := jobs.NewQueue(c.store.DB())
	stats, err := queue.Stats(ctx)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "pipeline", "overview", "", err)
	}
	return overview, stats, nil
}

// DatabaseHealth reports database diagnostics.
func (c *Coordinator) DatabaseHealth(ctx context.Context) (store.DatabaseHealth, error) {
	return c.store.CheckHealth(ctx)
}
