// Package ideagen generates content ideas for a topic.
package ideagen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"forge/internal/config"
	"forge/internal/jobs"
	"forge/internal/logging"
	"forge/internal/services"
	"forge/internal/services/llm"
	"forge/internal/store"
	"forge/internal/textutil"
)

const stageName = "idea-generation"

// Executor produces one idea per model call until the topic's requested
// count is reached. Individual call failures are suppressed so a flaky model
// yields a partial batch rather than a failed job.
type Executor struct {
	store     *store.Store
	completer llm.Completer
	cfg       *config.Config
	logger    *slog.Logger
}

// NewExecutor wires the idea-generation stage.
func NewExecutor(st *store.Store, completer llm.Completer, cfg *config.Config, logger *slog.Logger) *Executor {
	return &Executor{
		store:     st,
		completer: completer,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, stageName),
	}
}

// Stage implements jobs.Executor.
func (e *Executor) Stage() jobs.Stage {
	return jobs.StageIdeaGeneration
}

type ideaPayload struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Angle            string `json:"angle"`
	CurrentEventHook string `json:"current_event_hook"`
}

// Execute implements jobs.Executor.
func (e *Executor) Execute(ctx context.Context, job *jobs.Job, progress *jobs.Reporter) (map[string]any, error) {
	logger := logging.WithContext(ctx, e.logger)

	topic, err := e.store.GetTopic(ctx, job.EntityID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "load topic", "", err)
	}
	if topic == nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, "load topic",
			fmt.Sprintf("topic %d does not exist", job.EntityID), nil)
	}

	if err := e.store.SetTopicStatus(ctx, topic.ID, store.TopicProcessing, store.TopicPending, store.TopicFailed); err != nil {
		return nil, services.Wrap(services.ErrPreconditionFailed, stageName, "claim topic",
			fmt.Sprintf("topic %d is not awaiting idea generation (status %s)", topic.ID, topic.Status), err)
	}

	count := topic.IdeaCount
	if count <= 0 {
		count = e.cfg.Pipeline.IdeaCount
	}

	var (
		ideas      []*store.Idea
		suppressed int
	)
	for i := 0; i < count; i++ {
		progress.Step(ctx, i+1, count, fmt.Sprintf("generating idea %d of %d", i+1, count))

		if err := ctx.Err(); err != nil {
			e.failTopic(topic.ID, "idea generation interrupted")
			return nil, services.Wrap(services.ErrTimeout, stageName, "generate",
				"job cancelled before all ideas were generated", err)
		}

		idea, err := e.generateOne(ctx, topic, ideas)
		if err != nil {
			suppressed++
			progress.SuppressFailure(ctx, err)
			continue
		}
		if isDuplicateTitle(idea.Title, ideas) {
			suppressed++
			progress.SuppressFailure(ctx, fmt.Errorf("model repeated idea title %q", idea.Title))
			continue
		}
		ideas = append(ideas, idea)
	}

	if err := e.store.CompleteIdeaGeneration(ctx, topic.ID, ideas); err != nil {
		e.failTopic(topic.ID, "failed to persist generated ideas")
		return nil, services.Wrap(services.ErrTransient, stageName, "persist ideas", "", err)
	}

	logger.Info("idea generation finished",
		logging.Int("requested", count),
		logging.Int("generated", len(ideas)),
		logging.Int("suppressed", suppressed))

	return map[string]any{
		"topic_id":            topic.ID,
		"ideas_requested":     count,
		"ideas_generated":     len(ideas),
		"suppressed_failures": suppressed,
	}, nil
}

func (e *Executor) generateOne(ctx context.Context, topic *store.Topic, existing []*store.Idea) (*store.Idea, error) {
	result, err := e.completer.Complete(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(topic, existing),
		Temperature:  e.cfg.LLM.Temperature,
		MaxTokens:    e.cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, stageName, "generate", "model call failed", err)
	}

	var payload ideaPayload
	if err := llm.DecodeLLMJSON(result.Content, &payload); err != nil {
		return nil, services.Wrap(services.ErrExternalService, stageName, "generate", "model returned undecodable idea", err)
	}
	payload.Title = strings.TrimSpace(payload.Title)
	if payload.Title == "" {
		return nil, services.Wrap(services.ErrExternalService, stageName, "generate", "model returned an idea without a title", nil)
	}

	return &store.Idea{
		TopicID:          topic.ID,
		OwnerID:          topic.OwnerID,
		Title:            payload.Title,
		Description:      strings.TrimSpace(payload.Description),
		Angle:            strings.TrimSpace(payload.Angle),
		CurrentEventHook: strings.TrimSpace(payload.CurrentEventHook),
		Status:           store.IdeaGenerated,
	}, nil
}

// duplicateTitleThreshold is the cosine similarity above which a generated
// title counts as a repeat of an earlier idea in the batch.
const duplicateTitleThreshold = 0.85

func isDuplicateTitle(title string, existing []*store.Idea) bool {
	candidate := textutil.NewFingerprint(title)
	if candidate == nil {
		return false
	}
	for _, idea := range existing {
		if textutil.CosineSimilarity(candidate, textutil.NewFingerprint(idea.Title)) >= duplicateTitleThreshold {
			return true
		}
	}
	return false
}

// failTopic marks the topic failed on a background context so the flip is
// recorded even when the job context is already cancelled.
func (e *Executor) failTopic(topicID int64, message string) {
	ctx := context.Background()
	topic, err := e.store.GetTopic(ctx, topicID)
	if err != nil || topic == nil {
		return
	}
	topic.Status = store.TopicFailed
	topic.ErrorMessage = message
	if err := e.store.UpdateTopic(ctx, topic); err != nil {
		e.logger.Warn("failed to mark topic failed",
			logging.Int64(logging.FieldEntityID, topicID),
			logging.Error(err))
	}
}

const systemPrompt = `You are an editorial strategist for a technology blog.
Respond with a single JSON object containing exactly these keys:
"title", "description", "angle", "current_event_hook".
Return only JSON with no surrounding prose.`

func buildUserPrompt(topic *store.Topic, existing []*store.Idea) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Propose one blog post idea for the topic %q.\n", topic.Title)
	if topic.Description != "" {
		fmt.Fprintf(&b, "Topic context: %s\n", topic.Description)
	}
	if topic.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", topic.Category)
	}
	if len(topic.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords to consider: %s\n", strings.Join(topic.Keywords, ", "))
	}
	if len(existing) > 0 {
		b.WriteString("Avoid repeating these already-proposed titles:\n")
		for _, idea := range existing {
			fmt.Fprintf(&b, "- %s\n", idea.Title)
		}
	}
	b.WriteString("The idea should be tied to a plausible current event and carry a distinct angle.")
	return b.String()
}
