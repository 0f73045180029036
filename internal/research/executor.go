// Package research gathers evidence and an outline for an approved idea.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"forge/internal/config"
	"forge/internal/jobs"
	"forge/internal/logging"
	"forge/internal/services"
	"forge/internal/services/llm"
	"forge/internal/sources"
	"forge/internal/store"
)

const (
	stageName = "research"

	stepDiscovery = 1
	stepFiltering = 2
	stepOutline   = 3
	stepFinalize  = 4
	totalSteps    = 4

	maxKeyFindings = 5
)

// Executor runs research for one claimed idea. The first three steps
// (event discovery, source filtering, outlining) degrade to empty results on
// failure; only the finalize step can fail the job, because without it the
// research record would be unusable for writing.
type Executor struct {
	store     *store.Store
	completer llm.Completer
	policy    *sources.Policy
	verifier  *sources.Verifier
	cfg       *config.Config
	logger    *slog.Logger
}

// NewExecutor wires the research stage.
func NewExecutor(st *store.Store, completer llm.Completer, cfg *config.Config, logger *slog.Logger) *Executor {
	e := &Executor{
		store:     st,
		completer: completer,
		policy:    sources.NewPolicy(cfg.SourcePolicy),
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, stageName),
	}
	if cfg.Pipeline.VerifySources {
		e.verifier = sources.NewVerifier(logger)
	}
	return e
}

// Stage implements jobs.Executor.
func (e *Executor) Stage() jobs.Stage {
	return jobs.StageResearch
}

type discoveredEvent struct {
	Summary string `json:"summary"`
	Sources []struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		Publication string `json:"publication"`
	} `json:"sources"`
}

type discoveryPayload struct {
	Events []discoveredEvent `json:"events"`
}

type outlinePayload struct {
	Sections []struct {
		Heading string   `json:"heading"`
		Points  []string `json:"points"`
	} `json:"sections"`
}

type promptPayload struct {
	ResearchPrompt string `json:"research_prompt"`
}

// Execute implements jobs.Executor. The job's entity is the research record
// created when the idea was claimed.
func (e *Executor) Execute(ctx context.Context, job *jobs.Job, progress *jobs.Reporter) (map[string]any, error) {
	logger := logging.WithContext(ctx, e.logger)
	started := time.Now()

	record, err := e.store.GetResearch(ctx, job.EntityID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "load research", "", err)
	}
	if record == nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, "load research",
			fmt.Sprintf("research %d does not exist", job.EntityID), nil)
	}
	idea, err := e.store.GetIdea(ctx, record.IdeaID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "load idea", "", err)
	}
	if idea == nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, "load idea",
			fmt.Sprintf("idea %d does not exist", record.IdeaID), nil)
	}

	record.Status = store.ResearchInProgress
	record.ErrorMessage = ""
	if err := e.store.UpdateResearch(ctx, record); err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "start research", "", err)
	}

	var tokensUsed int

	progress.Step(ctx, stepDiscovery, totalSteps, "discovering current events")
	events, tokens, err := e.discoverEvents(ctx, idea)
	tokensUsed += tokens
	if err != nil {
		events = nil
		progress.SuppressFailure(ctx, err)
	}

	progress.Step(ctx, stepFiltering, totalSteps, "filtering sources")
	usable := e.filterSources(ctx, events)

	progress.Step(ctx, stepOutline, totalSteps, "building outline")
	outline, tokens, err := e.buildOutline(ctx, idea, events)
	tokensUsed += tokens
	if err != nil {
		outline = ""
		progress.SuppressFailure(ctx, err)
	}

	progress.Step(ctx, stepFinalize, totalSteps, "finalizing research brief")
	prompt, tokens, model, err := e.finalizePrompt(ctx, idea, events, usable, outline)
	tokensUsed += tokens
	if err != nil {
		record.Status = store.ResearchFailed
		record.ErrorMessage = err.Error()
		record.DurationSeconds = time.Since(started).Seconds()
		if updateErr := e.store.UpdateResearch(context.Background(), record); updateErr != nil {
			logger.Error("failed to record research failure", logging.Error(updateErr))
		}
		return nil, err
	}

	record.ResearchPrompt = prompt
	record.KeyFindings = keyFindings(events)
	record.OutlineJSON = outline
	record.Sources = usable
	record.SourceCount = len(usable)
	record.Model = model
	record.TokensUsed = tokensUsed
	record.DurationSeconds = time.Since(started).Seconds()
	if err := e.store.CompleteResearch(ctx, record); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			return nil, services.Wrap(services.ErrPreconditionFailed, stageName, "complete research",
				fmt.Sprintf("idea %d is no longer researching", idea.ID), err)
		}
		return nil, services.Wrap(services.ErrTransient, stageName, "complete research", "", err)
	}

	logger.Info("research finished",
		logging.Int("events", len(events)),
		logging.Int("sources", len(usable)),
		logging.Float64("duration_seconds", record.DurationSeconds))

	return map[string]any{
		"research_id":               record.ID,
		"idea_id":                   idea.ID,
		"source_count":              record.SourceCount,
		"key_findings":              len(record.KeyFindings),
		"model_used":                record.Model,
		"tokens_used":               record.TokensUsed,
		"research_duration_seconds": record.DurationSeconds,
	}, nil
}

func (e *Executor) discoverEvents(ctx context.Context, idea *store.Idea) ([]discoveredEvent, int, error) {
	result, err := e.completer.Complete(ctx, llm.Request{
		SystemPrompt: discoverySystemPrompt,
		UserPrompt:   buildDiscoveryPrompt(idea, e.cfg.Pipeline.MaxEvents),
		Temperature:  e.cfg.LLM.Temperature,
		MaxTokens:    e.cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, 0, services.Wrap(services.ErrExternalService, stageName, "discover events", "model call failed", err)
	}
	var payload discoveryPayload
	if err := llm.DecodeLLMJSON(result.Content, &payload); err != nil {
		return nil, result.TokensUsed, services.Wrap(services.ErrExternalService, stageName, "discover events", "undecodable event list", err)
	}
	events := payload.Events
	if max := e.cfg.Pipeline.MaxEvents; max > 0 && len(events) > max {
		events = events[:max]
	}
	return events, result.TokensUsed, nil
}

func (e *Executor) filterSources(ctx context.Context, events []discoveredEvent) []store.Source {
	var usable []store.Source
	max := e.cfg.Pipeline.MaxSources
	for _, event := range events {
		for _, candidate := range event.Sources {
			if !e.policy.IsUsable(candidate.URL) {
				continue
			}
			usable = append(usable, store.Source{
				URL:         candidate.URL,
				Title:       strings.TrimSpace(candidate.Title),
				Publication: strings.TrimSpace(candidate.Publication),
				Excerpt:     strings.TrimSpace(event.Summary),
			})
			if max > 0 && len(usable) >= max {
				return e.verifySources(ctx, usable)
			}
		}
	}
	return e.verifySources(ctx, usable)
}

// verifySources annotates titles from live pages when verification is
// enabled. Unreachable sources are kept; verification never drops evidence.
func (e *Executor) verifySources(ctx context.Context, usable []store.Source) []store.Source {
	if e.verifier == nil || len(usable) == 0 {
		return usable
	}
	urls := make([]string, len(usable))
	for i, source := range usable {
		urls[i] = source.URL
	}
	for i, outcome := range e.verifier.Verify(ctx, urls) {
		if outcome.Verified && outcome.Title != "" {
			usable[i].Title = outcome.Title
		}
	}
	return usable
}

func (e *Executor) buildOutline(ctx context.Context, idea *store.Idea, events []discoveredEvent) (string, int, error) {
	result, err := e.completer.Complete(ctx, llm.Request{
		SystemPrompt: outlineSystemPrompt,
		UserPrompt:   buildOutlinePrompt(idea, events),
		Temperature:  e.cfg.LLM.Temperature,
		MaxTokens:    e.cfg.LLM.MaxTokens,
	})
	if err != nil {
		return "", 0, services.Wrap(services.ErrExternalService, stageName, "build outline", "model call failed", err)
	}
	var payload outlinePayload
	if err := llm.DecodeLLMJSON(result.Content, &payload); err != nil {
		return "", result.TokensUsed, services.Wrap(services.ErrExternalService, stageName, "build outline", "undecodable outline", err)
	}
	normalized, err := json.Marshal(payload)
	if err != nil {
		return "", result.TokensUsed, services.Wrap(services.ErrExternalService, stageName, "build outline", "outline re-encode failed", err)
	}
	return string(normalized), result.TokensUsed, nil
}

func (e *Executor) finalizePrompt(ctx context.Context, idea *store.Idea, events []discoveredEvent, usable []store.Source, outline string) (string, int, string, error) {
	result, err := e.completer.Complete(ctx, llm.Request{
		SystemPrompt: finalizeSystemPrompt,
		UserPrompt:   buildFinalizePrompt(idea, events, usable, outline),
		Temperature:  e.cfg.LLM.Temperature,
		MaxTokens:    e.cfg.LLM.MaxTokens,
	})
	if err != nil {
		return "", 0, "", services.Wrap(services.ErrExternalService, stageName, "finalize", "model call failed", err)
	}
	var payload promptPayload
	if err := llm.DecodeLLMJSON(result.Content, &payload); err != nil {
		return "", result.TokensUsed, "", services.Wrap(services.ErrExternalService, stageName, "finalize", "undecodable research brief", err)
	}
	prompt := strings.TrimSpace(payload.ResearchPrompt)
	if prompt == "" {
		return "", result.TokensUsed, "", services.Wrap(services.ErrExternalService, stageName, "finalize", "model returned an empty research brief", nil)
	}
	model := result.Model
	if model == "" {
		model = e.cfg.LLM.Model
	}
	return prompt, result.TokensUsed, model, nil
}

// keyFindings reduces discovered events to the first few summaries.
func keyFindings(events []discoveredEvent) []string {
	var findings []string
	for _, event := range events {
		summary := strings.TrimSpace(event.Summary)
		if summary == "" {
			continue
		}
		findings = append(findings, summary)
		if len(findings) >= maxKeyFindings {
			break
		}
	}
	return findings
}

const discoverySystemPrompt = `You are a news researcher.
Respond with a single JSON object: {"events":[{"summary":"...","sources":[{"url":"...","title":"...","publication":"..."}]}]}.
Return only JSON with no surrounding prose.`

const outlineSystemPrompt = `You are an editorial planner.
Respond with a single JSON object: {"sections":[{"heading":"...","points":["..."]}]}.
Return only JSON with no surrounding prose.`

const finalizeSystemPrompt = `You are a research editor preparing a writing brief.
Respond with a single JSON object: {"research_prompt":"..."}.
Return only JSON with no surrounding prose.`

func buildDiscoveryPrompt(idea *store.Idea, maxEvents int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find up to %d recent news events relevant to the blog idea %q.\n", maxEvents, idea.Title)
	if idea.Description != "" {
		fmt.Fprintf(&b, "Idea description: %s\n", idea.Description)
	}
	if idea.Angle != "" {
		fmt.Fprintf(&b, "Editorial angle: %s\n", idea.Angle)
	}
	if idea.CurrentEventHook != "" {
		fmt.Fprintf(&b, "Known hook: %s\n", idea.CurrentEventHook)
	}
	b.WriteString("For each event include a one-sentence summary and the source articles that cover it.")
	return b.String()
}

func buildOutlinePrompt(idea *store.Idea, events []discoveredEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft a section outline for a blog post titled %q.\n", idea.Title)
	if len(events) > 0 {
		b.WriteString("Ground the outline in these events:\n")
		for _, event := range events {
			fmt.Fprintf(&b, "- %s\n", event.Summary)
		}
	} else {
		b.WriteString("No current events were found; outline from the idea alone.\n")
	}
	return b.String()
}

func buildFinalizePrompt(idea *store.Idea, events []discoveredEvent, usable []store.Source, outline string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compose a writing brief for the blog idea %q.\n", idea.Title)
	if len(events) > 0 {
		b.WriteString("Key events:\n")
		for _, event := range events {
			fmt.Fprintf(&b, "- %s\n", event.Summary)
		}
	}
	if len(usable) > 0 {
		b.WriteString("Citable sources:\n")
		for _, source := range usable {
			fmt.Fprintf(&b, "- %s (%s)\n", source.Title, source.URL)
		}
	}
	if outline != "" {
		fmt.Fprintf(&b, "Planned outline JSON: %s\n", outline)
	}
	b.WriteString("The brief should tell the writer what to cover, what to cite, and what to avoid claiming without evidence.")
	return b.String()
}
