// Package writing holds the blog-post drafting stage.
//
// Drafting is not implemented yet. The executor validates its preconditions
// so submission failures surface early, then reports a successful no-op; no
// entity state changes until a real writer lands.
package writing

import (
	"context"
	"fmt"
	"log/slog"

	"forge/internal/config"
	"forge/internal/jobs"
	"forge/internal/logging"
	"forge/internal/services"
	"forge/internal/store"
)

const stageName = "writing"

// Executor is the placeholder for the writing stage.
type Executor struct {
	store  *store.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewExecutor wires the writing stage.
func NewExecutor(st *store.Store, cfg *config.Config, logger *slog.Logger) *Executor {
	return &Executor{
		store:  st,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, stageName),
	}
}

// Stage implements jobs.Executor.
func (e *Executor) Stage() jobs.Stage {
	return jobs.StageWriting
}

// Execute implements jobs.Executor. The job's entity is the idea whose
// completed research would feed the draft.
func (e *Executor) Execute(ctx context.Context, job *jobs.Job, progress *jobs.Reporter) (map[string]any, error) {
	if e.cfg.GetLLM().APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "check credentials",
			"llm.api_key is not configured", nil)
	}

	idea, err := e.store.GetIdea(ctx, job.EntityID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "load idea", "", err)
	}
	if idea == nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, "load idea",
			fmt.Sprintf("idea %d does not exist", job.EntityID), nil)
	}

	record, err := e.store.GetResearchByIdea(ctx, idea.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "load research", "", err)
	}
	if record == nil || record.Status != store.ResearchCompleted {
		return nil, services.Wrap(services.ErrPreconditionFailed, stageName, "check research",
			fmt.Sprintf("idea %d has no completed research", idea.ID), nil)
	}

	progress.Step(ctx, 1, 1, "writing stage not implemented")
	logging.WithContext(ctx, e.logger).Info("writing requested before implementation",
		logging.Int64(logging.FieldEntityID, idea.ID))

	return map[string]any{
		"implemented": false,
		"message":     "blog post writing is not implemented yet",
		"idea_id":     idea.ID,
	}, nil
}
