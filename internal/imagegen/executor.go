// Package imagegen holds the asset-generation stage.
//
// Image generation is not implemented yet. The executor validates its
// preconditions, then reports a successful no-op without mutating entities.
package imagegen

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

const stageName = "image-generation"

// Executor is the placeholder for the asset-generation stage.
type Executor struct {
	store  *store.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewExecutor wires the asset-generation stage.
func NewExecutor(st *store.Store, cfg *config.Config, logger *slog.Logger) *Executor {
	return &Executor{
		store:  st,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, stageName),
	}
}

// Stage implements jobs.Executor.
func (e *Executor) Stage() jobs.Stage {
	return jobs.StageImageGeneration
}

// Execute implements jobs.Executor. The job's entity is the approved blog
// post the assets would decorate.
func (e *Executor) Execute(ctx context.Context, job *jobs.Job, progress *jobs.Reporter) (map[string]any, error) {
	if e.cfg.Images.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "check credentials",
			"images.api_key is not configured", nil)
	}

	post, err := e.store.GetBlogPost(ctx, job.EntityID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "load blog post", "", err)
	}
	if post == nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, "load blog post",
			fmt.Sprintf("blog post %d does not exist", job.EntityID), nil)
	}
	if !post.IsApproved {
		return nil, services.Wrap(services.ErrPreconditionFailed, stageName, "check approval",
			fmt.Sprintf("blog post %d is not approved", post.ID), nil)
	}

	progress.Step(ctx, 1, 1, "image generation not implemented")
	logging.WithContext(ctx, e.logger).Info("image generation requested before implementation",
		logging.Int64(logging.FieldEntityID, post.ID))

	return map[string]any{
		"implemented":  false,
		"message":      "image generation is not implemented yet",
		"blog_post_id": post.ID,
	}, nil
}
