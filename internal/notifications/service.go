package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"forge/internal/config"
	"forge/internal/jobs"
	"forge/internal/logging"
)

const userAgent = "Forge/0.1.0"

// Service is the notification surface exposed to the scheduler and CLI.
// JobSucceeded and JobFailed satisfy jobs.Notifier.
type Service interface {
	JobSucceeded(ctx context.Context, stage jobs.Stage, entityID int64, result map[string]any)
	JobFailed(ctx context.Context, stage jobs.Stage, entityID int64, message string)
	Test(ctx context.Context) error
	Enabled() bool
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "notifications"),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func (n *ntfyService) Enabled() bool { return true }

func (n *ntfyService) JobSucceeded(ctx context.Context, stage jobs.Stage, entityID int64, result map[string]any) {
	var data payload
	switch stage {
	case jobs.StageIdeaGeneration:
		message := fmt.Sprintf("Idea generation complete for topic %d", entityID)
		if count, ok := resultInt(result, "ideas_generated"); ok {
			message = fmt.Sprintf("%s (%d ideas)", message, count)
		}
		data = payload{
			title:   "Forge - Ideas Ready",
			message: message,
			tags:    []string{"forge", "ideas", "completed"},
		}
	case jobs.StageResearch:
		message := fmt.Sprintf("Research complete for idea %d", entityID)
		if count, ok := resultInt(result, "source_count"); ok {
			message = fmt.Sprintf("%s (%d sources)", message, count)
		}
		data = payload{
			title:   "Forge - Research Complete",
			message: message,
			tags:    []string{"forge", "research", "completed"},
		}
	case jobs.StageWriting:
		data = payload{
			title:    "Forge - Draft Ready",
			message:  fmt.Sprintf("Writing finished for idea %d", entityID),
			tags:     []string{"forge", "writing", "completed"},
			priority: "high",
		}
	case jobs.StageImageGeneration:
		data = payload{
			title:   "Forge - Assets Ready",
			message: fmt.Sprintf("Image generation finished for post %d", entityID),
			tags:    []string{"forge", "assets", "completed"},
		}
	case jobs.StageSocialGeneration:
		data = payload{
			title:   "Forge - Social Posts Ready",
			message: fmt.Sprintf("Social generation finished for post %d", entityID),
			tags:    []string{"forge", "social", "completed"},
		}
	default:
		data = payload{
			title:   "Forge - Job Complete",
			message: fmt.Sprintf("%s finished for entity %d", stage, entityID),
			tags:    []string{"forge", "completed"},
		}
	}
	n.deliver(ctx, data)
}

func (n *ntfyService) JobFailed(ctx context.Context, stage jobs.Stage, entityID int64, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	n.deliver(ctx, payload{
		title:    "Forge - Job Failed",
		message:  fmt.Sprintf("%s failed for entity %d: %s", stage, entityID, message),
		tags:     []string{"forge", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) Test(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Forge - Test",
		message:  "Notification system test",
		tags:     []string{"forge", "test"},
		priority: "low",
	})
}

// deliver sends without surfacing the error; notification delivery must
// never fail a job.
func (n *ntfyService) deliver(ctx context.Context, data payload) {
	if err := n.send(ctx, data); err != nil {
		n.logger.Warn("notification delivery failed", logging.Error(err))
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func resultInt(result map[string]any, key string) (int, bool) {
	if result == nil {
		return 0, false
	}
	switch value := result[key].(type) {
	case int:
		return value, true
	case int64:
		return int(value), true
	case float64:
		return int(value), true
	}
	return 0, false
}

type noopService struct{}

func (noopService) Enabled() bool { return false }

func (noopService) JobSucceeded(context.Context, jobs.Stage, int64, map[string]any) {}

func (noopService) JobFailed(context.Context, jobs.Stage, int64, string) {}

func (noopService) Test(context.Context) error { return nil }
