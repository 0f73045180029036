package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSourcePolicy(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSourcePolicy() error {
	switch c.SourcePolicy.Mode {
	case "whitelist", "blacklist", "allow_all":
	default:
		return fmt.Errorf("source_policy.mode must be one of whitelist, blacklist, allow_all (got %q)", c.SourcePolicy.Mode)
	}
	if c.SourcePolicy.Mode != "allow_all" && len(c.SourcePolicy.Sources) == 0 {
		return fmt.Errorf("source_policy.sources must include at least one entry when mode is %q", c.SourcePolicy.Mode)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.workers":              c.Workflow.Workers,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.maintenance_interval": c.Workflow.MaintenanceInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.SoftTimeLimit <= 0 {
		return errors.New("workflow.soft_time_limit must be positive (seconds)")
	}
	if c.Workflow.HardTimeLimit <= c.Workflow.SoftTimeLimit {
		return errors.New("workflow.hard_time_limit must be greater than workflow.soft_time_limit")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	return ensurePositiveMap(map[string]int{
		"pipeline.idea_count":        c.Pipeline.IdeaCount,
		"pipeline.target_word_count": c.Pipeline.TargetWordCount,
		"pipeline.max_events":        c.Pipeline.MaxEvents,
		"pipeline.max_sources":       c.Pipeline.MaxSources,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
