package config

const (
	defaultDataDir             = "~/.local/share/forge"
	defaultLogDir              = "~/.local/share/forge/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "google/gemini-3-flash-preview"
	defaultLLMReferer          = "https://github.com/five82/forge"
	defaultLLMTitle            = "Forge Content Pipeline"
	defaultLLMTimeoutSeconds   = 120
	defaultLLMTemperature      = 0.7
	defaultLLMMaxTokens        = 2000
	defaultIdeaCount           = 10
	defaultTargetWordCount     = 1200
	defaultMaxEvents           = 8
	defaultMaxSources          = 10
	defaultWorkers             = 2
	defaultQueuePollInterval   = 5
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultSoftTimeLimit       = 1500
	defaultHardTimeLimit       = 1800
	defaultMaintenanceInterval = 300
	defaultSourcePolicyMode    = "whitelist"
	defaultNtfyTimeoutSeconds  = 10
)

func defaultAllowedSources() []string {
	return []string{
		"bbc.com",
		"cnn.com",
		"reuters.com",
		"apnews.com",
		"nytimes.com",
		"wsj.com",
		"ft.com",
		"techcrunch.com",
		"theverge.com",
		"wired.com",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Temperature:    defaultLLMTemperature,
			MaxTokens:      defaultLLMMaxTokens,
		},
		Pipeline: Pipeline{
			IdeaCount:       defaultIdeaCount,
			TargetWordCount: defaultTargetWordCount,
			MaxEvents:       defaultMaxEvents,
			MaxSources:      defaultMaxSources,
		},
		SourcePolicy: SourcePolicy{
			Mode:    defaultSourcePolicyMode,
			Sources: defaultAllowedSources(),
		},
		Workflow: Workflow{
			Workers:             defaultWorkers,
			QueuePollInterval:   defaultQueuePollInterval,
			HeartbeatInterval:   defaultHeartbeatInterval,
			HeartbeatTimeout:    defaultHeartbeatTimeout,
			SoftTimeLimit:       defaultSoftTimeLimit,
			HardTimeLimit:       defaultHardTimeLimit,
			MaintenanceInterval: defaultMaintenanceInterval,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
