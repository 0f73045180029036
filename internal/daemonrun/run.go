// Package daemonrun hosts the daemon process runtime: logging setup, pid
// file management, stage registration, and the IPC server lifecycle.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"forge/internal/config"
	"forge/internal/daemon"
	"forge/internal/ideagen"
	"forge/internal/imagegen"
	"forge/internal/ipc"
	"forge/internal/jobs"
	"forge/internal/logging"
	"forge/internal/notifications"
	"forge/internal/preflight"
	"forge/internal/research"
	"forge/internal/services/llm"
	"forge/internal/socialgen"
	"forge/internal/store"
	"forge/internal/writing"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel   string
	SocketPath string
}

// Run starts the forge daemon runtime loop and blocks until a termination
// signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logPath := filepath.Join(cfg.Paths.LogDir, "forge.log")
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logConfigSnapshot(logger, cfg)

	for _, check := range preflight.RunAll(signalCtx, cfg) {
		if check.Passed {
			logger.Info("preflight check passed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail))
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail))
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "forge.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}
	defer st.Close()

	scheduler := jobs.NewScheduler(jobs.NewQueue(st.DB()), cfg, logger)
	registerStages(scheduler, cfg, st, logger)

	notifier := notifications.NewService(cfg, logger)
	scheduler.SetNotifier(notifier)
	if notifier.Enabled() {
		logger.Info("ntfy notifications enabled")
	}

	d, err := daemon.New(cfg, st, logger, scheduler)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed", logging.Error(err))
	}

	<-signalCtx.Done()
	logger.Info("forge daemon shutting down")
	return nil
}

func registerStages(scheduler *jobs.Scheduler, cfg *config.Config, st *store.Store, logger *slog.Logger) {
	llmCfg := cfg.GetLLM()
	completer := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})

	scheduler.Register(ideagen.NewExecutor(st, completer, cfg, logger))
	scheduler.Register(research.NewExecutor(st, completer, cfg, logger))
	scheduler.Register(writing.NewExecutor(st, cfg, logger))
	scheduler.Register(imagegen.NewExecutor(st, cfg, logger))
	scheduler.Register(socialgen.NewExecutor(st, cfg, logger))
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.Bool("image_key_present", strings.TrimSpace(cfg.Images.APIKey) != ""),
		logging.String("source_policy", cfg.SourcePolicy.Mode),
		logging.Int("workers", cfg.Workflow.Workers),
		logging.Int("idea_count", cfg.Pipeline.IdeaCount),
		logging.Bool("verify_sources", cfg.Pipeline.VerifySources),
	)
}
