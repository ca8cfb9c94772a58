package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"switchscan/internal/config"
	"switchscan/internal/daemon"
	"switchscan/internal/deps"
	"switchscan/internal/ipc"
	"switchscan/internal/listener"
	"switchscan/internal/logging"
	"switchscan/internal/logs"
	"switchscan/internal/messenger"
	"switchscan/internal/preflight"
	"switchscan/internal/services/discord"
	"switchscan/internal/speech"
)

// AppRole names the foreground app's single-instance lock.
const AppRole = "app"

// Options configures process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
	// Headless runs the app without opening the switch device.
	Headless bool
}

// runtime is the per-process logging setup shared by both roles.
type runtime struct {
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger
	sessionID string
	logPath   string
}

func start(cmdCtx context.Context, cfg *config.Config, role string, opts Options) (*runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.ValidateRemote(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)

	sessionID := uuid.NewString()
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("switchscan-%s-%s.log", role, runID))

	logCfg := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		logCfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(&logCfg, logPath, sessionID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(logs.CurrentPath(cfg.Paths.LogDir, role), logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update switchscan-%s.log link: %v\n", role, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: fmt.Sprintf("switchscan-%s-*.log", role), Exclude: []string{logPath}},
	)
	logDependencySnapshot(logger, cfg)
	logPreflight(logger, cfg)

	return &runtime{ctx: signalCtx, cancel: cancel, logger: logger, sessionID: sessionID, logPath: logPath}, nil
}

// RunApp starts the switch-driven messenger and its control socket. It
// blocks until a signal arrives, the user exits, or a component fails.
func RunApp(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	rt, err := start(cmdCtx, cfg, AppRole, opts)
	if err != nil {
		return err
	}
	defer rt.cancel()
	logger := rt.logger

	lock := daemon.NewLock(cfg.LockPath(AppRole), AppRole)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	remote := discord.New(cfg.Discord.Token, logger)
	app, err := messenger.New(messenger.Options{
		Config:    cfg,
		Remote:    remote,
		Headless:  opts.Headless,
		SessionID: rt.sessionID,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	ipcServer, err := ipc.NewServer(rt.ctx, cfg.SocketPath(), app, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logger.Info("switchscan app starting",
		logging.String(logging.FieldEventType, "app_starting"),
		logging.String("socket", ipcServer.Path()),
		logging.String("log_path", rt.logPath),
		logging.Bool("headless", opts.Headless),
	)
	if err := app.Run(rt.ctx); err != nil {
		logger.Error("app stopped with errors",
			logging.Error(err),
			logging.String(logging.FieldEventType, "app_failed"),
		)
		return err
	}
	logger.Info("switchscan app shutting down")
	return nil
}

// RunListener starts the background direct message listener.
func RunListener(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	rt, err := start(cmdCtx, cfg, listener.Role, opts)
	if err != nil {
		return err
	}
	defer rt.cancel()
	logger := rt.logger

	voice := speech.New(speech.FactoryFor(cfg.Speech, logger), speech.OptionsFor(cfg.Speech), logger)
	voice.Start(rt.ctx)
	defer voice.Close()

	l, err := listener.New(listener.Options{
		Config:  cfg,
		Remote:  discord.New(cfg.Discord.Token, logger),
		Speaker: voice,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create listener: %w", err)
	}
	if err := l.Run(rt.ctx); err != nil {
		logger.Error("listener stopped with errors",
			logging.Error(err),
			logging.String(logging.FieldEventType, "listener_failed"),
		)
		return err
	}
	return nil
}

func ensureCurrentLogPointer(current, target string) error {
	if filepath.Dir(current) == "." || target == "" {
		return nil
	}
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("token_present", strings.TrimSpace(cfg.Discord.Token) != ""),
		logging.Bool("mirror_configured", strings.TrimSpace(cfg.Discord.DMBridgeChannelID) != ""),
		logging.Int("channels", len(cfg.Discord.ChannelIDs)),
		logging.String("speech_engine", cfg.Speech.Engine),
	}
	for _, st := range statuses {
		attrs = append(attrs, logging.Bool(strings.ToLower(strings.ReplaceAll(st.Name, " ", "_"))+"_available", st.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	for _, st := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "required program missing", "dependency_missing",
			logging.String("dependency", st.Name),
			logging.String("command", st.Command),
			logging.String(logging.FieldImpact, st.Description+" is unavailable"),
			logging.String(logging.FieldErrorHint, "install the program or set speech.engine = \"none\""),
		)
	}
}

func logPreflight(logger *slog.Logger, cfg *config.Config) {
	for _, r := range preflight.Failed(preflight.RunAll(cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String(logging.FieldImpact, r.Detail),
		)
	}
}
