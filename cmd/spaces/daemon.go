package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/spaces/internal/animation"
	"github.com/1broseidon/spaces/internal/config"
	"github.com/1broseidon/spaces/internal/daemon"
	"github.com/1broseidon/spaces/internal/displayenv"
	"github.com/1broseidon/spaces/internal/events"
	"github.com/1broseidon/spaces/internal/hotkeys"
	"github.com/1broseidon/spaces/internal/ipc"
	"github.com/1broseidon/spaces/internal/platform"
	"github.com/1broseidon/spaces/internal/runtimepath"
	"github.com/1broseidon/spaces/internal/space"
	"github.com/1broseidon/spaces/internal/x11"
)

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func bindingsFromConfig(cfg *config.Config) hotkeys.Bindings {
	return hotkeys.Bindings{
		SwitchLeft:       cfg.Hotkeys.SwitchLeft,
		SwitchRight:      cfg.Hotkeys.SwitchRight,
		ToggleFullscreen: cfg.Hotkeys.ToggleFullscreen,
	}
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/spaces/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: spaces daemon [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the fullscreen space daemon in the foreground.")
		fs.PrintDefaults()
	}
	if code := parseNoArgs(fs, "daemon", args); code >= 0 {
		return code
	}

	loadConfig := func() (*config.Config, error) {
		res, err := loadConfigResult(*path)
		if err != nil {
			return nil, err
		}
		return res.Config, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	env, err := displayenv.Apply(cfg.Display, cfg.XAuthority)
	if err != nil {
		log.Fatalf("Failed to resolve X display: %v", err)
	}
	logger.Info("using X display", "display", env.Display, "source", env.Source)

	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer backend.Disconnect()

	queue := events.NewQueue(events.DefaultQueueSize, logger)

	watcher, err := backend.NewWindowWatcher(func(w platform.WindowID) {
		queue.Post(events.Event{Kind: events.WindowDestroyed, Window: w})
	})
	if err != nil {
		log.Fatalf("Failed to create window watcher: %v", err)
	}
	defer watcher.Close()

	toggler, err := backend.NewFullscreenToggler(cfg.Fullscreen.Method, cfg.Fullscreen.Key)
	if err != nil {
		log.Fatalf("Failed to set up fullscreen toggling: %v", err)
	}

	from, to, err := cfg.Animation.Colors()
	if err != nil {
		log.Fatalf("Invalid animation colors: %v", err)
	}
	scheduler := animation.NewScheduler(
		daemon.AnimationFromConfig(cfg),
		x11.NewOverlayFactory(backend.Connection(), x11.OverlayColors{From: from, To: to}),
		logger,
	)

	coord := space.NewCoordinator(space.Providers{
		Desktops:   backend,
		Windows:    backend,
		Fullscreen: toggler,
		Watcher:    watcher,
	}, scheduler, daemon.DelaysFromConfig(cfg), logger)

	storePath, err := runtimepath.RegistryPath()
	if err != nil {
		log.Fatalf("Failed to resolve registry path: %v", err)
	}

	hotkeyHandler, err := hotkeys.NewHandler(backend, logger)
	if err != nil {
		log.Fatalf("Failed to create hotkey handler: %v", err)
	}
	defer hotkeyHandler.Close()

	bind := func(c *config.Config) error {
		return hotkeyHandler.Install(bindingsFromConfig(c), queue)
	}
	if err := bind(cfg); err != nil {
		logger.Warn("hotkeys not registered; IPC commands still work", "error", err)
	} else {
		logger.Info("hotkeys registered", "bound", hotkeyHandler.Bound())
	}

	loop := daemon.NewLoop(daemon.Options{
		Queue:         queue,
		Coordinator:   coord,
		Desktops:      backend,
		Titles:        backend,
		Displays:      backend,
		Scheduler:     scheduler,
		Store:         space.NewStore(storePath),
		RestoreOnExit: cfg.RestoreOnExit,
		LoadConfig:    loadConfig,
		Rebind:        bind,
		Logger:        logger,
	})

	ipcServer, err := ipc.NewServer(loop, logger)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(loopDone)
	}()

	if interval := cfg.ReconcileInterval(); interval > 0 {
		reconciler := daemon.NewReconciler(interval, queue, logger)
		// Pick up windows closed while no daemon was running.
		reconciler.ReconcileNow()
		go reconciler.Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				logger.Info("received SIGHUP, reloading config")
				if err := loop.Reload(); err != nil {
					logger.Error("config reload failed", "error", err)
				}
				continue
			}
			logger.Info("shutting down spaces daemon", "signal", sig.String())
			cancel()
			<-loopDone
			backend.Quit()
			return
		}
	}()

	logger.Info("spaces daemon started", "socket", ipcServer.SocketPath(), "registry", storePath)
	backend.EventLoop()

	signal.Stop(sigCh)
	queue.Close()
	return 0
}
