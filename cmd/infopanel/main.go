package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/1broseidon/infopanel/internal/config"
	"github.com/1broseidon/infopanel/internal/daemon"
	"github.com/1broseidon/infopanel/internal/hotkeys"
	"github.com/1broseidon/infopanel/internal/ipc"
	"github.com/1broseidon/infopanel/internal/monitor"
	"github.com/1broseidon/infopanel/internal/platform"
	"github.com/1broseidon/infopanel/internal/runtimepath"
	"github.com/1broseidon/infopanel/internal/tui"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "profiles":
		os.Exit(runProfiles(os.Args[2:]))
	case "show", "hide", "close", "fullscreen":
		os.Exit(runProfileAction(os.Args[1], os.Args[2:]))
	case "fps":
		os.Exit(runFrameRate(os.Args[2:]))
	case "placement":
		os.Exit(runPlacement(os.Args[2:]))
	case "items":
		os.Exit(runItems(os.Args[2:]))
	case "reorder":
		os.Exit(runReorder(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "palette":
		os.Exit(runPalette(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: infopanel <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the infopanel daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status and open windows")
	fmt.Fprintln(w, "  monitors            List attached monitors")
	fmt.Fprintln(w, "  profiles            List configured profiles")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  show <profile>      Open or unhide a profile window")
	fmt.Fprintln(w, "  hide <profile>      Hide a profile window")
	fmt.Fprintln(w, "  close <profile>     Close a profile window")
	fmt.Fprintln(w, "  fullscreen <profile> Fill the window's monitor")
	fmt.Fprintln(w, "  placement <profile> Show where a profile resolves")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  items <profile>     Print a profile's item tree")
	fmt.Fprintln(w, "  reorder <profile> <item> up|down|top|bottom")
	fmt.Fprintln(w, "  fps [--persist] N   Set the target frame rate")
	fmt.Fprintln(w, "  reload              Re-read the config file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "  config path         Print the config file path")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open interactive config editor")
	fmt.Fprintln(w, "  palette             Pick a profile action with rofi/dmenu")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'infopanel <command> --help' for command-specific options.")
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/infopanel/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: infopanel daemon [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open every visible profile window and serve the control socket.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	configPath := *path
	if configPath == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			log.Fatalf("Failed to resolve config path: %v", err)
		}
		configPath = p
	}
	res, err := config.LoadFromPath(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "path", configPath, "profiles", len(cfg.Profiles), "fps", cfg.TargetFrameRate)

	env, err := daemon.ResolveX11Env(os.Environ(), cfg.Display)
	if err != nil {
		log.Fatalf("Failed to find X display: %v", err)
	}
	if err := env.Apply(); err != nil {
		log.Fatalf("Failed to export X display: %v", err)
	}
	logger.Info("using X display", "display", env.Display, "source", env.Source)

	backend, err := platform.NewLinuxBackendFromDisplay(logger)
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer backend.Disconnect()

	registry := monitor.NewRegistry(monitor.SourceFunc(backend.Displays), logger)
	backend.OnDisplaysChanged(registry.Notify)

	persister := daemon.NewPersister(daemon.PersisterConfig{
		Path:   configPath,
		Logger: logger,
	}, cfg)

	keys := hotkeys.NewHandler(backend, logger)

	var svc *daemon.Service
	bindings := func(c *config.Config) []hotkeys.Binding {
		return []hotkeys.Binding{
			{Name: "toggle", Keys: c.ToggleHotkey, Action: func() { svc.ToggleAll() }},
			{Name: "edit", Keys: c.EditHotkey, Action: func() { svc.ClearSelections() }},
			{Name: "palette", Keys: c.PaletteHotkey, Action: func() { launchPalette(logger) }},
		}
	}
	svc = daemon.NewService(daemon.ServiceConfig{
		Backend:   backend,
		Monitors:  registry,
		Config:    cfg,
		Path:      configPath,
		Persister: persister,
		Logger:    logger,
		OnReload: func(c *config.Config) {
			keys.UnregisterAll()
			if err := keys.RegisterAll(bindings(c)); err != nil {
				logger.Warn("failed to register hotkeys", "error", err)
			}
		},
	})

	if err := keys.RegisterAll(bindings(cfg)); err != nil {
		logger.Warn("failed to register hotkeys", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go persister.Run(ctx)

	reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
		Interval: cfg.ReconcileEvery(),
		Logger:   logger,
	}, svc.Manager(), registry, svc.Manager().RepositionAll)
	go reconciler.Run(ctx)

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		log.Fatalf("Failed to resolve socket path: %v", err)
	}
	ipcServer := ipc.NewServer(socketPath, svc, logger)
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	backend.RunOnUI(svc.ShowConfigured)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGHUP:
				logger.Info("received SIGHUP, reloading config")
				if err := svc.Reload(ctx); err != nil {
					logger.Error("config reload failed", "error", err)
				}
			default:
				logger.Info("shutting down infopanel daemon")
				backend.RunOnUI(func() {
					keys.UnregisterAll()
					svc.Shutdown()
					backend.Quit()
				})
				return
			}
		}
	}()

	logger.Info("entering event loop", "socket", socketPath)
	backend.EventLoop()

	cancel()
	if err := persister.Flush(); err != nil {
		logger.Error("failed to save config on exit", "error", err)
		return 1
	}
	return 0
}

// launchPalette starts "infopanel palette" detached from the event loop.
func launchPalette(logger *slog.Logger) {
	exe, err := os.Executable()
	if err != nil {
		logger.Error("palette: failed to find executable", "error", err)
		return
	}
	cmd := exec.Command(exe, "palette")
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		logger.Error("palette: failed to launch", "error", err)
		return
	}
	go cmd.Wait()
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  infopanel config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  infopanel config print [--path PATH] [--defaults]")
		fmt.Fprintln(os.Stderr, "  infopanel config explain [--path PATH] <yaml.path>")
		fmt.Fprintln(os.Stderr, "  infopanel config path")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/infopanel/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if _, err := loadConfig(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/infopanel/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/infopanel/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	case "path":
		p, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(p)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/infopanel/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: infopanel tui [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive editor for profiles and global settings. Works offline;")
		fmt.Fprintln(os.Stderr, "window actions and monitor data need the daemon.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  1-3, tab    Switch tabs")
		fmt.Fprintln(os.Stderr, "  e           Edit settings or the selected profile")
		fmt.Fprintln(os.Stderr, "  s/h/c/f     Show, hide, close or fullscreen the selected profile")
		fmt.Fprintln(os.Stderr, "  n           New profile")
		fmt.Fprintln(os.Stderr, "  ctrl+s      Review and save changes")
		fmt.Fprintln(os.Stderr, "  q, ctrl+c   Quit")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if err := tui.Run(*path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
