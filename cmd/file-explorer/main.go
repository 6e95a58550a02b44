package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/codefionn/fileexplorer/internal/bridge"
	"github.com/codefionn/fileexplorer/internal/config"
	"github.com/codefionn/fileexplorer/internal/explorer"
	"github.com/codefionn/fileexplorer/internal/logger"
	"github.com/codefionn/fileexplorer/internal/tui"
)

// errListingFailed marks a plain listing that ended in an error view
var errListingFailed = errors.New("listing failed")

type options struct {
	configPath string
	hostURL    string
	stdio      bool
	listPath   string
	list       bool
	timeout    time.Duration
	logLevel   string
	logPath    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("file-explorer", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := &options{timeout: -1}
	fs.StringVar(&opts.configPath, "config", config.GetConfigPath(), "Path to the config file")
	fs.StringVar(&opts.hostURL, "url", "", "WebSocket URL of the host bridge")
	fs.BoolVar(&opts.stdio, "stdio", false, "Talk to the host over stdin/stdout instead of a WebSocket")
	fs.StringVar(&opts.listPath, "list", "", "Print the listing of a directory and exit")
	fs.DurationVar(&opts.timeout, "timeout", -1, "Request timeout, rounded up to whole seconds (0 waits forever; default from config)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error, none")
	fs.StringVar(&opts.logPath, "log-path", "", "Log file path, - for stderr")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [options]\n\n", fs.Name())
		fmt.Fprintln(fs.Output(), "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "list" {
			opts.list = true
		}
	})
	if opts.list && opts.listPath == "" {
		opts.listPath = explorer.RootPath
	}
	return opts, nil
}

// loadConfig merges the config file, the environment and the flags, in
// increasing precedence
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv()

	if opts.hostURL != "" {
		cfg.HostURL = opts.hostURL
	}
	if opts.stdio {
		cfg.Transport = config.TransportStdio
	}
	if opts.timeout >= 0 {
		// round up so a sub-second timeout never becomes 0, which waits forever
		cfg.RequestTimeout = int((opts.timeout + time.Second - 1) / time.Second)
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logPath != "" {
		cfg.LogPath = opts.logPath
	}
	return cfg, cfg.Validate()
}

func run() (err error) {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		if err != nil && !errors.Is(err, errListingFailed) {
			logger.Error("Fatal error: %v", err)
		}
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()

	logger.Info("file-explorer starting (transport=%s)", cfg.Transport)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, err := openTransport(ctx, cfg)
	if err != nil {
		return err
	}

	client := bridge.NewClient(transport, &bridge.Config{
		RequestTimeout:     cfg.Timeout(),
		NotificationBuffer: cfg.NotificationBuffer,
	})
	client.Start(ctx)
	defer client.Close()

	// stdout carries the protocol in stdio mode
	out := io.Writer(os.Stdout)
	if cfg.Transport == config.TransportStdio {
		out = os.Stderr
	}

	interactive := cfg.Transport != config.TransportStdio && term.IsTerminal(int(os.Stdout.Fd()))
	if opts.list || !interactive {
		return runList(ctx, client, opts.listPath, out)
	}
	return runTUI(ctx, client)
}

func openTransport(ctx context.Context, cfg *config.Config) (bridge.Transport, error) {
	switch cfg.Transport {
	case config.TransportStdio:
		return bridge.NewStreamTransport(os.Stdin, os.Stdout), nil
	default:
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		logger.Debug("dialing %s", cfg.HostURL)
		return bridge.DialWebSocket(dialCtx, cfg.HostURL, nil)
	}
}

// runList prints one listing as text. An empty path lists the workspace
// root if one is open.
func runList(ctx context.Context, host explorer.Host, path string, w io.Writer) error {
	display := explorer.NewWriterDisplay(w)
	display.SkipLoading = true
	renderer := explorer.NewRenderer(host, display)

	if path == "" {
		renderer.Start(ctx)
	} else {
		renderer.Render(ctx, path)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if renderer.LastView().State == explorer.StateError {
		return errListingFailed
	}
	return nil
}

func runTUI(ctx context.Context, client *bridge.Client) error {
	logger.Info("Running in TUI mode")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	display := tui.NewProgramDisplay()
	renderer := explorer.NewRenderer(client, display)
	model := tui.New(runCtx, renderer, client)

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(runCtx))
	go display.Run(runCtx, program)
	go renderer.Watch(runCtx, client.WorkspaceChanges())

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
