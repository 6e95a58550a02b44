package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/codefionn/fileexplorer/internal/config"
	"github.com/codefionn/fileexplorer/internal/devhost"
	"github.com/codefionn/fileexplorer/internal/logger"
)

type options struct {
	configPath string
	addr       string
	workspace  string
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
	fs := flag.NewFlagSet("file-explorer-devhost", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", config.GetConfigPath(), "Path to the config file")
	fs.StringVar(&opts.addr, "addr", "", "Listen address (default from config)")
	fs.StringVar(&opts.workspace, "workspace", "", "Directory to open as the workspace at startup")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error, none")
	fs.StringVar(&opts.logPath, "log-path", "", "Log file path, - for stderr (default stderr)")
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
	return opts, nil
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv()

	switch {
	case opts.logPath != "":
		cfg.LogPath = opts.logPath
	case strings.TrimSpace(os.Getenv(config.EnvLogPath)) == "":
		cfg.LogPath = logger.StderrPath
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.addr != "" {
		cfg.DevHost.Addr = opts.addr
	}
	if opts.workspace != "" {
		cfg.DevHost.Workspace = opts.workspace
	}
	return cfg, nil
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
		if err != nil {
			logger.Error("Fatal error: %v", err)
		}
		_ = logger.Global().Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := devhost.NewServer(cfg.DevHost)
	server.Start()
	defer server.Stop()

	if cfg.DevHost.Workspace != "" {
		if err := server.OpenWorkspace(cfg.DevHost.Workspace); err != nil {
			return fmt.Errorf("failed to open workspace: %w", err)
		}
	}

	logger.Info("bridge endpoint: ws://%s/bridge", cfg.DevHost.Addr)
	return server.ListenAndServe(ctx)
}
