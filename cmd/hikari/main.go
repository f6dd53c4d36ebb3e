// Package main is the hikari CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/hikari/internal/config"
	"github.com/hyperjump/hikari/internal/server"
	"github.com/hyperjump/hikari/internal/watcher"
	"github.com/hyperjump/hikari/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/hikari/config.yaml"
	configEnv         = "HIKARI_CONFIG"
	defaultServerURL  = "http://localhost:8080"
)

// configPathDefault returns $HIKARI_CONFIG when set, else the installed config path.
func configPathDefault() string {
	if p := os.Getenv(configEnv); p != "" {
		return p
	}
	return defaultConfigPath
}

// loadConfig loads config from path. When path is the installed default and it
// is missing, config.yaml or config.toml in the current directory is tried first.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); err != nil {
			if cwd, cwdErr := os.Getwd(); cwdErr == nil {
				for _, name := range []string{"config.yaml", "config.toml"} {
					fallback := filepath.Join(cwd, name)
					if _, statErr := os.Stat(fallback); statErr == nil {
						path = fallback
						break
					}
				}
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads configuration and builds a logger, exiting on failure.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = cfg.Debug || debugFlag
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved))
	return cfg, logger
}

func main() {
	// A missing .env is fine; it only supplies defaults such as HIKARI_CONFIG.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "highlight":
		runHighlight()
	case "index":
		runIndex()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("hikari version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := newFlagSet("server")
	configPath := fs.String("config", configPathDefault(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		components.Indexer,
		watcher.WithLogger(utils.ComponentLogger(logger, cfg.Debug, "watcher")),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	go watchSvc.SyncExistingFiles(watchCtx)

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Storage,
		cfg,
		server.WithLogger(logger),
		server.WithWatcher(watchSvc),
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printUsage() {
	fmt.Println(`hikari - search with highlighted fragments

Usage:
  hikari server [flags]             Start the HTTP server
  hikari search [flags] <query>     Search documents and show highlighted fragments
  hikari highlight [flags]          Render fragments from a JSON request on stdin
  hikari index [flags] <path>       Index a file or directory
  hikari delete [flags] <id>        Delete a document
  hikari status [flags]             Show storage and index status
  hikari version                    Show version
  hikari help                       Show this help

Common Flags:
  --config string    Config file path (default: $HIKARI_CONFIG or /usr/local/etc/hikari/config.yaml)

Server Flags:
  --debug            Enable debug logging

Search Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --limit int        Number of results (default from config)
  --fields string    Comma-separated fields to search and highlight (default: content)
  --fragments int    Fragments per field (default from config)
  --fuzzy            Enable fuzzy matching
  --output string    Output format: text or json (default: text)

Highlight Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  hikari server
  hikari search quick brown fox
  hikari search --fields title,content --fragments 2 "lazy dog"
  echo '{"document_id":"d1","query":"fox"}' | hikari highlight
  hikari index ~/Documents
  hikari delete file:3f2a...
  hikari status --output json`)
}
