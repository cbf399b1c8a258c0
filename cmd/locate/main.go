// CLAUDE:SUMMARY CLI entry point for locate — natural-language element locator daemon exposing MCP tools over stdio.
// Command locate runs the natural-language element locator as an MCP
// tool server.
//
// Usage:
//
//	locate -config locate.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/locatehq/locate/core"
	"github.com/locatehq/locate/core/browserpool"
	"github.com/locatehq/locate/core/debugserver"
	"github.com/locatehq/locate/exec"
	"github.com/locatehq/locate/mcpserver"
	"github.com/locatehq/locate/rank"
)

func main() {
	configPath := flag.String("config", "", "path to locate.yaml config file")
	vocabPath := flag.String("vocab", "", "path to a vocabulary file for rank term-conflict detection")
	debugAddr := flag.String("debug-addr", ":8090", "address for the /healthz and /stats debug HTTP surface, empty to disable")
	remoteChrome := flag.String("remote-chrome", "", "WebSocket URL of an external Chrome instance; empty launches a local headless one")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *vocabPath, *debugAddr, *remoteChrome); err != nil {
		logger.Error("locate: fatal", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
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

func run(ctx context.Context, logger *slog.Logger, configPath, vocabPath, debugAddr, remoteChrome string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var vocab *rank.Vocabulary
	if vocabPath != "" {
		vocab, err = rank.LoadVocabularyFile(vocabPath)
		if err != nil {
			return fmt.Errorf("load vocabulary: %w", err)
		}
	}

	cc, err := core.New(*cfg, vocab, logger)
	if err != nil {
		return fmt.Errorf("core context: %w", err)
	}
	defer cc.Close()

	go cc.Promote.RunPruneLoop(ctx, cc.Config.PromotionTTL)

	pool := browserpool.New(browserpool.Config{RemoteURL: remoteChrome, Logger: logger})
	if _, err := pool.Start(ctx); err != nil {
		return fmt.Errorf("browser pool: %w", err)
	}
	defer pool.Close()

	tabs := browserpool.NewTabs(pool)
	pipeline := locexec.New(cc)

	if debugAddr != "" {
		dbg := debugserver.New(debugAddr, cc.DebugDeps(), logger)
		go func() {
			if err := dbg.Start(ctx); err != nil {
				logger.Error("locate: debug server", "error", err)
			}
		}()
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: "locate", Version: "0.1.0"}, nil)
	mcpserver.New(pipeline, tabs).RegisterMCP(srv)

	logger.Info("locate: serving MCP tools over stdio")
	return srv.Run(ctx, mcp.NewStdioTransport())
}

func loadConfig(path string) (*core.Config, error) {
	if path == "" {
		cfg := &core.Config{}
		return cfg, nil
	}
	return core.LoadFile(path)
}
