// Command hme runs the Hybrid Memory Engine as an MCP server over stdio.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	mcpserver "github.com/mark3labs/mcp-go/server"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/cortexmem/hme/internal/backup"
	"github.com/cortexmem/hme/internal/config"
	"github.com/cortexmem/hme/internal/embedder"
	"github.com/cortexmem/hme/internal/engine"
	"github.com/cortexmem/hme/internal/logging"
	"github.com/cortexmem/hme/internal/mcptools"
	"github.com/cortexmem/hme/internal/relstore"
	"github.com/cortexmem/hme/internal/summarize"
	"github.com/cortexmem/hme/internal/vecstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.Init()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info().Str("db_path", cfg.DBPath).Str("backup_path", cfg.BackupPath).
		Str("summarizer_backend", string(cfg.SummarizerBackend)).Msg("hme starting")

	if err := os.MkdirAll(cfg.DBPath, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := "file:" + filepath.Join(cfg.DBPath, "memory.sqlite") + "?_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	ctx := context.Background()

	rel, err := relstore.NewStore(db, logger)
	if err != nil {
		return fmt.Errorf("failed to create relational store: %w", err)
	}

	vecPersistPath := filepath.Join(cfg.DBPath, "chroma")
	vec, err := vecstore.NewStore(embedder.AsFunc(embedder.NewHashEmbedder()), logger, vecPersistPath)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}

	sum := newSummarizer(cfg, logger)

	bak := backup.NewManager(cfg.DBPath, cfg.BackupPath, cfg.BackupIntervalHours, cfg.BackupRetentionCount, logger)

	eng := engine.New(cfg, rel, vec, sum, bak, logger)
	if err := eng.Initialize(ctx, false); err != nil {
		return fmt.Errorf("failed to initialize stores: %w", err)
	}

	if cfg.EnableAutoBackup {
		bak.StartScheduler(ctx, cfg.BackupScanInterval)
		defer bak.StopScheduler()
	}

	server := mcpserver.NewMCPServer("Hybrid Memory Engine", "1.0.0")
	mcptools.Register(server, eng, logger)

	logger.Info().Msg("hme MCP server starting on stdio")
	if err := mcpserver.ServeStdio(server); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info().Msg("hme shutdown complete")
	return nil
}

// newSummarizer selects the summarization backend per SUMMARIZER_BACKEND,
// falling back to the null summarizer when the selected backend has no API
// key configured — memory_store and memory_update still succeed; content
// under the tiny threshold is still its own summary, and larger content is
// stored without one (summary_generated=false).
func newSummarizer(cfg config.Config, logger zerolog.Logger) summarize.Summarizer {
	switch cfg.SummarizerBackend {
	case config.BackendAnthropic:
		if cfg.AnthropicAPIKey == "" {
			logger.Warn().Msg("ANTHROPIC_API_KEY not set, summarization disabled")
			return summarize.NullSummarizer{}
		}
		s, err := summarize.NewAnthropicSummarizer(cfg.AnthropicAPIKey, "", 0, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to configure anthropic summarizer, summarization disabled")
			return summarize.NullSummarizer{}
		}
		return s
	case config.BackendOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			logger.Warn().Msg("OPENROUTER_API_KEY not set, summarization disabled")
			return summarize.NullSummarizer{}
		}
		s, err := summarize.NewOpenRouterSummarizer(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, "")
		if err != nil {
			logger.Warn().Err(err).Msg("failed to configure openrouter summarizer, summarization disabled")
			return summarize.NullSummarizer{}
		}
		return s
	default:
		logger.Warn().Str("backend", string(cfg.SummarizerBackend)).Msg("unrecognized summarizer backend, summarization disabled")
		return summarize.NullSummarizer{}
	}
}
