// Enricher webhook server — receives agent-runtime webhooks and enriches
// agent memory with knowledge-graph context, peer-agent listings, and
// relevant tools.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oculairmedia/webhook-receiver-letta/pkg/api"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/config"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/graphiti"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/letta"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/matrix"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/memory"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/pipeline"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/registry"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/toolattach"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/tracker"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/version"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file, continuing with existing environment", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration invalid, refusing to start", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting enricher",
		"version", version.Full(),
		"http_port", cfg.HTTPPort,
		"graphiti_url", cfg.GraphitiURL)

	// External clients. Registry, tool attachment, and notifications are
	// optional; each disables its pipeline step when unconfigured.
	graphitiClient := graphiti.NewClient(cfg.GraphitiURL)
	lettaClient := letta.NewClient(cfg.LettaBaseURL, cfg.LettaPassword)
	blockManager := memory.NewManager(lettaClient)

	var searcher pipeline.AgentSearcher
	if cfg.AgentRegistryURL != "" {
		searcher = registry.NewClient(cfg.AgentRegistryURL)
	}
	var attacher pipeline.ToolAttacher
	if cfg.ToolAttachURL != "" {
		attacher = toolattach.NewClient(cfg.ToolAttachURL, cfg.ToolAttachLimit, cfg.ToolAttachMinScore)
	}

	agentTracker := tracker.New()
	notifier := matrix.NewNotifier(cfg.MatrixClientURL)
	notifier.Start()

	deps := pipeline.Deps{
		Retriever: graphitiClient,
		Blocks:    blockManager,
		Tracker:   agentTracker,
		Searcher:  searcher,
		Attacher:  attacher,
		Resolver:  lettaClient,
		MaxNodes:  cfg.MaxNodes,
		MaxFacts:  cfg.MaxFacts,
		MaxAgents: cfg.RegistryMaxAgents,
		MinScore:  cfg.RegistryMinScore,
	}
	if notifier != nil {
		deps.Notifier = notifier
	}

	httpServer := api.NewServer(pipeline.New(deps), agentTracker)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Drain pending new-agent notifications after the listener stops.
	notifier.Stop()

	slog.Info("Shutdown complete")
}
