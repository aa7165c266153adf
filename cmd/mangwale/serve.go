package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/agent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/auth"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/backend"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/config"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/flow"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/geo"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/handoff"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/intent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/llms"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/observability"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/orchestrator"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/search"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/server"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/session"
)

// ServeCmd starts the chat server.
type ServeCmd struct {
	Port  int  `help:"Port to listen on (overrides config)."`
	Watch bool `help:"Watch the flow directory and hot-reload definitions." default:"true" negatable:""`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	shutdownTracing, err := observability.InitTracing("mangwale-ai", cli.LogLevel == "debug")
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	backendClient := backend.NewClient(cfg.Backend.BaseURL,
		backend.WithHeaders(cfg.Backend.ModuleID, cfg.Backend.ZoneID))

	sessions := session.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb)
		slog.Info("session store: redis", "addr", cfg.Redis.Addr)
	} else {
		slog.Info("session store: in-memory (sessions are not persisted)")
	}

	router := intent.NewRouter(intent.NewHTTPClassifier(cfg.Services.NLUURL, nil))

	catalog := flow.NewCatalog(cfg.Flows.Dir)
	defer catalog.Close()
	if c.Watch {
		if err := catalog.Watch(); err != nil {
			slog.Warn("flow catalog watch unavailable, relying on TTL", "error", err)
		}
	}
	flows := flow.NewDispatcher(flow.NewHTTPEngine(cfg.Services.FlowEngineURL, nil), catalog)

	var llm llms.Provider
	if cfg.LLM.APIKey != "" || cfg.LLM.BaseURL != "" {
		llm = llms.NewOpenAIProvider(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
		slog.Info("llm enabled", "model", llm.Model())
	}

	queue := orchestrator.NewBackgroundQueue(2, 128)
	defer queue.Close()

	var index search.VectorIndex
	if qi, err := search.NewQdrantIndex(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.APIKey, cfg.Qdrant.UseTLS); err != nil {
		slog.Warn("qdrant unavailable, semantic search disabled", "host", cfg.Qdrant.Host, "error", err)
	} else {
		index = qi
	}
	searchOpts := []search.ExecutorOption{search.WithBackground(queue.Submit)}
	if cfg.Services.RoutingURL != "" {
		searchOpts = append(searchOpts, search.WithDistanceRouter(search.NewHTTPDistanceRouter(cfg.Services.RoutingURL, nil)))
	}
	searchOpts = append(searchOpts, search.WithHistoryTracker(search.NewHTTPHistoryTracker(cfg.Backend.BaseURL, nil)))
	executor := search.NewExecutor(
		backendClient,
		search.NewHTTPEmbedder(cfg.Services.EmbeddingURL, nil),
		index,
		search.NewHTTPKeywordSearcher(cfg.Services.SearchAPIURL, nil),
		searchOpts...,
	)

	extractor := geo.NewExtractor(backendClient, llm, nil)

	agents := agent.NewRegistry()
	for _, a := range []agent.Agent{
		agent.NewFAQAgent(llm),
		agent.NewSmalltalkAgent(llm),
		agent.NewGameAgent(),
		search.NewAgent(executor),
		geo.NewAgent(extractor, backendClient, backendClient, queue.Submit),
	} {
		if err := agents.Add(a); err != nil {
			return fmt.Errorf("register agent %s: %w", a.ID(), err)
		}
	}
	slog.Info("agents registered", "agents", agents.IDs())

	var tickets handoff.TicketClient
	if cfg.Frappe.BaseURL != "" {
		tickets = handoff.NewFrappeClient(cfg.Frappe.BaseURL, cfg.Frappe.APIKey, cfg.Frappe.APISecret, nil)
	} else {
		slog.Warn("frappe not configured, escalations proceed without tickets")
	}
	handoffs := handoff.NewService(agents, tickets)

	orchOpts := []orchestrator.Option{
		orchestrator.WithBackgroundQueue(queue),
		orchestrator.WithPreferenceLoader(orchestrator.NewHTTPPreferenceLoader(cfg.Backend.BaseURL, nil)),
	}
	if cfg.Services.TrainingURL != "" {
		orchOpts = append(orchOpts, orchestrator.WithTrainingRecorder(
			orchestrator.NewHTTPTrainingRecorder(cfg.Services.TrainingURL, nil)))
	}
	orch := orchestrator.New(sessions, router, flows, agents, handoffs, backendClient, orchOpts...)

	serverOpts := []server.Option{
		server.WithFlowCacheClearer(flows),
		server.WithDropCounter(queue.Dropped),
	}
	if cfg.Auth.JWTSecret != "" {
		serverOpts = append(serverOpts, server.WithJWTIssuer(auth.NewIssuer(cfg.Auth.JWTSecret, 24*time.Hour)))
	} else {
		slog.Warn("JWT_SECRET not set, web channel is unauthenticated")
	}
	if cfg.Auth.WebhookToken != "" {
		serverOpts = append(serverOpts, server.WithWebhookVerifyToken(cfg.Auth.WebhookToken))
	}
	srv := server.New(orch, prometheus.NewRegistry(), serverOpts...)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mangwale server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
