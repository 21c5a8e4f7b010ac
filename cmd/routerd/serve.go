// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/projectrouter/core/pkg/analytics"
	"github.com/projectrouter/core/pkg/cache"
	"github.com/projectrouter/core/pkg/config"
	"github.com/projectrouter/core/pkg/convcontext"
	"github.com/projectrouter/core/pkg/embedding"
	"github.com/projectrouter/core/pkg/feedback"
	"github.com/projectrouter/core/pkg/llmclient"
	loggerpkg "github.com/projectrouter/core/pkg/logger"
	"github.com/projectrouter/core/pkg/orchestrator"
	"github.com/projectrouter/core/pkg/project"
	"github.com/projectrouter/core/pkg/realtime"
	"github.com/projectrouter/core/pkg/router"
	"github.com/projectrouter/core/pkg/routing"
)

// ServeCmd loads the configuration, wires every component, and serves
// HTTP traffic until interrupted.
type ServeCmd struct {
	Addr string `help:"HTTP listen address." default:":8080"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := loggerpkg.New(loggerpkg.Config{Level: cfg.Logger.Level, Format: cfg.Logger.Format})

	app, err := buildApplication(cfg, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	mux := http.NewServeMux()
	app.registerRoutes(mux)

	server := &http.Server{Addr: c.Addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("routerd listening", "addr", c.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// application holds every wired collaborator needed to serve routing
// and orchestration requests.
type application struct {
	cfg          *config.Config
	registry     *project.Registry
	routingCache *cache.Cache
	convContext  convcontext.Context
	feedback     *feedback.Store
	analytics    *analytics.Analytics
	router       *router.Router
	orchestrator *orchestrator.Orchestrator
	hub          *realtime.Hub
	logger       *slog.Logger
}

func buildApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	registry := project.NewRegistry(logger)
	factory := newExecutorFactory(cfg, logger)
	if _, err := registry.Discover(cfg.Routing.ProjectsDir, factory); err != nil {
		logger.Warn("project discovery failed, continuing with no projects", "error", err)
	}

	var routingCache *cache.Cache
	if cfg.Routing.Cache.Enabled {
		invalidation := cfg.Routing.AdvancedInvalidation
		routingCache = cache.New(cache.Config{
			MaxEntries:                     cfg.Routing.Cache.MaxEntries,
			BaseTTL:                        time.Duration(cfg.Routing.Cache.BaseTTLSeconds) * time.Second,
			HotMultiplier:                  cfg.Routing.Cache.HotMultiplier,
			WarmMultiplier:                 cfg.Routing.Cache.WarmMultiplier,
			ColdMultiplier:                 cfg.Routing.Cache.ColdMultiplier,
			XFetchBeta:                     cfg.Routing.Cache.XFetchBeta,
			SimilarityThreshold:            cfg.Routing.Cache.SimilarityThreshold,
			AdaptiveTTLEnabled:             invalidation.Enabled && invalidation.AdaptiveTTL,
			ProbabilisticExpirationEnabled: invalidation.Enabled && invalidation.ProbabilisticExpiration,
			EventDrivenInvalidationEnabled: invalidation.Enabled && invalidation.EventDriven,
		})
	}

	var convContext convcontext.Context
	if cfg.Routing.SemanticAnalysis.Enabled {
		var embedder embedding.Embedder = embedding.NewHashed()
		if cfg.Routing.SemanticAnalysis.EmbedderBaseURL != "" {
			embedder = embedding.NewHTTPEmbedder(
				cfg.Routing.SemanticAnalysis.EmbedderBaseURL,
				"",
				cfg.Routing.SemanticAnalysis.EmbedderModel,
				128,
				nil,
			)
		}
		convContext = convcontext.NewSemantic(
			embedder,
			cfg.Routing.SemanticAnalysis.MaxContextHistory,
			cfg.Routing.SemanticAnalysis.TopicSimilarityThreshold,
			cfg.Routing.SemanticAnalysis.SimilarityThreshold,
		)
	} else {
		convContext = convcontext.NewKeyword(20, convcontext.DefaultContextConfidenceBoost)
	}

	var feedbackStore *feedback.Store
	if cfg.Routing.Feedback.Enabled {
		feedbackStore = feedback.New(cfg.Routing.Feedback.StorePath, cfg.Routing.Feedback.LearningThreshold, 1000)
	}

	var analyticsStore *analytics.Analytics
	if cfg.Routing.Analytics.Enabled {
		analyticsStore = analytics.New(cfg.Routing.Analytics.StorePath, cfg.Routing.Analytics.MaxHistory)
	}

	llm, err := llmclient.New(cfg.Models.Classifier, logger)
	if err != nil {
		return nil, fmt.Errorf("build classifier LLM client: %w", err)
	}

	r := router.New(registry, routingCache, convContext, feedbackStore, analyticsStore, llm, logger)

	var orch *orchestrator.Orchestrator
	if cfg.Routing.Orchestration.Enabled {
		orch = orchestrator.New(orchestrator.Config{MaxParallel: cfg.Routing.Orchestration.MaxParallel}, llm, analyticsStore, logger)
	}

	hub := realtime.NewHub(logger)

	return &application{
		cfg:          cfg,
		registry:     registry,
		routingCache: routingCache,
		convContext:  convContext,
		feedback:     feedbackStore,
		analytics:    analyticsStore,
		router:       r,
		orchestrator: orch,
		hub:          hub,
		logger:       logger,
	}, nil
}

func (a *application) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/route", a.handleRoute)
	if a.orchestrator != nil {
		mux.HandleFunc("/orchestrate", a.handleOrchestrate)
	}
	mux.Handle("/ws", realtime.NewHandler(a.hub, nil, a.logger))
}

func (a *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type routeRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

func (a *application) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(a.cfg.Routing.RequestTimeoutSeconds)*time.Second)
	defer cancel()

	decision, err := a.router.Route(ctx, routing.Query{Text: req.Query, SessionID: req.SessionID})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	a.hub.Broadcast("routing_decision", decision)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(decision)
}

// handleOrchestrate decomposes a query across the discovered projects,
// executes each sub-query through its own project.Executor, and
// returns the synthesized answer.
func (a *application) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(a.cfg.Routing.RequestTimeoutSeconds)*time.Second)
	defer cancel()

	enabled := a.registry.ListEnabled()
	descriptors := make([]orchestrator.ProjectDescriptor, 0, len(enabled))
	for _, p := range enabled {
		descriptors = append(descriptors, orchestrator.ProjectDescriptor{Name: p.Name, Description: p.Description})
	}

	plan, err := a.orchestrator.Analyze(ctx, req.Query, descriptors)
	if err != nil {
		a.logger.Warn("orchestration analysis degraded to single-project plan", "error", err)
	}

	resolve := func(name string) (project.Executor, bool) {
		p, ok := a.registry.Get(name)
		if !ok || !p.Enabled() {
			return nil, false
		}
		return p.Executor, true
	}

	result := a.orchestrator.Run(ctx, req.Query, plan, resolve)
	a.hub.Broadcast("orchestration_result", result)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
