package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cppolygon/internal/gateway/config"
	"cppolygon/internal/gateway/handler"
	"cppolygon/internal/gateway/server"
	"cppolygon/internal/llmclient"
	"cppolygon/internal/session"
	"cppolygon/internal/view"
)

type App struct {
	handler  http.Handler
	server   *server.Server
	gateway  *llmclient.Gateway
	sessions *session.Registry
	log      *zap.Logger
}

// Options carries collaborators that tests or the CLI may substitute.
type Options struct {
	// Client replaces the Gemini client; GEMINI_API_KEY is then not needed.
	Client llmclient.Client
	Logger *zap.Logger
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	// Dependencies
	client := opts.Client
	if client == nil {
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		gc, err := llmclient.NewGeminiClient(ctx, cfg.LLM.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		client = gc
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	client = llmclient.Wrap(client,
		llmclient.WithLogging(log),
		llmclient.WithMetrics(llmclient.NewMetrics(registry)),
		llmclient.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
	)
	gateway := llmclient.NewGateway(client, llmclient.Models{
		Reasoning: cfg.LLM.ReasoningModel,
		Vision:    cfg.LLM.VisionModel,
	})
	sessions := session.NewRegistry(gateway, cfg.Session.MaxSessions, cfg.Session.TTL, log)

	renderer, err := view.New()
	if err != nil {
		return nil, err
	}
	assistantHandler := handler.NewAssistantHandler(log)
	pageHandler := handler.NewPageHandler(renderer, log)
	stateStream := handler.NewStateStream(renderer, log)

	// Routing & Server
	mux := server.NewMux(assistantHandler, pageHandler, stateStream, sessions, registry, log)
	srv := server.New(cfg.Port, mux, log)

	models := gateway.Models()
	log.Info("gateway configured",
		zap.String("env", cfg.Env),
		zap.String("reasoning_model", models.Reasoning),
		zap.String("vision_model", models.Vision),
		zap.Float64("llm_rps", cfg.LLM.RPS),
	)

	return &App{
		handler:  mux,
		server:   srv,
		gateway:  gateway,
		sessions: sessions,
		log:      log,
	}, nil
}

// Run serves until ctx is canceled, then shuts down within shutdownCtx's
// deadline.
func (a *App) Run(ctx context.Context, shutdownCtx func() (context.Context, context.CancelFunc)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.server.Start)
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down server")
		sctx, cancel := shutdownCtx()
		defer cancel()
		return a.Shutdown(sctx)
	})
	return g.Wait()
}

// Handler returns the fully wired mux, middleware included.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.sessions.Purge()
	if cerr := a.gateway.Close(); err == nil {
		err = cerr
	}
	return err
}
