package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cppolygon/internal/gateway/app"
	"cppolygon/internal/gateway/config"
)

const shutdownTimeout = 5 * time.Second

var serveOpts struct {
	port           string
	reasoningModel string
	visionModel    string
	rps            float64
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway (web UI, RPC and state stream)",
	Long: `Starts the HTTP gateway. Configuration comes from .env and the
environment (GEMINI_API_KEY, PORT, POLYGON_REASONING_MODEL, ...);
flags override it.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveOpts.port, "port", "", "listen port (default from PORT or 8081)")
	f.StringVar(&serveOpts.reasoningModel, "reasoning-model", "", "model for text-only requests")
	f.StringVar(&serveOpts.visionModel, "vision-model", "", "model for requests with an image")
	f.Float64Var(&serveOpts.rps, "llm-rps", 0, "model request rate limit per second (0 = unlimited)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	logger.Sugar().Infof("gateway listening on %s", cfg.Port)
	err = a.Run(ctx, func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), shutdownTimeout)
	})
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exiting")
	return nil
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("port") {
		cfg.Port = config.NormalizePort(serveOpts.port)
	}
	if f.Changed("reasoning-model") {
		cfg.LLM.ReasoningModel = serveOpts.reasoningModel
	}
	if f.Changed("vision-model") {
		cfg.LLM.VisionModel = serveOpts.visionModel
	}
	if f.Changed("llm-rps") {
		cfg.LLM.RPS = serveOpts.rps
	}
	if verbose {
		cfg.Verbose = true
	}
}
