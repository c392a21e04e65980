package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/greenthumb-app/greenthumb/pkg/handlers"
	"github.com/greenthumb-app/greenthumb/pkg/kvstore"
	"github.com/greenthumb-app/greenthumb/pkg/llm"
	"github.com/greenthumb-app/greenthumb/pkg/mcp"
	"github.com/greenthumb-app/greenthumb/pkg/mcp/tools"
	"github.com/greenthumb-app/greenthumb/pkg/middleware"
	"github.com/greenthumb-app/greenthumb/pkg/reminder"
	"github.com/greenthumb-app/greenthumb/pkg/repositories"
	"github.com/greenthumb-app/greenthumb/pkg/services"
	"github.com/greenthumb-app/greenthumb/pkg/session"
	"github.com/greenthumb-app/greenthumb/ui"
)

// janitorInterval is how often idle chat conversations are expired.
const janitorInterval = time.Minute

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  a.runServe,
	}
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger := a.cfg, a.logger
	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("base_url", cfg.BaseURL),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("day_boundary", cfg.Reminders.DayBoundary),
		zap.Bool("mcp_enabled", cfg.MCP.Enabled))

	store, err := kvstore.Open(ctx, &cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", zap.Error(err))
		}
	}()

	garden, err := a.gardenService(store)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(ctx, &cfg.AI, logger)
	if err != nil {
		return err
	}
	var breaker *llm.CircuitBreaker
	if bc, ok := client.(*llm.BreakerClient); ok {
		breaker = bc.Breaker()
	}

	plantAI := services.NewPlantAI(client, cfg.AI.RequestTimeout, logger)
	chat := services.NewChatService(plantAI, cfg.Chat.IdleTimeout, cfg.Chat.MaxConversations, logger)
	sessions := session.NewManager(&cfg.Session)
	if cfg.Session.Secret == "" {
		logger.Warn("SESSION_SECRET is not set; chat sessions will not survive a restart")
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, breaker, logger).RegisterRoutes(mux)
	handlers.NewPlantHandler(plantAI, cfg.Server.MaxUploadBytes, logger).RegisterRoutes(mux)
	handlers.NewGardenHandler(garden, logger).RegisterRoutes(mux)
	handlers.NewChatHandler(chat, sessions, logger).RegisterRoutes(mux)

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer("greenthumb", cfg.Version, logger)
		mcpServer.RegisterGreenthumbTools(
			&tools.GardenToolDeps{Garden: garden, Logger: logger.Named("mcp-tools")},
			&tools.HealthToolDeps{
				Version:    cfg.Version,
				AIProvider: client.Provider(),
				Circuit: func() string {
					if breaker == nil {
						return ""
					}
					return breaker.State().String()
				},
			},
		)
		mux.Handle("/mcp", mcpServer.Handler())
	}

	uiHandler, err := ui.Handler()
	if err != nil {
		return err
	}
	mux.Handle("/", uiHandler)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:      middleware.Recoverer(logger)(middleware.RequestLogger(logger)(mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		chat.RunJanitor(gctx, janitorInterval)
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting greenthumb",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// gardenService wires the garden repository and reminder calculator.
func (a *app) gardenService(store kvstore.Store) (services.GardenService, error) {
	mode, err := reminder.ParseMode(a.cfg.Reminders.DayBoundary)
	if err != nil {
		return nil, err
	}
	loc, err := a.cfg.Reminders.Location()
	if err != nil {
		return nil, err
	}

	repo := repositories.NewGardenRepository(store, a.cfg.Storage.GardenKey, a.logger)
	calc := reminder.NewCalculator(mode, loc, nil)
	return services.NewGardenService(repo, calc, nil, a.logger), nil
}
