package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"helpdesk/internal/auth"
	"helpdesk/internal/config"
	"helpdesk/internal/db"
	httphandler "helpdesk/internal/http"
	"helpdesk/internal/http/middleware"
	"helpdesk/internal/logger"
	"helpdesk/internal/repository"
	"helpdesk/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	appLogger := logger.New(cfg.Environment, cfg.LogLevel)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if sqlDB, err := database.DB(); err == nil {
		defer sqlDB.Close()
	}

	if cfg.DB.AutoMigrate {
		if err := db.Migrate(database, appLogger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	ticketRepo := repository.NewTicketRepository(database)
	ticketService := service.NewTicketService(ticketRepo)

	handler := httphandler.NewHandler(ticketService, func(ctx context.Context) error {
		return db.Ping(ctx, database)
	}, appLogger)

	var adminMiddleware []gin.HandlerFunc
	if cfg.AdminEnabled() {
		tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
		adminMiddleware = []gin.HandlerFunc{middleware.Auth(tokenParser), middleware.RequireAdmin()}
	} else {
		appLogger.Warn().Msg("JWT_ACCESS_SECRET not set, admin console disabled")
	}
	router := httphandler.NewRouter(handler, cfg, appLogger, adminMiddleware...)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().Str("addr", srv.Addr).Msg("starting helpdesk api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	appLogger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
