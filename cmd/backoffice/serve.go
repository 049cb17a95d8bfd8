package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/pool-backoffice/internal/application"
	httptransport "github.com/example/pool-backoffice/internal/http"
)

func serveCmd(load loader) *cobra.Command {
	var (
		migrateFirst   bool
		bootstrapEmail string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until interrupted.

With --bootstrap-admin, an admin account is created at startup when the
email is not yet registered. Its password is read from
BACKOFFICE_BOOTSTRAP_PASSWORD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withBackend(ctx, rt, func(b *backend) error {
				if migrateFirst {
					applied, err := b.migrate(ctx)
					if err != nil {
						return err
					}
					rt.logger.Info("migrations applied", "count", len(applied))
				}

				svc := newServices(b, rt.cfg, rt.logger)
				if bootstrapEmail != "" {
					if err := bootstrapAdmin(ctx, svc, bootstrapEmail, os.Getenv("BACKOFFICE_BOOTSTRAP_PASSWORD"), rt.logger); err != nil {
						return err
					}
				}

				server := &http.Server{
					Addr:              rt.cfg.Addr(),
					Handler:           newHandler(svc, b, rt),
					ReadHeaderTimeout: 10 * time.Second,
					ReadTimeout:       30 * time.Second,
					WriteTimeout:      30 * time.Second,
					IdleTimeout:       60 * time.Second,
				}
				return runServer(ctx, server, rt.logger)
			})
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", true, "apply pending migrations before serving")
	cmd.Flags().StringVar(&bootstrapEmail, "bootstrap-admin", "", "create this admin at startup if missing")
	return cmd
}

func newHandler(svc *services, b *backend, rt runEnv) http.Handler {
	logger := rt.logger
	return httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(svc.auth, rt.cfg.SecureCookie, logger),
		Events:         httptransport.NewEventHandler(svc.actions, logger),
		Estimates:      httptransport.NewEstimateHandler(svc.actions, logger),
		RequireSession: httptransport.RequireSession(svc.auth, logger),
		Health:         b.ping,
		Middleware:     []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
}

func runServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("back-office API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	logger.Info("back-office API stopped")
	return nil
}

func bootstrapAdmin(ctx context.Context, svc *services, email, password string, logger *slog.Logger) error {
	_, err := svc.admins.CreateAdmin(ctx, application.AdminInput{
		Email:    email,
		FullName: "Administrator",
		Role:     application.RoleAdmin,
		Password: password,
	})
	switch {
	case err == nil:
		logger.Info("bootstrap admin created", "email", email)
		return nil
	case errors.Is(err, application.ErrAlreadyExists):
		return nil
	}
	return fmt.Errorf("bootstrap admin: %w", err)
}
