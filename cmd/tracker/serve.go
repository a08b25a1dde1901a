package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jstittsworth/milestone-tracker/internal/api"
	"github.com/jstittsworth/milestone-tracker/internal/services"
)

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status API and websocket feed, refreshing on REFRESH_SCHEDULE",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()

			if port == "" {
				port = a.cfg.Port
			}
			if a.cfg.IsDevelopment() {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}

			hub := services.NewWebSocketHub(a.logger)
			go hub.Run(ctx)

			refresher := a.refresher(store, hub)
			if err := refresher.Start(ctx, a.cfg.RefreshSchedule); err != nil {
				return err
			}
			defer refresher.Stop()

			router := api.NewRouter(a.cfg, api.Dependencies{
				Refresher: refresher,
				Cache:     a.source,
				Hub:       hub,
				Checks:    a.readinessChecks(),
			}, a.logger)

			for _, route := range router.Routes() {
				a.logger.Debugf("%s %s", route.Method, route.Path)
			}

			srv := &http.Server{
				Addr:         fmt.Sprintf(":%s", port),
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				a.logger.Infof("Starting server on port %s", port)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("failed to start server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Errorf("Server forced to shutdown: %v", err)
			}
			a.logger.Info("Server exited")
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default PORT)")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Refresh on REFRESH_SCHEDULE and notify recipients when the status changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.openStore()
			if err != nil {
				return err
			}

			refresher := a.refresher(store, nil)
			if err := refresher.Start(ctx, a.cfg.RefreshSchedule); err != nil {
				return err
			}
			defer refresher.Stop()

			<-ctx.Done()
			a.logger.Info("Watcher stopping")
			return nil
		},
	}
}
