package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/booksrc/config"
	"github.com/pevans/booksrc/notify"
	"github.com/pevans/booksrc/replace"
	"github.com/pevans/booksrc/sources"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			srcStore, err := a.openSourceStore()
			if err != nil {
				return err
			}
			defer srcStore.Close()

			ruleStore, err := a.openRuleStore()
			if err != nil {
				return err
			}
			defer ruleStore.Close()

			prefs, err := a.openConfigStore()
			if err != nil {
				return err
			}
			defer prefs.Close()

			if a.cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			registry := replace.NewRegistry(ruleStore, a.cfg.Cache.MaxEntries, a.logger)
			render := &renderHandler{
				renderer: newRenderer(registry, prefs, notify.New(a.logger, nil), a.logger),
				registry: registry,
			}
			router := sources.NewSourceAPIServer(srcStore, a.logger).SetupRouter(
				config.NewConfigAPIServer(prefs).RegisterRoutes,
				render.RegisterRoutes,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, addr, router, a)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

// runServer serves handler until ctx is cancelled, then shuts down.
func runServer(ctx context.Context, addr string, handler http.Handler, a *app) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", addr).Msg("Starting booksrc API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// renderHandler exposes chapter rendering over HTTP.
type renderHandler struct {
	renderer *renderer
	registry *replace.Registry
}

// RegisterRoutes adds the render routes to an API group.
func (h *renderHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/render", h.HandleRender)
	api.POST("/replace/refresh", h.HandleRefreshRules)
}

// HandleRender handles POST /api/v1/render.
func (h *renderHandler) HandleRender(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_request", "message": err.Error()}})
		return
	}

	paragraphs, err := h.renderer.Render(req)
	if err != nil {
		h.renderer.logger.Error().Err(err).Msg("Failed to render chapter")
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "Failed to render chapter"}})
		return
	}

	c.JSON(http.StatusOK, RenderResponse{Paragraphs: paragraphs})
}

// HandleRefreshRules handles POST /api/v1/replace/refresh. Rules edited
// through the CLI become visible to cached books only after a refresh.
func (h *renderHandler) HandleRefreshRules(c *gin.Context) {
	if err := h.registry.RefreshAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "Failed to refresh replace rules"}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": h.registry.Len()})
}
