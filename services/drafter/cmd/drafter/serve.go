package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"leasemail/internal/sessiontoken"
	"leasemail/pkg/store"
	"leasemail/services/drafter/internal/app"
	"leasemail/services/drafter/internal/config"
	"leasemail/services/drafter/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the drafter HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime(false)
		if err != nil {
			return err
		}
		defer rt.Close()

		ttl, _ := config.ParseDuration(rt.cfg.SessionTTL)
		var revoker sessiontoken.Revoker = sessiontoken.NewMemoryRevoker()
		if rt.cfg.Storage.Backend == store.BackendRedis {
			rr := sessiontoken.NewRedisRevoker(rt.cfg.Storage.RedisAddr, rt.cfg.Storage.RedisPassword, rt.cfg.Storage.RedisPrefix)
			defer rr.Close()
			revoker = rr
		}
		tokens, err := sessiontoken.New(sessiontoken.Options{Secret: rt.cfg.SessionSecret, TTL: ttl, Revoker: revoker})
		if err != nil {
			return fmt.Errorf("init session tokens: %w", err)
		}
		httpServer := server.New(server.Config{
			App:            rt.app,
			Tokens:         tokens,
			AllowedOrigins: rt.cfg.CORSAllowedOrigins,
		})

		generationTimeout, _ := config.ParseDuration(rt.cfg.GenerationTimeout)
		addr := ":" + rt.cfg.Port
		srv := &http.Server{
			Addr:         addr,
			Handler:      httpServer.Router(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout(generationTimeout),
			IdleTimeout:  60 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rt.logger.Info("drafter server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			rt.logger.Info("drafter server shutting down")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

// writeMargin covers storage, archive and event work after the completion returns.
const writeMargin = 30 * time.Second

// writeTimeout keeps a draft response writable for the whole generation window.
func writeTimeout(generation time.Duration) time.Duration {
	if generation <= 0 {
		generation = app.DefaultTimeout
	}
	return generation + writeMargin
}
