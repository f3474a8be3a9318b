package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repertoire/internal/modkit/repokit"
	"repertoire/internal/platform/config"
	"repertoire/internal/platform/logger"
	phttp "repertoire/internal/platform/net/http"
	"repertoire/internal/platform/net/middleware"
	"repertoire/internal/platform/store"

	"repertoire/internal/services/api"

	"github.com/go-chi/chi/v5"
)

func main() {
	root := config.New()

	l := logger.Get()

	cfg, err := store.FromConfig(root, "repertoire-api", "api", 4)
	if err != nil {
		l.Fatal().Err(err).Msg("store config")
	}
	st, err := store.Open(context.Background(), cfg, store.WithLogger(*l))
	if err != nil {
		l.Fatal().Err(err).Msg("store open")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	repokit.MustGuard(context.Background(), st)

	// reads API_PORT
	srv := phttp.NewServer(root, func(m *chi.Mux) {
		m.Use(middleware.Defaults()...)
	})

	api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			EnableProfiler: root.MayBool("API_PROFILER", false),
			EnableSwagger:  root.MayBool("API_SWAGGER", true),
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx) }()

	select {
	case err := <-errc:
		if err != nil {
			l.Fatal().Err(err).Msg("http server stopped")
		}
	case <-ctx.Done():
		l.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			l.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
