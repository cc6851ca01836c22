package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zimage/orchestrator/internal/auth"
	"github.com/zimage/orchestrator/internal/config"
	"github.com/zimage/orchestrator/internal/db"
	"github.com/zimage/orchestrator/internal/httpapi"
	"github.com/zimage/orchestrator/internal/kv"
	"github.com/zimage/orchestrator/internal/logging"
	"github.com/zimage/orchestrator/internal/objectstore"
	"github.com/zimage/orchestrator/internal/queue"
	"github.com/zimage/orchestrator/internal/replay"
	"github.com/zimage/orchestrator/internal/store"
)

func main() {
	logging.Init("apiserver")

	ctx := context.Background()

	dbCfg := config.LoadDatabase()
	if dbCfg.URL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	pool, err := db.Open(ctx, dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, store.Schema); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	objects, err := objectstore.NewAdapter(config.LoadObjectStore())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build object store adapter")
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure bucket")
	}

	authCfg := config.LoadAuth()
	signer := auth.NewSigner(authCfg.Secret, authCfg.AccessTTL, authCfg.RefreshTTL)
	st := store.New(pool)
	q := queue.NewAdapter(config.LoadQueue())
	defer q.Close()
	cache := kv.NewAdapter(config.LoadKV())
	defer cache.Close()

	srv := &httpapi.Server{
		Store:   st,
		Queue:   q,
		Objects: objects,
		KV:      cache,
		Signer:  signer,
		Auth:    authCfg,
		Replay:  replay.New(st, objects, q),
	}

	addr := config.Str("HTTP_ADDR", ":8080")
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting submission API")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("submission API failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("submission API shutdown error")
	}
	log.Info().Msg("submission API stopped")
}
