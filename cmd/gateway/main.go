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
	"github.com/zimage/orchestrator/internal/edge"
	"github.com/zimage/orchestrator/internal/kv"
	"github.com/zimage/orchestrator/internal/logging"
)

func main() {
	logging.Init("gateway")

	authCfg := config.LoadAuth()
	signer := auth.NewSigner(authCfg.Secret, authCfg.AccessTTL, authCfg.RefreshTTL)

	cache := kv.NewAdapter(config.LoadKV())
	defer cache.Close()

	router, err := edge.NewRouter(signer, cache, config.LoadEdge(), config.LoadRateLimit())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build edge router")
	}

	addr := config.Str("HTTP_ADDR", ":8000")
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting edge router")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("edge router failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("edge router shutdown error")
	}
	log.Info().Msg("edge router stopped")
}
