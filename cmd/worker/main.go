package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/zimage/orchestrator/internal/config"
	"github.com/zimage/orchestrator/internal/kv"
	"github.com/zimage/orchestrator/internal/logging"
	"github.com/zimage/orchestrator/internal/objectstore"
	"github.com/zimage/orchestrator/internal/telemetry"
	"github.com/zimage/orchestrator/internal/worker"
)

func main() {
	logging.Init("worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	objects, err := objectstore.NewAdapter(config.LoadObjectStore())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build object store adapter")
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure bucket")
	}

	pipelines := worker.NewRegistry()
	worker.RegisterNullPipelines(pipelines)

	workerCfg := config.LoadWorker()
	dispatcher := worker.NewDispatcher(pipelines, objects, workerCfg)

	cache := kv.NewAdapter(config.LoadKV())
	defer cache.Close()
	go telemetry.Loop(ctx, telemetry.NullProber{}, cache)

	metricsAddr := config.Str("METRICS_ADDR", ":9090")
	metricsServer := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
	go func() {
		log.Info().Str("addr", metricsAddr).Msg("starting worker metrics endpoint")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("worker metrics endpoint failed")
		}
	}()

	srv := dispatcher.Server(config.LoadQueue(), workerCfg)
	go func() {
		log.Info().Msg("starting worker dispatcher")
		if err := srv.Run(dispatcher.Mux()); err != nil {
			log.Fatal().Err(err).Msg("worker dispatcher failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")
	srv.Shutdown()
	pipelines.CleanupAll(context.Background())
	_ = metricsServer.Close()
	log.Info().Msg("worker stopped")
}
