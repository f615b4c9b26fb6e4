// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/config"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/logger"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/tracing"
)

// AppCtx is handed to each service's Setup so it can register routes and
// shutdown hooks against the shared skeleton.
type AppCtx struct {
	Mux    *http.ServeMux
	Config config.Config

	cleanups []func(ctx context.Context)
}

// OnShutdown registers a cleanup run during graceful shutdown. Hooks run
// LIFO, mirroring construction order.
func (a *AppCtx) OnShutdown(fn func(ctx context.Context)) {
	a.cleanups = append(a.cleanups, fn)
}

// AppInfo carries what is specific to one service binary.
type AppInfo struct {
	ServiceName string
	Port        int

	// Setup wires the service: repositories, consumers, producers. The
	// passed context is canceled when shutdown begins, which stops the
	// consumer loops.
	Setup func(ctx context.Context, app *AppCtx) error
}

// StartService owns the shared lifecycle: config, logging, tracing, the
// HTTP sidecar (health + metrics), signal handling, and ordered teardown.
func StartService(info AppInfo) {
	logger.Init(info.ServiceName)

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Ctx(context.Background()).Fatal().Err(err).Msg("failed to load config")
	}
	cfg.Service.Name = info.ServiceName
	if info.Port != 0 {
		cfg.Service.Port = info.Port
	}

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Ctx(context.Background()).Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := &AppCtx{Mux: http.NewServeMux(), Config: cfg}
	app.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	app.Mux.Handle("/metrics", promhttp.Handler())

	if info.Setup != nil {
		if err := info.Setup(rootCtx, app); err != nil {
			logger.Ctx(rootCtx).Fatal().Err(err).Msg("service setup failed")
		}
	}

	server := &http.Server{Addr: ":" + strconv.Itoa(cfg.Service.Port), Handler: app.Mux}
	go func() {
		logger.Ctx(rootCtx).Info().Int("port", cfg.Service.Port).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Ctx(rootCtx).Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Ctx(rootCtx).Info().Msgf("shutting down %s", info.ServiceName)

	// Stop feeding the consumers first, then run cleanups LIFO.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for i := len(app.cleanups) - 1; i >= 0; i-- {
		app.cleanups[i](shutdownCtx)
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Ctx(shutdownCtx).Error().Err(err).Msg("error shutting down tracer provider")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Ctx(shutdownCtx).Error().Err(err).Msg("error shutting down http server")
	}

	logger.Ctx(shutdownCtx).Info().Msgf("%s gracefully shut down", info.ServiceName)
}
