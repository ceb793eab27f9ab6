package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/nyxbook/matchcore/internal/config"
	"github.com/nyxbook/matchcore/internal/dispatcher"
	"github.com/nyxbook/matchcore/internal/engine"
	"github.com/nyxbook/matchcore/internal/metrics"
	"github.com/nyxbook/matchcore/internal/net"
	"github.com/nyxbook/matchcore/internal/participant"
)

func main() {
	addr := flag.String("address", "0.0.0.0", "address to bind")
	port := flag.Int("port", 9001, "TCP port to listen on")
	metricsAddr := flag.String("metrics-address", ":2112", "address to serve /metrics on")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	cfg := config.DefaultConfig()
	m := metrics.New()
	registry := participant.New(cfg.StartingBalance)
	registry.SetMetrics(m)

	eng := engine.New(registry)
	disp := dispatcher.New(cfg, eng, registry, m)

	srv := net.New(*addr, *port, disp)
	registry.SetReporter(srv)

	go serveMetrics(ctx, *metricsAddr, m)

	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("net: server exited")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("matchcore: shutting down")
	if err := srv.Shutdown(); err != nil {
		log.Error().Err(err).Msg("net: shutdown error")
	}
	if err := disp.Stop(); err != nil {
		log.Error().Err(err).Msg("dispatcher: shutdown error")
	}
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics: server exited")
	}
}
