package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sitemapd/internal/sitemap"
)

func main() {
	var (
		configPath string
		mode       string
	)
	flag.StringVar(&configPath, "config", getenvDefault("SITEMAPD_CONFIG", "/sitemapd.yaml"), "path to sitemapd.yaml")
	flag.StringVar(&mode, "mode", os.Getenv("SITEMAPD_MODE"), "override server.mode (dev, test, prod)")
	flag.Parse()

	cfg, err := sitemap.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	switch mode {
	case "":
	case sitemap.ModeDev, sitemap.ModeTest, sitemap.ModeProd:
		cfg.Server.Mode = mode
	default:
		log.Fatalf("unknown mode %q", mode)
	}

	logger, err := sitemap.NewLogger(cfg, os.Stderr)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	slog.SetDefault(logger)

	reg := sitemap.NewRegistry()
	sitemap.RegisterValueProviders(reg, cfg.Providers)

	svc, err := sitemap.NewService(cfg, cfg.RouteTable(), reg,
		sitemap.WithLogger(logger),
		sitemap.WithInstanceFactory(sitemap.NewSingletons(reg)),
	)
	if err != nil {
		log.Fatalf("init service: %v", err)
	}
	defer svc.Close()

	mux := http.NewServeMux()
	mux.Handle(cfg.Sitemap.Route, svc.Handler())
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("listen %s: %v", addr, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("sitemapd listening", "addr", addr, "route", cfg.Sitemap.Route, "mode", cfg.Server.Mode)
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func getenvDefault(name, def string) string {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	return v
}
