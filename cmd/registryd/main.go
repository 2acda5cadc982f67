// Command registryd runs the Registry Service HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rcpklmc/sn0int/internal/oauth"
	"github.com/rcpklmc/sn0int/internal/registry/httpapi"
	"github.com/rcpklmc/sn0int/internal/registry/service"
	"github.com/rcpklmc/sn0int/internal/registry/store"
	"github.com/rcpklmc/sn0int/pkg/config"
	"github.com/rcpklmc/sn0int/pkg/logger"
	"github.com/rcpklmc/sn0int/pkg/metrics"
)

func main() {
	cfg := config.Load("")
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}).WithComponent("registryd")

	metrics.Register(prometheus.DefaultRegisterer)

	st, err := store.Open(cfg.PostgresDSN)
	if err != nil {
		log.WithField("error", err).Fatal("opening registry store")
	}
	defer st.Close()

	var cache service.Cache = service.NoCache{}
	if cfg.RedisAddr != "" {
		cache = service.NewRedisCache(cfg.RedisAddr)
	}

	provider := oauth.New(oauth.Config{
		ClientID:     os.Getenv("OSMIUM_OAUTH_CLIENT_ID"),
		ClientSecret: os.Getenv("OSMIUM_OAUTH_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("OSMIUM_OAUTH_REDIRECT_URL"),
		AuthURL:      os.Getenv("OSMIUM_OAUTH_AUTH_URL"),
		TokenURL:     os.Getenv("OSMIUM_OAUTH_TOKEN_URL"),
		UserInfoURL:  os.Getenv("OSMIUM_OAUTH_USERINFO_URL"),
	}, nil)

	svc := service.New(st, cache, provider, log)
	pruner := svc.StartAuthTokenPruner(os.Getenv("OSMIUM_PRUNE_SCHEDULE"))
	defer pruner.Stop()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewRouter(svc, log),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("registryd listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithField("error", err).Fatal("registry server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithField("error", err).Error("shutdown error")
	}
}
