package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/postdesk/internal/config"
	"github.com/debemdeboas/postdesk/internal/db"
	"github.com/debemdeboas/postdesk/internal/delivery"
	"github.com/debemdeboas/postdesk/internal/kv"
	"github.com/debemdeboas/postdesk/internal/logger"
	"github.com/debemdeboas/postdesk/internal/render"
	"github.com/debemdeboas/postdesk/internal/repository"
	"github.com/debemdeboas/postdesk/internal/session"
	"github.com/debemdeboas/postdesk/internal/sse"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to a YAML or TOML config file")
	envFile := flag.String("env", ".env", "env file with secrets")
	flag.Parse()

	// Bootstrap logger until the config says otherwise
	log := logger.New("info", logger.FormatConsole)
	config.SetLogger(logger.Component(log, "config"))

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatal().Msgf(config.ErrLoadConfigFmt, err)
	}
	cfg := config.AppConfig
	cfg.LoadEnv(*envFile)

	log = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	setLoggers(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closer, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Msgf(config.ErrOpenStorageFmt, err)
	}
	defer closer.Close()
	log.Info().Str("backend", cfg.Storage.Backend).Str("namespace", cfg.Storage.Namespace).Msg("Storage ready")

	deliverer, err := newDeliverer(cfg.Delivery)
	if err != nil {
		log.Fatal().Msgf(config.ErrCreateDelivererFmt, err)
	}

	clients := sse.NewSSEClients()
	ks := kv.NewKeyspace(store, cfg.Storage.Namespace)

	ctrl, err := session.New(ctx, session.Options{
		Form:         session.NewMemoryForm(broadcastFormEvent(clients)),
		Drafts:       repository.NewDraftRepository(ks),
		Templates:    repository.NewTemplateRepository(ks, render.Render),
		Stats:        repository.NewStatsRepository(ks),
		Deliverer:    deliverer,
		ReadyTimeout: cfg.Session.ReadyTimeout(),
	})
	if err != nil {
		log.Fatal().Msgf(config.ErrStartSessionFmt, err)
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: newMux(&server{
			ctrl:    ctrl,
			clients: clients,
			log:     logger.Component(log, "http"),
			now:     time.Now,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	log.Info().Str("addr", srv.Addr).Str("delivery", cfg.Delivery.Mode).Msg("Listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server stopped")
	}
	log.Info().Msg("Server stopped")
}

func setLoggers(log zerolog.Logger) {
	config.SetLogger(logger.Component(log, "config"))
	db.SetLogger(logger.Component(log, "db"))
	kv.SetLogger(logger.Component(log, "kv"))
	render.SetLogger(logger.Component(log, "render"))
	repository.SetLogger(logger.Component(log, "repository"))
	session.SetLogger(logger.Component(log, "session"))
	delivery.SetLogger(logger.Component(log, "delivery"))
}
