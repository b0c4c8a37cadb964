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
	"github.com/rs/zerolog/log"

	"eventcal/internal/capture"
	"eventcal/internal/config"
	"eventcal/internal/extract"
	"eventcal/internal/llm"
	"eventcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	debug      bool
}

func main() {
	flags := parseFlags()

	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if flags.debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Str("version", "0.1.0").Msg("eventcal starting")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config_path", flags.configPath).Msg("failed to load config")
	}
	conf.ApplyEnvOverrides()

	// CLI --listen overrides config file and env.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	if err := conf.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("listen", conf.Listen).
		Str("timezone", conf.Timezone).
		Str("model", conf.LLM.Model).
		Str("screenshot_provider", conf.Screenshot.Provider).
		Msg("effective config")

	extractor := &extract.Extractor{
		Client:  llm.NewClient(conf.LLM.APIKey, conf.LLM.BaseURL),
		Model:   conf.LLM.Model,
		Timeout: time.Duration(conf.LLM.TimeoutSec) * time.Second,
	}

	var acquirer capture.Acquirer
	switch conf.Screenshot.Provider {
	case config.ProviderAPIFlash:
		acquirer = &capture.APIFlash{
			Key:      conf.Screenshot.APIFlashKey,
			Endpoint: conf.Screenshot.APIFlashURL,
			Delay:    time.Duration(conf.Screenshot.DelaySec) * time.Second,
		}
	case config.ProviderChromium:
		acquirer = &capture.Chromium{
			RemoteURL: conf.Screenshot.ChromeURL,
			Timeout:   time.Duration(conf.Screenshot.TimeoutSec) * time.Second,
			Settle:    time.Duration(conf.Screenshot.SettleMs) * time.Millisecond,
		}
	}

	server := web.NewServer(conf, extractor, acquirer)

	// Root context canceled on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              conf.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", "http://"+conf.Listen).Msg("starting HTTP server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("signal received, shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}

	log.Info().Msg("eventcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/eventcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Verbose logging")

	flag.Parse()

	return cfg
}
