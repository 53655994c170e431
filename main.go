package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Relay/ai"
	"Relay/bot"
	"Relay/core"
	"Relay/fetch"
	"Relay/holder"
	"Relay/lib/sl"
	"Relay/metrics"
	"Relay/relay"
	"Relay/storage"
	"Relay/tokens"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	shutdownTimeout = 30 * time.Second
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	conf := core.MustLoad(*configPath)
	log := setupLogger(conf.Env)
	log.With(
		slog.String("config", *configPath),
		slog.String("env", conf.Env),
		slog.String("model", conf.OpenAI.Model),
		slog.Bool("azure", conf.IsAzure()),
		slog.Int("context_limit", conf.ContextLimit),
	).Info("starting relay bot")

	var tokenizer core.Tokenizer
	tk, err := tokens.NewTiktoken(conf.OpenAI.Model)
	if err != nil {
		log.Warn("tokenizer unavailable, estimating tokens", sl.Err(err))
		tokenizer = tokens.Estimate{}
	} else {
		tokenizer = tk
	}

	tgBot, err := bot.NewTgBot(conf, log)
	if err != nil {
		log.Error("creating telegram", sl.Err(err))
		os.Exit(1)
	}

	contexts := holder.NewContextManager(storage.NewMemoryStorage(), tokenizer, conf.ContextLimit)
	httpClient := &http.Client{}
	accumulator := relay.NewAccumulator(
		contexts,
		fetch.NewWeb(httpClient, conf.Fetch.StripHTML, log),
		fetch.NewDocuments(httpClient, tgBot, log),
		log,
	)
	dispatcher := relay.NewDispatcher(contexts, ai.NewChat(conf, log), log)
	tgBot.SetServices(accumulator, dispatcher)

	var metricsServer *metrics.Server
	if conf.Metrics.Enabled {
		metricsServer = metrics.NewServer(conf.Metrics.Bind, log)
		if err := metricsServer.Start(); err != nil {
			log.Error("starting metrics", sl.Err(err))
			metricsServer = nil
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := tgBot.Start(); err != nil {
			log.Error("bot stopped with error", sl.Err(err))
		}
	}()

	log.Info("bot started")

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
	case <-stopped:
		log.Warn("update loop ended, shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	tgBot.Stop(ctx)

	if metricsServer != nil {
		if err := metricsServer.Stop(ctx); err != nil {
			log.Error("stopping metrics", sl.Err(err))
		}
	}

	log.Info("shutdown complete")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal, envDev:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
		log.Warn("unknown env, using prod logging", slog.String("env", env))
	}

	return log
}
