package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	httpapi "github.com/pairlink/signaling/internal/api/http"
	"github.com/pairlink/signaling/internal/config"
	"github.com/pairlink/signaling/internal/registry"
	"github.com/pairlink/signaling/internal/service"
	"github.com/pairlink/signaling/lib/logger/slogpretty"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	reg := registry.New()
	relayService := service.NewRelayService(reg, log, cfg.Signaling.EventBuffer)

	signalController := httpapi.NewSignalController(relayService, cfg, log)

	router := httpapi.SetupRouter(signalController)

	log.Info("starting signaling relay", slog.String("addr", cfg.HTTP.Address))
	if err := router.Run(cfg.HTTP.Address); err != nil {
		log.Error("http server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
