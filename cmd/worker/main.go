package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/alexberardi/jarvis-ocr-service/internal/http/handlers"
	httpapi "github.com/alexberardi/jarvis-ocr-service/internal/http/httpapi"
	"github.com/alexberardi/jarvis-ocr-service/internal/infra"
	"github.com/alexberardi/jarvis-ocr-service/internal/pipeline"
	"github.com/alexberardi/jarvis-ocr-service/internal/providers"
	"github.com/alexberardi/jarvis-ocr-service/internal/providers/applevision"
	"github.com/alexberardi/jarvis-ocr-service/internal/providers/llmproxy"
	"github.com/alexberardi/jarvis-ocr-service/internal/providers/sidecar"
	"github.com/alexberardi/jarvis-ocr-service/internal/providers/tesseract"
	"github.com/alexberardi/jarvis-ocr-service/internal/queue"
	"github.com/alexberardi/jarvis-ocr-service/internal/resolver"
	"github.com/alexberardi/jarvis-ocr-service/internal/state"
	"github.com/alexberardi/jarvis-ocr-service/internal/validator"
	"github.com/alexberardi/jarvis-ocr-service/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer rdb.Close()

	q := queue.New(rdb)
	store := state.New(rdb, cfg.StateTTL)

	resolverOpts := []resolver.Option{}
	if fetcher, err := resolver.NewMinioFetcher(cfg); err != nil {
		logger.Warn().Err(err).Msg("worker: object store unavailable, s3/minio refs will fail")
	} else {
		resolverOpts = append(resolverOpts, resolver.WithObjectFetcher(fetcher))
	}
	images := resolver.New(cfg.LocalImageRoot, resolverOpts...)

	proxyOpts := llmproxy.Options{BaseURL: cfg.LLMProxyURL, AppID: cfg.AppID, AppKey: cfg.AppKey}
	registry := providers.NewRegistry(ctx, logger,
		tesseract.New(),
		sidecar.NewEasyOCR(cfg.EasyOCRURL),
		sidecar.NewPaddleOCR(cfg.PaddleOCRURL),
		applevision.New(cfg.VisionHelperPath),
		llmproxy.NewLocal(proxyOpts),
		llmproxy.NewCloud(proxyOpts),
	)

	active := registry.Active(cfg.EnabledTiers)
	if len(active) == 0 {
		logger.Fatal().Msg("worker: no enabled tier has an available driver on this host")
	}
	tierNames := make([]string, 0, len(active))
	for _, t := range active {
		tierNames = append(tierNames, string(t))
	}
	logger.Info().Str("tiers", strings.Join(tierNames, ",")).Msg("worker: active OCR cascade")

	validation := validator.New(validator.Options{
		BaseURL:   cfg.LLMProxyURL,
		AppID:     cfg.AppID,
		AppKey:    cfg.AppKey,
		ModelHint: cfg.ValidationModel,
	})

	pipe := pipeline.New(pipeline.Config{
		EnabledTiers:    cfg.EnabledTiers,
		MaxTextBytes:    cfg.MaxTextBytes,
		MinConfidence:   cfg.MinConfidence,
		LanguageDefault: cfg.LanguageDefault,
		TierTimeout:     cfg.TierTimeout,
		CallbackURL:     strings.TrimRight(cfg.PublicURL, "/") + "/internal/validation/callback",
	}, q, store, validation, images, registry, logger)

	app := handlers.NewApp(pipe, q, logger)
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, logger))

	go func() {
		logger.Info().Msgf("callback server listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("callback server failed")
		}
	}()

	w := worker.New(q, pipe, store, logger, worker.Options{
		MaxAttempts: cfg.MaxAttempts,
		Slots:       cfg.WorkerSlots,
	})
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown callback server")
	}
	logger.Info().Msg("worker: stopped")
}
