package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"healthmate/internal/app"
	"healthmate/internal/config"
	"healthmate/internal/events"
	"healthmate/internal/server"
	"healthmate/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	publisher, err := events.NewPublisher(cfg.RabbitURL, cfg.EventsExchange)
	if err != nil {
		log.Fatalf("failed to init event publisher: %v", err)
	}
	if publisher != nil {
		defer publisher.Close()
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:       cfg.DatabaseURL,
		JWTSecret:         cfg.JWTSecret,
		SessionTTL:        sessionTTL,
		JWTIssuer:         cfg.JWTIssuer,
		JWTAudience:       cfg.JWTAudience,
		AdminEmail:        cfg.AdminEmail,
		AdminPasswordHash: cfg.AdminPasswordHash,
		MinioEndpoint:     cfg.MinioEndpoint,
		MinioAccessKey:    cfg.MinioAccessKey,
		MinioSecretKey:    cfg.MinioSecretKey,
		MinioBucket:       cfg.MinioBucket,
		MinioUseSSL:       cfg.MinioUseSSL,
		AIProvider:        cfg.AIProvider,
		AIBaseURL:         cfg.AIBaseURL,
		AIAPIKey:          cfg.AIAPIKey,
		AIModel:           cfg.AIModel,
		AIReferer:         cfg.AIReferer,
		AITitle:           cfg.AITitle,
		AITimeout:         cfg.AITimeout(),
		TesseractPath:     cfg.TesseractPath,
		PdftoppmPath:      cfg.PdftoppmPath,
		PdftotextPath:     cfg.PdftotextPath,
		OCRLanguage:       cfg.OCRLanguage,
		PDFTextMinRunes:   cfg.PDFTextMinRunes,
		Events:            publisher,
		RenderSummaryPDF:  cfg.RenderSummaryPDF,
		PromptMaxChars:    cfg.PromptMaxChars,
		MinTextChars:      cfg.MinTextChars,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		RegisterRateLimitPerMinute: cfg.RegisterRateLimitPerMinute,
		LoginRateLimitPerMinute:    cfg.LoginRateLimitPerMinute,
		AdminRateLimitPerMinute:    cfg.AdminRateLimitPerMinute,
		MaxUploadBytes:             cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("healthmate server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
