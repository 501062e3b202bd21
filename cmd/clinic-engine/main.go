package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/snarg/clinic-engine/internal/api"
	"github.com/snarg/clinic-engine/internal/clinic"
	"github.com/snarg/clinic-engine/internal/config"
	"github.com/snarg/clinic-engine/internal/database"
	"github.com/snarg/clinic-engine/internal/metrics"
	"github.com/snarg/clinic-engine/internal/mqttclient"
	"github.com/snarg/clinic-engine/internal/storage"
	"github.com/snarg/clinic-engine/internal/summarize"
	"github.com/snarg/clinic-engine/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "Path to .env file (default .env)")
	flag.StringVar(&overrides.HTTPAddr, "listen", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "PostgreSQL URL (overrides DATABASE_URL)")
	flag.StringVar(&overrides.AudioDir, "audio-dir", "", "Local audio directory (overrides AUDIO_DIR)")
	flag.StringVar(&overrides.MQTTBrokerURL, "mqtt-broker", "", "MQTT broker URL (overrides MQTT_BROKER_URL)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("clinic-engine starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	dbLog := log.With().Str("component", "database").Logger()
	db, err := database.Connect(ctx, cfg.DatabaseURL, dbLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	// Audio storage
	audio, err := storage.New(cfg.S3, cfg.AudioDir, log.With().Str("component", "storage").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audio storage")
	}

	// Speech-to-text and summarization
	stt, err := transcribe.New(transcribe.Options{
		Provider: cfg.STTProvider,
		URL:      cfg.WhisperURL,
		Model:    cfg.WhisperModel,
		APIKey:   cfg.TranscribeAPIKey(),
		Language: cfg.WhisperLanguage,
		Keyterms: cfg.STTKeyterms,
		Timeout:  cfg.WhisperTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure transcription provider")
	}
	summarizer := summarize.New(summarize.NewChatClient(cfg.LLMURL, cfg.LLMModel, cfg.LLMAPIKey, cfg.LLMTimeout))

	preprocess := cfg.PreprocessAudio
	if preprocess && !transcribe.CheckSox() {
		log.Warn().Msg("PREPROCESS_AUDIO is set but sox was not found; uploading audio unprocessed")
		preprocess = false
	}

	// MQTT (optional)
	deps := clinic.Deps{
		Store:           db,
		Audio:           audio,
		Transcriber:     stt,
		Summarizer:      summarizer,
		PreprocessAudio: preprocess,
		Log:             log,
	}
	var mqttStatus api.ConnectionStatus
	if cfg.MQTTBrokerURL != "" {
		mqtt, err := mqttclient.Connect(mqttclient.Options{
			BrokerURL:   cfg.MQTTBrokerURL,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
			Log:         log.With().Str("component", "mqtt").Logger(),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer mqtt.Close()
		deps.Events = mqtt
		mqttStatus = mqtt
	} else {
		log.Info().Msg("MQTT_BROKER_URL not set, event publishing disabled")
	}

	svc := clinic.New(deps)
	prometheus.MustRegister(metrics.NewCollector(db.Pool, svc))

	log.Info().
		Str("stt_provider", stt.Name()).
		Str("stt_model", stt.Model()).
		Str("llm_model", cfg.LLMModel).
		Str("storage", audio.Type()).
		Bool("preprocess", preprocess).
		Msg("services configured")

	// HTTP Server
	srv := api.NewServer(cfg, api.ServerOptions{
		Service:     svc,
		DB:          db,
		MQTT:        mqttStatus,
		StorageType: audio.Type(),
		Version:     version,
		StartTime:   startTime,
		Log:         log.With().Str("component", "http").Logger(),
	})

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 30s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("clinic-engine stopped")
}
