package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/voicedesk/voicedesk/internal/audiostore"
	"github.com/voicedesk/voicedesk/internal/chat"
	"github.com/voicedesk/voicedesk/internal/config"
	"github.com/voicedesk/voicedesk/internal/httpapi"
	"github.com/voicedesk/voicedesk/internal/knowledge"
	"github.com/voicedesk/voicedesk/internal/llm"
	"github.com/voicedesk/voicedesk/internal/observability"
	"github.com/voicedesk/voicedesk/internal/pipeline"
	"github.com/voicedesk/voicedesk/internal/speech"
	"github.com/voicedesk/voicedesk/internal/transcript"
	"github.com/voicedesk/voicedesk/internal/vonage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := observability.NewLogger("info", false)
		bootLogger.Fatal().Err(err).Msg("config error")
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogPretty)
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	policy, err := knowledge.PolicyByName(cfg.RetrievalPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("retrieval policy init failed")
	}
	store, err := knowledge.Load(cfg.DocumentPath, cfg.ChunkSize, cfg.ChunkOverlap, policy)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DocumentPath).Msg("policy document load failed")
	}
	logger.Info().Int("chunks", store.Len()).Str("path", cfg.DocumentPath).Msg("policy document loaded")

	audioDir, err := audiostore.New(cfg.AudioDir, cfg.PublicBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("audio store init failed")
	}

	ctx := context.Background()
	transcripts, err := transcript.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("transcript store init failed")
	}
	defer transcripts.Close()

	synthesizer, err := speech.NewPollySynthesizer(ctx, cfg.AWSRegion, cfg.PollyVoiceID, cfg.PollySampleRate, audioDir, cfg.TTSTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("speech synthesizer init failed")
	}

	tokens := vonage.NewTokenSource(cfg.VonageApplicationID, cfg.VonagePrivateKeyPath, cfg.VonageTokenTTL)
	calls := vonage.NewClient(cfg.VonageAPIBaseURL, tokens, cfg.CallControlTimeout)

	generator := llm.NewOpenAIGenerator(llm.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: float32(cfg.OpenAITemperature),
		MaxRetries:  cfg.LLMMaxRetries,
		Timeout:     cfg.LLMTimeout,
	})

	pipe := pipeline.New(pipeline.Config{
		Knowledge:      store,
		Generator:      generator,
		Synthesizer:    synthesizer,
		Calls:          calls,
		Audio:          audioDir,
		Transcripts:    transcripts,
		Metrics:        metrics,
		Logger:         logger.With().Str("component", "pipeline").Logger(),
		MaxConcurrent:  cfg.MaxConcurrentPipelines,
		PlaybackWindow: cfg.CallControlTimeout,
	})

	sessions := chat.NewManager()
	api := httpapi.New(cfg, pipe, sessions, audioDir, metrics, logger.With().Str("component", "httpapi").Logger())

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	audioDir.StartJanitor(runCtx, cfg.AudioJanitorInterval, cfg.AudioRetention, func(n int) {
		metrics.AudioArtifacts.WithLabelValues("evicted").Add(float64(n))
		logger.Debug().Int("evicted", n).Msg("audio retention sweep")
	})

	go func() {
		logger.Info().Str("addr", cfg.BindAddr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	logger.Info().Msg("shutdown complete")
}
