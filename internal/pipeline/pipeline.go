package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/voicedesk/voicedesk/internal/audiostore"
	"github.com/voicedesk/voicedesk/internal/knowledge"
	"github.com/voicedesk/voicedesk/internal/llm"
	"github.com/voicedesk/voicedesk/internal/observability"
	"github.com/voicedesk/voicedesk/internal/speech"
	"github.com/voicedesk/voicedesk/internal/transcript"
)

// CallPlayer pushes an audio URL into a live call leg.
type CallPlayer interface {
	Play(ctx context.Context, callUUID, audioURL string) error
}

// Result is the outcome of one call-answering request. SynthesisErr set with
// a non-empty Answer means partial success: the text answer is valid but no
// audio was produced and no playback was attempted. PlayErr records a failed
// playback command; the artifact is still published either way.
type Result struct {
	Answer       string
	AudioFile    string
	AudioURL     string
	SynthesisErr error
	PlayErr      error
}

// Partial reports whether the request degraded to a text-only answer.
func (r Result) Partial() bool { return r.SynthesisErr != nil }

// Config wires the pipeline's collaborators.
type Config struct {
	Knowledge      *knowledge.Store
	Generator      llm.Generator
	Synthesizer    speech.Synthesizer
	Calls          CallPlayer
	Audio          *audiostore.Dir
	Transcripts    transcript.Store
	Metrics        *observability.Metrics
	Logger         zerolog.Logger
	MaxConcurrent  int
	PlaybackWindow time.Duration
}

// Pipeline sequences the call-answering stages: retrieve context, generate
// an answer, synthesize speech, publish the artifact, stream it into the
// call. External calls run under a bounded semaphore so one slow upstream
// cannot stall unrelated requests.
type Pipeline struct {
	knowledge   *knowledge.Store
	generator   llm.Generator
	synthesizer speech.Synthesizer
	calls       CallPlayer
	audio       *audiostore.Dir
	transcripts transcript.Store
	metrics     *observability.Metrics
	logger      zerolog.Logger
	sem         chan struct{}
	playWindow  time.Duration
}

func New(cfg Config) *Pipeline {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 16
	}
	playWindow := cfg.PlaybackWindow
	if playWindow <= 0 {
		playWindow = 10 * time.Second
	}
	return &Pipeline{
		knowledge:   cfg.Knowledge,
		generator:   cfg.Generator,
		synthesizer: cfg.Synthesizer,
		calls:       cfg.Calls,
		audio:       cfg.Audio,
		transcripts: cfg.Transcripts,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		sem:         make(chan struct{}, maxConcurrent),
		playWindow:  playWindow,
	}
}

func (p *Pipeline) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) release() { <-p.sem }

// Answer runs the full telephony pipeline for one question. Generation
// failure is fatal to the request; synthesis failure degrades it to a
// text-only partial result with no playback attempt.
func (p *Pipeline) Answer(ctx context.Context, question, callUUID string) (Result, error) {
	if err := p.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer p.release()

	answer, err := p.generateAnswer(ctx, question)
	if err != nil {
		p.observeOutcome("failed")
		return Result{}, err
	}

	start := time.Now()
	name, err := p.synthesizer.Synthesize(ctx, answer)
	p.observeStage("synthesize", start)
	if err != nil {
		p.logger.Warn().Err(err).Str("call_uuid", callUUID).Msg("speech synthesis failed, returning text-only answer")
		p.providerError("polly", "synthesis_failed")
		p.observeOutcome("partial")
		p.saveExchange(transcript.Exchange{
			Channel:   transcript.ChannelCall,
			SessionID: callUUID,
			Question:  question,
			Answer:    answer,
		})
		return Result{Answer: answer, SynthesisErr: err}, nil
	}
	p.countArtifact("created")

	result := Result{
		Answer:    answer,
		AudioFile: name,
		AudioURL:  p.audio.URL(name),
	}

	start = time.Now()
	playCtx, cancel := context.WithTimeout(ctx, p.playWindow)
	err = p.calls.Play(playCtx, callUUID, result.AudioURL)
	cancel()
	p.observeStage("play", start)
	if err != nil {
		// Playback refusal does not void the answer: the artifact stays
		// published and the caller still gets the text and URL.
		p.logger.Error().Err(err).Str("call_uuid", callUUID).Msg("call playback command failed")
		p.providerError("vonage", "play_failed")
		result.PlayErr = err
	}

	p.observeOutcome("success")
	p.saveExchange(transcript.Exchange{
		Channel:   transcript.ChannelCall,
		SessionID: callUUID,
		Question:  question,
		Answer:    answer,
		AudioFile: name,
	})
	return result, nil
}

// Respond runs the retrieval and generation stages only, for the chat path.
func (p *Pipeline) Respond(ctx context.Context, sessionID, message string) (string, error) {
	if err := p.acquire(ctx); err != nil {
		return "", err
	}
	defer p.release()

	answer, err := p.generateAnswer(ctx, message)
	if err != nil {
		p.observeOutcome("chat_failed")
		return "", err
	}

	p.observeOutcome("chat_success")
	p.saveExchange(transcript.Exchange{
		Channel:   transcript.ChannelChat,
		SessionID: sessionID,
		Question:  message,
		Answer:    answer,
	})
	return answer, nil
}

func (p *Pipeline) generateAnswer(ctx context.Context, question string) (string, error) {
	chunk, err := p.knowledge.RelevantChunk(question)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}

	start := time.Now()
	answer, err := p.generator.Generate(ctx, llm.ComposePrompt(question, chunk))
	p.observeStage("generate", start)
	if err != nil {
		p.providerError("openai", "generate_failed")
		return "", err
	}
	return answer, nil
}

func (p *Pipeline) saveExchange(ex transcript.Exchange) {
	if p.transcripts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.transcripts.SaveExchange(ctx, ex); err != nil {
		p.logger.Warn().Err(err).Msg("transcript save failed")
	}
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveStage(stage, time.Since(start))
	}
}

func (p *Pipeline) observeOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.PipelineRequests.WithLabelValues(outcome).Inc()
	}
}

func (p *Pipeline) providerError(provider, code string) {
	if p.metrics != nil {
		p.metrics.ProviderErrors.WithLabelValues(provider, code).Inc()
	}
}

func (p *Pipeline) countArtifact(event string) {
	if p.metrics != nil {
		p.metrics.AudioArtifacts.WithLabelValues(event).Inc()
	}
}
