package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/voicedesk/voicedesk/internal/audiostore"
)

// ErrNoAudio marks a synthesis response that carried no audio stream. It is a
// soft failure: the answer text upstream of it remains usable.
var ErrNoAudio = errors.New("synthesis response contained no audio stream")

// Synthesizer converts answer text to a stored audio artifact and returns the
// artifact's file name.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// PollyAPI is the slice of the Amazon Polly client this package uses.
type PollyAPI interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollySynthesizer requests MP3 speech from Amazon Polly and writes it into
// the audio store under a timestamped name.
type PollySynthesizer struct {
	client     PollyAPI
	store      *audiostore.Dir
	voice      types.VoiceId
	sampleRate string
	timeout    time.Duration
}

// NewPollySynthesizer builds a synthesizer on the default AWS credential
// chain for the given region.
func NewPollySynthesizer(ctx context.Context, region, voiceID, sampleRate string, store *audiostore.Dir, timeout time.Duration) (*PollySynthesizer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewPollySynthesizerWithClient(polly.NewFromConfig(cfg), voiceID, sampleRate, store, timeout), nil
}

// NewPollySynthesizerWithClient injects a Polly client; tests use it with a
// fake.
func NewPollySynthesizerWithClient(client PollyAPI, voiceID, sampleRate string, store *audiostore.Dir, timeout time.Duration) *PollySynthesizer {
	if voiceID == "" {
		voiceID = "Seoyeon"
	}
	if sampleRate == "" {
		sampleRate = "16000"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &PollySynthesizer{
		client:     client,
		store:      store,
		voice:      types.VoiceId(voiceID),
		sampleRate: sampleRate,
		timeout:    timeout,
	}
}

func (s *PollySynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: types.OutputFormatMp3,
		VoiceId:      s.voice,
		SampleRate:   aws.String(s.sampleRate),
	})
	if err != nil {
		return "", fmt.Errorf("synthesize speech: %w", err)
	}
	if out.AudioStream == nil {
		return "", ErrNoAudio
	}
	defer out.AudioStream.Close()

	data, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return "", fmt.Errorf("read audio stream: %w", err)
	}
	if len(data) == 0 {
		return "", ErrNoAudio
	}

	name := s.store.NextName()
	if _, err := s.store.Write(name, data); err != nil {
		return "", err
	}
	return name, nil
}
