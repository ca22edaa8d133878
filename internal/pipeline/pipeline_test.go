package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/voicedesk/voicedesk/internal/audiostore"
	"github.com/voicedesk/voicedesk/internal/knowledge"
	"github.com/voicedesk/voicedesk/internal/observability"
	"github.com/voicedesk/voicedesk/internal/transcript"
)

type fakeGenerator struct {
	answer string
	err    error
	calls  int32
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.answer, f.err
}

type fakeSynthesizer struct {
	store *audiostore.Dir
	err   error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	name := f.store.NextName()
	if _, err := f.store.Write(name, []byte("mp3")); err != nil {
		return "", err
	}
	return name, nil
}

type fakePlayer struct {
	err      error
	calls    int32
	lastUUID string
	lastURL  string
}

func (f *fakePlayer) Play(ctx context.Context, callUUID, audioURL string) error {
	atomic.AddInt32(&f.calls, 1)
	f.lastUUID = callUUID
	f.lastURL = audioURL
	return f.err
}

func testMetrics(t *testing.T) *observability.Metrics {
	t.Helper()
	return observability.NewMetrics(fmt.Sprintf("test_%d", time.Now().UnixNano()))
}

func newTestPipeline(t *testing.T, gen *fakeGenerator, synthErr, playErr error) (*Pipeline, *fakePlayer, *transcript.InMemoryStore) {
	t.Helper()

	audio, err := audiostore.New(t.TempDir(), "https://voice.example.com")
	if err != nil {
		t.Fatalf("audiostore.New() error = %v", err)
	}
	store := knowledge.NewStore([]string{"이동통신단말기 분실보험 약관 본문"}, knowledge.FirstChunkPolicy{})
	transcripts := transcript.NewInMemoryStore()
	player := &fakePlayer{err: playErr}

	p := New(Config{
		Knowledge:   store,
		Generator:   gen,
		Synthesizer: &fakeSynthesizer{store: audio, err: synthErr},
		Calls:       player,
		Audio:       audio,
		Transcripts: transcripts,
		Metrics:     testMetrics(t),
		Logger:      zerolog.Nop(),
	})
	return p, player, transcripts
}

func TestAnswerFullPipeline(t *testing.T) {
	gen := &fakeGenerator{answer: "보험 가입은 고객센터에서 진행하실 수 있습니다."}
	p, player, transcripts := newTestPipeline(t, gen, nil, nil)

	result, err := p.Answer(context.Background(), "보험 가입 방법은?", "call-uuid-1")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if result.Partial() {
		t.Fatalf("Answer() degraded to partial: %v", result.SynthesisErr)
	}
	if result.Answer != gen.answer {
		t.Errorf("answer = %q", result.Answer)
	}
	urlPattern := regexp.MustCompile(`^https://voice\.example\.com/audio/output-\d+\.mp3$`)
	if !urlPattern.MatchString(result.AudioURL) {
		t.Errorf("audio URL = %q", result.AudioURL)
	}

	if got := atomic.LoadInt32(&player.calls); got != 1 {
		t.Fatalf("playback commands = %d, want 1", got)
	}
	if player.lastUUID != "call-uuid-1" {
		t.Errorf("playback call uuid = %q", player.lastUUID)
	}
	if player.lastURL != result.AudioURL {
		t.Errorf("playback url = %q, want %q", player.lastURL, result.AudioURL)
	}

	recent, err := transcripts.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("saved exchanges = %d, want 1", len(recent))
	}
	if recent[0].Channel != transcript.ChannelCall || recent[0].AudioFile == "" {
		t.Errorf("exchange = %+v", recent[0])
	}
}

func TestAnswerGenerationFailureIsFatal(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream down")}
	p, player, _ := newTestPipeline(t, gen, nil, nil)

	_, err := p.Answer(context.Background(), "보험 가입 방법은?", "call-uuid-1")
	if err == nil {
		t.Fatalf("Answer() expected error when generation fails")
	}
	if got := atomic.LoadInt32(&player.calls); got != 0 {
		t.Errorf("playback attempted after fatal generation failure")
	}
}

func TestAnswerSynthesisFailureIsPartial(t *testing.T) {
	gen := &fakeGenerator{answer: "텍스트 답변"}
	synthErr := errors.New("no audio stream")
	p, player, transcripts := newTestPipeline(t, gen, synthErr, nil)

	result, err := p.Answer(context.Background(), "보험 해지는 어떻게 하나요?", "call-uuid-2")
	if err != nil {
		t.Fatalf("Answer() error = %v, partial degradation must not be fatal", err)
	}
	if !result.Partial() {
		t.Fatalf("Partial() = false, want true")
	}
	if result.Answer != "텍스트 답변" {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.AudioURL != "" || result.AudioFile != "" {
		t.Errorf("partial result carries audio: %+v", result)
	}
	if got := atomic.LoadInt32(&player.calls); got != 0 {
		t.Errorf("playback attempted without an artifact")
	}

	recent, err := transcripts.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 || recent[0].AudioFile != "" {
		t.Errorf("partial exchange = %+v", recent)
	}
}

func TestAnswerPlaybackFailureKeepsResult(t *testing.T) {
	gen := &fakeGenerator{answer: "답변"}
	p, _, _ := newTestPipeline(t, gen, nil, errors.New("call not answered"))

	result, err := p.Answer(context.Background(), "질문", "call-uuid-3")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if result.PlayErr == nil {
		t.Fatalf("PlayErr not recorded")
	}
	if result.AudioURL == "" {
		t.Errorf("artifact URL dropped after playback failure")
	}
}

func TestRespondChatPath(t *testing.T) {
	gen := &fakeGenerator{answer: "채팅 답변"}
	p, player, transcripts := newTestPipeline(t, gen, nil, nil)

	answer, err := p.Respond(context.Background(), "session-1", "약관 문의")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if answer != "채팅 답변" {
		t.Errorf("answer = %q", answer)
	}
	if got := atomic.LoadInt32(&player.calls); got != 0 {
		t.Errorf("chat path triggered call playback")
	}

	recent, err := transcripts.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 || recent[0].Channel != transcript.ChannelChat {
		t.Errorf("chat exchange = %+v", recent)
	}
}

func TestAnswerRespectsCancelledContext(t *testing.T) {
	gen := &fakeGenerator{answer: "답변"}
	p, _, _ := newTestPipeline(t, gen, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Fill the semaphore so acquisition has to wait on the context.
	for i := 0; i < cap(p.sem); i++ {
		p.sem <- struct{}{}
	}
	if _, err := p.Answer(ctx, "질문", "call-uuid-4"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Answer() error = %v, want context.Canceled", err)
	}
}
