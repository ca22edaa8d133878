package knowledge

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRelevantChunkFirstChunkPolicy(t *testing.T) {
	chunks := []string{"분실보험 약관 제1조", "보상 한도", "청구 절차"}
	s := NewStore(chunks, FirstChunkPolicy{})

	got, err := s.RelevantChunk("보험 가입 방법은?")
	if err != nil {
		t.Fatalf("RelevantChunk() error = %v", err)
	}
	if got != chunks[0] {
		t.Fatalf("RelevantChunk() = %q, want chunk 0 %q", got, chunks[0])
	}

	// The first-chunk policy ignores the query entirely.
	other, err := s.RelevantChunk("청구 절차가 궁금해요")
	if err != nil {
		t.Fatalf("RelevantChunk() error = %v", err)
	}
	if other != chunks[0] {
		t.Fatalf("RelevantChunk() = %q, want chunk 0 regardless of query", other)
	}
}

func TestRelevantChunkKeywordPolicy(t *testing.T) {
	chunks := []string{"분실보험 약관 제1조", "보상 한도와 청구 금액", "청구 절차 및 청구 서류"}
	s := NewStore(chunks, KeywordMatchPolicy{})

	got, err := s.RelevantChunk("청구 서류")
	if err != nil {
		t.Fatalf("RelevantChunk() error = %v", err)
	}
	if got != chunks[2] {
		t.Fatalf("RelevantChunk() = %q, want chunk 2 %q", got, chunks[2])
	}

	// No term hit falls back to chunk 0.
	fallback, err := s.RelevantChunk("zzz")
	if err != nil {
		t.Fatalf("RelevantChunk() error = %v", err)
	}
	if fallback != chunks[0] {
		t.Fatalf("RelevantChunk() = %q, want fallback chunk 0", fallback)
	}
}

func TestRelevantChunkUninitialized(t *testing.T) {
	var s *Store
	if _, err := s.RelevantChunk("q"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("nil store error = %v, want ErrNotInitialized", err)
	}

	empty := NewStore(nil, FirstChunkPolicy{})
	if _, err := empty.RelevantChunk("q"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("empty store error = %v, want ErrNotInitialized", err)
	}
}

func TestLoadPlainTextDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.txt")
	text := strings.Repeat("이동통신단말기 분실보험 약관 ", 50)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s, err := Load(path, 100, 20, FirstChunkPolicy{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Len() == 0 {
		t.Fatalf("Load() produced no chunks")
	}

	chunk, err := s.RelevantChunk("보험")
	if err != nil {
		t.Fatalf("RelevantChunk() error = %v", err)
	}
	if !strings.HasPrefix(text, chunk[:30]) {
		t.Fatalf("chunk 0 does not open the document: %q", chunk[:30])
	}
}

func TestLoadMissingDocument(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.txt"), 100, 20, FirstChunkPolicy{}); err == nil {
		t.Fatalf("Load() on missing file should fail")
	}
}

func TestPolicyByName(t *testing.T) {
	if _, err := PolicyByName(""); err != nil {
		t.Fatalf("default policy error = %v", err)
	}
	if _, err := PolicyByName(PolicyKeywordMatch); err != nil {
		t.Fatalf("keyword policy error = %v", err)
	}
	if _, err := PolicyByName(PolicyEmbedding); err == nil {
		t.Fatalf("embedding policy should be rejected until a backend exists")
	}
	if _, err := PolicyByName("nonsense"); err == nil {
		t.Fatalf("unknown policy should be rejected")
	}
}
