package knowledge

import (
	"errors"
	"fmt"
)

var ErrNotInitialized = errors.New("knowledge store not initialized")

// Store holds the chunked reference document. Chunks are read-only after
// construction, so lookups are safe for concurrent use.
type Store struct {
	chunks []string
	policy RetrievalPolicy
}

// NewStore builds a store over pre-chunked text.
func NewStore(chunks []string, policy RetrievalPolicy) *Store {
	if policy == nil {
		policy = FirstChunkPolicy{}
	}
	return &Store{chunks: chunks, policy: policy}
}

// Load reads a document from disk and chunks it with the given geometry.
func Load(path string, window, overlap int, policy RetrievalPolicy) (*Store, error) {
	text, err := ExtractText(path)
	if err != nil {
		return nil, err
	}

	chunks := Split(text, window, overlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s produced no chunks", path)
	}
	return NewStore(chunks, policy), nil
}

// RelevantChunk returns the grounding chunk for a query.
func (s *Store) RelevantChunk(query string) (string, error) {
	if s == nil || len(s.chunks) == 0 {
		return "", ErrNotInitialized
	}

	idx := s.policy.Select(query, s.chunks)
	if idx < 0 || idx >= len(s.chunks) {
		idx = 0
	}
	return s.chunks[idx], nil
}

// Len reports how many chunks the store holds.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.chunks)
}
