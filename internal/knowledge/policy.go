package knowledge

import (
	"fmt"
	"strings"
)

// RetrievalPolicy selects the grounding chunk for a query. Select receives a
// non-empty chunk slice and must return a valid index into it.
type RetrievalPolicy interface {
	Select(query string, chunks []string) int
}

const (
	PolicyFirstChunk   = "first_chunk"
	PolicyKeywordMatch = "keyword_match"
	PolicyEmbedding    = "embedding"
)

// FirstChunkPolicy always selects the opening chunk of the policy document.
type FirstChunkPolicy struct{}

func (FirstChunkPolicy) Select(string, []string) int { return 0 }

// KeywordMatchPolicy scores chunks by how many query terms they contain and
// falls back to chunk 0 when nothing matches.
type KeywordMatchPolicy struct{}

func (KeywordMatchPolicy) Select(query string, chunks []string) int {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}

	best, bestScore := 0, 0
	for i, chunk := range chunks {
		lower := strings.ToLower(chunk)
		score := 0
		for _, term := range terms {
			score += strings.Count(lower, term)
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// PolicyByName resolves a configured policy name. The embedding policy is
// recognized but has no backend yet, so selecting it is a configuration error.
func PolicyByName(name string) (RetrievalPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyFirstChunk:
		return FirstChunkPolicy{}, nil
	case PolicyKeywordMatch:
		return KeywordMatchPolicy{}, nil
	case PolicyEmbedding:
		return nil, fmt.Errorf("retrieval policy %q is not available: no embedding backend configured", name)
	default:
		return nil, fmt.Errorf("unknown retrieval policy %q", name)
	}
}
