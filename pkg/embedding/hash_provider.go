package embedding

import (
	"context"
	"errors"

	"corp-tax-agent-be/pkg/utils"

	"github.com/cespare/xxhash/v2"
)

// HashProvider embeds text by feature hashing its tokens into a fixed number
// of buckets. It needs no network, and identical text gives identical vectors.
type HashProvider struct {
	dimensions int
}

func NewHashProvider(dimensions int) *HashProvider {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &HashProvider{dimensions: dimensions}
}

func (p *HashProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := utils.Tokenize(text)
	if len(tokens) == 0 {
		return nil, errors.New("hash embedding: text has no tokens")
	}

	vec := make([]float32, p.dimensions)
	for _, tok := range tokens {
		h := xxhash.Sum64String(tok)
		idx := int(h % uint64(p.dimensions))
		// the top bit picks the sign so collisions tend to cancel
		if h>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{Values: normalizeVector(vec)},
	}, nil
}
