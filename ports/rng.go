package ports

import (
	"context"
	"math/rand"

	"github.com/google/uuid"
)

// RandomPort provides seeded random number streams so that runs are
// reproducible end to end: the same seed must yield the same walker
// initialization and the same chain.
type RandomPort interface {
	// SeededStream creates a deterministic generator for a named
	// operation. The name decorrelates streams that share a base seed.
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates a deterministic generator scoped to one run and
	// one stage, so initialization and kernel draws never share state.
	Stream(ctx context.Context, runID uuid.UUID, stage string, baseSeed int64) (*rand.Rand, error)
}
