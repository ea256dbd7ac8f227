// Package rng provides deterministic random streams behind the
// ports.RandomPort boundary.
package rng

import (
	"context"
	"hash/fnv"
	"math/rand"

	"github.com/google/uuid"

	"gotemper/ports"
)

// SeededSource derives independent generators by mixing a base seed with
// a stream name, so every stage of a run draws from its own sequence and
// identical seeds reproduce identical runs.
type SeededSource struct{}

// NewSeededSource creates the default random port implementation.
func NewSeededSource() *SeededSource {
	return &SeededSource{}
}

// SeededStream implements ports.RandomPort.
func (s *SeededSource) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(mix(name, seed))), nil
}

// Stream implements ports.RandomPort.
func (s *SeededSource) Stream(ctx context.Context, runID uuid.UUID, stage string, baseSeed int64) (*rand.Rand, error) {
	return s.SeededStream(ctx, runID.String()+"/"+stage, baseSeed)
}

func mix(name string, seed int64) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64()) ^ seed
}

var _ ports.RandomPort = (*SeededSource)(nil)
