// Package fixture loads the identifiers virtual users act on. The snapshot
// is taken once per run and never refreshed.
package fixture

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/example/restarate/loadgen/internal/api"
)

// Snapshot holds the dish and review ids present when the run started.
// It is immutable; accessors return copies.
type Snapshot struct {
	dishIDs   []int64
	reviewIDs []int64
}

// NewSnapshot builds a snapshot from explicit id lists.
func NewSnapshot(dishIDs, reviewIDs []int64) Snapshot {
	return Snapshot{
		dishIDs:   slices.Clone(dishIDs),
		reviewIDs: slices.Clone(reviewIDs),
	}
}

// DishIDs returns a copy of the dish ids.
func (s Snapshot) DishIDs() []int64 { return slices.Clone(s.dishIDs) }

// ReviewIDs returns a copy of the review ids.
func (s Snapshot) ReviewIDs() []int64 { return slices.Clone(s.reviewIDs) }

// Empty reports whether neither list has entries.
func (s Snapshot) Empty() bool {
	return len(s.dishIDs) == 0 && len(s.reviewIDs) == 0
}

// Source is the part of the API the loader needs.
type Source interface {
	DishIDs(ctx context.Context) ([]int64, error)
	ReviewIDs(ctx context.Context) ([]int64, error)
}

// Load reads the dish and review catalogs once. Failures are logged and
// leave the affected list empty; Load itself never fails.
func Load(ctx context.Context, src Source, log *zap.Logger) Snapshot {
	var snap Snapshot

	dishes, err := src.DishIDs(ctx)
	if err != nil {
		logLoadError(log, "dishes", err)
	} else {
		snap.dishIDs = dishes
		log.Info("dishes loaded", zap.Int("count", len(dishes)))
	}

	reviews, err := src.ReviewIDs(ctx)
	if err != nil {
		logLoadError(log, "reviews", err)
	} else {
		snap.reviewIDs = reviews
		log.Info("reviews loaded", zap.Int("count", len(reviews)))
	}

	return snap
}

func logLoadError(log *zap.Logger, what string, err error) {
	switch api.KindOf(err) {
	case api.KindStatus:
		log.Warn("fixture list unavailable", zap.String("resource", what), zap.Int("status", api.StatusOf(err)))
	default:
		log.Error("fixture list failed", zap.String("resource", what), zap.Stringer("kind", api.KindOf(err)), zap.Error(err))
	}
}
