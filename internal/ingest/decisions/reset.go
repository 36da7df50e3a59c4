package decisions

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eun-legal/backend/internal/ingest"
	"github.com/eun-legal/backend/internal/vector/milvus"
	"github.com/eun-legal/backend/pkg/logger"
)

type VectorAdmin interface {
	ListCollectionsWithPrefix(ctx context.Context, prefix string) ([]string, error)
	DropCollection(ctx context.Context, name string) error
}

type Dropper interface {
	Drop(ctx context.Context) error
}

type CursorClearer interface {
	ClearCursor(ctx context.Context, jurisdiction string) error
}

// Resetter wipes one jurisdiction's decision corpus from the selected
// stores.
type Resetter struct {
	Vector    VectorAdmin
	Decisions func(jurisdiction string) (Dropper, error)
	Cache     func(jurisdiction string) (Dropper, error)
	Cursors   CursorClearer
}

func (r *Resetter) Reset(ctx context.Context, jurisdiction string, target ingest.Target) error {
	if target.Has(ingest.TargetVector) {
		prefix := fmt.Sprintf("%s%s_", milvus.JudilibrePrefix, jurisdiction)
		names, err := r.Vector.ListCollectionsWithPrefix(ctx, prefix)
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := r.Vector.DropCollection(ctx, name); err != nil {
				return err
			}
		}
	}

	if target.Has(ingest.TargetSQL) {
		store, err := r.Decisions(jurisdiction)
		if err != nil {
			return err
		}
		if err := store.Drop(ctx); err != nil {
			return err
		}
	}

	logger.Info("Decision corpus reset",
		zap.String("jurisdiction", jurisdiction),
		zap.Uint8("target", uint8(target)),
	)
	return nil
}

// ResetCache drops the id cache table and the crawl checkpoint, forcing
// the next cache build to start from today.
func (r *Resetter) ResetCache(ctx context.Context, jurisdiction string) error {
	cache, err := r.Cache(jurisdiction)
	if err != nil {
		return err
	}
	if err := cache.Drop(ctx); err != nil {
		return err
	}
	if err := r.Cursors.ClearCursor(ctx, jurisdiction); err != nil {
		return err
	}

	logger.Info("Decision id cache reset", zap.String("jurisdiction", jurisdiction))
	return nil
}
