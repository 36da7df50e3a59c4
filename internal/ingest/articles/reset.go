package articles

import (
	"context"

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

// Resetter wipes the article corpus from the selected stores. Collections
// for every dimension are dropped, since each embedding model leaves its
// own behind.
type Resetter struct {
	Vector   VectorAdmin
	Codes    Dropper
	Articles Dropper
}

func (r *Resetter) Reset(ctx context.Context, target ingest.Target) error {
	if target.Has(ingest.TargetVector) {
		names, err := r.Vector.ListCollectionsWithPrefix(ctx, milvus.LegiFrancePrefix)
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
		// Children first: the article table references the code table.
		if err := r.Articles.Drop(ctx); err != nil {
			return err
		}
		if err := r.Codes.Drop(ctx); err != nil {
			return err
		}
	}

	logger.Info("Article corpus reset", zap.Uint8("target", uint8(target)))
	return nil
}
