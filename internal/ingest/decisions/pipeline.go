// Package decisions imports Judilibre court decisions in two phases: an
// export crawl that collects decision ids into a per-jurisdiction cache
// table, and an import that fetches, enriches, embeds and stores the full
// bodies. Splitting the phases keeps the slow import immune to export
// pagination drift.
package decisions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eun-legal/backend/internal/cache/redis"
	"github.com/eun-legal/backend/internal/ingest"
	"github.com/eun-legal/backend/internal/ingest/progress"
	"github.com/eun-legal/backend/internal/metrics"
	"github.com/eun-legal/backend/internal/sourceapi/judilibre"
	"github.com/eun-legal/backend/internal/storage/models"
	"github.com/eun-legal/backend/internal/vector/milvus"
	"github.com/eun-legal/backend/pkg/abort"
	"github.com/eun-legal/backend/pkg/logger"
	"github.com/eun-legal/backend/pkg/retry"
	"github.com/eun-legal/backend/pkg/textsplit"
	"github.com/eun-legal/backend/pkg/utils"
)

const cachePageSize = 10000

type SourceAPI interface {
	Export(ctx context.Context, jurisdiction string, batch, batchSize int, dateEnd string) (*judilibre.ExportBatch, error)
	Decision(ctx context.Context, id string) (*judilibre.Decision, error)
}

type DecisionStore interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, d *models.Decision) error
	Update(ctx context.Context, d *models.Decision) error
}

type CacheStore interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, e *models.DecisionCacheEntry) error
	ReadPage(ctx context.Context, offset, limit int) ([]models.DecisionCacheEntry, error)
	Count(ctx context.Context) (int64, error)
}

type CursorStore interface {
	SaveCursor(ctx context.Context, jurisdiction string, cur redis.Cursor) error
	LoadCursor(ctx context.Context, jurisdiction string) (*redis.Cursor, error)
	ClearCursor(ctx context.Context, jurisdiction string) error
}

type VectorWriter interface {
	Upsert(ctx context.Context, points []milvus.Point) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Deps struct {
	API         SourceAPI
	Decisions   func(jurisdiction string) (DecisionStore, error)
	Cache       func(jurisdiction string) (CacheStore, error)
	Cursors     CursorStore
	Embedder    Embedder
	Chunker     *textsplit.Chunker
	Retry       retry.Config
	Collection  func(ctx context.Context, jurisdiction string) (VectorWriter, error)
	Broadcaster *progress.Broadcaster
	BlockSize   int
	BlockCount  int
	ErrorLimit  int
}

type Pipeline struct {
	api         SourceAPI
	decisions   func(jurisdiction string) (DecisionStore, error)
	cache       func(jurisdiction string) (CacheStore, error)
	cursors     CursorStore
	embedder    Embedder
	chunker     *textsplit.Chunker
	retryCfg    retry.Config
	collection  func(ctx context.Context, jurisdiction string) (VectorWriter, error)
	broadcaster *progress.Broadcaster
	blockSize   int
	blockCount  int
	errorLimit  int
}

func NewPipeline(deps Deps) *Pipeline {
	b := deps.Broadcaster
	if b == nil {
		b = progress.NewBroadcaster()
	}
	if deps.BlockCount < 1 {
		deps.BlockCount = 1
	}
	return &Pipeline{
		api:         deps.API,
		decisions:   deps.Decisions,
		cache:       deps.Cache,
		cursors:     deps.Cursors,
		embedder:    deps.Embedder,
		chunker:     deps.Chunker,
		retryCfg:    deps.Retry,
		collection:  deps.Collection,
		broadcaster: b,
		blockSize:   deps.BlockSize,
		blockCount:  deps.BlockCount,
		errorLimit:  deps.ErrorLimit,
	}
}

// BuildIDCache walks the export backwards in time, recording the ids it
// sees, until the export runs dry or the run is aborted. The crawl
// position is checkpointed after every batch, so an interrupted run
// resumes where it stopped. The number of entries recorded is returned.
func (p *Pipeline) BuildIDCache(ctx context.Context, tok abort.Token, jurisdiction string) (int, error) {
	runID := uuid.NewString()
	metrics.ImportRuns.WithLabelValues("judilibre").Inc()
	defer metrics.ImportRuns.WithLabelValues("judilibre").Dec()

	cache, err := p.cache(jurisdiction)
	if err != nil {
		return 0, err
	}
	if err := cache.Init(ctx); err != nil {
		return 0, err
	}

	cur, err := p.cursors.LoadCursor(ctx, jurisdiction)
	if err != nil {
		return 0, err
	}
	if cur == nil {
		cur = &redis.Cursor{DateEnd: time.Now().Format("2006-01-02")}
	}

	added := 0
	batches := 0
	for {
		for block := 0; block < p.blockCount; block++ {
			if tok.Aborted() {
				return added, ingest.ErrAborted
			}

			page, err := retry.DoWithResult(ctx, p.retryCfg, func() (*judilibre.ExportBatch, error) {
				return p.api.Export(ctx, jurisdiction, cur.Batch, p.blockSize, cur.DateEnd)
			})
			if err != nil {
				return added, fmt.Errorf("export failed at batch %d, date_end %s: %w", cur.Batch, cur.DateEnd, err)
			}
			if len(page.Results) == 0 {
				if err := p.cursors.ClearCursor(ctx, jurisdiction); err != nil {
					return added, err
				}
				logger.Info("Export crawl complete", zap.String("jurisdiction", jurisdiction))
				return added, nil
			}

			for _, d := range page.Results {
				entry := &models.DecisionCacheEntry{ID: d.ID, DecisionDate: d.DecisionDate}
				if err := cache.Create(ctx, entry); err != nil {
					return added, err
				}
				added++
			}

			next := nextCursor(*cur, page, p.blockSize)
			if next == *cur {
				return added, fmt.Errorf("export cursor stuck at batch %d, date_end %s", cur.Batch, cur.DateEnd)
			}
			*cur = next
			if err := p.cursors.SaveCursor(ctx, jurisdiction, *cur); err != nil {
				return added, err
			}

			batches++
			p.broadcaster.Publish(progress.Event{
				RunID:   runID,
				Source:  "judilibre",
				Entity:  jurisdiction,
				Current: batches,
				Message: fmt.Sprintf("cached %d ids, cursor at %s", added, cur.DateEnd),
			})
		}
	}
}

// nextCursor advances the crawl: a full batch means more of the same page
// window remains, a partial one means the window is exhausted and the end
// date moves back to the oldest decision seen.
func nextCursor(cur redis.Cursor, page *judilibre.ExportBatch, blockSize int) redis.Cursor {
	if len(page.Results) < blockSize {
		oldest := cur.DateEnd
		for _, d := range page.Results {
			if d.DecisionDate != "" && d.DecisionDate < oldest {
				oldest = d.DecisionDate
			}
		}
		return redis.Cursor{DateEnd: oldest, Batch: 0}
	}
	return redis.Cursor{DateEnd: cur.DateEnd, Batch: cur.Batch + 1}
}

// ImportFromCache fetches and stores every decision whose id sits in the
// cache table. Individual failures are skipped after retries; the run
// aborts itself once the cumulative error count reaches the limit, since
// that many failures means the source is down rather than flaky.
func (p *Pipeline) ImportFromCache(ctx context.Context, tok abort.Token, jurisdiction string, target ingest.Target) error {
	runID := uuid.NewString()
	metrics.ImportRuns.WithLabelValues("judilibre").Inc()
	defer metrics.ImportRuns.WithLabelValues("judilibre").Dec()

	cache, err := p.cache(jurisdiction)
	if err != nil {
		return err
	}
	store, err := p.decisions(jurisdiction)
	if err != nil {
		return err
	}
	if target.Has(ingest.TargetSQL) {
		if err := store.Init(ctx); err != nil {
			return err
		}
	}

	var col VectorWriter
	if target.Has(ingest.TargetVector) {
		if col, err = p.collection(ctx, jurisdiction); err != nil {
			return err
		}
	}

	total64, err := cache.Count(ctx)
	if err != nil {
		return err
	}
	total := int(total64)

	errorCount := 0
	for offset := 0; ; offset += cachePageSize {
		entries, err := cache.ReadPage(ctx, offset, cachePageSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			break
		}

		for i, e := range entries {
			if tok.Aborted() {
				return ingest.ErrAborted
			}

			if err := p.importDecision(ctx, tok, col, store, e.ID, target); err != nil {
				if errors.Is(err, ingest.ErrAborted) {
					return err
				}
				errorCount++
				metrics.ImportErrors.WithLabelValues("judilibre", "decision").Inc()
				logger.Error("Skipping decision",
					zap.String("decision", e.ID),
					zap.Int("errorCount", errorCount),
					zap.Error(err),
				)
				if errorCount >= p.errorLimit {
					tok.Cancel()
					return fmt.Errorf("aborting after %d consecutive import errors", errorCount)
				}
				continue
			}

			metrics.DecisionsImported.WithLabelValues(jurisdiction).Inc()
			p.broadcaster.Publish(progress.Event{
				RunID:   runID,
				Source:  "judilibre",
				Entity:  e.ID,
				Current: offset + i + 1,
				Total:   total,
				Message: jurisdiction,
			})
		}
	}

	return nil
}

func (p *Pipeline) importDecision(ctx context.Context, tok abort.Token, col VectorWriter, store DecisionStore, id string, target ingest.Target) error {
	d, err := retry.DoWithResult(ctx, p.retryCfg, func() (*judilibre.Decision, error) {
		return p.api.Decision(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to fetch decision: %w", err)
	}

	row := convert(d)

	if target.Has(ingest.TargetSQL) {
		if err := createOrUpdateDecision(ctx, store, row); err != nil {
			return err
		}
	}

	if target.Has(ingest.TargetVector) {
		if err := p.embedDecision(ctx, tok, col, d, row); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) embedDecision(ctx context.Context, tok abort.Token, col VectorWriter, d *judilibre.Decision, row *models.Decision) error {
	// Chunks are numbered per zone so ids stay stable regardless of the
	// order zones are processed in.
	ordinals := make(map[string]int)

	var points []milvus.Point
	for _, zt := range zoneTexts(d, row.Summary) {
		for _, chunk := range p.chunker.Split(zt.Text) {
			if tok.Aborted() {
				return ingest.ErrAborted
			}

			ordinal := ordinals[zt.Zone]
			ordinals[zt.Zone]++

			vec, err := retry.DoWithResult(ctx, p.retryCfg, func() ([]float32, error) {
				return p.embedder.Embed(ctx, chunk)
			})
			if err != nil {
				metrics.ChunksSkipped.WithLabelValues("judilibre").Inc()
				logger.Warn("Skipping chunk after retries",
					zap.String("decision", d.ID),
					zap.String("zone", zt.Zone),
					zap.Int("chunk", ordinal),
					zap.Error(err),
				)
				continue
			}
			metrics.ChunksEmbedded.WithLabelValues("judilibre").Inc()

			points = append(points, milvus.Point{
				ID:           utils.PointID(d.ID, zt.Zone, strconv.Itoa(ordinal)),
				Vector:       vec,
				DocID:        d.ID,
				Date:         row.DecisionDate,
				Number:       row.Number,
				Jurisdiction: row.Jurisdiction,
				Chamber:      row.Chamber,
				Location:     row.Location,
				Zone:         zt.Zone,
				Sentence:     chunk,
				Themes:       row.Themes,
				Visas:        row.Visas,
			})
		}
	}

	if err := col.Upsert(ctx, points); err != nil {
		return fmt.Errorf("failed to upsert decision points: %w", err)
	}
	return nil
}

func createOrUpdateDecision(ctx context.Context, store DecisionStore, d *models.Decision) error {
	if err := store.Create(ctx, d); err != nil {
		if uerr := store.Update(ctx, d); uerr != nil {
			return fmt.Errorf("failed to store decision %s: %w", d.ID, errors.Join(err, uerr))
		}
	}
	return nil
}
