package decisions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eun-legal/backend/internal/cache/redis"
	"github.com/eun-legal/backend/internal/ingest"
	"github.com/eun-legal/backend/internal/sourceapi/judilibre"
	"github.com/eun-legal/backend/internal/storage/models"
	"github.com/eun-legal/backend/internal/vector/milvus"
	"github.com/eun-legal/backend/pkg/abort"
	"github.com/eun-legal/backend/pkg/retry"
	"github.com/eun-legal/backend/pkg/textsplit"
)

type fakeAPI struct {
	batches   []*judilibre.ExportBatch
	served    int
	decisions map[string]*judilibre.Decision
	failIDs   map[string]bool
}

func (f *fakeAPI) Export(context.Context, string, int, int, string) (*judilibre.ExportBatch, error) {
	if f.served >= len(f.batches) {
		return &judilibre.ExportBatch{}, nil
	}
	b := f.batches[f.served]
	f.served++
	return b, nil
}

func (f *fakeAPI) Decision(_ context.Context, id string) (*judilibre.Decision, error) {
	if f.failIDs[id] {
		return nil, fmt.Errorf("decision %s unavailable", id)
	}
	d, ok := f.decisions[id]
	if !ok {
		return nil, fmt.Errorf("no such decision %s", id)
	}
	return d, nil
}

type fakeCursorStore struct {
	cursors map[string]redis.Cursor
	saves   int
}

func newFakeCursorStore() *fakeCursorStore {
	return &fakeCursorStore{cursors: make(map[string]redis.Cursor)}
}

func (s *fakeCursorStore) SaveCursor(_ context.Context, j string, cur redis.Cursor) error {
	s.saves++
	s.cursors[j] = cur
	return nil
}

func (s *fakeCursorStore) LoadCursor(_ context.Context, j string) (*redis.Cursor, error) {
	cur, ok := s.cursors[j]
	if !ok {
		return nil, nil
	}
	return &cur, nil
}

func (s *fakeCursorStore) ClearCursor(_ context.Context, j string) error {
	delete(s.cursors, j)
	return nil
}

type fakeCacheStore struct {
	entries []models.DecisionCacheEntry
	seen    map[string]bool
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{seen: make(map[string]bool)}
}

func (s *fakeCacheStore) Init(context.Context) error { return nil }

func (s *fakeCacheStore) Create(_ context.Context, e *models.DecisionCacheEntry) error {
	if s.seen[e.ID] {
		return nil
	}
	s.seen[e.ID] = true
	s.entries = append(s.entries, *e)
	return nil
}

func (s *fakeCacheStore) ReadPage(_ context.Context, offset, limit int) ([]models.DecisionCacheEntry, error) {
	if offset >= len(s.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.entries) {
		end = len(s.entries)
	}
	return s.entries[offset:end], nil
}

func (s *fakeCacheStore) Count(context.Context) (int64, error) {
	return int64(len(s.entries)), nil
}

type fakeDecisionStore struct {
	rows    map[string]models.Decision
	updates int
}

func newFakeDecisionStore() *fakeDecisionStore {
	return &fakeDecisionStore{rows: make(map[string]models.Decision)}
}

func (s *fakeDecisionStore) Init(context.Context) error { return nil }

func (s *fakeDecisionStore) Create(_ context.Context, d *models.Decision) error {
	if _, ok := s.rows[d.ID]; ok {
		return fmt.Errorf("duplicate decision %s", d.ID)
	}
	s.rows[d.ID] = *d
	return nil
}

func (s *fakeDecisionStore) Update(_ context.Context, d *models.Decision) error {
	if _, ok := s.rows[d.ID]; !ok {
		return fmt.Errorf("no such decision %s", d.ID)
	}
	s.updates++
	s.rows[d.ID] = *d
	return nil
}

type fakeVector struct {
	points map[int64]milvus.Point
}

func newFakeVector() *fakeVector {
	return &fakeVector{points: make(map[int64]milvus.Point)}
}

func (v *fakeVector) Upsert(_ context.Context, points []milvus.Point) error {
	for _, p := range points {
		v.points[p.ID] = p
	}
	return nil
}

func testPipeline(api *fakeAPI, cache *fakeCacheStore, store *fakeDecisionStore, cursors *fakeCursorStore, vec *fakeVector) *Pipeline {
	return NewPipeline(Deps{
		API:       api,
		Decisions: func(string) (DecisionStore, error) { return store, nil },
		Cache:     func(string) (CacheStore, error) { return cache, nil },
		Cursors:   cursors,
		Embedder:  embedderFunc(func(context.Context, string) ([]float32, error) { return []float32{1, 0}, nil }),
		Chunker:   textsplit.NewChunker(500, 10),
		Retry:     retry.Config{MaxAttempts: 2, Delay: time.Millisecond},
		Collection: func(context.Context, string) (VectorWriter, error) {
			return vec, nil
		},
		BlockSize:  2,
		BlockCount: 5,
		ErrorLimit: 3,
	})
}

type embedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f embedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

func decisionFixture(id string) *judilibre.Decision {
	return &judilibre.Decision{
		ID:           id,
		Jurisdiction: "cc",
		Number:       "21-12.345",
		DecisionDate: "2022-05-01",
		Summary:      "Résumé de la décision " + id + ".",
		Text:         "MOTIVATION de la décision " + id + ".",
		Zones: map[string][]judilibre.Zone{
			"motivations": {{Start: 0, End: 10}},
		},
	}
}

func TestNextCursor(t *testing.T) {
	cur := redis.Cursor{DateEnd: "2023-01-01", Batch: 2}

	full := &judilibre.ExportBatch{Results: []judilibre.Decision{
		{DecisionDate: "2022-12-30"}, {DecisionDate: "2022-12-29"},
	}}
	next := nextCursor(cur, full, 2)
	assert.Equal(t, redis.Cursor{DateEnd: "2023-01-01", Batch: 3}, next)

	partial := &judilibre.ExportBatch{Results: []judilibre.Decision{
		{DecisionDate: "2022-12-28"},
	}}
	next = nextCursor(cur, partial, 2)
	assert.Equal(t, redis.Cursor{DateEnd: "2022-12-28", Batch: 0}, next)
}

func TestBuildIDCache_CollectsAndCheckpoints(t *testing.T) {
	api := &fakeAPI{
		batches: []*judilibre.ExportBatch{
			{Results: []judilibre.Decision{
				{ID: "d1", DecisionDate: "2023-03-01"},
				{ID: "d2", DecisionDate: "2023-02-01"},
			}},
			{Results: []judilibre.Decision{
				{ID: "d3", DecisionDate: "2023-01-15"},
			}},
		},
	}
	cache := newFakeCacheStore()
	cursors := newFakeCursorStore()

	p := testPipeline(api, cache, newFakeDecisionStore(), cursors, newFakeVector())
	added, err := p.BuildIDCache(context.Background(), abort.Token{}, "cc")

	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.Len(t, cache.entries, 3)
	// The run hit the empty batch, so the checkpoint is gone.
	assert.Empty(t, cursors.cursors)
	assert.Positive(t, cursors.saves)
}

func TestBuildIDCache_DrainsBeyondOneBlockRound(t *testing.T) {
	// Five decisions spread over three batches, with only two batches per
	// block round: the crawl must keep going until the export is empty.
	api := &fakeAPI{
		batches: []*judilibre.ExportBatch{
			{Results: []judilibre.Decision{
				{ID: "d1", DecisionDate: "2023-03-01"},
				{ID: "d2", DecisionDate: "2023-02-20"},
			}},
			{Results: []judilibre.Decision{
				{ID: "d3", DecisionDate: "2023-02-10"},
				{ID: "d4", DecisionDate: "2023-02-01"},
			}},
			{Results: []judilibre.Decision{
				{ID: "d5", DecisionDate: "2023-01-15"},
			}},
		},
	}
	cache := newFakeCacheStore()
	cursors := newFakeCursorStore()

	p := NewPipeline(Deps{
		API:        api,
		Decisions:  func(string) (DecisionStore, error) { return newFakeDecisionStore(), nil },
		Cache:      func(string) (CacheStore, error) { return cache, nil },
		Cursors:    cursors,
		Retry:      retry.Config{MaxAttempts: 2, Delay: time.Millisecond},
		BlockSize:  2,
		BlockCount: 2,
	})
	added, err := p.BuildIDCache(context.Background(), abort.Token{}, "cc")

	require.NoError(t, err)
	assert.Equal(t, 5, added)
	assert.Len(t, cache.entries, 5)
	assert.Equal(t, 3, api.served)
	assert.Empty(t, cursors.cursors)
}

func TestBuildIDCache_ResumesFromCheckpoint(t *testing.T) {
	api := &fakeAPI{batches: []*judilibre.ExportBatch{{}}}
	cursors := newFakeCursorStore()
	cursors.cursors["cc"] = redis.Cursor{DateEnd: "2020-06-01", Batch: 4}

	p := testPipeline(api, newFakeCacheStore(), newFakeDecisionStore(), cursors, newFakeVector())
	_, err := p.BuildIDCache(context.Background(), abort.Token{}, "cc")
	require.NoError(t, err)
}

func TestBuildIDCache_StuckCursorFailsInsteadOfLooping(t *testing.T) {
	// A partial batch whose oldest date equals the current end date, at
	// batch zero, cannot advance the cursor.
	api := &fakeAPI{
		batches: []*judilibre.ExportBatch{
			{Results: []judilibre.Decision{{ID: "d1", DecisionDate: "2023-01-01"}}},
		},
	}
	cursors := newFakeCursorStore()
	cursors.cursors["cc"] = redis.Cursor{DateEnd: "2023-01-01", Batch: 0}

	p := testPipeline(api, newFakeCacheStore(), newFakeDecisionStore(), cursors, newFakeVector())
	_, err := p.BuildIDCache(context.Background(), abort.Token{}, "cc")

	assert.ErrorContains(t, err, "stuck")
}

func TestImportFromCache_EndToEnd(t *testing.T) {
	api := &fakeAPI{decisions: map[string]*judilibre.Decision{
		"d1": decisionFixture("d1"),
		"d2": decisionFixture("d2"),
	}}
	cache := newFakeCacheStore()
	cache.Create(context.Background(), &models.DecisionCacheEntry{ID: "d1", DecisionDate: "2023-03-01"})
	cache.Create(context.Background(), &models.DecisionCacheEntry{ID: "d2", DecisionDate: "2023-02-01"})

	store := newFakeDecisionStore()
	vec := newFakeVector()

	p := testPipeline(api, cache, store, newFakeCursorStore(), vec)
	err := p.ImportFromCache(context.Background(), abort.Token{}, "cc", ingest.TargetAll)

	require.NoError(t, err)
	assert.Len(t, store.rows, 2)
	// One summary point and one motivations point per decision.
	assert.Len(t, vec.points, 4)
}

func TestImportFromCache_RerunConverges(t *testing.T) {
	api := &fakeAPI{decisions: map[string]*judilibre.Decision{"d1": decisionFixture("d1")}}
	cache := newFakeCacheStore()
	cache.Create(context.Background(), &models.DecisionCacheEntry{ID: "d1", DecisionDate: "2023-03-01"})

	store := newFakeDecisionStore()
	vec := newFakeVector()
	p := testPipeline(api, cache, store, newFakeCursorStore(), vec)

	require.NoError(t, p.ImportFromCache(context.Background(), abort.Token{}, "cc", ingest.TargetAll))
	pointsAfterFirst := len(vec.points)

	require.NoError(t, p.ImportFromCache(context.Background(), abort.Token{}, "cc", ingest.TargetAll))
	assert.Equal(t, pointsAfterFirst, len(vec.points))
	assert.Positive(t, store.updates)
}

func TestImportFromCache_ErrorLimitAbortsRun(t *testing.T) {
	api := &fakeAPI{
		decisions: map[string]*judilibre.Decision{},
		failIDs:   map[string]bool{"d1": true, "d2": true, "d3": true, "d4": true},
	}
	cache := newFakeCacheStore()
	for _, id := range []string{"d1", "d2", "d3", "d4"} {
		cache.Create(context.Background(), &models.DecisionCacheEntry{ID: id, DecisionDate: "2023-01-01"})
	}

	ctrl := abort.NewController()
	tok := ctrl.Reset()

	p := testPipeline(api, cache, newFakeDecisionStore(), newFakeCursorStore(), newFakeVector())
	err := p.ImportFromCache(context.Background(), tok, "cc", ingest.TargetAll)

	// ErrorLimit is 3: the run gives up and cancels its own token.
	require.Error(t, err)
	assert.ErrorContains(t, err, "3")
	assert.True(t, tok.Aborted())
}
