// Package articles imports LegiFrance codes and statutes: the section tree
// is flattened and ordered, each article is fetched in full, chunked,
// embedded and written to the relational and vector stores.
package articles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eun-legal/backend/internal/ingest"
	"github.com/eun-legal/backend/internal/ingest/progress"
	"github.com/eun-legal/backend/internal/metrics"
	"github.com/eun-legal/backend/internal/sourceapi/legifrance"
	"github.com/eun-legal/backend/internal/storage/models"
	"github.com/eun-legal/backend/internal/vector/milvus"
	"github.com/eun-legal/backend/pkg/abort"
	"github.com/eun-legal/backend/pkg/logger"
	"github.com/eun-legal/backend/pkg/retry"
	"github.com/eun-legal/backend/pkg/textsplit"
	"github.com/eun-legal/backend/pkg/utils"
)

// Articles still in force carry an open-ended validity.
var defaultEndDate = time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC)

type SourceAPI interface {
	ListCodes(ctx context.Context, pageNumber int) (*legifrance.TextListPage, error)
	ListLaws(ctx context.Context) (*legifrance.TextListPage, error)
	ConsultText(ctx context.Context, textID, date string) (*legifrance.TextRoot, error)
	GetArticle(ctx context.Context, id string) (*legifrance.Article, error)
}

type CodeStore interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, c *models.CodeOrLaw) error
	Update(ctx context.Context, c *models.CodeOrLaw) error
	ReadAll(ctx context.Context) ([]models.CodeOrLaw, error)
	ReadAllLaws(ctx context.Context) ([]models.CodeOrLaw, error)
}

type ArticleStore interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, a *models.Article) error
	Update(ctx context.Context, a *models.Article) error
	ReadByCode(ctx context.Context, codeID string) ([]models.Article, error)
}

type VectorWriter interface {
	Upsert(ctx context.Context, points []milvus.Point) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CollectionProvider hands the pipeline its target collection, creating it
// on first use. Bound late because the dimension comes from the embedding
// backend.
type CollectionProvider func(ctx context.Context) (VectorWriter, error)

type Deps struct {
	API         SourceAPI
	Codes       CodeStore
	Articles    ArticleStore
	Embedder    Embedder
	Chunker     *textsplit.Chunker
	Retry       retry.Config
	Collection  CollectionProvider
	Broadcaster *progress.Broadcaster
}

type Pipeline struct {
	api         SourceAPI
	codes       CodeStore
	articles    ArticleStore
	embedder    Embedder
	chunker     *textsplit.Chunker
	retryCfg    retry.Config
	collection  CollectionProvider
	broadcaster *progress.Broadcaster
}

func NewPipeline(deps Deps) *Pipeline {
	b := deps.Broadcaster
	if b == nil {
		b = progress.NewBroadcaster()
	}
	return &Pipeline{
		api:         deps.API,
		codes:       deps.Codes,
		articles:    deps.Articles,
		embedder:    deps.Embedder,
		chunker:     deps.Chunker,
		retryCfg:    deps.Retry,
		collection:  deps.Collection,
		broadcaster: b,
	}
}

// ImportCode imports one code by its exact title. A code that cannot be
// located in the catalogue fails the whole run; individual articles that
// keep failing after retries are skipped with a log line.
func (p *Pipeline) ImportCode(ctx context.Context, tok abort.Token, title string, target ingest.Target) error {
	runID := uuid.NewString()
	metrics.ImportRuns.WithLabelValues("legifrance").Inc()
	defer metrics.ImportRuns.WithLabelValues("legifrance").Dec()

	summary, err := p.findCode(ctx, title)
	if err != nil {
		return err
	}

	root, err := retry.DoWithResult(ctx, p.retryCfg, func() (*legifrance.TextRoot, error) {
		return p.api.ConsultText(ctx, summary.ID, time.Now().Format("2006-01-02"))
	})
	if err != nil {
		return fmt.Errorf("failed to consult code %s: %w", summary.ID, err)
	}

	row := codeRow(root, summary)
	return p.importText(ctx, tok, runID, row, collectStubs(root), target)
}

// importText runs the shared tail of a code or statute import.
func (p *Pipeline) importText(ctx context.Context, tok abort.Token, runID string, row *models.CodeOrLaw, stubs []legifrance.ArticleStub, target ingest.Target) error {
	if target.Has(ingest.TargetSQL) {
		if err := p.codes.Init(ctx); err != nil {
			return err
		}
		if err := p.articles.Init(ctx); err != nil {
			return err
		}
		if err := createOrUpdateCode(ctx, p.codes, row); err != nil {
			return err
		}
	}

	var col VectorWriter
	if target.Has(ingest.TargetVector) {
		var err error
		if col, err = p.collection(ctx); err != nil {
			return err
		}
	}

	logger.Info("Importing text",
		zap.String("title", row.Title),
		zap.Int("articles", len(stubs)),
	)

	for i, stub := range stubs {
		if tok.Aborted() {
			return ingest.ErrAborted
		}

		if err := p.importArticle(ctx, tok, col, row, stub, target); err != nil {
			if errors.Is(err, ingest.ErrAborted) {
				return err
			}
			metrics.ImportErrors.WithLabelValues("legifrance", "article").Inc()
			logger.Error("Skipping article",
				zap.String("article", stub.ID),
				zap.String("number", stub.Num),
				zap.Error(err),
			)
			continue
		}

		metrics.ArticlesImported.WithLabelValues(row.Title).Inc()
		p.broadcaster.Publish(progress.Event{
			RunID:   runID,
			Source:  "legifrance",
			Entity:  stub.Num,
			Current: i + 1,
			Total:   len(stubs),
			Message: row.Title,
		})
	}

	return nil
}

func (p *Pipeline) importArticle(ctx context.Context, tok abort.Token, col VectorWriter, code *models.CodeOrLaw, stub legifrance.ArticleStub, target ingest.Target) error {
	art, err := retry.DoWithResult(ctx, p.retryCfg, func() (*legifrance.Article, error) {
		return p.api.GetArticle(ctx, stub.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to fetch article: %w", err)
	}

	text := strings.TrimSpace(utils.StripHTML(art.Texte))
	if text == "" {
		return nil
	}

	row := &models.Article{
		ID:        art.ID,
		CodeID:    code.ID,
		Number:    stub.Num,
		Text:      text,
		State:     art.Etat,
		StartDate: msToTime(art.DateDebut),
		EndDate:   endDate(art.DateFin),
	}

	if target.Has(ingest.TargetSQL) {
		if err := createOrUpdateArticle(ctx, p.articles, row); err != nil {
			return err
		}
	}

	if target.Has(ingest.TargetVector) {
		if err := p.embedArticle(ctx, tok, col, code, row); err != nil {
			return err
		}
	}

	return nil
}

// embedArticle chunks an article and writes one point per chunk. A chunk
// whose embedding keeps failing is dropped, the rest of the article still
// goes through.
func (p *Pipeline) embedArticle(ctx context.Context, tok abort.Token, col VectorWriter, code *models.CodeOrLaw, art *models.Article) error {
	chunks := p.chunker.Split(art.Text)

	var points []milvus.Point
	for i, chunk := range chunks {
		if tok.Aborted() {
			return ingest.ErrAborted
		}

		vec, err := retry.DoWithResult(ctx, p.retryCfg, func() ([]float32, error) {
			return p.embedder.Embed(ctx, chunk)
		})
		if err != nil {
			metrics.ChunksSkipped.WithLabelValues("legifrance").Inc()
			logger.Warn("Skipping chunk after retries",
				zap.String("article", art.ID),
				zap.Int("chunk", i),
				zap.Error(err),
			)
			continue
		}
		metrics.ChunksEmbedded.WithLabelValues("legifrance").Inc()

		points = append(points, milvus.Point{
			ID:       utils.PointID(art.ID, art.Number, strconv.Itoa(i)),
			Vector:   vec,
			DocID:    art.ID,
			Date:     art.StartDate.Format("2006-01-02"),
			Number:   art.Number,
			Title:    code.Title,
			Sentence: chunk,
		})
	}

	if err := col.Upsert(ctx, points); err != nil {
		return fmt.Errorf("failed to upsert article points: %w", err)
	}
	return nil
}

// findCode walks the catalogue pages until it finds the exact title, case
// insensitively, among texts still in force.
func (p *Pipeline) findCode(ctx context.Context, title string) (*legifrance.TextSummary, error) {
	want := strings.ToLower(strings.TrimSpace(title))

	for page := 1; ; page++ {
		list, err := retry.DoWithResult(ctx, p.retryCfg, func() (*legifrance.TextListPage, error) {
			return p.api.ListCodes(ctx, page)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list codes: %w", err)
		}
		if len(list.Results) == 0 {
			break
		}

		for _, r := range list.Results {
			if strings.ToLower(strings.TrimSpace(r.Title)) == want && r.Etat == "VIGUEUR" {
				found := r
				return &found, nil
			}
		}
	}

	return nil, fmt.Errorf("code %q not found in the catalogue", title)
}

// collectStubs flattens the section tree depth-first, labels the articles
// that carry no number as annexes, and orders the result.
func collectStubs(root *legifrance.TextRoot) []legifrance.ArticleStub {
	var out []legifrance.ArticleStub
	annex := 0

	add := func(a legifrance.ArticleStub) {
		a.Num = strings.TrimSpace(a.Num)
		if a.Num == "" {
			annex++
			a.Num = fmt.Sprintf("Annexe %d", annex)
		}
		out = append(out, a)
	}

	var walk func(sections []legifrance.Section, arts []legifrance.ArticleStub)
	walk = func(sections []legifrance.Section, arts []legifrance.ArticleStub) {
		for _, a := range arts {
			add(a)
		}
		for _, s := range sections {
			walk(s.Sections, s.Articles)
		}
	}
	walk(root.Sections, root.Articles)

	return arrange(out)
}

func codeRow(root *legifrance.TextRoot, summary *legifrance.TextSummary) *models.CodeOrLaw {
	title := root.Title
	if title == "" {
		title = summary.Title
	}
	titleFull := root.TitleFull
	if titleFull == "" {
		titleFull = summary.TitleFull
	}
	return &models.CodeOrLaw{
		ID:        root.ID,
		Title:     title,
		TitleFull: titleFull,
		State:     root.Etat,
		StartDate: msToTime(root.DateDebut),
		EndDate:   endDate(root.DateFin),
	}
}

// createOrUpdateCode inserts the row and falls back to an update when the
// insert fails, so re-imports converge instead of erroring out.
func createOrUpdateCode(ctx context.Context, store CodeStore, c *models.CodeOrLaw) error {
	if err := store.Create(ctx, c); err != nil {
		if uerr := store.Update(ctx, c); uerr != nil {
			return fmt.Errorf("failed to store code %s: %w", c.ID, errors.Join(err, uerr))
		}
	}
	return nil
}

func createOrUpdateArticle(ctx context.Context, store ArticleStore, a *models.Article) error {
	if err := store.Create(ctx, a); err != nil {
		if uerr := store.Update(ctx, a); uerr != nil {
			return fmt.Errorf("failed to store article %s: %w", a.ID, errors.Join(err, uerr))
		}
	}
	return nil
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func endDate(ms int64) time.Time {
	if ms == 0 {
		return defaultEndDate
	}
	return time.UnixMilli(ms).UTC()
}
