package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/eun-legal/backend/pkg/logger"
)

// Point is one embedded chunk. The ID is derived from the chunk identity,
// so writing the same chunk twice overwrites the previous point.
type Point struct {
	ID           int64
	Vector       []float32
	DocID        string
	Date         string
	Number       string
	Title        string
	Jurisdiction string
	Chamber      string
	Location     string
	Zone         string
	Sentence     string
	Themes       []string
	Visas        []string
}

type SearchHit struct {
	ID       int64
	DocID    string
	Title    string
	Zone     string
	Sentence string
	Score    float32
}

type Collection struct {
	client client.Client
	name   string
	dim    int
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) Dim() int {
	return c.dim
}

// Upsert writes the points, overwriting any existing point with the same id.
func (c *Collection) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	ids := make([]int64, len(points))
	vectors := make([][]float32, len(points))
	docIDs := make([]string, len(points))
	dates := make([]string, len(points))
	numbers := make([]string, len(points))
	titles := make([]string, len(points))
	jurisdictions := make([]string, len(points))
	chambers := make([]string, len(points))
	locations := make([]string, len(points))
	zones := make([]string, len(points))
	sentences := make([]string, len(points))
	themes := make([]string, len(points))
	visas := make([]string, len(points))

	for i, p := range points {
		ids[i] = p.ID
		vectors[i] = p.Vector
		docIDs[i] = p.DocID
		dates[i] = p.Date
		numbers[i] = p.Number
		titles[i] = p.Title
		jurisdictions[i] = p.Jurisdiction
		chambers[i] = p.Chamber
		locations[i] = p.Location
		zones[i] = p.Zone
		sentences[i] = p.Sentence
		themes[i] = marshalList(p.Themes)
		visas[i] = marshalList(p.Visas)
	}

	_, err := c.client.Upsert(
		ctx,
		c.name,
		"",
		entity.NewColumnInt64("chunk_id", ids),
		entity.NewColumnFloatVector("embedding", c.dim, vectors),
		entity.NewColumnVarChar("doc_id", docIDs),
		entity.NewColumnVarChar("date", dates),
		entity.NewColumnVarChar("number", numbers),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("jurisdiction", jurisdictions),
		entity.NewColumnVarChar("chamber", chambers),
		entity.NewColumnVarChar("location", locations),
		entity.NewColumnVarChar("zone", zones),
		entity.NewColumnVarChar("sentence", sentences),
		entity.NewColumnVarChar("themes", themes),
		entity.NewColumnVarChar("visas", visas),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	if err := c.client.Flush(ctx, c.name, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	return nil
}

// FindIDs returns the ids of points whose varchar fields exactly match the
// given filters.
func (c *Collection) FindIDs(ctx context.Context, filters map[string]string) ([]int64, error) {
	expr := buildExpr(filters)

	rs, err := c.client.Query(ctx, c.name, nil, expr, []string{"chunk_id"})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", c.name, err)
	}

	for _, col := range rs {
		if col.Name() != "chunk_id" {
			continue
		}
		idCol, ok := col.(*entity.ColumnInt64)
		if !ok {
			return nil, fmt.Errorf("unexpected chunk_id column type %T", col)
		}
		return idCol.Data(), nil
	}
	return nil, nil
}

func (c *Collection) Count(ctx context.Context) (int64, error) {
	stats, err := c.client.GetCollectionStatistics(ctx, c.name)
	if err != nil {
		return 0, fmt.Errorf("failed to get statistics for %s: %w", c.name, err)
	}
	n, err := strconv.ParseInt(stats["row_count"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse row count for %s: %w", c.name, err)
	}
	return n, nil
}

// Search runs a cosine similarity search, optionally restricted by exact
// match filters.
func (c *Collection) Search(ctx context.Context, vector []float32, topK int, filters map[string]string) ([]SearchHit, error) {
	expr := buildExpr(filters)

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	results, err := c.client.Search(
		ctx,
		c.name,
		nil,
		expr,
		[]string{"chunk_id", "doc_id", "title", "zone", "sentence"},
		[]entity.Vector{entity.FloatVector(vector)},
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", c.name, err)
	}

	var hits []SearchHit
	for _, sr := range results {
		idCol := sr.Fields.GetColumn("chunk_id")
		docCol := sr.Fields.GetColumn("doc_id")
		titleCol := sr.Fields.GetColumn("title")
		zoneCol := sr.Fields.GetColumn("zone")
		sentenceCol := sr.Fields.GetColumn("sentence")

		for i := 0; i < sr.ResultCount; i++ {
			id, _ := idCol.GetAsInt64(i)
			docID, _ := docCol.GetAsString(i)
			title, _ := titleCol.GetAsString(i)
			zone, _ := zoneCol.GetAsString(i)
			sentence, _ := sentenceCol.GetAsString(i)

			hits = append(hits, SearchHit{
				ID:       id,
				DocID:    docID,
				Title:    title,
				Zone:     zone,
				Sentence: sentence,
				Score:    sr.Scores[i],
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.String("collection", c.name),
		zap.Int("topK", topK),
		zap.Int("results", len(hits)),
	)

	return hits, nil
}

func buildExpr(filters map[string]string) string {
	var parts []string
	for _, field := range []string{"doc_id", "date", "number", "title", "jurisdiction", "chamber", "location", "zone", "sentence"} {
		if v, ok := filters[field]; ok {
			parts = append(parts, fmt.Sprintf(`%s == "%s"`, field, escapeString(v)))
		}
	}
	return strings.Join(parts, " && ")
}

func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func marshalList(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}
