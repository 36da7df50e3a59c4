// Package milvus manages the embedding collections. One collection exists
// per corpus and vector dimension, all sharing the same schema, so that
// switching embedding models never overwrites an existing corpus.
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/eun-legal/backend/pkg/logger"
)

const (
	// LegiFrancePrefix prefixes article collections, suffixed by dimension.
	LegiFrancePrefix = "legifrance_embeddings_"
	// JudilibrePrefix prefixes decision collections, suffixed by
	// jurisdiction and dimension.
	JudilibrePrefix = "judilibre_embeddings_"
)

func LegiFranceCollection(dim int) string {
	return fmt.Sprintf("%s%d", LegiFrancePrefix, dim)
}

func JudilibreCollection(jurisdiction string, dim int) string {
	return fmt.Sprintf("%s%s_%d", JudilibrePrefix, jurisdiction, dim)
}

type Manager struct {
	client client.Client
}

func NewManager(ctx context.Context, endpoint string) (*Manager, error) {
	c, err := client.NewGrpcClient(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized", zap.String("endpoint", endpoint))

	return &Manager{client: c}, nil
}

func (m *Manager) Close() error {
	return m.client.Close()
}

// EnsureCollection returns a handle on the named collection, creating,
// indexing and loading it first if it does not exist yet.
func (m *Manager) EnsureCollection(ctx context.Context, name string, dim int) (*Collection, error) {
	has, err := m.client.HasCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection %s: %w", name, err)
	}

	if !has {
		schema := pointSchema(name, dim)
		if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
		if err != nil {
			return nil, fmt.Errorf("failed to build index for %s: %w", name, err)
		}
		if err := m.client.CreateIndex(ctx, name, "embedding", idx, false); err != nil {
			return nil, fmt.Errorf("failed to create index on %s: %w", name, err)
		}

		logger.Info("Collection created", zap.String("collection", name), zap.Int("dim", dim))
	}

	if err := m.client.LoadCollection(ctx, name, false); err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", name, err)
	}

	return &Collection{client: m.client, name: name, dim: dim}, nil
}

func (m *Manager) CollectionExists(ctx context.Context, name string) (bool, error) {
	has, err := m.client.HasCollection(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	return has, nil
}

func (m *Manager) ListCollections(ctx context.Context) ([]string, error) {
	cols, err := m.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return names, nil
}

// ListCollectionsWithPrefix filters to one corpus family.
func (m *Manager) ListCollectionsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	all, err := m.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, n := range all {
		if strings.HasPrefix(n, prefix) {
			names = append(names, n)
		}
	}
	return names, nil
}

func (m *Manager) DropCollection(ctx context.Context, name string) error {
	if err := m.client.DropCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", name, err)
	}
	logger.Info("Collection dropped", zap.String("collection", name))
	return nil
}

func pointSchema(name string, dim int) *entity.Schema {
	varchar := func(field string, maxLength int) *entity.Field {
		return &entity.Field{
			Name:     field,
			DataType: entity.FieldTypeVarChar,
			TypeParams: map[string]string{
				"max_length": strconv.Itoa(maxLength),
			},
		}
	}

	return &entity.Schema{
		CollectionName: name,
		Description:    "French legal text embeddings",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dim),
				},
			},
			varchar("doc_id", 64),
			varchar("date", 10),
			varchar("number", 64),
			varchar("title", 512),
			varchar("jurisdiction", 16),
			varchar("chamber", 128),
			varchar("location", 128),
			varchar("zone", 32),
			varchar("sentence", 8192),
			varchar("themes", 2048),
			varchar("visas", 4096),
		},
	}
}
