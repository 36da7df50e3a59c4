package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/eun-legal/backend/internal/embedding"
	"github.com/eun-legal/backend/internal/vector/milvus"
	"github.com/eun-legal/backend/pkg/logger"
)

// SearchHandler exposes the vector store for verification and retrieval:
// listing collections, counting and locating points by metadata, and
// semantic search over a collection.
type SearchHandler struct {
	manager  *milvus.Manager
	embedder embedding.Provider
}

func NewSearchHandler(manager *milvus.Manager, embedder embedding.Provider) *SearchHandler {
	return &SearchHandler{manager: manager, embedder: embedder}
}

func (h *SearchHandler) ListCollections(c *fiber.Ctx) error {
	names, err := h.manager.ListCollections(c.Context())
	if err != nil {
		logger.Error("Failed to list collections", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list collections",
		})
	}
	return c.JSON(fiber.Map{
		"collections": names,
	})
}

func (h *SearchHandler) Count(c *fiber.Ctx) error {
	col, errResp := h.openCollection(c)
	if col == nil {
		return errResp
	}

	n, err := col.Count(c.Context())
	if err != nil {
		logger.Error("Failed to count points", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count points",
		})
	}
	return c.JSON(fiber.Map{
		"collection": col.Name(),
		"count":      n,
	})
}

// Find returns the ids of points matching the given exact-match filters.
func (h *SearchHandler) Find(c *fiber.Ctx) error {
	var req struct {
		Collection string            `json:"collection"`
		Filters    map[string]string `json:"filters"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if len(req.Filters) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one filter is required",
		})
	}

	col, errResp := h.openNamed(c, req.Collection)
	if col == nil {
		return errResp
	}

	ids, err := col.FindIDs(c.Context(), req.Filters)
	if err != nil {
		logger.Error("Failed to find points", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to find points",
		})
	}
	return c.JSON(fiber.Map{
		"collection": col.Name(),
		"ids":        ids,
	})
}

// Search embeds the query text and runs a similarity search.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	var req struct {
		Collection string            `json:"collection"`
		Query      string            `json:"query"`
		TopK       int               `json:"topK"`
		Filters    map[string]string `json:"filters"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	col, errResp := h.openNamed(c, req.Collection)
	if col == nil {
		return errResp
	}

	vec, err := h.embedder.Embed(c.Context(), req.Query)
	if err != nil {
		logger.Error("Failed to embed query", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to embed query",
		})
	}

	hits, err := col.Search(c.Context(), vec, req.TopK, req.Filters)
	if err != nil {
		logger.Error("Search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	return c.JSON(fiber.Map{
		"collection": col.Name(),
		"results":    hits,
	})
}

func (h *SearchHandler) openCollection(c *fiber.Ctx) (*milvus.Collection, error) {
	var req struct {
		Collection string `json:"collection"`
	}
	if err := c.BodyParser(&req); err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	return h.openNamed(c, req.Collection)
}

// openNamed loads an existing collection. The embedding dimension is
// probed from the provider, which matches because collections are named
// after the dimension that produced them.
func (h *SearchHandler) openNamed(c *fiber.Ctx, name string) (*milvus.Collection, error) {
	if name == "" {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Collection is required",
		})
	}

	exists, err := h.manager.CollectionExists(c.Context(), name)
	if err != nil {
		logger.Error("Failed to check collection", zap.Error(err))
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check collection",
		})
	}
	if !exists {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Collection not found",
		})
	}

	dim, err := h.embedder.Dimension(c.Context())
	if err != nil {
		logger.Error("Failed to probe embedding dimension", zap.Error(err))
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to probe embedding dimension",
		})
	}

	col, err := h.manager.EnsureCollection(c.Context(), name, dim)
	if err != nil {
		logger.Error("Failed to open collection", zap.Error(err))
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to open collection",
		})
	}
	return col, nil
}
