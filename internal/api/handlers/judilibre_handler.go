package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/eun-legal/backend/internal/ingest"
	"github.com/eun-legal/backend/internal/ingest/decisions"
	"github.com/eun-legal/backend/pkg/abort"
	"github.com/eun-legal/backend/pkg/logger"
)

type JudilibreHandler struct {
	pipeline *decisions.Pipeline
	resetter *decisions.Resetter
	aborts   *abort.Controller
}

func NewJudilibreHandler(pipeline *decisions.Pipeline, resetter *decisions.Resetter, aborts *abort.Controller) *JudilibreHandler {
	return &JudilibreHandler{
		pipeline: pipeline,
		resetter: resetter,
		aborts:   aborts,
	}
}

// BuildCache runs one slice of the export crawl in the background,
// collecting decision ids into the jurisdiction's cache table.
func (h *JudilibreHandler) BuildCache(c *fiber.Ctx) error {
	jurisdiction, ok := parseJurisdiction(c)
	if !ok {
		return jurisdictionError(c)
	}

	tok := h.aborts.Reset()
	go func() {
		added, err := h.pipeline.BuildIDCache(context.Background(), tok, jurisdiction)
		if err != nil {
			if errors.Is(err, ingest.ErrAborted) {
				logger.Info("Cache build aborted", zap.String("jurisdiction", jurisdiction))
				return
			}
			logger.Error("Cache build failed", zap.String("jurisdiction", jurisdiction), zap.Error(err))
			return
		}
		logger.Info("Cache build slice finished",
			zap.String("jurisdiction", jurisdiction),
			zap.Int("added", added),
		)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":      "Cache build started",
		"jurisdiction": jurisdiction,
	})
}

// StartImport launches the decision import for one jurisdiction in the
// background, consuming the previously built id cache.
func (h *JudilibreHandler) StartImport(c *fiber.Ctx) error {
	var req struct {
		Jurisdiction string `json:"jurisdiction"`
		Target       string `json:"target"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Jurisdiction == "" {
		return jurisdictionError(c)
	}

	target, err := ingest.ParseTarget(req.Target)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	tok := h.aborts.Reset()
	go func() {
		if err := h.pipeline.ImportFromCache(context.Background(), tok, req.Jurisdiction, target); err != nil {
			if errors.Is(err, ingest.ErrAborted) {
				logger.Info("Decision import aborted", zap.String("jurisdiction", req.Jurisdiction))
				return
			}
			logger.Error("Decision import failed", zap.String("jurisdiction", req.Jurisdiction), zap.Error(err))
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":      "Import started",
		"jurisdiction": req.Jurisdiction,
	})
}

func (h *JudilibreHandler) Abort(c *fiber.Ctx) error {
	h.aborts.Abort()
	return c.JSON(fiber.Map{
		"message": "Abort requested",
	})
}

func (h *JudilibreHandler) Reset(c *fiber.Ctx) error {
	var req struct {
		Jurisdiction string `json:"jurisdiction"`
		Target       string `json:"target"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Jurisdiction == "" {
		return jurisdictionError(c)
	}

	target, err := ingest.ParseTarget(req.Target)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.resetter.Reset(c.Context(), req.Jurisdiction, target); err != nil {
		logger.Error("Reset failed", zap.String("jurisdiction", req.Jurisdiction), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reset decision corpus",
		})
	}

	return c.JSON(fiber.Map{
		"message":      "Decision corpus reset",
		"jurisdiction": req.Jurisdiction,
	})
}

func (h *JudilibreHandler) ResetCache(c *fiber.Ctx) error {
	jurisdiction, ok := parseJurisdiction(c)
	if !ok {
		return jurisdictionError(c)
	}

	if err := h.resetter.ResetCache(c.Context(), jurisdiction); err != nil {
		logger.Error("Cache reset failed", zap.String("jurisdiction", jurisdiction), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reset decision cache",
		})
	}

	return c.JSON(fiber.Map{
		"message":      "Decision cache reset",
		"jurisdiction": jurisdiction,
	})
}

func parseJurisdiction(c *fiber.Ctx) (string, bool) {
	var req struct {
		Jurisdiction string `json:"jurisdiction"`
	}
	if err := c.BodyParser(&req); err != nil || req.Jurisdiction == "" {
		return "", false
	}
	return req.Jurisdiction, true
}

func jurisdictionError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Jurisdiction is required",
	})
}
