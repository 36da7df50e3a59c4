package handlers

import (
	"bytes"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/eun-legal/backend/internal/ingest"
	"github.com/eun-legal/backend/internal/ingest/articles"
	"github.com/eun-legal/backend/internal/training"
	"github.com/eun-legal/backend/pkg/abort"
	"github.com/eun-legal/backend/pkg/logger"
)

type LegiFranceHandler struct {
	pipeline *articles.Pipeline
	resetter *articles.Resetter
	trainer  *training.Builder
	aborts   *abort.Controller
}

func NewLegiFranceHandler(pipeline *articles.Pipeline, resetter *articles.Resetter, trainer *training.Builder, aborts *abort.Controller) *LegiFranceHandler {
	return &LegiFranceHandler{
		pipeline: pipeline,
		resetter: resetter,
		trainer:  trainer,
		aborts:   aborts,
	}
}

// StartCodeImport launches a code import in the background. Starting a new
// import supersedes any run still in flight.
func (h *LegiFranceHandler) StartCodeImport(c *fiber.Ctx) error {
	var req struct {
		Code   string `json:"code"`
		Target string `json:"target"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Code title is required",
		})
	}

	target, err := ingest.ParseTarget(req.Target)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	tok := h.aborts.Reset()
	go func() {
		if err := h.pipeline.ImportCode(context.Background(), tok, req.Code, target); err != nil {
			if errors.Is(err, ingest.ErrAborted) {
				logger.Info("Code import aborted", zap.String("code", req.Code))
				return
			}
			logger.Error("Code import failed", zap.String("code", req.Code), zap.Error(err))
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Import started",
		"code":    req.Code,
	})
}

// StartLawsImport launches the full statute import in the background.
func (h *LegiFranceHandler) StartLawsImport(c *fiber.Ctx) error {
	var req struct {
		Target string `json:"target"`
	}
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	target, err := ingest.ParseTarget(req.Target)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	tok := h.aborts.Reset()
	go func() {
		if err := h.pipeline.ImportLaws(context.Background(), tok, target); err != nil {
			if errors.Is(err, ingest.ErrAborted) {
				logger.Info("Laws import aborted")
				return
			}
			logger.Error("Laws import failed", zap.Error(err))
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Import started",
	})
}

// StartReembed rebuilds the vector collection from the stored articles,
// without touching the source API.
func (h *LegiFranceHandler) StartReembed(c *fiber.Ctx) error {
	tok := h.aborts.Reset()
	go func() {
		if err := h.pipeline.ImportFromStore(context.Background(), tok); err != nil {
			if errors.Is(err, ingest.ErrAborted) {
				logger.Info("Re-embed aborted")
				return
			}
			logger.Error("Re-embed failed", zap.Error(err))
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Re-embed started",
	})
}

func (h *LegiFranceHandler) Abort(c *fiber.Ctx) error {
	h.aborts.Abort()
	return c.JSON(fiber.Map{
		"message": "Abort requested",
	})
}

func (h *LegiFranceHandler) Reset(c *fiber.Ctx) error {
	var req struct {
		Target string `json:"target"`
	}
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	target, err := ingest.ParseTarget(req.Target)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.resetter.Reset(c.Context(), target); err != nil {
		logger.Error("Reset failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reset article corpus",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Article corpus reset",
	})
}

// TrainingFile builds and serves the fine-tuning dataset.
func (h *LegiFranceHandler) TrainingFile(c *fiber.Ctx) error {
	var buf bytes.Buffer
	lines, err := h.trainer.BuildDataset(c.Context(), &buf)
	if err != nil {
		logger.Error("Failed to build training dataset", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build training dataset",
		})
	}

	logger.Info("Serving training dataset", zap.Int("lines", lines))
	c.Set(fiber.HeaderContentType, "application/jsonl")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="training.jsonl"`)
	return c.Send(buf.Bytes())
}
