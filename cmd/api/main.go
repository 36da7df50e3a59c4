package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/eun-legal/backend/internal/api/handlers"
	"github.com/eun-legal/backend/internal/cache/redis"
	"github.com/eun-legal/backend/internal/embedding"
	"github.com/eun-legal/backend/internal/ingest/articles"
	"github.com/eun-legal/backend/internal/ingest/decisions"
	"github.com/eun-legal/backend/internal/ingest/progress"
	"github.com/eun-legal/backend/internal/metrics"
	"github.com/eun-legal/backend/internal/sourceapi/judilibre"
	"github.com/eun-legal/backend/internal/sourceapi/legifrance"
	"github.com/eun-legal/backend/internal/sourceapi/piste"
	"github.com/eun-legal/backend/internal/storage/postgres"
	"github.com/eun-legal/backend/internal/training"
	"github.com/eun-legal/backend/internal/vector/milvus"
	"github.com/eun-legal/backend/pkg/abort"
	"github.com/eun-legal/backend/pkg/config"
	appLogger "github.com/eun-legal/backend/pkg/logger"
	"github.com/eun-legal/backend/pkg/retry"
	"github.com/eun-legal/backend/pkg/textsplit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting legal corpus API server")

	metrics.Init()

	ctx := context.Background()

	if err := postgres.Bootstrap(ctx, cfg.Postgres); err != nil {
		appLogger.Fatal("Failed to bootstrap database", zap.Error(err))
	}

	pg, err := postgres.Connect(ctx, cfg.Postgres)
	if err != nil {
		appLogger.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pg.Close()

	vectorManager, err := milvus.NewManager(ctx, cfg.Milvus.Endpoint)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus manager", zap.Error(err))
	}
	defer vectorManager.Close()

	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		appLogger.Fatal("Failed to create embedding provider", zap.Error(err))
	}

	lfTokens := piste.NewTokenSource(cfg.Piste.OAuthURL, cfg.Piste.ClientID, cfg.Piste.ClientSecret)
	jlTokens := piste.NewTokenSource(cfg.Piste.OAuthURL, cfg.Piste.JudilibreClientID, cfg.Piste.JudilibreClientSecret)

	lfClient := legifrance.NewClient(cfg.LegiFrance.BaseURL, lfTokens)
	jlClient := judilibre.NewClient(cfg.Judilibre.BaseURL, jlTokens)

	codeRepo := postgres.NewCodeRepository(pg)
	articleRepo := postgres.NewArticleRepository(pg)

	chunker := textsplit.NewChunker(cfg.Import.ChunkSize, cfg.Import.ChunkOverlap)
	retryCfg := retry.Config{
		MaxAttempts: cfg.Import.RetryAttempts,
		Delay:       time.Duration(cfg.Import.RetryDelayMs) * time.Millisecond,
		Logger:      appLogger.GetLogger(),
	}

	broadcaster := progress.NewBroadcaster()

	articlePipeline := articles.NewPipeline(articles.Deps{
		API:      lfClient,
		Codes:    codeRepo,
		Articles: articleRepo,
		Embedder: embedder,
		Chunker:  chunker,
		Retry:    retryCfg,
		Collection: func(ctx context.Context) (articles.VectorWriter, error) {
			dim, err := embedder.Dimension(ctx)
			if err != nil {
				return nil, err
			}
			return vectorManager.EnsureCollection(ctx, milvus.LegiFranceCollection(dim), dim)
		},
		Broadcaster: broadcaster,
	})

	decisionPipeline := decisions.NewPipeline(decisions.Deps{
		API: jlClient,
		Decisions: func(jurisdiction string) (decisions.DecisionStore, error) {
			return postgres.NewDecisionRepository(pg, jurisdiction)
		},
		Cache: func(jurisdiction string) (decisions.CacheStore, error) {
			return postgres.NewDecisionCacheRepository(pg, jurisdiction)
		},
		Cursors:  redisClient,
		Embedder: embedder,
		Chunker:  chunker,
		Retry:    retryCfg,
		Collection: func(ctx context.Context, jurisdiction string) (decisions.VectorWriter, error) {
			dim, err := embedder.Dimension(ctx)
			if err != nil {
				return nil, err
			}
			return vectorManager.EnsureCollection(ctx, milvus.JudilibreCollection(jurisdiction, dim), dim)
		},
		Broadcaster: broadcaster,
		BlockSize:   cfg.Import.DecisionBlockSize,
		BlockCount:  cfg.Import.DecisionBlockCount,
		ErrorLimit:  cfg.Import.DecisionErrorLimit,
	})

	articleResetter := &articles.Resetter{
		Vector:   vectorManager,
		Codes:    codeRepo,
		Articles: articleRepo,
	}

	decisionResetter := &decisions.Resetter{
		Vector: vectorManager,
		Decisions: func(jurisdiction string) (decisions.Dropper, error) {
			return postgres.NewDecisionRepository(pg, jurisdiction)
		},
		Cache: func(jurisdiction string) (decisions.Dropper, error) {
			return postgres.NewDecisionCacheRepository(pg, jurisdiction)
		},
		Cursors: redisClient,
	}

	trainer := training.NewBuilder(codeRepo, articleRepo, cfg.Import.TrainingLineLimit)

	lfAborts := abort.NewController()
	jlAborts := abort.NewController()

	lfHandler := handlers.NewLegiFranceHandler(articlePipeline, articleResetter, trainer, lfAborts)
	jlHandler := handlers.NewJudilibreHandler(decisionPipeline, decisionResetter, jlAborts)
	searchHandler := handlers.NewSearchHandler(vectorManager, embedder)
	progressHandler := handlers.NewProgressHandler(broadcaster)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(httpMetrics())

	api := app.Group("/api/v1")

	api.Post("/legifrance/codes/import", lfHandler.StartCodeImport)
	api.Post("/legifrance/laws/import", lfHandler.StartLawsImport)
	api.Post("/legifrance/reembed", lfHandler.StartReembed)
	api.Post("/legifrance/abort", lfHandler.Abort)
	api.Post("/legifrance/reset", lfHandler.Reset)
	api.Get("/legifrance/training-file", lfHandler.TrainingFile)

	api.Post("/judilibre/cache/build", jlHandler.BuildCache)
	api.Post("/judilibre/cache/reset", jlHandler.ResetCache)
	api.Post("/judilibre/decisions/import", jlHandler.StartImport)
	api.Post("/judilibre/abort", jlHandler.Abort)
	api.Post("/judilibre/reset", jlHandler.Reset)

	api.Get("/collections", searchHandler.ListCollections)
	api.Post("/collections/count", searchHandler.Count)
	api.Post("/collections/find", searchHandler.Find)
	api.Post("/search", searchHandler.Search)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.Handler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/progress", websocket.New(progressHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

func httpMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Method(), path, strconv.Itoa(c.Response().StatusCode()),
		).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Method(), path).
			Observe(time.Since(start).Seconds())

		return err
	}
}
