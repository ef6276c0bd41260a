package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/config"
	"alfredoptarigan/cv-ranker/internal/handlers"
	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/repositories"
	"alfredoptarigan/cv-ranker/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}
	defer zl.Sync()
	zl.Info("✅ Config loaded successfully", zap.String("env", cfg.Server.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.InitDatabase(cfg, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize database", zap.Error(err))
	}

	sessionRepo := repositories.NewSessionRepository(db)
	docRepo := repositories.NewDocumentRepository(db)
	zl.Info("✅ Repositories initialized successfully")

	storageService := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.MaxFileSize)
	if err := storageService.EnsureUploadDir(); err != nil {
		zl.Fatal("❌ Failed to create upload directory", zap.Error(err))
	}

	geminiService, err := services.NewGeminiService(ctx, services.GeminiOptions{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		EmbedModel:  cfg.Gemini.EmbedModel,
		Temperature: 0.2,
	}, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize Gemini AI", zap.Error(err))
	}
	zl.Info("✅ Gemini AI initialized successfully", zap.String("model", cfg.Gemini.Model))

	store, err := newVectorStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize vector store", zap.Error(err))
	}

	extractor, err := services.NewStructuredExtractor(geminiService, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize extractor", zap.Error(err))
	}

	rankingService := services.NewRankingService(
		services.NewDocumentNormalizer(),
		services.NewTextChunker(cfg.Ranking.ChunkTokens, cfg.Ranking.ChunkOverlapTokens),
		extractor,
		services.NewEmbedder(geminiService, cfg.Qdrant.VectorSize, zl),
		store,
		geminiService,
		services.RankingOptions{
			Workers:        cfg.Ranking.Workers,
			QueryTopK:      cfg.Ranking.QueryTopK,
			CallTimeout:    cfg.Ranking.CallTimeout,
			ExplainTimeout: cfg.Ranking.ExplainTimeout,
		},
		zl,
	)
	zl.Info("✅ Services initialized successfully")

	sessions := services.NewSessionManager(storageService, store, zl)
	janitor := services.NewJanitor(sessions, sessionRepo, cfg.Session.TTL, cfg.Session.CleanupInterval, zl)
	janitor.Start(ctx)

	rankHandler := handlers.NewRankHandler(
		sessions,
		storageService,
		rankingService,
		sessionRepo,
		docRepo,
		handlers.RankHandlerOptions{
			DefaultTopN: cfg.Ranking.DefaultTopN,
			MaxFiles:    cfg.Storage.MaxFiles,
			MaxFileSize: cfg.Storage.MaxFileSize,
		},
		zl,
	)
	sessionHandler := handlers.NewSessionHandler(sessions, storageService, sessionRepo, docRepo, zl)
	zl.Info("✅ Handlers initialized")

	app := fiber.New(fiber.Config{
		AppName:      "CV Ranker API",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		BodyLimit:    int(cfg.Storage.MaxFileSize) * cfg.Storage.MaxFiles,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.RegisterRoutes(app, rankHandler, sessionHandler)

	go func() {
		<-ctx.Done()
		zl.Info("🛑 Shutting down server...")
		janitor.Stop()
		if err := app.Shutdown(); err != nil {
			zl.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zl.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zl.Fatal("❌ Failed to start server", zap.Error(err))
	}
}

func newVectorStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (services.VectorStore, error) {
	if cfg.Vector.Backend == "memory" {
		zl.Warn("⚠️ Using in-memory vector store, vectors are lost on restart")
		return services.NewMemoryStore(), nil
	}

	store, err := services.NewQdrantStore(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		cfg.Qdrant.VectorSize,
		zl,
	)
	if err != nil {
		return nil, err
	}

	if err := store.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	zl.Info("✅ Qdrant initialized successfully", zap.String("collection", cfg.Qdrant.Collection))

	return store, nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := handlers.StatusFor(err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
