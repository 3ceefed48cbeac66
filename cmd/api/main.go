package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/NaguKun/Analyseur-de-CV/docs"
	"github.com/NaguKun/Analyseur-de-CV/internal/app"
	"github.com/NaguKun/Analyseur-de-CV/internal/config"
	"github.com/NaguKun/Analyseur-de-CV/internal/handlers"
)

// @title        CV Analyser API
// @version      1.0
// @description  CV ingestion and candidate search backed by PostgreSQL and pgvector.
// @BasePath     /api/v1

func main() {
	// Load configuration
	cfg := config.Load()
	log := config.NewLogger(cfg.Log)
	log.Info("✅ Config loaded successfully", "env", cfg.Server.Env, "provider", cfg.LLM.Provider)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("❌ Failed to initialize application", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := config.Migrate(a.DB); err != nil {
		log.Error("❌ Failed to migrate database", "err", err)
		os.Exit(1)
	}
	log.Info("✅ Database migrated successfully")

	// Initialize Handlers
	uploadHandler := handlers.NewUploadHandler(a.Ingestion, a.Batch, cfg.Storage.MaxFileSize)
	searchHandler := handlers.NewSearchHandler(a.Search)
	candidateHandler := handlers.NewCandidateHandler(a.Profiles)
	log.Info("✅ Handlers initialized")

	// Create Fiber app
	server := fiber.New(fiber.Config{
		AppName:      "CV Analyser API",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) * 20,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	server.Use(recover.New())
	server.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	server.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	server.Get("/swagger/*", adaptor.HTTPHandler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	)))
	handlers.Register(server.Group("/api/v1"), uploadHandler, searchHandler, candidateHandler)

	server.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "CV Analyser API",
			"version": "1.0.0",
			"docs":    "/swagger/index.html",
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("🛑 Shutting down server...")
		if err := server.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Error("❌ Server forced to shutdown", "err", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("🚀 Server starting", "addr", addr)
	log.Info("📖 API Documentation", "url", fmt.Sprintf("http://localhost%s/swagger/index.html", addr))

	if err := server.Listen(addr); err != nil {
		log.Error("❌ Failed to start server", "err", err)
		os.Exit(1)
	}
}
