package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"alfredoptarigan/talent-intake/internal/app"
	"alfredoptarigan/talent-intake/internal/config"
	"alfredoptarigan/talent-intake/internal/handlers"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Start the upload queue worker
	deps.Queue.Start(ctx)

	// Initialize Handlers
	uploadHandler := handlers.NewUploadHandler(deps.Queue, cfg.Storage.MaxFileSize)
	candidateHandler := handlers.NewCandidateHandler(deps.Candidates, deps.Index)
	jobHandler := handlers.NewJobHandler(deps.Jobs, deps.Applications)
	log.Println("✅ Handlers initialized")

	// A multi-file upload may carry several files of MaxFileSize each.
	bodyLimit := int(cfg.Storage.MaxFileSize) * 10

	server := fiber.New(fiber.Config{
		AppName:      "Talent Intake API",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    bodyLimit,
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

	handlers.RegisterRoutes(server, uploadHandler, candidateHandler, jobHandler)

	// Root route
	server.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Talent Intake API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/uploads",
				"GET /api/v1/uploads",
				"POST /api/v1/uploads/:id/force-save",
				"GET /api/v1/candidates",
				"GET /api/v1/candidates/search?q=",
				"POST /api/v1/jobs",
				"GET /api/v1/jobs/:id/applications",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		if err := server.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := server.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}

	// The item in flight, if any, finishes before exit.
	deps.Queue.Stop()
}
