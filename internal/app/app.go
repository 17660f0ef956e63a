package app

import (
	"context"
	"fmt"
	"log"

	"alfredoptarigan/talent-intake/internal/config"
	"alfredoptarigan/talent-intake/internal/repositories"
	"alfredoptarigan/talent-intake/internal/services"
)

// App holds the collaborators shared by the API server and the ingest CLI.
type App struct {
	Config       *config.Config
	Candidates   repositories.CandidateRepository
	Jobs         repositories.JobRepository
	Applications repositories.ApplicationRepository
	Index        services.CandidateIndex
	Queue        services.UploadQueue
}

// New connects to the database, the model and the vector store and builds
// the upload queue. The queue is returned stopped.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := config.InitDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	candidateRepo := repositories.NewCandidateRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	appRepo := repositories.NewApplicationRepository(db)
	log.Println("✅ Repositories initialized successfully")

	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		return nil, err
	}

	images := services.NewImageTransformer(cfg.Image, services.NewPageRasterizer())
	pdfParser := services.NewPDFParserService()
	log.Println("✅ Services initialized successfully")

	geminiService, err := services.NewGeminiService(ctx, services.GeminiOptions{
		APIKey:       cfg.Gemini.APIKey,
		Model:        cfg.Gemini.Model,
		EmbedModel:   cfg.Gemini.EmbedModel,
		MaxRetries:   cfg.Worker.RetryMaxAttempts,
		InitialDelay: cfg.Worker.RetryInitialDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini AI: %w", err)
	}
	log.Println("✅ Gemini AI initialized successfully")

	index := newCandidateIndex(ctx, cfg, geminiService)

	queue := services.NewUploadQueue(
		images,
		services.NewCVExtractor(geminiService, pdfParser),
		services.NewFitScorer(geminiService),
		candidateRepo,
		jobRepo,
		appRepo,
		storageService,
		index,
	)
	log.Println("✅ Upload queue initialized")

	return &App{
		Config:       cfg,
		Candidates:   candidateRepo,
		Jobs:         jobRepo,
		Applications: appRepo,
		Index:        index,
		Queue:        queue,
	}, nil
}

// newCandidateIndex returns nil when Qdrant is unreachable; ingestion works
// without it and only semantic search is lost.
func newCandidateIndex(ctx context.Context, cfg *config.Config, geminiService services.GeminiService) services.CandidateIndex {
	store, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, cfg.Qdrant.VectorSize)
	if err != nil {
		log.Printf("⚠️  Semantic search disabled: %v\n", err)
		return nil
	}

	if err := store.InitCollection(ctx); err != nil {
		log.Printf("⚠️  Semantic search disabled: %v\n", err)
		return nil
	}
	log.Println("✅ Qdrant initialized successfully")

	return services.NewCandidateIndex(geminiService, store)
}
