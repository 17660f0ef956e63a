package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"alfredoptarigan/talent-intake/internal/app"
	"alfredoptarigan/talent-intake/internal/config"
	"alfredoptarigan/talent-intake/internal/models"
	"alfredoptarigan/talent-intake/internal/services"
)

var (
	ingestDir       string
	ingestJobID     string
	forceDuplicates bool
)

type summary struct {
	Success    int
	Duplicates int
	Failed     int
	Skipped    int
}

func runIngest(cmd *cobra.Command, _ []string) error {
	var targetJobID *uuid.UUID
	if ingestJobID != "" {
		id, err := uuid.Parse(ingestJobID)
		if err != nil {
			return fmt.Errorf("invalid --job-id: %w", err)
		}
		targetJobID = &id
	}

	files, skipped, err := collectFiles(ingestDir)
	if err != nil {
		return err
	}
	for _, name := range skipped {
		log.Printf("⚠️  Skipping %s: not a PDF or image\n", name)
	}
	if len(files) == 0 {
		return fmt.Errorf("no PDF or image files found in %s", ingestDir)
	}

	log.Println("🚀 Starting CV ingestion...")
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}

	queue := deps.Queue
	unsubscribe := queue.Subscribe(logProgress)
	defer unsubscribe()

	queue.Start(ctx)
	defer queue.Stop()

	queue.Enqueue(files, targetJobID)
	log.Printf("📥 Queued %d file(s) from %s\n", len(files), ingestDir)

	if err := queue.WaitIdle(ctx); err != nil {
		return fmt.Errorf("ingestion interrupted: %w", err)
	}

	if forceDuplicates {
		for _, item := range queue.Snapshot() {
			if item.Status != models.UploadDuplicate {
				continue
			}
			if _, err := queue.ForceSave(ctx, item.ID); err != nil {
				log.Printf("❌ Force save of %s failed: %v\n", item.FileName, err)
			}
		}
	}

	result := summarize(queue.Snapshot())
	result.Skipped = len(skipped)
	printSummary(result)

	if result.Failed > 0 {
		return fmt.Errorf("%d file(s) failed to ingest", result.Failed)
	}
	return nil
}

// collectFiles reads the supported files directly inside dir, sorted by name.
// Anything else is reported back as skipped.
func collectFiles(dir string) ([]services.UploadFile, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var files []services.UploadFile
	var skipped []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		mimeType := mimetype.Detect(data).String()
		if i := strings.Index(mimeType, ";"); i >= 0 {
			mimeType = mimeType[:i]
		}
		if !services.IsSupportedUpload(mimeType) {
			skipped = append(skipped, entry.Name())
			continue
		}

		files = append(files, services.UploadFile{
			Name:     entry.Name(),
			MimeType: mimeType,
			Data:     data,
		})
	}

	return files, skipped, nil
}

func logProgress(event services.QueueEvent) {
	if event.Kind != services.EventUpdated {
		return
	}

	item := event.Item
	switch item.Status {
	case models.UploadSuccess:
		line := fmt.Sprintf("   ✅ %s → %s", item.FileName, item.CandidateName)
		if item.Fit != nil {
			line += fmt.Sprintf(" (fit %d)", item.Fit.Score)
		}
		log.Println(line)
	case models.UploadDuplicate:
		log.Printf("   ⚠️  %s → duplicate (%s)\n", item.FileName, item.DuplicateReason)
	case models.UploadError:
		log.Printf("   ❌ %s → %s\n", item.FileName, item.ErrorMessage)
	}
}

func summarize(items []models.UploadItem) summary {
	var s summary
	for _, item := range items {
		switch item.Status {
		case models.UploadSuccess:
			s.Success++
		case models.UploadDuplicate:
			s.Duplicates++
		case models.UploadError:
			s.Failed++
		}
	}
	return s
}

func printSummary(s summary) {
	log.Println("\n" + strings.Repeat("=", 60))
	log.Printf("📊 Ingestion Summary:")
	log.Printf("   ✅ Saved: %d", s.Success)
	log.Printf("   ⚠️  Duplicates: %d", s.Duplicates)
	log.Printf("   ❌ Failed: %d", s.Failed)
	log.Printf("   ⏭️  Skipped: %d", s.Skipped)
	log.Println(strings.Repeat("=", 60))
}
