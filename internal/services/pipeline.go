package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/talent-intake/internal/models"
)

const portraitMimeType = "image/jpeg"

type pipelineResult struct {
	parsed          *models.ParsedCandidate
	fit             *models.FitEvaluation
	duplicateReason string
	candidateID     uuid.UUID
}

// process runs one item through the pipeline and records its final state.
func (q *uploadQueue) process(ctx context.Context, entry *queueEntry) {
	item := entry.item
	log.Printf("👷 Processing upload %s (%s)\n", item.ID, item.FileName)

	result, err := q.runPipeline(ctx, entry.source, item.TargetJobID)
	if err != nil {
		log.Printf("❌ Upload %s failed: %v\n", item.ID, err)
		q.transition(entry, func(it *models.UploadItem) {
			it.Status = models.UploadError
			it.ErrorMessage = err.Error()
		})
		return
	}

	summary := func(it *models.UploadItem) {
		it.CandidateName = result.parsed.FullName
		it.CandidateEmail = result.parsed.Email
		it.HasPortrait = len(result.parsed.Portrait) > 0
		it.Fit = result.fit
	}

	if result.duplicateReason != "" {
		log.Printf("⚠️  Upload %s flagged as duplicate: %s\n", item.ID, result.duplicateReason)
		q.mu.Lock()
		entry.parsed = result.parsed
		q.mu.Unlock()
		q.transition(entry, func(it *models.UploadItem) {
			summary(it)
			it.Status = models.UploadDuplicate
			it.DuplicateReason = result.duplicateReason
		})
		return
	}

	candidateID := result.candidateID
	q.transition(entry, func(it *models.UploadItem) {
		summary(it)
		it.Status = models.UploadSuccess
		it.CandidateID = &candidateID
	})
	log.Printf("✅ Upload %s completed as candidate %s\n", item.ID, candidateID)
}

// runPipeline executes resize, extraction, portrait crop, fit scoring,
// duplicate check and persistence in that order. Portrait and fit failures
// are logged and ignored; anything else aborts the item.
func (q *uploadQueue) runPipeline(ctx context.Context, src UploadFile, targetJobID *uuid.UUID) (result *pipelineResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	payload, payloadMime, err := q.images.Resize(src.Data, src.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare file: %w", err)
	}

	extraction, err := q.extractor.Extract(ctx, payload, payloadMime)
	if err != nil {
		return nil, err
	}
	if extraction.Degraded {
		log.Printf("⚠️  Using placeholder extraction for %s: %s\n", src.Name, extraction.DegradedReason)
	}

	parsed := extraction.Candidate
	parsed.CV = src.Data
	parsed.CVMimeType = src.MimeType

	if parsed.FaceBox != nil {
		portrait, err := q.images.CropPortrait(src.Data, src.MimeType, parsed.FaceBox)
		if err != nil {
			log.Printf("⚠️  No portrait for %s: %v\n", src.Name, err)
		} else {
			parsed.Portrait = portrait
		}
	}

	job := q.resolveJob(targetJobID)
	fit := q.scoreFit(ctx, parsed, job)

	result = &pipelineResult{parsed: &parsed, fit: fit}

	known, err := q.candidateRepo.FindAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load known candidates: %w", err)
	}
	if reason := FindDuplicate(parsed, known); reason != "" {
		result.duplicateReason = reason
		return result, nil
	}

	candidateID, err := q.persist(ctx, &parsed, fit, job)
	if err != nil {
		return nil, err
	}
	result.candidateID = candidateID

	return result, nil
}

// resolveJob returns nil when no target is set or it does not resolve.
func (q *uploadQueue) resolveJob(targetJobID *uuid.UUID) *models.Job {
	if targetJobID == nil {
		return nil
	}

	job, err := q.jobRepo.FindByID(*targetJobID)
	if err != nil {
		log.Printf("⚠️  Target job %s unavailable, skipping fit scoring: %v\n", *targetJobID, err)
		return nil
	}
	return job
}

// scoreFit never fails the item: any error or panic yields no score.
func (q *uploadQueue) scoreFit(ctx context.Context, parsed models.ParsedCandidate, job *models.Job) (fit *models.FitEvaluation) {
	if job == nil || q.scorer == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️  Fit scoring panicked for job %s: %v\n", job.ID, r)
			fit = nil
		}
	}()

	fit, err := q.scorer.Score(ctx, parsed, *job)
	if err != nil {
		log.Printf("⚠️  Fit scoring failed for job %s: %v\n", job.ID, err)
		return nil
	}
	return fit
}

// persist stores the files, the candidate and, when a job is given, the
// application. A failed application write leaves the candidate in place.
func (q *uploadQueue) persist(ctx context.Context, parsed *models.ParsedCandidate, fit *models.FitEvaluation, job *models.Job) (uuid.UUID, error) {
	now := q.now()
	candidate := newCandidateRecord(parsed, now)

	var written []string
	if len(parsed.CV) > 0 {
		filename, path, err := q.storage.SaveBytes(parsed.CV, "cv", parsed.CVMimeType)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to store CV file: %w", err)
		}
		written = append(written, filename)
		candidate.CVPath = path
	}

	if len(parsed.Portrait) > 0 {
		filename, path, err := q.storage.SaveBytes(parsed.Portrait, "photo", portraitMimeType)
		if err != nil {
			q.cleanupFiles(written)
			return uuid.Nil, fmt.Errorf("failed to store portrait: %w", err)
		}
		written = append(written, filename)
		candidate.PhotoPath = path
	}

	if err := q.candidateRepo.Create(candidate); err != nil {
		q.cleanupFiles(written)
		return uuid.Nil, err
	}

	if job != nil {
		app := newApplicationRecord(candidate.ID, job.ID, fit, now)
		if err := q.appRepo.Create(app); err != nil {
			return uuid.Nil, fmt.Errorf("candidate %s saved but application failed: %w", candidate.ID, err)
		}
	}

	if q.index != nil {
		if err := q.index.IndexCandidate(ctx, candidate); err != nil {
			log.Printf("⚠️  Failed to index candidate %s: %v\n", candidate.ID, err)
		}
	}

	return candidate.ID, nil
}

func (q *uploadQueue) cleanupFiles(filenames []string) {
	for _, name := range filenames {
		if err := q.storage.DeleteFile(name); err != nil {
			log.Printf("⚠️  Failed to clean up %s: %v\n", name, err)
		}
	}
}

func newCandidateRecord(parsed *models.ParsedCandidate, now time.Time) *models.Candidate {
	return &models.Candidate{
		ID:             uuid.New(),
		FullName:       parsed.FullName,
		Email:          parsed.Email,
		Phone:          parsed.Phone,
		Age:            parsed.Age,
		Skills:         parsed.Skills,
		Summary:        parsed.Summary,
		CurrentCompany: parsed.CurrentCompany,
		CurrentRole:    parsed.CurrentRole,
		SalaryBand:     parsed.SalaryBand,
		Benefits:       parsed.Benefits,
		Status:         models.CandidateActive,
		CVMimeType:     parsed.CVMimeType,
		Comments:       []models.Comment{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func newApplicationRecord(candidateID, jobID uuid.UUID, fit *models.FitEvaluation, now time.Time) *models.Application {
	app := &models.Application{
		ID:          uuid.New(),
		CandidateID: candidateID,
		JobID:       jobID,
		Status:      models.ApplicationNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if fit != nil {
		score := fit.Score
		reasoning := fit.Reasoning
		app.FitScore = &score
		app.FitReasoning = &reasoning
	}
	return app
}
