package models

import (
	"time"

	"github.com/google/uuid"
)

type UploadStatus string

const (
	UploadIdle       UploadStatus = "idle"
	UploadProcessing UploadStatus = "processing"
	UploadSuccess    UploadStatus = "success"
	UploadError      UploadStatus = "error"
	UploadDuplicate  UploadStatus = "duplicate"
)

// IsTerminal reports whether the status is final from the drain loop's
// point of view. DUPLICATE still waits on a user decision but is never
// picked up by the worker again.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadSuccess || s == UploadError || s == UploadDuplicate
}

const (
	DuplicateReasonEmail = "email exists"
	DuplicateReasonName  = "name exists"
)

// UploadItem is the externally visible state of one queued file.
type UploadItem struct {
	ID              uuid.UUID      `json:"id"`
	FileName        string         `json:"file_name"`
	MimeType        string         `json:"mime_type"`
	Size            int            `json:"size"`
	TargetJobID     *uuid.UUID     `json:"target_job_id,omitempty"`
	Status          UploadStatus   `json:"status"`
	CandidateName   string         `json:"candidate_name,omitempty"`
	CandidateEmail  string         `json:"candidate_email,omitempty"`
	HasPortrait     bool           `json:"has_portrait"`
	Fit             *FitEvaluation `json:"fit,omitempty"`
	CandidateID     *uuid.UUID     `json:"candidate_id,omitempty"`
	DuplicateReason string         `json:"duplicate_reason,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	EnqueuedAt      time.Time      `json:"enqueued_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
