package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the Kanban column of an application in a job pipeline.
type ApplicationStatus string

const (
	ApplicationNew       ApplicationStatus = "new"
	ApplicationScreening ApplicationStatus = "screening"
	ApplicationInterview ApplicationStatus = "interview"
	ApplicationOffer     ApplicationStatus = "offer"
	ApplicationHired     ApplicationStatus = "hired"
	ApplicationRejected  ApplicationStatus = "rejected"
)

type Application struct {
	ID           uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	CandidateID  uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_applications_candidate_job" json:"candidate_id"`
	JobID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_applications_candidate_job" json:"job_id"`
	Status       ApplicationStatus `gorm:"type:text;not null;default:'new'" json:"status"`
	FitScore     *int              `json:"fit_score,omitempty"`
	FitReasoning *string           `gorm:"type:text" json:"fit_reasoning,omitempty"`
	CreatedAt    time.Time         `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"type:timestamp;default:now()" json:"updated_at"`

	// Relations
	Candidate *Candidate `gorm:"foreignKey:CandidateID" json:"candidate,omitempty"`
	Job       *Job       `gorm:"foreignKey:JobID" json:"-"`
}

func (Application) TableName() string {
	return "applications"
}
